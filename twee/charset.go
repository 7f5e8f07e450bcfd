package twee

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidText is returned when UTF-8 input has byte sequences which are
// not UTF-8, usually because input is in a different character set.
var ErrInvalidText = errors.New("input is not valid UTF-8, check decoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewDecoder returns transformer converting text in enc to UTF-8. Unlike
// x/text UTF-8 decoder it does not replace invalid bytes with U+FFFD, it
// fails instead. Nil enc means UTF-8.
func NewDecoder(enc encoding.Encoding) transform.Transformer {
	if enc == nil || enc == unicode.UTF8 {
		return encoding.UTF8Validator
	}
	return enc.NewDecoder()
}

// Decode converts data in enc to UTF-8 string. When bom is true byte order
// mark, if present, selects UTF-8 or UTF-16 regardless of enc and is removed.
func Decode(data []byte, enc encoding.Encoding, bom bool) (string, error) {
	t := NewDecoder(enc)
	if bom {
		// text after UTF-8 BOM is passed through unchecked
		if bytes.HasPrefix(data, utf8BOM) && !utf8.Valid(data) {
			return "", ErrInvalidText
		}
		t = unicode.BOMOverride(t)
	}
	out, _, err := transform.Bytes(t, data)
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		return "", ErrInvalidText
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}
