// Package debug produces human readable dumps stored in debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxText limits length of text values in the dump, longer values are cut.
const MaxText = 64

// TreeWriter accumulates indented lines, two spaces per level of depth.
type TreeWriter struct {
	b strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

func (tw *TreeWriter) indent(depth int) {
	tw.b.WriteString(strings.Repeat("  ", max(depth, 0)))
}

// Line writes formatted line at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(&tw.b, format, args...)
	tw.b.WriteByte('\n')
}

// TextBlock writes label followed by quoted value, so control characters
// stay visible. Empty value is written as is.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.b.WriteString(label)
	tw.b.WriteString(": ")
	tw.b.WriteString(encodeText(value))
	tw.b.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	if utf8.RuneCountInString(raw) > MaxText {
		runes := []rune(raw)
		return strconv.Quote(string(runes[:MaxText])) + "..."
	}
	return strconv.Quote(raw)
}
