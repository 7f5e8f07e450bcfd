package twee

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"twsplit/common"
)

// PassageExt is default extension of passage files.
const PassageExt = ".twee"

// ErrCollision is returned when two outputs of the same run resolve to the
// same file and collision policy is "fail".
var ErrCollision = errors.New("output file name collision")

// Writer persists passages and sections under output root. It remembers
// every file it has written, so name collisions within a single run could be
// detected. Files existing before the run are overwritten silently.
// NOTE: not to be used concurrently!
type Writer struct {
	root     string
	ext      string
	router   *Router
	enc      encoding.Encoding
	policy   common.CollisionPolicy
	translit bool
	log      *zap.Logger

	written map[string]string
}

type WriterOption func(*Writer)

// WithRouter enables subfolders, without router every passage goes to the
// output root.
func WithRouter(r *Router) WriterOption {
	return func(w *Writer) {
		w.router = r
	}
}

// WithEncoding sets output character set, UTF-8 by default.
func WithEncoding(enc encoding.Encoding) WriterOption {
	return func(w *Writer) {
		if enc != nil {
			w.enc = enc
		}
	}
}

func WithCollisionPolicy(p common.CollisionPolicy) WriterOption {
	return func(w *Writer) {
		w.policy = p
	}
}

// WithTransliteration makes all produced file names ASCII.
func WithTransliteration(on bool) WriterOption {
	return func(w *Writer) {
		w.translit = on
	}
}

func WithPassageExt(ext string) WriterOption {
	return func(w *Writer) {
		if len(ext) > 0 {
			w.ext = ext
		}
	}
}

func NewWriter(root string, log *zap.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		root:    root,
		ext:     PassageExt,
		enc:     unicode.UTF8,
		policy:  common.CollisionPolicyWarn,
		log:     log,
		written: make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns output root directory.
func (w *Writer) Root() string {
	return w.root
}

func (w *Writer) fileName(title string) string {
	name := SanitizeName(title)
	if w.translit {
		name = SanitizeName(Transliterate(name))
	}
	return name
}

// PassagePath returns location of the file passage with given title would be
// written to when routed into folder.
func (w *Writer) PassagePath(folder, title string) string {
	return filepath.Join(w.root, folder, w.fileName(title)+w.ext)
}

// WritePassage writes passage to its own file and returns file path. First
// line of the file is the original marker line, including tags, followed by
// passage body without surrounding blank lines.
func (w *Writer) WritePassage(p Passage) (string, error) {
	var folder, rule string
	if w.router != nil {
		folder, rule = w.router.route(p.Title)
	}
	path, err := w.write(w.PassagePath(folder, p.Title), p.Title, ":: "+p.Title+"\n"+trimBlankLines(p.Body))
	if err != nil {
		return "", err
	}
	w.log.Debug("Passage written", zap.String("title", p.Title), zap.String("rule", rule), zap.String("file", path))
	return path, nil
}

// WriteSection writes section of aggregate passage into folder, ext is added
// to the file name unless it is already there.
func (w *Writer) WriteSection(folder, ext string, s Section) (string, error) {
	name := w.fileName(s.Name)
	if !strings.HasSuffix(name, ext) {
		name += ext
	}
	path, err := w.write(filepath.Join(w.root, folder, name), s.Name, trimBlankLines(s.Body))
	if err != nil {
		return "", err
	}
	w.log.Debug("Section written", zap.String("name", s.Name), zap.String("file", path))
	return path, nil
}

func (w *Writer) write(path, origin, content string) (string, error) {
	path, err := w.resolve(path, origin)
	if err != nil {
		return "", err
	}

	data, err := w.enc.NewEncoder().Bytes([]byte(content))
	if err != nil {
		return "", fmt.Errorf("unable to encode '%s': %w", origin, err)
	}
	// directories are created on demand
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("unable to write '%s': %w", origin, err)
	}
	w.written[path] = origin
	return path, nil
}

// resolve applies collision policy to the path.
func (w *Writer) resolve(path, origin string) (string, error) {
	prev, exists := w.written[path]
	if !exists {
		return path, nil
	}
	switch w.policy {
	case common.CollisionPolicyFail:
		return "", fmt.Errorf("'%s' and '%s' both resolve to %s: %w", prev, origin, path, ErrCollision)
	case common.CollisionPolicySuffix:
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(path, ext)
		for n := 2; ; n++ {
			candidate := stem + " (" + strconv.Itoa(n) + ")" + ext
			if _, taken := w.written[candidate]; !taken {
				w.log.Debug("Name collision, using suffix", zap.String("was", prev), zap.String("now", origin), zap.String("file", candidate))
				return candidate, nil
			}
		}
	case common.CollisionPolicyWarn:
		w.log.Warn("Name collision, overwriting", zap.String("was", prev), zap.String("now", origin), zap.String("file", path))
	}
	return path, nil
}

// forget is called when written file is removed.
func (w *Writer) forget(path string) {
	delete(w.written, path)
}

func (w *Writer) decode(data []byte) (string, error) {
	return Decode(data, w.enc, false)
}

// Written returns paths of all files present after this run relative to
// output root in natural order.
func (w *Writer) Written() []string {
	out := make([]string, 0, len(w.written))
	for path := range w.written {
		if rel, err := filepath.Rel(w.root, path); err == nil {
			path = rel
		}
		out = append(out, path)
	}
	sort.Sort(natural.StringSlice(out))
	return out
}
