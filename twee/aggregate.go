package twee

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Aggregate describes passage which is a concatenation of sub-documents, as
// produced by tweego when story is compiled from multiple stylesheet or script
// files. Every sub-document is preceded by generated comment
//
//	/* twine-user-stylesheet #1: "main.css" */
//
// Aggregate is the contract between Writer and PostSplit: passage titled
// Passage is expected to be routed into Folder, its sections are written flat
// into the same Folder with extension Ext.
type Aggregate struct {
	Kind    string
	Passage string
	Folder  string
	Ext     string
	marker  *regexp.Regexp
}

// NewAggregate prepares aggregate description, marker is the comment keyword
// ("twine-user-stylesheet").
func NewAggregate(kind, passage, folder, marker, ext string) Aggregate {
	return Aggregate{
		Kind:    kind,
		Passage: passage,
		Folder:  folder,
		Ext:     ext,
		marker:  regexp.MustCompile(`/\* ` + regexp.QuoteMeta(marker) + ` #[0-9]+: "(.+?)" \*/`),
	}
}

func StoryStylesheet() Aggregate {
	return NewAggregate("stylesheet", "Story Stylesheet", FolderStyleSheet, "twine-user-stylesheet", ".css")
}

func StoryJavaScript() Aggregate {
	return NewAggregate("script", "Story JavaScript", FolderStoryScripts, "twine-user-script", ".js")
}

// Sections returns sub-documents of aggregate text in order. Anything before
// the first marker is dropped.
func (a Aggregate) Sections(text string) []Section {
	out, _ := sections(text, a.marker)
	return out
}

// PostSplit splits aggregate passage files previously written by w into
// section files and removes them. It must be called after all passages have
// been written. Absent aggregate is skipped. Returns number of sections
// written.
func PostSplit(w *Writer, aggregates ...Aggregate) (int, error) {
	total := 0
	for _, a := range aggregates {
		n, err := splitAggregate(w, a)
		if err != nil {
			return total, fmt.Errorf("unable to split %s: %w", a.Kind, err)
		}
		total += n
	}
	return total, nil
}

func splitAggregate(w *Writer, a Aggregate) (int, error) {
	log := w.log.With(zap.String("kind", a.Kind))

	src := w.PassagePath(a.Folder, a.Passage)
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("Aggregate not found, skipping", zap.String("file", src))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	text, err := w.decode(data)
	if err != nil {
		return 0, fmt.Errorf("unable to decode '%s': %w", src, err)
	}

	list, preamble := sections(text, a.marker)
	if len(list) == 0 {
		// nothing generated it, keep the file as is
		log.Warn("No section markers found, aggregate is left intact", zap.String("file", src))
		return 0, nil
	}
	if dropped := dropMarkerLine(preamble); len(strings.TrimSpace(dropped)) > 0 {
		log.Warn("Text before the first section is dropped", zap.String("file", src), zap.Int("bytes", len(dropped)))
	}

	log.Info("Splitting aggregate", zap.String("file", src), zap.Int("sections", len(list)))
	for _, s := range list {
		if _, err := w.WriteSection(a.Folder, a.Ext, s); err != nil {
			return 0, err
		}
	}

	if err := os.Remove(src); err != nil {
		return len(list), fmt.Errorf("unable to remove aggregate: %w", err)
	}
	w.forget(src)
	return len(list), nil
}

func dropMarkerLine(s string) string {
	if !strings.HasPrefix(s, ":: ") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return ""
}
