// Package twee splits Twee story sources into individual passage files.
//
// Twee source is a sequence of passages, every passage starts with marker
// line ":: Title" and continues until the next marker line or end of text.
// Passage title may carry tags in square brackets ("Title [tag1 tag2]") and
// metadata in curly braces.
package twee

import (
	"iter"
	"regexp"
	"slices"
	"strings"
)

// markerLine matches passage marker anchored at the line start, RE2 has no
// lookahead so passage bodies are spans between consecutive markers.
var markerLine = regexp.MustCompile(`(?m)^:: (.*)$`)

// Passage is a single titled unit of Twee source.
type Passage struct {
	Title string
	Body  string
}

// Passages returns passages of text in source order. Text before the first
// marker line does not belong to any passage and is ignored.
func Passages(text string) iter.Seq[Passage] {
	return func(yield func(Passage) bool) {
		marks := markerLine.FindAllStringSubmatchIndex(text, -1)
		for i, m := range marks {
			end := len(text)
			if i+1 < len(marks) {
				end = marks[i+1][0]
			}
			p := Passage{
				Title: strings.TrimSuffix(text[m[2]:m[3]], "\r"),
				Body:  strings.TrimPrefix(text[m[1]:end], "\n"),
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Segment returns all passages of text.
func Segment(text string) []Passage {
	return slices.Collect(Passages(text))
}

// Section is a named sub-document of aggregate passage.
type Section struct {
	Name string
	Body string
}

// sections cuts text on marker comments, text before the first marker is
// dropped and returned separately.
func sections(text string, marker *regexp.Regexp) ([]Section, string) {
	marks := marker.FindAllStringSubmatchIndex(text, -1)
	if len(marks) == 0 {
		return nil, text
	}
	out := make([]Section, 0, len(marks))
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		out = append(out, Section{Name: text[m[2]:m[3]], Body: text[m[1]:end]})
	}
	return out, text[:marks[0][0]]
}

// trimBlankLines removes leading and trailing lines which contain nothing but
// white space. Indentation of the first meaningful line is kept.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return ""
	}
	lines[end-1] = strings.TrimSuffix(lines[end-1], "\r")
	return strings.Join(lines[start:end], "\n")
}
