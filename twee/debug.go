package twee

import (
	"path/filepath"

	"twsplit/utils/debug"
)

type treeWriter struct {
	*debug.TreeWriter
}

// String returns a readable list of routing rules in evaluation order.
// It exists solely for manual inspection during debugging.
func (r *Router) String() string {
	if r == nil {
		return "<nil Router>"
	}
	tw := treeWriter{debug.NewTreeWriter()}
	tw.Line(0, "Router: %d rules", len(r.rules))
	for i, rule := range r.rules {
		tw.Line(1, "Rule[%d] name=%q folder=%q", i, rule.Name, rule.Folder)
	}
	return tw.String()
}

// String returns a readable tree of produced files grouped by folder, every
// file is followed by the title or section name it came from.
func (w *Writer) String() string {
	if w == nil {
		return "<nil Writer>"
	}
	tw := treeWriter{debug.NewTreeWriter()}
	tw.Line(0, "Output root: %s", w.root)

	files := w.Written()
	tw.Line(1, "Files: %d", len(files))
	current := ""
	for _, rel := range files {
		depth := 2
		if dir := filepath.Dir(rel); dir != "." {
			if dir != current {
				tw.Line(2, "%s/", filepath.ToSlash(dir))
				current = dir
			}
			depth = 3
		}
		tw.Line(depth, "%s", filepath.Base(rel))
		tw.TextBlock(depth+1, "from", w.written[filepath.Join(w.root, rel)])
	}
	return tw.String()
}
