package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter renders a run ledger as a GitHub-flavored Markdown
// document, for sharing or archiving run results.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: w}
}

// Write renders the current ledger, diffed against the previous run's
// ledger when one is available (prev may be nil).
func (w *MarkdownWriter) Write(name string, cur, prev *Report) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Mirror Report: " + name)
	md.PlainText("")

	var duplicates, conflicts []string
	for _, e := range cur.Entries() {
		if e.Duplicate {
			duplicates = append(duplicates, e.Path)
		}
		if e.Conflict {
			conflicts = append(conflicts, e.Path)
		}
	}

	var added, stale []string
	if prev != nil {
		for _, p := range cur.Paths() {
			if !prev.Contains(p) {
				added = append(added, p)
			}
		}
		for _, p := range prev.Paths() {
			if !cur.Contains(p) {
				stale = append(stale, p)
			}
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Paths recorded", strconv.Itoa(cur.Len())},
			{"New since previous run", strconv.Itoa(len(added))},
			{"Stale (previous run only)", strconv.Itoa(len(stale))},
			{"Duplicate markings", strconv.Itoa(len(duplicates))},
			{"Conflict markings", strconv.Itoa(len(conflicts))},
		},
	})
	md.PlainText("")

	w.writePathList(md, "Tracked Paths", cur.Paths())
	w.writePathList(md, "Duplicates", duplicates)
	w.writePathList(md, "Conflicts", conflicts)
	w.writePathList(md, "New Paths", added)
	w.writePathList(md, "Stale Paths", stale)

	return md.Build()
}

// writePathList renders one titled bullet list, omitting empty sections.
func (w *MarkdownWriter) writePathList(md *markdown.Markdown, title string, paths []string) {
	if len(paths) == 0 {
		return
	}

	md.H2(title)
	items := make([]string, len(paths))
	for i, p := range paths {
		items[i] = markdown.Code(p)
	}
	md.BulletList(items...)
	md.PlainText("")
}
