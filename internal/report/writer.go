// Package report prints the edits twsort makes or would make.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pipe01/twsort/internal/document"
	"github.com/pipe01/twsort/internal/sorter"
)

type Writer struct {
	w io.Writer

	// ListEdits prints every edit, not just the summary.
	ListEdits bool

	files, changedFiles, edits int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEdits records the edits for a file and, if ListEdits is set, lists
// each one as "file:line:col: old -> new".
func (w *Writer) WriteEdits(doc *document.Document, edits []sorter.Replacement) {
	w.files++
	if len(edits) == 0 {
		return
	}
	w.changedFiles++
	w.edits += len(edits)

	if !w.ListEdits {
		return
	}

	for _, e := range edits {
		loc := doc.PositionAt(e.Start)
		fmt.Fprintf(w.w, "%s: %s -> %s\n", &loc, quote(doc.Text[e.Start:e.End]), quote(e.NewText))
	}
}

// WriteFileStatus prints a single line per file, used by --check.
func (w *Writer) WriteFileStatus(name string, edits int) {
	fmt.Fprintf(w.w, "%s: %d %s out of order\n", name, edits, plural(edits, "class list", "class lists"))
}

func (w *Writer) WriteSummary(written bool) {
	fmt.Fprintf(w.w, "%d %s out of order in %d of %d %s\n",
		w.edits, plural(w.edits, "class list", "class lists"),
		w.changedFiles, w.files, plural(w.files, "file", "files"))

	if written && w.changedFiles > 0 {
		fmt.Fprintf(w.w, "rewrote %d %s\n", w.changedFiles, plural(w.changedFiles, "file", "files"))
	}
}

func (w *Writer) ChangedFiles() int {
	return w.changedFiles
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\n\"") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
