// Package document maps byte offsets in a text snapshot to editor positions.
package document

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

type Location struct {
	File string

	// 0-based. Column counts UTF-16 code units, like LSP positions.
	Line, Column int
}

func (l *Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line+1, l.Column+1)
}

// Document is an immutable snapshot of a file's text.
type Document struct {
	Name string
	Text string

	lineStarts []int
}

func New(name, text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &Document{
		Name:       name,
		Text:       text,
		lineStarts: starts,
	}
}

func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// PositionAt returns the location of a byte offset. Offsets past the end are
// clamped.
func (d *Document) PositionAt(offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Text) {
		offset = len(d.Text)
	}

	line := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1

	return Location{
		File:   d.Name,
		Line:   line,
		Column: utf16Len(d.Text[d.lineStarts[line]:offset]),
	}
}

// OffsetAt is the inverse of PositionAt. Columns past the end of the line are
// clamped to it.
func (d *Document) OffsetAt(loc Location) int {
	if loc.Line < 0 {
		return 0
	}
	if loc.Line >= len(d.lineStarts) {
		return len(d.Text)
	}

	start := d.lineStarts[loc.Line]
	end := len(d.Text)
	if loc.Line+1 < len(d.lineStarts) {
		end = d.lineStarts[loc.Line+1] - 1
	}

	col := 0
	for i, r := range d.Text[start:end] {
		if col >= loc.Column {
			return start + i
		}
		col += utf16RuneLen(r)
	}

	return end
}

func utf16RuneLen(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}
	return 1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16RuneLen(r)
	}
	return n
}
