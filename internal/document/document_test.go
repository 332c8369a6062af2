package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionAt(t *testing.T) {
	type testCase struct {
		offset       int
		line, column int
	}

	// "🎨" is four bytes and two UTF-16 code units
	doc := New("a.clj", "ab\n🎨x\ncd")

	cases := []testCase{
		{0, 0, 0},
		{2, 0, 2},
		{3, 1, 0},
		{7, 1, 2},
		{8, 1, 3},
		{9, 2, 0},
		{11, 2, 2},
		{100, 2, 2},
		{-1, 0, 0},
	}

	for _, c := range cases {
		loc := doc.PositionAt(c.offset)

		assert.Equal(t, "a.clj", loc.File)
		assert.Equal(t, c.line, loc.Line, "line of offset %d", c.offset)
		assert.Equal(t, c.column, loc.Column, "column of offset %d", c.offset)
	}
}

func TestOffsetAt(t *testing.T) {
	type testCase struct {
		line, column int
		offset       int
	}

	doc := New("a.clj", "ab\n🎨x\ncd")

	cases := []testCase{
		{0, 0, 0},
		{0, 2, 2},
		{0, 10, 2},
		{1, 2, 7},
		{1, 3, 8},
		{2, 1, 10},
		{5, 0, 11},
		{-1, 0, 0},
	}

	for _, c := range cases {
		assert.Equal(t, c.offset, doc.OffsetAt(Location{Line: c.line, Column: c.column}), "offset of %d:%d", c.line, c.column)
	}
}

func TestRoundTrip(t *testing.T) {
	doc := New("a.clj", "(ns app)\n[:div.p-2 \"héllo 🎨\"]\n\n(def x 1)")

	for offset := range doc.Text {
		assert.Equal(t, offset, doc.OffsetAt(doc.PositionAt(offset)))
	}
	assert.Equal(t, 4, doc.LineCount())
}

func TestLocationString(t *testing.T) {
	loc := Location{File: "src/app.cljs", Line: 1, Column: 2}
	assert.Equal(t, "src/app.cljs:2:3", loc.String())
}
