package sorter

import (
	"fmt"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Match is one occurrence of a rule in a document.
type Match struct {
	Rule *Rule

	// Whole is the text matched by the outer pattern, Captured the class span.
	Whole, Captured string

	// Start and End are byte offsets of Captured in the original text.
	Start, End int

	Classes []string
}

// runeIndex maps rune indexes, as reported by regexp2, back to byte offsets.
type runeIndex struct {
	runes []rune
	bytes []int
}

func newRuneIndex(text string) *runeIndex {
	idx := &runeIndex{
		runes: make([]rune, 0, utf8.RuneCountInString(text)),
		bytes: make([]int, 0, utf8.RuneCountInString(text)+1),
	}

	for i, r := range text {
		idx.runes = append(idx.runes, r)
		idx.bytes = append(idx.bytes, i)
	}
	idx.bytes = append(idx.bytes, len(text))

	return idx
}

func (idx *runeIndex) byteOffset(runeOffset int) int {
	return idx.bytes[runeOffset]
}

// Extract scans text with every rule, in order, and returns all matches that
// contain at least one class.
func Extract(text string, rules []*Rule) ([]Match, error) {
	idx := newRuneIndex(text)
	matches := []Match{}

	for _, rule := range rules {
		found, err := extractRule(text, idx, rule)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", rule.Name, err)
		}

		matches = append(matches, found...)
	}

	return matches, nil
}

func extractRule(text string, idx *runeIndex, rule *Rule) ([]Match, error) {
	matches := []Match{}

	m, err := rule.Outer.FindRunesMatch(idx.runes)
	for ; m != nil && err == nil; m, err = rule.Outer.FindNextMatch(m) {
		group := m.GroupByNumber(1)
		if group == nil || len(group.Captures) == 0 {
			continue
		}

		start := idx.byteOffset(group.Index)
		end := idx.byteOffset(group.Index + group.Length)

		classes, err := innerClasses(rule.Inner, text[start:end])
		if err != nil {
			return nil, err
		}
		if len(classes) == 0 {
			continue
		}

		matches = append(matches, Match{
			Rule:     rule,
			Whole:    text[idx.byteOffset(m.Index):idx.byteOffset(m.Index+m.Length)],
			Captured: text[start:end],
			Start:    start,
			End:      end,
			Classes:  classes,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("match outer pattern: %w", err)
	}

	return matches, nil
}

// innerClasses slices classes out of captured by byte offset so they keep
// their exact source bytes.
func innerClasses(inner *regexp2.Regexp, captured string) ([]string, error) {
	idx := newRuneIndex(captured)
	classes := []string{}

	m, err := inner.FindRunesMatch(idx.runes)
	for ; m != nil && err == nil; m, err = inner.FindNextMatch(m) {
		if g := m.GroupByNumber(1); g != nil && len(g.Captures) > 0 {
			classes = append(classes, captured[idx.byteOffset(g.Index):idx.byteOffset(g.Index+g.Length)])
		}
	}
	if err != nil {
		return nil, fmt.Errorf("match inner pattern: %w", err)
	}

	return classes, nil
}
