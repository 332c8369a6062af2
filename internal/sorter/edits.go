package sorter

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

var (
	ErrOverlappingEdits = errors.New("edits overlap")
	ErrEditOutOfRange   = errors.New("edit out of range")
)

// Replacement replaces the half-open byte range [Start, End) of the original
// text with NewText.
type Replacement struct {
	Start, End int
	NewText    string
}

type span struct {
	start, end int
	rule       string
}

// EditSet collects the replacements computed for a single document. Offsets
// always refer to the text the set was computed from.
type EditSet struct {
	claimed      []span
	replacements []Replacement
}

// Claim reserves the span of m. It returns false if an earlier match already
// claimed an overlapping span, in which case m must not be edited.
func (s *EditSet) Claim(m Match) bool {
	for _, c := range s.claimed {
		if c.start < m.End && m.Start < c.end {
			log.Debugf("skipping %s match at %d-%d, overlaps %s match at %d-%d", m.Rule.Name, m.Start, m.End, c.rule, c.start, c.end)
			return false
		}
	}

	s.claimed = append(s.claimed, span{m.Start, m.End, m.Rule.Name})
	return true
}

// Add appends r to the set.
func (s *EditSet) Add(r Replacement) {
	s.replacements = append(s.replacements, r)
}

func (s *EditSet) Len() int {
	return len(s.replacements)
}

// Replacements returns the edits ordered by start offset.
func (s *EditSet) Replacements() []Replacement {
	out := slices.Clone(s.replacements)
	slices.SortFunc(out, func(a, b Replacement) int {
		return a.Start - b.Start
	})
	return out
}

// Apply returns text with every replacement applied. Either all edits apply or
// an error is returned and text is left as is.
func Apply(text string, edits []Replacement) (string, error) {
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b Replacement) int {
		return a.Start - b.Start
	})

	var sb strings.Builder
	sb.Grow(len(text))

	last := 0
	for _, r := range sorted {
		if r.Start < 0 || r.End > len(text) || r.Start > r.End {
			return "", fmt.Errorf("%w: [%d, %d) in text of length %d", ErrEditOutOfRange, r.Start, r.End, len(text))
		}
		if r.Start < last {
			return "", fmt.Errorf("%w: [%d, %d) starts before %d", ErrOverlappingEdits, r.Start, r.End, last)
		}

		sb.WriteString(text[last:r.Start])
		sb.WriteString(r.NewText)
		last = r.End
	}
	sb.WriteString(text[last:])

	return sb.String(), nil
}

// Apply applies the set to text, which must be the text it was computed from.
func (s *EditSet) Apply(text string) (string, error) {
	return Apply(text, s.replacements)
}
