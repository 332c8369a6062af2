// Package sorter finds utility class lists in Clojure source and computes the
// edits that put them in canonical order.
package sorter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var log = commonlog.GetLogger("twsort.sorter")

// Oracle assigns ordering keys to class names. Classes it doesn't know are
// either missing from the result or mapped to nil.
type Oracle interface {
	Rank(classes []string) map[string]*big.Int
}

type Sorter struct {
	rules []*Rule
}

// New returns a Sorter using rules, or the built-in table if none are given.
func New(rules ...*Rule) *Sorter {
	if len(rules) == 0 {
		rules = Rules()
	}
	return &Sorter{rules: rules}
}

// ComputeEdits sorts text with the built-in rules.
func ComputeEdits(text string, oracle Oracle) ([]Replacement, error) {
	set, err := New().EditSet(text, oracle)
	if err != nil {
		return nil, err
	}
	return set.Replacements(), nil
}

// EditSet extracts every class list in text, ranks all distinct classes with a
// single oracle query and returns the replacements for lists that are out of
// order.
func (s *Sorter) EditSet(text string, oracle Oracle) (*EditSet, error) {
	matches, err := Extract(text, s.rules)
	if err != nil {
		return nil, fmt.Errorf("extract classes: %w", err)
	}

	set := &EditSet{}
	if len(matches) == 0 {
		return set, nil
	}

	ranks := oracle.Rank(distinctClasses(matches))

	for _, m := range matches {
		if !set.Claim(m) {
			continue
		}

		if r, ok := Rewrite(m, ranks); ok {
			set.Add(r)
		}
	}

	log.Debugf("%d matches, %d edits", len(matches), set.Len())
	return set, nil
}

// Rewrite returns the replacement for m, or false if its classes are already
// in order.
func Rewrite(m Match, ranks map[string]*big.Int) (Replacement, bool) {
	sorted := m.Rule.Prefix() + strings.Join(Sort(m.Classes, ranks), m.Rule.Delimiter)
	if sorted == m.Captured {
		return Replacement{}, false
	}

	return Replacement{
		Start:   m.Start,
		End:     m.End,
		NewText: sorted,
	}, true
}

func distinctClasses(matches []Match) []string {
	set := map[string]struct{}{}
	for _, m := range matches {
		for _, c := range m.Classes {
			set[c] = struct{}{}
		}
	}

	classes := maps.Keys(set)
	slices.Sort(classes)
	return classes
}
