package sorter

import (
	"math/big"
	"strings"

	"golang.org/x/exp/slices"
)

// Ranked pairs a class with the key the oracle assigned to it. A nil Key
// means the class is unranked.
type Ranked struct {
	Class string
	Key   *big.Int
}

// Compare orders unranked classes first, by name, then ranked classes by key
// and finally by name when keys are equal.
func Compare(a, b Ranked) int {
	switch {
	case a.Key == nil && b.Key == nil:
		return strings.Compare(a.Class, b.Class)
	case a.Key == nil:
		return -1
	case b.Key == nil:
		return 1
	}

	if c := a.Key.Cmp(b.Key); c != 0 {
		return c
	}
	return strings.Compare(a.Class, b.Class)
}

// Sort returns classes in canonical order. The input is not modified.
func Sort(classes []string, ranks map[string]*big.Int) []string {
	pairs := make([]Ranked, len(classes))
	for i, c := range classes {
		pairs[i] = Ranked{Class: c, Key: ranks[c]}
	}

	slices.SortStableFunc(pairs, Compare)

	sorted := make([]string, len(pairs))
	for i, p := range pairs {
		sorted[i] = p.Class
	}
	return sorted
}
