package sorter

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func key(n int64) *big.Int {
	return big.NewInt(n)
}

func TestSort(t *testing.T) {
	type testCase struct {
		name    string
		classes []string
		ranks   map[string]*big.Int
		want    []string
	}

	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211456", 10)

	cases := []testCase{
		{
			name:    "unranked first",
			classes: []string{"flex", "foo"},
			ranks:   map[string]*big.Int{"flex": key(1)},
			want:    []string{"foo", "flex"},
		},
		{
			name:    "numeric not lexicographic",
			classes: []string{"p-2", "p-10"},
			ranks:   map[string]*big.Int{"p-2": key(10), "p-10": key(2)},
			want:    []string{"p-10", "p-2"},
		},
		{
			name:    "unranked sorted by name",
			classes: []string{"zeta", "alpha", "mid"},
			ranks:   map[string]*big.Int{},
			want:    []string{"alpha", "mid", "zeta"},
		},
		{
			name:    "equal keys sorted by name",
			classes: []string{"b", "a", "c"},
			ranks:   map[string]*big.Int{"a": key(5), "b": key(5), "c": key(1)},
			want:    []string{"c", "a", "b"},
		},
		{
			name:    "keys beyond 64 bits",
			classes: []string{"big", "small"},
			ranks:   map[string]*big.Int{"big": huge, "small": key(1)},
			want:    []string{"small", "big"},
		},
		{
			name:    "duplicates kept",
			classes: []string{"p-2", "flex", "p-2"},
			ranks:   map[string]*big.Int{"flex": key(1), "p-2": key(2)},
			want:    []string{"flex", "p-2", "p-2"},
		},
		{
			name:    "case sensitive",
			classes: []string{"b", "B", "a"},
			ranks:   map[string]*big.Int{},
			want:    []string{"B", "a", "b"},
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			input := append([]string(nil), c.classes...)

			assert.Equal(t, c.want, Sort(c.classes, c.ranks))
			assert.Equal(t, input, c.classes, "input must not be modified")
		})
	}
}

func TestSortIndependentOfInputOrder(t *testing.T) {
	ranks := map[string]*big.Int{"a": key(3), "b": key(3), "c": key(1), "d": key(2)}
	want := []string{"x", "y", "c", "d", "a", "b"}

	perms := [][]string{
		{"a", "b", "c", "d", "x", "y"},
		{"y", "x", "d", "c", "b", "a"},
		{"b", "y", "a", "x", "d", "c"},
		{"d", "a", "x", "c", "y", "b"},
	}

	for _, p := range perms {
		assert.Equal(t, want, Sort(p, ranks), "input %v", p)
	}
}

func TestCompareIsStrictWeakOrder(t *testing.T) {
	items := []Ranked{
		{Class: "foo"},
		{Class: "bar"},
		{Class: "flex", Key: key(1)},
		{Class: "grid", Key: key(1)},
		{Class: "p-2", Key: key(10)},
		{Class: "p-10", Key: key(2)},
		{Class: "aaa", Key: key(-5)},
	}

	for _, a := range items {
		assert.Zero(t, Compare(a, a), "irreflexive: %s", a.Class)

		for _, b := range items {
			assert.Equal(t, -Compare(b, a), Compare(a, b), "antisymmetric: %s %s", a.Class, b.Class)

			for _, c := range items {
				if Compare(a, b) < 0 && Compare(b, c) < 0 {
					assert.Negative(t, Compare(a, c), "transitive: %s %s %s", a.Class, b.Class, c.Class)
				}
			}
		}
	}
}
