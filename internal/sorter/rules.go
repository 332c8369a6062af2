package sorter

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Rule describes one way of embedding a class list in source text.
//
// Outer locates the whole construct and must capture exactly one group: the
// span that holds the classes. Inner is applied to that span only and yields
// one class per match in its first group. Delimiter joins the sorted classes
// back together.
type Rule struct {
	Name      string
	Outer     *regexp2.Regexp
	Inner     *regexp2.Regexp
	Delimiter string
}

// Prefix is written before the joined classes. Dot chains keep their leading
// dot, quoted lists get nothing.
func (r *Rule) Prefix() string {
	if r.Delimiter == "." {
		return "."
	}
	return ""
}

func (r *Rule) String() string {
	return r.Name
}

func mustRule(name, outer, inner, delim string) *Rule {
	compile := func(expr string) *regexp2.Regexp {
		re, err := regexp2.Compile(expr, regexp2.ECMAScript)
		if err != nil {
			panic(fmt.Sprintf("compile %s pattern %q: %s", name, expr, err))
		}
		return re
	}

	return &Rule{
		Name:      name,
		Outer:     compile(outer),
		Inner:     compile(inner),
		Delimiter: delim,
	}
}

// Order matters: when two rules capture overlapping spans the earlier one wins.
var defaultRules = []*Rule{
	// (:div {:class "flex p-2"})
	mustRule("class-attr", `:class\s+"([^"]+)"`, `(\S+)`, " "),
	// ^:tw "flex p-2"
	mustRule("tw-tag", `\^:tw\s+"([^"]+)"`, `(\S+)`, " "),
	// :.flex.p-2
	mustRule("keyword-chain", `:((?:\.[\w-]+)+)`, `\.([\w-]+)`, "."),
	// [:div#id.flex.p-2 ...]
	mustRule("hiccup-tag", `\[:[\w-]*(?:#[\w-]+)?((?:\.[\w-]+)+)(?=[\s\]])`, `\.([\w-]+)`, "."),
}

// Rules returns the built-in rule table in priority order.
func Rules() []*Rule {
	rules := make([]*Rule, len(defaultRules))
	copy(rules, defaultRules)
	return rules
}
