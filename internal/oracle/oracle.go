// Package oracle ranks utility classes by the order their rules appear in a
// design system's stylesheet.
package oracle

import (
	"fmt"
	"io/fs"
	"math/big"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("twsort.oracle")

// Oracle maps class names to ordering keys. Unknown classes map to nil.
type Oracle interface {
	Rank(classes []string) map[string]*big.Int
}

// FileSystem is what loading and resolution read through.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// LoadError means a stylesheet or module could not be read.
type LoadError struct {
	Path  string
	Inner error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("read %q: %s", e.Path, e.Inner)
}

func (e *LoadError) Unwrap() error {
	return e.Inner
}

// ResolutionError means a specifier referenced from a stylesheet could not be
// resolved to a file.
type ResolutionError struct {
	Specifier string
	Base      string
	Inner     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q from %q: %s", e.Specifier, e.Base, e.Inner)
}

func (e *ResolutionError) Unwrap() error {
	return e.Inner
}

// EmptyError means an oracle loaded without errors but ranks no classes, so
// every class list would come out in plain alphabetical order. This happens
// when the stylesheet only declares theme variables.
type EmptyError struct {
	Path string
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("%q ranks no classes, so classes will be sorted alphabetically; point the stylesheet setting at compiled CSS or use a rank table", e.Path)
}

// CheckEmpty returns an *EmptyError naming path if o is known to rank no
// classes at all.
func CheckEmpty(o Oracle, path string) error {
	sized, ok := o.(interface{ Len() int })
	if !ok || sized.Len() > 0 {
		return nil
	}
	return &EmptyError{Path: path}
}

// Table is an oracle backed by a fixed map.
type Table map[string]*big.Int

// NewTable ranks classes by their position in the argument list.
func NewTable(classes ...string) Table {
	t := make(Table, len(classes))
	for i, c := range classes {
		if _, ok := t[c]; !ok {
			t[c] = big.NewInt(int64(i))
		}
	}
	return t
}

func (t Table) Rank(classes []string) map[string]*big.Int {
	ranks := make(map[string]*big.Int, len(classes))
	for _, c := range classes {
		ranks[c] = t[c]
	}
	return ranks
}

// Len returns the number of ranked classes.
func (t Table) Len() int {
	return len(t)
}
