// Package featchart implements an Earley chart parser over feature-based
// grammars. Categories are feature structures; the category name lives in
// the reserved feature *type*, so NP[num=?n] is [*type*='NP', num=?n].
package featchart

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kittclouds/gofeat/pkg/featstruct"
)

// TypeFeature holds the category name.
const TypeFeature = "*type*"

var catNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// Symbol is a right-hand-side element: a category, or a terminal word
// when Cat is nil.
type Symbol struct {
	Cat  *featstruct.Struct
	Word string
}

// Terminal returns a terminal symbol.
func Terminal(word string) Symbol { return Symbol{Word: word} }

// Nonterminal returns a category symbol.
func Nonterminal(cat *featstruct.Struct) Symbol { return Symbol{Cat: cat} }

// IsTerminal reports whether s is a word.
func (s Symbol) IsTerminal() bool { return s.Cat == nil }

func (s Symbol) String() string {
	if s.IsTerminal() {
		return fmt.Sprintf("%q", s.Word)
	}
	return CategoryString(s.Cat)
}

// Category returns a category named name with the given features.
func Category(name string, features featstruct.F) *featstruct.Struct {
	cat := featstruct.New(features)
	cat.Set(TypeFeature, name)
	return cat
}

// CategoryName returns the *type* of cat, or "" if it has none.
func CategoryName(cat *featstruct.Struct) string {
	v, _ := cat.Get(TypeFeature)
	name, _ := v.(string)
	return name
}

// CategoryString writes cat as Name[features], or just Name when it has
// no other features.
func CategoryString(cat *featstruct.Struct) string {
	name := CategoryName(cat)
	rest := cat.DeepCopy()
	rest.Delete(TypeFeature)
	if rest.Len() == 0 {
		if name == "" {
			return "[]"
		}
		return name
	}
	return name + rest.String()
}

// ParseCategory reads Name or Name[features].
func ParseCategory(s string) (*featstruct.Struct, error) {
	cat, end, err := parseCategoryAt(s, 0)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s[end:]) != "" {
		return nil, fmt.Errorf("unexpected %q after category", s[end:])
	}
	return cat, nil
}

// parseCategoryAt reads a category starting at pos and returns the
// offset just past it.
func parseCategoryAt(s string, pos int) (*featstruct.Struct, int, error) {
	loc := catNameRe.FindStringIndex(s[pos:])
	if loc == nil {
		return nil, pos, fmt.Errorf("expected category name at %q", s[pos:])
	}
	name := s[pos : pos+loc[1]]
	pos += loc[1]

	if pos < len(s) && s[pos] == '[' {
		cat, end, err := featstruct.ParseAt(s, pos)
		if err != nil {
			return nil, pos, err
		}
		cat.Set(TypeFeature, name)
		return cat, end, nil
	}
	return Category(name, nil), pos, nil
}
