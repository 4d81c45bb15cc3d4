package featstruct

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// VarTerm is a feature value that stands for an unknown value: either a
// single Variable or an Aliased group of variables.
type VarTerm interface {
	// String returns the textual form (?x, ?<x=y>, or ?12 for numbered variables).
	String() string
	// Members returns the variables this term constrains, sorted.
	Members() []Variable
	isVarTerm()
}

// Variable is a named or numbered placeholder for a feature value.
// Two variables are the same variable iff their identifiers match.
// Variables are comparable values and may be used as map keys.
type Variable struct {
	name string
	num  int64
}

// numbered variable ids are process-wide and never reused
var lastNumbered atomic.Int64

// Var returns the named variable with the given identifier.
func Var(name string) Variable {
	return Variable{name: name}
}

// NewVariable returns a numbered variable whose identifier has never
// been handed out before in this process. Safe for concurrent use.
func NewVariable() Variable {
	return Variable{num: lastNumbered.Add(1)}
}

// Name returns the identifier of a named variable, or "" for numbered ones.
func (v Variable) Name() string { return v.name }

// Number returns the identifier of a numbered variable, or 0 for named ones.
func (v Variable) Number() int64 { return v.num }

// IsNumbered reports whether v was created by NewVariable.
func (v Variable) IsNumbered() bool { return v.name == "" }

func (v Variable) String() string {
	return "?" + v.ident()
}

func (v Variable) ident() string {
	if v.IsNumbered() {
		return strconv.FormatInt(v.num, 10)
	}
	return v.name
}

// Members returns v itself.
func (v Variable) Members() []Variable { return []Variable{v} }

// Alias returns a term constraining v and other to denote the same value.
func (v Variable) Alias(other VarTerm) VarTerm { return Alias(v, other) }

func (Variable) isVarTerm() {}

// compareVars orders numbered variables before named ones.
func compareVars(a, b Variable) int {
	switch {
	case a.IsNumbered() && !b.IsNumbered():
		return -1
	case !a.IsNumbered() && b.IsNumbered():
		return 1
	case a.IsNumbered():
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.name, b.name)
}

// Aliased is a set of variables constrained to resolve to the same value.
// It has no identifier of its own; equality is membership equality.
type Aliased struct {
	vars []Variable // sorted, deduplicated, len >= 1
}

// ErrNoAliases is returned when an aliased variable is built from nothing.
var ErrNoAliases = errors.New("featstruct: expected at least one alias")

// NewAliased builds an aliased variable over terms. Nested aliased
// variables are flattened into their members.
func NewAliased(terms ...VarTerm) (*Aliased, error) {
	if len(terms) == 0 {
		return nil, ErrNoAliases
	}
	seen := make(map[Variable]bool)
	var vars []Variable
	for _, t := range terms {
		for _, v := range t.Members() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	sort.Slice(vars, func(i, j int) bool { return compareVars(vars[i], vars[j]) < 0 })
	return &Aliased{vars: vars}, nil
}

// Members returns the aliased variables, sorted.
func (a *Aliased) Members() []Variable {
	out := make([]Variable, len(a.vars))
	copy(out, a.vars)
	return out
}

func (a *Aliased) String() string {
	idents := make([]string, len(a.vars))
	for i, v := range a.vars {
		idents[i] = v.ident()
	}
	return "?<" + strings.Join(idents, "=") + ">"
}

// Alias returns a term constraining a and other to the same value.
func (a *Aliased) Alias(other VarTerm) VarTerm { return Alias(a, other) }

// Equal reports whether other constrains exactly the same variables.
func (a *Aliased) Equal(other VarTerm) bool { return SameVar(a, other) }

func (*Aliased) isVarTerm() {}

// SameVar reports whether two terms constrain the same set of variables.
func SameVar(a, b VarTerm) bool {
	am, bm := a.Members(), b.Members()
	if len(am) != len(bm) {
		return false
	}
	for i := range am {
		if am[i] != bm[i] {
			return false
		}
	}
	return true
}

// Alias returns a if a and b are the same variable, otherwise a new
// Aliased containing the members of both.
func Alias(a, b VarTerm) VarTerm {
	if SameVar(a, b) {
		return a
	}
	al, _ := NewAliased(a, b)
	return al
}

var (
	simpleVarRe  = regexp.MustCompile(`^\?[a-zA-Z_][a-zA-Z0-9_]*$`)
	aliasedVarRe = regexp.MustCompile(`^\?<[a-zA-Z_][a-zA-Z0-9_]*(=[a-zA-Z_][a-zA-Z0-9_]*)*>$`)
)

// ParseVariable parses ?name or ?<name1=name2=...>. Numbered variables
// have no textual form and cannot be parsed.
func ParseVariable(s string) (VarTerm, error) {
	if simpleVarRe.MatchString(s) {
		return Var(s[1:]), nil
	}
	if aliasedVarRe.MatchString(s) {
		idents := strings.Split(s[2:len(s)-1], "=")
		terms := make([]VarTerm, len(idents))
		for i, id := range idents {
			terms[i] = Var(id)
		}
		return NewAliased(terms...)
	}
	return nil, fmt.Errorf("featstruct: bad variable %q", s)
}
