package featstruct

import (
	"fmt"
	"sort"
	"strings"
)

// Bindings is a partial mapping from variables to values. A variable is
// never bound to another variable. The zero value is an empty set of
// bindings ready for use.
type Bindings struct {
	m map[Variable]any
}

// NewBindings returns bindings holding a copy of initial.
func NewBindings(initial map[Variable]any) (*Bindings, error) {
	b := &Bindings{m: make(map[Variable]any, len(initial))}
	for v, val := range initial {
		if err := b.Bind(v, val); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// BoundVariables returns every bound variable, sorted.
func (b *Bindings) BoundVariables() []Variable {
	vars := make([]Variable, 0, len(b.m))
	for v := range b.m {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return compareVars(vars[i], vars[j]) < 0 })
	return vars
}

// Len returns the number of bound variables.
func (b *Bindings) Len() int { return len(b.m) }

// IsBound reports whether v has a value. An aliased variable is bound if
// at least one member is bound and every bound member has the same value;
// an inconsistent aliased variable is reported as unbound.
func (b *Bindings) IsBound(v VarTerm) bool {
	if single, ok := v.(Variable); ok {
		_, bound := b.m[single]
		return bound
	}
	_, found, err := b.resolve(v)
	return found && err == nil
}

// Lookup returns the value bound to v, or v itself when it is unbound.
// For an aliased variable with updateAliased set, every unbound member is
// bound to the resolved value. ErrInconsistentBinding is returned when two
// members of an aliased variable disagree.
func (b *Bindings) Lookup(v VarTerm, updateAliased bool) (any, error) {
	if single, ok := v.(Variable); ok {
		if val, bound := b.m[single]; bound {
			return val, nil
		}
		return v, nil
	}
	val, found, err := b.resolve(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return v, nil
	}
	if updateAliased {
		for _, m := range v.Members() {
			b.m[m] = val
		}
	}
	return val, nil
}

func (b *Bindings) resolve(v VarTerm) (val any, found bool, err error) {
	for _, m := range v.Members() {
		mv, bound := b.m[m]
		if !bound {
			continue
		}
		if !found {
			val, found = mv, true
			continue
		}
		if !valuesEqual(val, mv) {
			return nil, true, fmt.Errorf("%w: %s bound to both %s and %s",
				ErrInconsistentBinding, v, reprValue(val), reprValue(mv))
		}
	}
	return val, found, nil
}

// Bind assigns value to v, or to every member of an aliased variable.
func (b *Bindings) Bind(v VarTerm, value any) error {
	if _, isVar := value.(VarTerm); isVar {
		return fmt.Errorf("%w: %s=%s", ErrVariableValue, v, value)
	}
	if b.m == nil {
		b.m = make(map[Variable]any)
	}
	for _, m := range v.Members() {
		b.m[m] = value
	}
	return nil
}

// Copy returns independent bindings with the same entries.
func (b *Bindings) Copy() *Bindings {
	c := &Bindings{m: make(map[Variable]any, len(b.m))}
	for v, val := range b.m {
		c.m[v] = val
	}
	return c
}

func (b *Bindings) String() string {
	if len(b.m) == 0 {
		return "<Bindings (empty)>"
	}
	parts := make([]string, 0, len(b.m))
	for _, v := range b.BoundVariables() {
		parts = append(parts, v.String()+"="+reprValue(b.m[v]))
	}
	return "<Bindings: " + strings.Join(parts, ", ") + ">"
}
