// Package featstruct implements feature structures and their unification.
//
// A feature structure maps feature names to values. A value is a base
// value (string, int, bool, nil, or any other comparable value), a
// variable (Variable or *Aliased), or a nested *Struct. The same *Struct
// may be reachable through several feature paths (reentrance), and
// structures may be cyclic. Node identity is significant: Same compares
// nodes, EqualValues compares contents.
//
// Structures are not safe for concurrent mutation. Unifying disjoint
// structures from different goroutines is safe.
package featstruct

import (
	"fmt"
	"reflect"
	"sort"
)

// F is shorthand for building structures: New(F{"num": "sg"}).
type F map[string]any

// Struct is a feature structure node.
type Struct struct {
	features map[string]any
}

// New returns a structure holding features. It panics if a value is not
// a valid feature value (see Set).
func New(features F) *Struct {
	fs := &Struct{features: make(map[string]any, len(features))}
	for name, val := range features {
		fs.Set(name, val)
	}
	return fs
}

// Set assigns a feature value. Other integer kinds are stored as int.
// It panics if value is a nil *Struct, a nil *Aliased, or not comparable.
func (fs *Struct) Set(name string, value any) {
	v, err := normalizeValue(value)
	if err != nil {
		panic(err)
	}
	if fs.features == nil {
		fs.features = make(map[string]any)
	}
	fs.features[name] = v
}

// Delete removes a feature.
func (fs *Struct) Delete(name string) {
	delete(fs.features, name)
}

// Get returns the value of a single feature.
func (fs *Struct) Get(name string) (any, bool) {
	v, ok := fs.features[name]
	return v, ok
}

// Path follows a feature path. An empty path yields fs itself.
func (fs *Struct) Path(names ...string) (any, error) {
	var cur any = fs
	for i, name := range names {
		s, ok := cur.(*Struct)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a structure", ErrFeaturePath, names[:i])
		}
		cur, ok = s.features[name]
		if !ok {
			return nil, fmt.Errorf("%w: no feature %v", ErrFeaturePath, names[:i+1])
		}
	}
	return cur, nil
}

// FeatureNames returns the defined feature names, sorted.
func (fs *Struct) FeatureNames() []string {
	names := make([]string, 0, len(fs.features))
	for name := range fs.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of defined features.
func (fs *Struct) Len() int { return len(fs.features) }

// Same reports whether a and b are the same node.
func Same(a, b *Struct) bool { return a == b }

// DeepCopy returns a copy of fs with the same reentrance (and cycles).
func (fs *Struct) DeepCopy() *Struct {
	return fs.deepCopy(make(map[*Struct]*Struct))
}

// deepCopy copies through memo so that nodes shared with other copies
// made with the same memo stay shared.
func (fs *Struct) deepCopy(memo map[*Struct]*Struct) *Struct {
	if c, ok := memo[fs]; ok {
		return c
	}
	c := &Struct{features: make(map[string]any, len(fs.features))}
	memo[fs] = c
	for name, val := range fs.features {
		if s, ok := val.(*Struct); ok {
			c.features[name] = s.deepCopy(memo)
		} else {
			c.features[name] = val
		}
	}
	return c
}

// EqualValues reports whether fs and other assign equal values along
// every feature path. With checkReentrance the reentrance patterns must
// match too.
func (fs *Struct) EqualValues(other *Struct, checkReentrance bool) bool {
	if other == nil {
		return false
	}
	if checkReentrance {
		return fs.String() == other.String()
	}
	return equalValues(fs, other, make(map[[2]*Struct]bool))
}

func equalValues(a, b *Struct, visited map[[2]*Struct]bool) bool {
	key := [2]*Struct{a, b}
	if visited[key] {
		return true
	}
	visited[key] = true
	if len(a.features) != len(b.features) {
		return false
	}
	for name, av := range a.features {
		bv, ok := b.features[name]
		if !ok {
			return false
		}
		as, aIsStruct := av.(*Struct)
		bs, bIsStruct := bv.(*Struct)
		switch {
		case aIsStruct && bIsStruct:
			if !equalValues(as, bs, visited) {
				return false
			}
		case aIsStruct || bIsStruct:
			return false
		case !valuesEqual(av, bv):
			return false
		}
	}
	return true
}

// Reentrances returns every node reachable from fs by more than one
// feature path, in depth-first order of sorted feature names.
func (fs *Struct) Reentrances() []*Struct {
	reentrant := findReentrances(fs)
	var out []*Struct
	walk(fs, func(s *Struct) {
		if reentrant[s] {
			out = append(out, s)
		}
	})
	return out
}

// findReentrances maps every node reachable from root to whether it is
// reached more than once.
func findReentrances(root *Struct) map[*Struct]bool {
	reentrant := make(map[*Struct]bool)
	var visit func(s *Struct)
	visit = func(s *Struct) {
		if _, seen := reentrant[s]; seen {
			reentrant[s] = true
			return
		}
		reentrant[s] = false
		for _, name := range s.FeatureNames() {
			if child, ok := s.features[name].(*Struct); ok {
				visit(child)
			}
		}
	}
	visit(root)
	return reentrant
}

// walk calls fn once per node reachable from root, root first.
func walk(root *Struct, fn func(*Struct)) {
	visited := make(map[*Struct]bool)
	var visit func(s *Struct)
	visit = func(s *Struct) {
		if visited[s] {
			return
		}
		visited[s] = true
		fn(s)
		for _, name := range s.FeatureNames() {
			if child, ok := s.features[name].(*Struct); ok {
				visit(child)
			}
		}
	}
	visit(root)
}

// Variables returns every distinct variable occurring in fs, sorted.
// Members of aliased variables are included individually.
func (fs *Struct) Variables() []Variable {
	seen := make(map[Variable]bool)
	var vars []Variable
	walk(fs, func(s *Struct) {
		for _, val := range s.features {
			t, ok := val.(VarTerm)
			if !ok {
				continue
			}
			for _, v := range t.Members() {
				if !seen[v] {
					seen[v] = true
					vars = append(vars, v)
				}
			}
		}
	})
	sort.Slice(vars, func(i, j int) bool { return compareVars(vars[i], vars[j]) < 0 })
	return vars
}

// RemoveVariables returns a copy of fs with every variable-valued
// feature dropped.
func (fs *Struct) RemoveVariables() *Struct {
	c := fs.DeepCopy()
	walk(c, func(s *Struct) {
		for name, val := range s.features {
			if _, ok := val.(VarTerm); ok {
				delete(s.features, name)
			}
		}
	})
	return c
}

// RenameVariables returns a copy of fs in which every variable is
// replaced by a fresh numbered variable. renames records old -> new and
// is consulted first, so passing the same map to several calls renames a
// group of structures consistently. renames may be nil.
func (fs *Struct) RenameVariables(renames map[Variable]Variable) *Struct {
	if renames == nil {
		renames = make(map[Variable]Variable)
	}
	rename := func(v Variable) Variable {
		nv, ok := renames[v]
		if !ok {
			nv = NewVariable()
			renames[v] = nv
		}
		return nv
	}
	c := fs.DeepCopy()
	walk(c, func(s *Struct) {
		for name, val := range s.features {
			switch t := val.(type) {
			case Variable:
				s.features[name] = rename(t)
			case *Aliased:
				members := t.Members()
				terms := make([]VarTerm, len(members))
				for i, m := range members {
					terms[i] = rename(m)
				}
				al, _ := NewAliased(terms...)
				s.features[name] = al
			}
		}
	})
	return c
}

// ApplyBindings returns a copy of fs with every bound variable replaced
// by its value. Unbound members of a partially bound aliased variable
// become bound in b.
func (fs *Struct) ApplyBindings(b *Bindings) *Struct {
	c := fs.DeepCopy()
	if b == nil {
		return c
	}
	// Inconsistent aliased variables count as unbound and are left in place.
	_ = substituteBindings(c, b, true)
	return c
}

// substituteBindings replaces bound variable occurrences reachable from
// root, visiting substituted structures too.
func substituteBindings(root *Struct, b *Bindings, updateAliased bool) error {
	visited := make(map[*Struct]bool)
	var visit func(s *Struct) error
	visit = func(s *Struct) error {
		if visited[s] {
			return nil
		}
		visited[s] = true
		for _, name := range s.FeatureNames() {
			val := s.features[name]
			if t, ok := val.(VarTerm); ok && b.IsBound(t) {
				v, err := b.Lookup(t, updateAliased)
				if err != nil {
					return err
				}
				val = v
				s.features[name] = val
			}
			if child, ok := val.(*Struct); ok {
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return visit(root)
}

// valuesEqual compares two non-structure feature values, or two
// structures by identity.
func valuesEqual(a, b any) bool {
	at, aIsVar := a.(VarTerm)
	bt, bIsVar := b.(VarTerm)
	if aIsVar || bIsVar {
		return aIsVar && bIsVar && SameVar(at, bt)
	}
	return a == b
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, int, Variable:
		return v, nil
	case *Struct:
		if x == nil {
			return nil, fmt.Errorf("featstruct: nil *Struct feature value")
		}
		return v, nil
	case *Aliased:
		if x == nil {
			return nil, fmt.Errorf("featstruct: nil *Aliased feature value")
		}
		return v, nil
	case int8:
		return int(x), nil
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, fmt.Errorf("featstruct: feature value of type %T is not comparable", v)
	}
	return v, nil
}
