package featstruct

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Unifier unifies feature structures. The zero value is ready to use.
type Unifier struct {
	// Logger receives a Debug record for every merge step when set.
	Logger *slog.Logger
}

// Unify is Unifier{}.Unify(fs, other, b).
func (fs *Struct) Unify(other *Struct, b *Bindings) (*Struct, error) {
	return Unifier{}.Unify(fs, other, b)
}

// Subsumes reports whether unifying fs with other adds nothing to other.
func (fs *Struct) Subsumes(other *Struct) (bool, error) {
	result, err := fs.Unify(other, nil)
	if err != nil || result == nil {
		return false, err
	}
	return other.EqualValues(result, false), nil
}

// Unify returns the most general structure consistent with both a and b,
// or nil when they assign incompatible values to some feature. Neither a
// nor b is modified; the result shares no nodes with them. Bound
// variables in b are treated as their values; variables unified with
// values get bound in b, and variables unified with each other become
// aliased. b may be nil.
//
// The only error is ErrInconsistentBinding, when the members of an
// aliased variable end up bound to different values.
func (u Unifier) Unify(a, b *Struct, bindings *Bindings) (*Struct, error) {
	if bindings == nil {
		bindings = &Bindings{}
	}
	if bindings.m == nil {
		bindings.m = make(map[Variable]any)
	}

	// Copy both sides through one memo so nodes they already share stay
	// shared in the copies.
	memo := make(map[*Struct]*Struct)
	acopy := a.deepCopy(memo)
	bcopy := b.deepCopy(memo)

	// Bindings that point into a or b must follow them into the copies.
	for v, val := range bindings.m {
		if s, ok := val.(*Struct); ok {
			if c, copied := memo[s]; copied {
				bindings.m[v] = c
			}
		}
	}

	m := &merger{
		bindings: bindings,
		forward:  make(map[*Struct]*Struct),
		log:      u.Logger,
	}
	if m.tracing() {
		m.log.Debug("unify start", "self", a.String(), "other", b.String())
	}
	if err := m.merge(acopy, bcopy, nil); err != nil {
		if errors.Is(err, errUnificationFailure) {
			if m.tracing() {
				m.log.Debug("unify failed")
			}
			return nil, nil
		}
		return nil, err
	}

	result := m.applyForwards(acopy)
	if err := m.rebindAliases(result); err != nil {
		return nil, err
	}
	if err := substituteBindings(result, bindings, false); err != nil {
		return nil, err
	}
	if m.tracing() {
		m.log.Debug("unify succeeded", "result", result.String(), "bindings", bindings.String())
	}
	return result, nil
}

// merger holds the state of one destructive merge. forward records, for
// every node merged into another, the node that absorbed it.
type merger struct {
	bindings *Bindings
	forward  map[*Struct]*Struct
	log      *slog.Logger
}

func (m *merger) tracing() bool {
	return m.log != nil && m.log.Enabled(context.Background(), slog.LevelDebug)
}

// find returns the canonical node for s, compressing the forward chain.
func (m *merger) find(s *Struct) *Struct {
	root := s
	for {
		next, ok := m.forward[root]
		if !ok {
			break
		}
		root = next
	}
	for s != root {
		next := m.forward[s]
		m.forward[s] = root
		s = next
	}
	return root
}

// merge destructively unifies other into self. The forward entry is set
// before recursing so that cycles terminate.
func (m *merger) merge(self, other *Struct, path []string) error {
	self, other = m.find(self), m.find(other)
	if self == other {
		if m.tracing() {
			m.log.Debug("identical nodes", "path", pathString(path))
		}
		return nil
	}
	m.forward[other] = self

	for _, name := range other.FeatureNames() {
		oval := other.features[name]
		// A nested merge may have forwarded self.
		self = m.find(self)
		sval, ok := self.features[name]
		if !ok {
			self.features[name] = oval
			continue
		}

		fpath := append(path[:len(path):len(path)], name)
		if m.tracing() {
			m.log.Debug("unify feature", "path", pathString(fpath), "depth", len(fpath),
				"self", reprValue(sval), "other", reprValue(oval))
		}

		var err error
		if t, isVar := sval.(VarTerm); isVar {
			if sval, err = m.bindings.Lookup(t, false); err != nil {
				return err
			}
		}
		if t, isVar := oval.(VarTerm); isVar {
			if oval, err = m.bindings.Lookup(t, false); err != nil {
				return err
			}
		}

		sstruct, sIsStruct := sval.(*Struct)
		ostruct, oIsStruct := oval.(*Struct)
		svar, sIsVar := sval.(VarTerm)
		ovar, oIsVar := oval.(VarTerm)
		switch {
		case sIsStruct && oIsStruct:
			err = m.merge(sstruct, ostruct, fpath)
		case sIsVar && oIsVar:
			self.features[name] = Alias(svar, ovar)
		case sIsVar:
			err = m.bindings.Bind(svar, oval)
		case oIsVar:
			err = m.bindings.Bind(ovar, sval)
		case !valuesEqual(sval, oval):
			if m.tracing() {
				m.log.Debug("conflict", "path", pathString(fpath),
					"self", reprValue(sval), "other", reprValue(oval))
			}
			err = errUnificationFailure
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// applyForwards replaces every forwarded node, in the bindings and in
// the structure reachable from root, by its canonical node.
func (m *merger) applyForwards(root *Struct) *Struct {
	for v, val := range m.bindings.m {
		if s, ok := val.(*Struct); ok {
			m.bindings.m[v] = m.find(s)
		}
	}
	root = m.find(root)
	visited := make(map[*Struct]bool)
	var visit func(s *Struct)
	visit = func(s *Struct) {
		if visited[s] {
			return
		}
		visited[s] = true
		for name, val := range s.features {
			if child, ok := val.(*Struct); ok {
				child = m.find(child)
				s.features[name] = child
				visit(child)
			}
		}
	}
	visit(root)
	return root
}

// rebindAliases binds the unbound members of every partially bound
// aliased variable reachable from root.
func (m *merger) rebindAliases(root *Struct) error {
	var err error
	walk(root, func(s *Struct) {
		if err != nil {
			return
		}
		for _, name := range s.FeatureNames() {
			if al, ok := s.features[name].(*Aliased); ok {
				if _, err = m.bindings.Lookup(al, true); err != nil {
					return
				}
			}
		}
	})
	return err
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "()"
	}
	return strings.Join(path, ".")
}
