package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of Storer for testing.
type MemStore struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	grammars map[string][]*Grammar // versions, oldest first
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entries:  make(map[string]*Entry),
		grammars: make(map[string][]*Grammar),
	}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}

// =============================================================================
// Entry CRUD
// =============================================================================

func (s *MemStore) UpsertEntry(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampEntry(entry)
	copy := *entry
	if old, ok := s.entries[entry.ID]; ok {
		copy.CreatedAt = old.CreatedAt
	}
	s.entries[entry.ID] = &copy
	return nil
}

func (s *MemStore) GetEntry(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[id]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, nil
}

func (s *MemStore) DeleteEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

func (s *MemStore) ListEntries(word string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Entry
	for _, e := range s.entries {
		if word == "" || e.Word == word {
			copy := *e
			result = append(result, &copy)
		}
	}
	slices.SortFunc(result, func(a, b *Entry) int {
		if c := strings.Compare(a.Word, b.Word); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return result, nil
}

func (s *MemStore) CountEntries() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// =============================================================================
// Grammar CRUD (versioned)
// =============================================================================

func (s *MemStore) CreateGrammar(g *Grammar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.grammars[g.ID]; ok {
		return fmt.Errorf("grammar %q: %w", g.ID, ErrExists)
	}
	s.createGrammar(g)
	return nil
}

func (s *MemStore) createGrammar(g *Grammar) {
	stampNewGrammar(g)
	s.grammars[g.ID] = []*Grammar{copyGrammar(g)}
}

func (s *MemStore) UpdateGrammar(g *Grammar, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.grammars[g.ID]
	if !ok {
		s.createGrammar(g)
		return nil
	}

	if g.UpdatedAt == 0 {
		g.UpdatedAt = time.Now().UnixMilli()
	}
	s.closeCurrent(versions, g.UpdatedAt)

	g.Version = versions[len(versions)-1].Version + 1
	g.CreatedAt = versions[0].CreatedAt
	g.ValidFrom = g.UpdatedAt
	g.ValidTo = nil
	g.IsCurrent = true
	g.ChangeReason = reason
	s.grammars[g.ID] = append(versions, copyGrammar(g))
	return nil
}

func (s *MemStore) GetGrammar(id string) (*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.grammars[id] {
		if g.IsCurrent {
			return copyGrammar(g), nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetGrammarVersion(id string, version int) (*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g := findVersion(s.grammars[id], version); g != nil {
		return copyGrammar(g), nil
	}
	return nil, nil
}

func (s *MemStore) ListGrammarVersions(id string) ([]*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.grammars[id]
	result := make([]*Grammar, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		result = append(result, copyGrammar(versions[i]))
	}
	return result, nil
}

func (s *MemStore) ListGrammars() ([]*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Grammar
	for _, versions := range s.grammars {
		for _, g := range versions {
			if g.IsCurrent {
				result = append(result, copyGrammar(g))
			}
		}
	}
	slices.SortFunc(result, func(a, b *Grammar) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *MemStore) RestoreGrammarVersion(id string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.grammars[id]
	old := findVersion(versions, version)
	if old == nil {
		return fmt.Errorf("grammar %q version %d: %w", id, version, ErrNotFound)
	}

	now := time.Now().UnixMilli()
	s.closeCurrent(versions, now)

	restored := copyGrammar(old)
	restored.Version = versions[len(versions)-1].Version + 1
	restored.UpdatedAt = now
	restored.ValidFrom = now
	restored.ValidTo = nil
	restored.IsCurrent = true
	restored.ChangeReason = fmt.Sprintf("restore v%d", version)
	s.grammars[id] = append(versions, restored)
	return nil
}

func (s *MemStore) DeleteGrammar(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grammars, id)
	return nil
}

func (s *MemStore) CountGrammars() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grammars), nil
}

// closeCurrent ends the validity of the current version. Caller holds mu.
func (s *MemStore) closeCurrent(versions []*Grammar, at int64) {
	for _, g := range versions {
		if g.IsCurrent {
			validTo := at
			g.ValidTo = &validTo
			g.IsCurrent = false
		}
	}
}

func findVersion(versions []*Grammar, version int) *Grammar {
	for _, g := range versions {
		if g.Version == version {
			return g
		}
	}
	return nil
}

func copyGrammar(g *Grammar) *Grammar {
	copy := *g
	if g.ValidTo != nil {
		validTo := *g.ValidTo
		copy.ValidTo = &validTo
	}
	return &copy
}
