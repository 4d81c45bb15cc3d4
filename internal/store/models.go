// Package store persists lexicon entries and feature grammars.
// SQLiteStore is the real implementation; MemStore backs tests and
// short-lived tools.
package store

import "errors"

var (
	// ErrNotFound is returned when an operation needs a record that is absent.
	ErrNotFound = errors.New("store: not found")

	// ErrExists is returned when creating a record whose ID is taken.
	ErrExists = errors.New("store: already exists")
)

// Entry is one lexical category of a word form.
type Entry struct {
	ID        string `json:"id"`
	Word      string `json:"word"`
	Category  string `json:"category"` // single-line feature structure
	Source    string `json:"source,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Grammar is a versioned feature grammar text.
// Uses temporal table pattern for full version history.
type Grammar struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`

	// Temporal fields for version tracking
	ValidFrom    int64  `json:"validFrom"`
	ValidTo      *int64 `json:"validTo,omitempty"`
	IsCurrent    bool   `json:"isCurrent"`
	ChangeReason string `json:"changeReason,omitempty"`
}

// Storer defines the interface for data persistence.
// This allows swapping between MemStore (testing) and SQLiteStore (production).
// Getters return nil, nil when the record does not exist.
type Storer interface {
	// Lexicon entries
	UpsertEntry(entry *Entry) error
	GetEntry(id string) (*Entry, error)
	DeleteEntry(id string) error
	ListEntries(word string) ([]*Entry, error)
	CountEntries() (int, error)

	// Grammars - version-aware operations
	CreateGrammar(g *Grammar) error
	UpdateGrammar(g *Grammar, reason string) error
	GetGrammar(id string) (*Grammar, error)
	GetGrammarVersion(id string, version int) (*Grammar, error)
	ListGrammarVersions(id string) ([]*Grammar, error)
	RestoreGrammarVersion(id string, version int) error
	DeleteGrammar(id string) error
	ListGrammars() ([]*Grammar, error)
	CountGrammars() (int, error)

	// Lifecycle
	Close() error
}
