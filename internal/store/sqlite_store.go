package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the SQLite-backed data store.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface,
// with the SQLite build from ncruces/go-sqlite3/embed.
// Safe for concurrent use.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines all tables with temporal versioning for grammars.
const schema = `
-- Lexicon entries: one row per (word, category)
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    word TEXT NOT NULL,
    category TEXT NOT NULL,
    source TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_word ON entries(word);

-- Grammars (Temporal versioning pattern)
-- Composite primary key (id, version) enables full version history
CREATE TABLE IF NOT EXISTS grammars (
    id TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    name TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    valid_from INTEGER NOT NULL,
    valid_to INTEGER,
    is_current INTEGER DEFAULT 1,
    change_reason TEXT,
    PRIMARY KEY (id, version)
);

-- Partial index for current versions (fast queries)
CREATE INDEX IF NOT EXISTS idx_grammars_current ON grammars(id) WHERE is_current = 1;
`

const grammarColumns = `id, version, name, text, created_at, updated_at, valid_from, valid_to, is_current, change_reason`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Entry CRUD
// =============================================================================

// UpsertEntry inserts or updates an entry, keeping the first creation time.
func (s *SQLiteStore) UpsertEntry(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampEntry(entry)
	_, err := s.db.Exec(`
		INSERT INTO entries (id, word, category, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			word = excluded.word,
			category = excluded.category,
			source = excluded.source,
			updated_at = excluded.updated_at
	`, entry.ID, entry.Word, entry.Category, entry.Source, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (s *SQLiteStore) GetEntry(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e Entry
	var source sql.NullString
	err := s.db.QueryRow(`
		SELECT id, word, category, source, created_at, updated_at
		FROM entries WHERE id = ?
	`, id).Scan(&e.ID, &e.Word, &e.Category, &source, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Source = source.String
	return &e, nil
}

// DeleteEntry removes an entry.
func (s *SQLiteStore) DeleteEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM entries WHERE id = ?", id)
	return err
}

// ListEntries returns the entries of word, or all entries when word is
// empty, ordered by word then category.
func (s *SQLiteStore) ListEntries(word string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if word != "" {
		rows, err = s.db.Query(`
			SELECT id, word, category, source, created_at, updated_at
			FROM entries WHERE word = ? ORDER BY word, category
		`, word)
	} else {
		rows, err = s.db.Query(`
			SELECT id, word, category, source, created_at, updated_at
			FROM entries ORDER BY word, category
		`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var source sql.NullString
		if err := rows.Scan(&e.ID, &e.Word, &e.Category, &source, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Source = source.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountEntries returns the number of entries.
func (s *SQLiteStore) CountEntries() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// =============================================================================
// Grammar CRUD (versioned)
// =============================================================================

// CreateGrammar stores a new grammar as version 1.
func (s *SQLiteStore) CreateGrammar(g *Grammar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM grammars WHERE id = ? LIMIT 1`, g.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("grammar %q: %w", g.ID, ErrExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return s.createGrammar(g)
}

func (s *SQLiteStore) createGrammar(g *Grammar) error {
	stampNewGrammar(g)
	return s.insertGrammar(g)
}

func (s *SQLiteStore) insertGrammar(g *Grammar) error {
	_, err := s.db.Exec(`
		INSERT INTO grammars (`+grammarColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.Version, g.Name, g.Text, g.CreatedAt, g.UpdatedAt,
		g.ValidFrom, g.ValidTo, boolToInt(g.IsCurrent), g.ChangeReason)
	if err != nil {
		return fmt.Errorf("failed to insert grammar: %w", err)
	}
	return nil
}

// UpdateGrammar closes the current version of g.ID and stores g as the
// next version. A grammar that does not exist yet is created.
func (s *SQLiteStore) UpdateGrammar(g *Grammar, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Get current version info
	var currentVersion, createdAt sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(version), MIN(created_at) FROM grammars WHERE id = ?
	`, g.ID).Scan(&currentVersion, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to read grammar versions: %w", err)
	}
	if !currentVersion.Valid {
		return s.createGrammar(g)
	}

	if g.UpdatedAt == 0 {
		g.UpdatedAt = time.Now().UnixMilli()
	}

	// Close old current version
	if _, err := s.db.Exec(`
		UPDATE grammars SET valid_to = ?, is_current = 0
		WHERE id = ? AND is_current = 1
	`, g.UpdatedAt, g.ID); err != nil {
		return err
	}

	g.Version = int(currentVersion.Int64) + 1
	g.CreatedAt = createdAt.Int64 // Preserve first creation time
	g.ValidFrom = g.UpdatedAt
	g.ValidTo = nil
	g.IsCurrent = true
	g.ChangeReason = reason
	return s.insertGrammar(g)
}

// GetGrammar retrieves the current version of a grammar.
func (s *SQLiteStore) GetGrammar(id string) (*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanGrammar(s.db.QueryRow(`
		SELECT `+grammarColumns+` FROM grammars WHERE id = ? AND is_current = 1
	`, id))
}

// GetGrammarVersion retrieves a specific version of a grammar.
func (s *SQLiteStore) GetGrammarVersion(id string, version int) (*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanGrammar(s.db.QueryRow(`
		SELECT `+grammarColumns+` FROM grammars WHERE id = ? AND version = ?
	`, id, version))
}

// ListGrammarVersions returns all versions of a grammar, newest first.
func (s *SQLiteStore) ListGrammarVersions(id string) ([]*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+grammarColumns+` FROM grammars WHERE id = ? ORDER BY version DESC
	`, id)
	if err != nil {
		return nil, err
	}
	return scanGrammars(rows)
}

// ListGrammars returns the current version of every grammar, by name.
func (s *SQLiteStore) ListGrammars() ([]*Grammar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+grammarColumns+` FROM grammars WHERE is_current = 1 ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	return scanGrammars(rows)
}

// RestoreGrammarVersion makes a copy of an old version the new current version.
func (s *SQLiteStore) RestoreGrammarVersion(id string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := scanGrammar(s.db.QueryRow(`
		SELECT `+grammarColumns+` FROM grammars WHERE id = ? AND version = ?
	`, id, version))
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("grammar %q version %d: %w", id, version, ErrNotFound)
	}

	var maxVersion int
	if err := s.db.QueryRow(`SELECT MAX(version) FROM grammars WHERE id = ?`, id).Scan(&maxVersion); err != nil {
		return err
	}

	now := time.Now().UnixMilli()

	// Close current version
	if _, err := s.db.Exec(`
		UPDATE grammars SET valid_to = ?, is_current = 0
		WHERE id = ? AND is_current = 1
	`, now, id); err != nil {
		return err
	}

	old.Version = maxVersion + 1
	old.UpdatedAt = now
	old.ValidFrom = now
	old.ValidTo = nil
	old.IsCurrent = true
	old.ChangeReason = fmt.Sprintf("restore v%d", version)
	return s.insertGrammar(old)
}

// DeleteGrammar removes all versions of a grammar.
func (s *SQLiteStore) DeleteGrammar(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM grammars WHERE id = ?", id)
	return err
}

// CountGrammars returns the number of grammars (current versions only).
func (s *SQLiteStore) CountGrammars() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM grammars WHERE is_current = 1").Scan(&count)
	return count, err
}

// =============================================================================
// Helpers
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrammar(row rowScanner) (*Grammar, error) {
	var g Grammar
	var isCurrent int
	var validTo sql.NullInt64
	var reason sql.NullString

	err := row.Scan(&g.ID, &g.Version, &g.Name, &g.Text, &g.CreatedAt, &g.UpdatedAt,
		&g.ValidFrom, &validTo, &isCurrent, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	g.IsCurrent = isCurrent != 0
	g.ChangeReason = reason.String
	if validTo.Valid {
		g.ValidTo = &validTo.Int64
	}
	return &g, nil
}

func scanGrammars(rows *sql.Rows) ([]*Grammar, error) {
	defer rows.Close()

	var out []*Grammar
	for rows.Next() {
		g, err := scanGrammar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func stampEntry(e *Entry) {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	if e.UpdatedAt == 0 {
		e.UpdatedAt = e.CreatedAt
	}
}

func stampNewGrammar(g *Grammar) {
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().UnixMilli()
	}
	if g.UpdatedAt == 0 {
		g.UpdatedAt = g.CreatedAt
	}
	if g.Name == "" {
		g.Name = g.ID
	}
	g.Version = 1
	g.ValidFrom = g.CreatedAt
	g.ValidTo = nil
	g.IsCurrent = true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
