package store

import (
	"fmt"

	"github.com/kittclouds/gofeat/pkg/featstruct"
	"github.com/kittclouds/gofeat/pkg/lexicon"
)

// EntryID is the stable ID of a (word, category) pair, so re-importing a
// lexicon updates rows instead of duplicating them.
func EntryID(word, category string) string {
	return word + "|" + category
}

// EntriesFromLexicon flattens lex into one entry per word category.
func EntriesFromLexicon(lex *lexicon.Lexicon, source string) []*Entry {
	var out []*Entry
	for _, word := range lex.Words() {
		for _, cat := range lex.Lookup(word) {
			c := cat.String()
			out = append(out, &Entry{
				ID:       EntryID(word, c),
				Word:     word,
				Category: c,
				Source:   source,
			})
		}
	}
	return out
}

// LexiconFromEntries parses entry categories into a compiled lexicon.
func LexiconFromEntries(entries []*Entry) (*lexicon.Lexicon, error) {
	lex := lexicon.New()
	if err := AddEntries(lex, entries); err != nil {
		return nil, err
	}
	lex.Compile()
	return lex, nil
}

// AddEntries parses entry categories and adds them to lex. The caller
// compiles lex afterwards.
func AddEntries(lex *lexicon.Lexicon, entries []*Entry) error {
	for _, e := range entries {
		cat, err := featstruct.Parse(e.Category)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
		lex.Add(e.Word, cat)
	}
	return nil
}

// ImportLexicon upserts every entry of lex and returns how many were written.
func ImportLexicon(s Storer, lex *lexicon.Lexicon, source string) (int, error) {
	entries := EntriesFromLexicon(lex, source)
	for _, e := range entries {
		if err := s.UpsertEntry(e); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}
