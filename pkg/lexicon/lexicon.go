// Package lexicon maps word forms to feature-structure categories.
// A single Aho-Corasick automaton over all word forms serves both as the
// dictionary and as the tokenizer that keeps multi-word items together.
package lexicon

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/sync/errgroup"

	"github.com/kittclouds/gofeat/pkg/featstruct"
)

// ============================================================================
// Normalization
// ============================================================================

// Normalize lowercases text, maps punctuation to spaces and collapses
// runs of whitespace. Apostrophes and hyphens are kept inside words.
func Normalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for _, ch := range s {
		c := unicode.ToLower(ch)

		// Curly apostrophe -> straight
		if c == '’' {
			c = '\''
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' || c == '-' {
			out.WriteRune(c)
		} else {
			out.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(out.String()), " ")
}

// ============================================================================
// Lexicon
// ============================================================================

// Lexicon holds the categories of each word form. Adding words is not
// safe for concurrent use; lookups, Tokenize and Match are.
type Lexicon struct {
	// Normalized word -> pattern index
	index map[string]int

	// Pattern index -> categories
	categories [][]*featstruct.Struct

	// All normalized words in insertion order (for the AC builder)
	words []string

	ac       ahocorasick.AhoCorasick
	compiled bool
}

// New returns an empty lexicon.
func New() *Lexicon {
	return &Lexicon{index: make(map[string]int)}
}

// Add records cat as a category of word. Adding invalidates the
// tokenizer until the next Compile.
func (l *Lexicon) Add(word string, cat *featstruct.Struct) {
	key := Normalize(word)
	if key == "" || cat == nil {
		return
	}
	idx, ok := l.index[key]
	if !ok {
		idx = len(l.words)
		l.index[key] = idx
		l.words = append(l.words, key)
		l.categories = append(l.categories, nil)
	}
	for _, existing := range l.categories[idx] {
		if existing.EqualValues(cat, true) {
			return
		}
	}
	l.categories[idx] = append(l.categories[idx], cat)
	l.compiled = false
}

// Lookup returns the categories of word, or nil if it is unknown.
func (l *Lexicon) Lookup(word string) []*featstruct.Struct {
	idx, ok := l.index[Normalize(word)]
	if !ok {
		return nil
	}
	out := make([]*featstruct.Struct, len(l.categories[idx]))
	copy(out, l.categories[idx])
	return out
}

// Words returns the normalized word forms, sorted.
func (l *Lexicon) Words() []string {
	out := make([]string, len(l.words))
	copy(out, l.words)
	sort.Strings(out)
	return out
}

// Len returns the number of word forms.
func (l *Lexicon) Len() int { return len(l.words) }

// Compile builds the tokenizer automaton over all word forms.
func (l *Lexicon) Compile() {
	if len(l.words) == 0 {
		l.compiled = false
		return
	}
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	l.ac = builder.Build(l.words)
	l.compiled = true
}

// ============================================================================
// Tokenization
// ============================================================================

// Tokenize splits text into normalized tokens. Known word forms, including
// multi-word ones, become single tokens (leftmost-longest); everything
// else is split on whitespace. Without Compile it only splits on
// whitespace.
func (l *Lexicon) Tokenize(text string) []string {
	normalized := Normalize(text)
	if !l.compiled {
		return strings.Fields(normalized)
	}

	var tokens []string
	pos := 0
	for _, m := range l.ac.FindAll(normalized) {
		if m.Start() < pos {
			continue
		}
		tokens = append(tokens, strings.Fields(normalized[pos:m.Start()])...)
		tokens = append(tokens, normalized[m.Start():m.End()])
		pos = m.End()
	}
	return append(tokens, strings.Fields(normalized[pos:])...)
}

// ============================================================================
// Category search
// ============================================================================

// Hit is a word whose category unifies with a query.
type Hit struct {
	Word     string
	Category *featstruct.Struct // the unification of the query and the stored category
}

// Match unifies query with every category in the lexicon, using at most
// workers goroutines, and returns the hits sorted by word.
func (l *Lexicon) Match(ctx context.Context, query *featstruct.Struct, workers int) ([]Hit, error) {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu   sync.Mutex
		hits []Hit
	)
	for idx, word := range l.words {
		for _, cat := range l.categories[idx] {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				result, err := query.Unify(cat, nil)
				if err != nil {
					return err
				}
				if result == nil {
					return nil
				}
				mu.Lock()
				hits = append(hits, Hit{Word: word, Category: result})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Word != hits[j].Word {
			return hits[i].Word < hits[j].Word
		}
		return hits[i].Category.String() < hits[j].Category.String()
	})
	return hits, nil
}
