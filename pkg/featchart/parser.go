package featchart

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kittclouds/gofeat/pkg/featstruct"
	"github.com/kittclouds/gofeat/pkg/lexicon"
)

// initCategory heads the edge that predicts the start category.
const initCategory = "[INIT]"

// Parser is a feature-based Earley parser. A Parser may be shared by
// goroutines; each Parse builds its own chart.
type Parser struct {
	Grammar *Grammar
	Lexicon *lexicon.Lexicon

	// Logger receives a Debug record for every edge added when set.
	Logger *slog.Logger

	// Workers bounds ParseBatch concurrency. Zero means 1.
	Workers int
}

// NewParser returns a parser over g and lex.
func NewParser(g *Grammar, lex *lexicon.Lexicon) *Parser {
	return &Parser{Grammar: g, Lexicon: lex, Workers: 1}
}

func (p *Parser) tracing() bool {
	return p.Logger != nil && p.Logger.Enabled(context.Background(), slog.LevelDebug)
}

func (p *Parser) trace(rule string, e *Edge) {
	if p.tracing() {
		p.Logger.Debug(rule, "edge", e.String())
	}
}

// Parse returns every tree for tokens rooted at the start category.
// Tokens are matched against the lexicon case-insensitively.
func (p *Parser) Parse(tokens []string) ([]*Tree, error) {
	chart, err := p.BuildChart(tokens)
	if err != nil {
		return nil, err
	}
	var trees []*Tree
	memo := make(map[int][]*Tree)
	for _, id := range chart.completeSpanning(0, len(tokens)) {
		e := chart.edges[id]
		if e.isLeaf || CategoryName(e.lhs) != initCategory {
			continue
		}
		for _, t := range chart.trees(int(id), memo) {
			trees = append(trees, t.Children...)
		}
	}
	return trees, nil
}

// ParseSentence tokenizes text with the lexicon and parses it.
func (p *Parser) ParseSentence(text string) ([]*Tree, error) {
	return p.Parse(p.Lexicon.Tokenize(text))
}

// ParseBatch parses each sentence, at most Workers at a time. The result
// is index-aligned with sentences.
func (p *Parser) ParseBatch(ctx context.Context, sentences [][]string) ([][]*Tree, error) {
	out := make([][]*Tree, len(sentences))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for i, tokens := range sentences {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trees, err := p.Parse(tokens)
			if err != nil {
				return fmt.Errorf("sentence %d: %w", i, err)
			}
			out[i] = trees
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildChart runs the Earley loop over tokens and returns the chart.
//
// For each position end, the scanner first adds lexical edges for the
// token ending there. Then every edge ending at end is processed in
// insertion order (including edges added meanwhile): incomplete edges are
// expanded by the predictor or, for terminals, advanced over the next
// token; complete edges are combined with incomplete edges waiting for
// them (the fundamental rule).
func (p *Parser) BuildChart(tokens []string) (*Chart, error) {
	chart := NewChart(tokens)

	root := Category(initCategory, nil)
	chart.insert(newEdge(0, 0, root, []Symbol{Nonterminal(p.Grammar.Start)}, 0, nil), nil)

	for end := 0; end <= len(tokens); end++ {
		if end > 0 {
			p.scan(chart, end-1)
		}
		// The bitmap grows while we walk it; re-read until exhausted.
		for i := 0; ; i++ {
			ids := chart.byEnd[end]
			if uint64(i) >= ids.GetCardinality() {
				break
			}
			id, err := ids.Select(uint32(i))
			if err != nil {
				return nil, err
			}
			e := chart.edges[id]
			if e.isLeaf {
				continue
			}
			if err := p.process(chart, int(id), e); err != nil {
				return nil, err
			}
		}
	}
	return chart, nil
}

// scan adds a leaf edge for token pos and one complete edge per lexical
// category of the token.
func (p *Parser) scan(chart *Chart, pos int) {
	word := chart.tokens[pos]
	leaf := newLeafEdge(word, pos)
	leafID, _ := chart.insert(leaf, nil)
	for _, cat := range p.Lexicon.Lookup(word) {
		e := newEdge(pos, pos+1, cat, []Symbol{Terminal(word)}, 1, nil)
		if _, changed := chart.insert(e, []int{leafID}); changed {
			p.trace("scanner", e)
		}
	}
}

func (p *Parser) process(chart *Chart, id int, e *Edge) error {
	if e.IsComplete() {
		for _, lid := range chart.incompleteEndingAt(e.start) {
			if err := p.combine(chart, int(lid), id); err != nil {
				return err
			}
		}
		return nil
	}

	next := e.next()
	if next.IsTerminal() {
		p.advanceTerminal(chart, id, e, next.Word)
		return nil
	}
	if err := p.predict(chart, e, next.Cat); err != nil {
		return err
	}
	// Complete empty edges already waiting at this position.
	for _, rid := range chart.completeWithin(e.end) {
		if err := p.combine(chart, id, int(rid)); err != nil {
			return err
		}
	}
	return nil
}

// predict adds an empty edge for every production whose LHS unifies with want.
func (p *Parser) predict(chart *Chart, e *Edge, want *featstruct.Struct) error {
	for _, prod := range p.Grammar.candidates(want) {
		result, err := want.Unify(prod.LHS, nil)
		if err != nil {
			return err
		}
		if result == nil {
			continue
		}
		ne := newEdge(e.end, e.end, prod.LHS, prod.RHS, 0, nil)
		if _, changed := chart.insert(ne, nil); changed {
			p.trace("predictor", ne)
		}
	}
	return nil
}

// advanceTerminal moves the dot over a terminal matching the next token.
func (p *Parser) advanceTerminal(chart *Chart, id int, e *Edge, word string) {
	if e.end >= len(chart.tokens) || lexicon.Normalize(chart.tokens[e.end]) != lexicon.Normalize(word) {
		return
	}
	leafID, _ := chart.insert(newLeafEdge(chart.tokens[e.end], e.end), nil)
	ne := newEdge(e.start, e.end+1, e.lhs, e.rhs, e.dot+1, e.bindings.Copy())
	if _, changed := chart.advance(id, ne, leafID); changed {
		p.trace("scanner", ne)
	}
}

// combine applies the fundamental rule to an incomplete left edge and a
// complete right edge that starts where left ends.
func (p *Parser) combine(chart *Chart, leftID, rightID int) error {
	left, right := chart.edges[leftID], chart.edges[rightID]
	if left.IsComplete() || right.isLeaf || left.end != right.start {
		return nil
	}
	next := left.next()
	if next.IsTerminal() {
		return nil
	}

	bindings := left.bindings.Copy()
	result, err := next.Cat.Unify(right.LHS().RemoveVariables(), bindings)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	ne := newEdge(left.start, right.end, left.lhs, left.rhs, left.dot+1, bindings)
	if _, changed := chart.advance(leftID, ne, rightID); changed {
		p.trace("completer", ne)
	}
	return nil
}
