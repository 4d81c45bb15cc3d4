package featchart

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/gofeat/pkg/featstruct"
)

const agreement = `
# number agreement between subject and verb
%start S
S -> NP[num=?n] VP[num=?n]
NP[num=?n] -> Det[num=?n] N[num=?n] | PropN[num=?n]
NP[num=?n] -> NP[num=?n] PP
VP[num=?n] -> IV[num=?n] | TV[num=?n] NP
VP[num=?n] -> VP[num=?n] PP
PP -> P NP

Det[num=sg] -> 'this' | 'a'
Det[num=pl] -> 'these'
N[num=sg] -> 'dog'
N[num=pl] -> 'dogs'
PropN[num=sg] -> 'John' | 'New' 'York'
IV[num=sg] -> 'runs'
IV[num=pl] -> 'run'
TV[num=sg] -> 'sees'
TV[num=pl] -> 'see'
P -> 'with'
`

func newAgreementParser(t *testing.T) *Parser {
	t.Helper()
	g, lex, err := ParseGrammar(agreement)
	require.NoError(t, err)
	return NewParser(g, lex)
}

func TestParseCategory(t *testing.T) {
	cat, err := ParseCategory("NP[num=?n, per=3]")
	require.NoError(t, err)
	assert.Equal(t, "NP", CategoryName(cat))
	assert.Equal(t, "NP[num=?n, per=3]", CategoryString(cat))
	assert.Equal(t, "[*type*='NP', num=?n, per=3]", cat.String())

	cat, err = ParseCategory("S")
	require.NoError(t, err)
	assert.Equal(t, "S", CategoryString(cat))

	_, err = ParseCategory("NP[num=")
	var perr *featstruct.ParseError
	assert.ErrorAs(t, err, &perr)

	_, err = ParseCategory("NP VP")
	assert.Error(t, err)
	_, err = ParseCategory("[num=1]")
	assert.Error(t, err)
}

func TestParseGrammar(t *testing.T) {
	g, lex, err := ParseGrammar(agreement)
	require.NoError(t, err)

	assert.Equal(t, "S", CategoryString(g.Start))
	assert.Len(t, g.Productions, 8)
	assert.Equal(t, "NP[num=?n] -> Det[num=?n] N[num=?n]", g.Productions[1].String())
	assert.Contains(t, g.String(), "%start S\n")

	assert.Equal(t, 12, lex.Len())
	cats := lex.Lookup("new york")
	require.Len(t, cats, 1)
	assert.Equal(t, "PropN[num='sg']", CategoryString(cats[0]))
}

func TestParseGrammarStartDefaultsToFirstRule(t *testing.T) {
	g, _, err := ParseGrammar("VP -> V\nV -> 'go'")
	require.NoError(t, err)
	assert.Equal(t, "VP", CategoryName(g.Start))
}

func TestParseGrammarErrors(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"S NP", "expected ->"},
		{"S -> 'x", "unterminated"},
		{"S -> NP[num=", "Expected"},
		{"%start [x]", "category name"},
	}
	for _, tt := range tests {
		_, _, err := ParseGrammar(tt.text)
		assert.ErrorContains(t, err, tt.want, tt.text)
		assert.ErrorContains(t, err, "line 1", tt.text)
	}

	_, _, err := ParseGrammar("# nothing here\n")
	assert.ErrorIs(t, err, ErrNoProductions)
}

func TestParseAgreement(t *testing.T) {
	p := newAgreementParser(t)

	trees, err := p.Parse([]string{"this", "dog", "runs"})
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t,
		"(S (NP[num='sg'] (Det[num='sg'] this) (N[num='sg'] dog)) (VP[num='sg'] (IV[num='sg'] runs)))",
		trees[0].String())
	assert.Equal(t, []string{"this", "dog", "runs"}, trees[0].Leaves())

	trees, err = p.Parse([]string{"These", "dogs", "run"})
	require.NoError(t, err)
	assert.Len(t, trees, 1)

	for _, bad := range [][]string{
		{"this", "dogs", "runs"},
		{"these", "dogs", "runs"},
		{"this", "dog", "run"},
		{"dog", "runs"},
		{},
	} {
		trees, err := p.Parse(bad)
		require.NoError(t, err)
		assert.Empty(t, trees, "%v", bad)
	}
}

func TestParseAmbiguity(t *testing.T) {
	p := newAgreementParser(t)

	trees, err := p.Parse(strings.Fields("John sees this dog with these dogs"))
	require.NoError(t, err)
	require.Len(t, trees, 2)

	var got []string
	for _, tr := range trees {
		got = append(got, tr.String())
	}
	assert.Contains(t, got,
		"(S (NP[num='sg'] (PropN[num='sg'] John)) (VP[num='sg'] (VP[num='sg'] (TV[num='sg'] sees) "+
			"(NP[num='sg'] (Det[num='sg'] this) (N[num='sg'] dog))) "+
			"(PP (P with) (NP[num='pl'] (Det[num='pl'] these) (N[num='pl'] dogs)))))")
	assert.Contains(t, got,
		"(S (NP[num='sg'] (PropN[num='sg'] John)) (VP[num='sg'] (TV[num='sg'] sees) "+
			"(NP[num='sg'] (NP[num='sg'] (Det[num='sg'] this) (N[num='sg'] dog)) "+
			"(PP (P with) (NP[num='pl'] (Det[num='pl'] these) (N[num='pl'] dogs))))))")
}

func TestParseSentenceMultiWord(t *testing.T) {
	p := newAgreementParser(t)

	trees, err := p.ParseSentence("New York runs.")
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, "(S (NP[num='sg'] (PropN[num='sg'] new york)) (VP[num='sg'] (IV[num='sg'] runs)))", trees[0].String())
}

func TestParseTerminalsInRules(t *testing.T) {
	g, lex, err := ParseGrammar("S -> 'hello' Name\nName -> 'world'")
	require.NoError(t, err)

	trees, err := NewParser(g, lex).Parse([]string{"Hello", "world"})
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, "(S Hello (Name world))", trees[0].String())
}

func TestParseEmptyProduction(t *testing.T) {
	g, lex, err := ParseGrammar("S -> A 'x'\nA ->")
	require.NoError(t, err)

	trees, err := NewParser(g, lex).Parse([]string{"x"})
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, "(S (A) x)", trees[0].String())
}

func treeStrings(trees []*Tree) []string {
	var out []string
	for _, tr := range trees {
		out = append(out, tr.String())
	}
	return out
}

func TestParseLateAlternativeBeforeTerminal(t *testing.T) {
	// X over "a" is completed via A first and via Y -> B only after
	// S -> X * 'c' has been advanced.
	g, lex, err := ParseGrammar("S -> X 'c'\nX -> A | Y\nY -> B\nA -> 'a'\nB -> 'a'")
	require.NoError(t, err)

	trees, err := NewParser(g, lex).Parse([]string{"a", "c"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"(S (X (A a)) c)",
		"(S (X (Y (B a))) c)",
	}, treeStrings(trees))

	// Same shape with a nonterminal in place of the terminal.
	g, lex, err = ParseGrammar("S -> X C\nX -> A | Y\nY -> B\nA -> 'a'\nB -> 'a'\nC -> 'c'")
	require.NoError(t, err)
	trees, err = NewParser(g, lex).Parse([]string{"a", "c"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"(S (X (A a)) (C c))",
		"(S (X (Y (B a))) (C c))",
	}, treeStrings(trees))
}

func TestParseLateAlternativeBeforeEmpty(t *testing.T) {
	g, lex, err := ParseGrammar("S -> X E 'c'\nX -> A | Y\nY -> B\nE ->\nA -> 'a'\nB -> 'a'")
	require.NoError(t, err)

	trees, err := NewParser(g, lex).Parse([]string{"a", "c"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"(S (X (A a)) (E) c)",
		"(S (X (Y (B a))) (E) c)",
	}, treeStrings(trees))
}

func TestParseBatch(t *testing.T) {
	p := newAgreementParser(t)
	p.Workers = 3

	sents := [][]string{
		{"this", "dog", "runs"},
		{"this", "dogs", "runs"},
		strings.Fields("John sees this dog with these dogs"),
		{"these", "dogs", "see", "John"},
	}
	out, err := p.ParseBatch(context.Background(), sents)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Len(t, out[0], 1)
	assert.Empty(t, out[1])
	assert.Len(t, out[2], 2)
	assert.Len(t, out[3], 1)
}

func TestParseBatchCancelled(t *testing.T) {
	p := newAgreementParser(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ParseBatch(ctx, [][]string{{"this", "dog", "runs"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParserTrace(t *testing.T) {
	var buf bytes.Buffer
	p := newAgreementParser(t)
	p.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := p.Parse([]string{"this", "dog", "runs"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "predictor")
	assert.Contains(t, out, "scanner")
	assert.Contains(t, out, "completer")
}

func TestBuildChart(t *testing.T) {
	p := newAgreementParser(t)
	chart, err := p.BuildChart([]string{"this", "dog"})
	require.NoError(t, err)

	var complete, dotted int
	for _, e := range chart.Edges() {
		if e.IsLeaf() {
			continue
		}
		if e.IsComplete() {
			complete++
		}
		if strings.Contains(e.String(), "NP[num='sg'] -> Det[num='sg'] N[num='sg'] *") {
			dotted++
			assert.Equal(t, 0, e.Start())
			assert.Equal(t, 2, e.End())
		}
	}
	assert.Equal(t, 1, dotted)
	assert.Positive(t, complete)
	assert.Equal(t, len(chart.Edges()), chart.NumEdges())
}

func TestLoadGrammar(t *testing.T) {
	fs, err := mem.NewFS()
	if err != nil {
		t.Fatal(err)
	}
	if err := hackpadfs.WriteFullFile(fs, "agreement.fcfg", []byte(agreement), 0644); err != nil {
		t.Fatal(err)
	}

	g, lex, err := LoadGrammar(fs, "agreement.fcfg")
	require.NoError(t, err)
	trees, err := NewParser(g, lex).Parse([]string{"John", "runs"})
	require.NoError(t, err)
	assert.Len(t, trees, 1)

	_, _, err = LoadGrammar(fs, "missing.fcfg")
	assert.Error(t, err)
}
