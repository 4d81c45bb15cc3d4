package featchart

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/hack-pad/hackpadfs"

	"github.com/kittclouds/gofeat/pkg/featstruct"
	"github.com/kittclouds/gofeat/pkg/lexicon"
)

// ErrNoProductions is returned for a grammar text without productions.
var ErrNoProductions = errors.New("featchart: grammar has no productions")

// Production is LHS -> RHS.
type Production struct {
	LHS *featstruct.Struct
	RHS []Symbol
}

func (p Production) String() string {
	var sb strings.Builder
	sb.WriteString(CategoryString(p.LHS))
	sb.WriteString(" ->")
	for _, s := range p.RHS {
		sb.WriteByte(' ')
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Grammar is a start category and its phrasal productions. Lexical
// productions live in a lexicon.Lexicon.
type Grammar struct {
	Start       *featstruct.Struct
	Productions []Production

	// category name -> production indexes
	byName map[string][]int
}

// NewGrammar indexes productions by LHS category name.
func NewGrammar(start *featstruct.Struct, prods []Production) *Grammar {
	g := &Grammar{Start: start, Productions: prods, byName: make(map[string][]int)}
	for i, p := range prods {
		name := CategoryName(p.LHS)
		g.byName[name] = append(g.byName[name], i)
	}
	return g
}

// candidates returns the productions whose LHS could unify with cat.
func (g *Grammar) candidates(cat *featstruct.Struct) []Production {
	name := CategoryName(cat)
	if name == "" {
		return g.Productions
	}
	idxs := g.byName[name]
	// LHSs without a fixed name match anything.
	idxs = append(idxs[:len(idxs):len(idxs)], g.byName[""]...)
	out := make([]Production, len(idxs))
	for i, idx := range idxs {
		out[i] = g.Productions[idx]
	}
	return out
}

func (g *Grammar) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%%start %s\n", CategoryString(g.Start))
	for _, p := range g.Productions {
		sb.WriteString(p.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// LoadGrammar reads a grammar file from fsys. See ParseGrammar.
func LoadGrammar(fsys hackpadfs.FS, path string) (*Grammar, *lexicon.Lexicon, error) {
	content, err := hackpadfs.ReadFile(fsys, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read grammar: %w", err)
	}
	g, lex, err := ParseGrammar(string(content))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, lex, nil
}

// ParseGrammar reads productions, one rule per line:
//
//	%start S
//	S -> NP[num=?n] VP[num=?n]
//	VP[num=?n] -> IV[num=?n] | TV[num=?n] NP
//	Det[num='sg'] -> 'this' | 'a'
//
// Alternatives are separated by |. Quoted words are terminals; an
// alternative made only of terminals is a lexical entry and goes to the
// returned lexicon (several terminals form one multi-word entry). The
// start category is the LHS of the first rule unless %start names one.
// Lines starting with # are comments.
func ParseGrammar(text string) (*Grammar, *lexicon.Lexicon, error) {
	var (
		start *featstruct.Struct
		first *featstruct.Struct
		prods []Production
		lex   = lexicon.New()
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "%start"); ok {
			cat, err := ParseCategory(strings.TrimSpace(rest))
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			start = cat
			continue
		}

		lhs, alts, err := parseRule(line)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		if first == nil {
			first = lhs
		}
		for _, rhs := range alts {
			if words, lexical := terminalsOnly(rhs); lexical {
				lex.Add(strings.Join(words, " "), lhs)
				continue
			}
			prods = append(prods, Production{LHS: lhs, RHS: rhs})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read grammar: %w", err)
	}
	if first == nil {
		return nil, nil, ErrNoProductions
	}
	if start == nil {
		start = first
	}
	lex.Compile()
	return NewGrammar(start, prods), lex, nil
}

func terminalsOnly(rhs []Symbol) ([]string, bool) {
	if len(rhs) == 0 {
		return nil, false
	}
	words := make([]string, len(rhs))
	for i, s := range rhs {
		if !s.IsTerminal() {
			return nil, false
		}
		words[i] = s.Word
	}
	return words, true
}

// parseRule reads LHS -> alt | alt ...
func parseRule(line string) (*featstruct.Struct, [][]Symbol, error) {
	lhs, pos, err := parseCategoryAt(line, 0)
	if err != nil {
		return nil, nil, err
	}
	pos = skipSpace(line, pos)
	if !strings.HasPrefix(line[pos:], "->") {
		return nil, nil, fmt.Errorf("expected -> at %q", line[pos:])
	}
	pos += 2

	var (
		alts [][]Symbol
		cur  = []Symbol{}
	)
	for {
		pos = skipSpace(line, pos)
		if pos >= len(line) {
			break
		}
		switch c := line[pos]; {
		case c == '|':
			alts = append(alts, cur)
			cur = []Symbol{}
			pos++
		case c == '\'' || c == '"':
			end := strings.IndexByte(line[pos+1:], c)
			if end < 0 {
				return nil, nil, fmt.Errorf("unterminated terminal at %q", line[pos:])
			}
			cur = append(cur, Terminal(line[pos+1:pos+1+end]))
			pos += end + 2
		default:
			cat, end, err := parseCategoryAt(line, pos)
			if err != nil {
				return nil, nil, err
			}
			cur = append(cur, Nonterminal(cat))
			pos = end
		}
	}
	return lhs, append(alts, cur), nil
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}
