package featchart

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kittclouds/gofeat/pkg/featstruct"
)

// Edge is a dotted production over a span of the input, with the
// variable bindings accumulated so far. A leaf edge covers one token.
type Edge struct {
	start, end int
	lhs        *featstruct.Struct
	rhs        []Symbol
	dot        int
	bindings   *featstruct.Bindings
	leaf       string
	isLeaf     bool

	key string
}

func newLeafEdge(word string, pos int) *Edge {
	e := &Edge{start: pos, end: pos + 1, leaf: word, isLeaf: true}
	e.key = fmt.Sprintf("leaf %d %q", pos, word)
	return e
}

func newEdge(start, end int, lhs *featstruct.Struct, rhs []Symbol, dot int, b *featstruct.Bindings) *Edge {
	if b == nil {
		b = &featstruct.Bindings{}
	}
	e := &Edge{start: start, end: end, lhs: lhs, rhs: rhs, dot: dot, bindings: b}
	e.key = fmt.Sprintf("%d %d %d %s", start, end, dot, e.describe())
	return e
}

// Start returns the index of the first token covered.
func (e *Edge) Start() int { return e.start }

// End returns the index just past the last token covered.
func (e *Edge) End() int { return e.end }

// IsLeaf reports whether e covers a single token.
func (e *Edge) IsLeaf() bool { return e.isLeaf }

// IsComplete reports whether the dot is past the whole right-hand side.
// Leaf edges are complete.
func (e *Edge) IsComplete() bool { return e.isLeaf || e.dot == len(e.rhs) }

// LHS returns the left-hand side with the edge's bindings applied.
func (e *Edge) LHS() *featstruct.Struct {
	if e.isLeaf {
		return nil
	}
	return e.lhs.ApplyBindings(e.bindings)
}

// next returns the symbol after the dot with bindings applied.
func (e *Edge) next() Symbol {
	s := e.rhs[e.dot]
	if s.IsTerminal() {
		return s
	}
	return Nonterminal(s.Cat.ApplyBindings(e.bindings))
}

func (e *Edge) describe() string {
	var sb strings.Builder
	sb.WriteString(CategoryString(e.LHS()))
	sb.WriteString(" ->")
	for i, s := range e.rhs {
		if i == e.dot {
			sb.WriteString(" *")
		}
		sb.WriteByte(' ')
		if s.IsTerminal() {
			sb.WriteString(s.String())
		} else {
			sb.WriteString(CategoryString(s.Cat.ApplyBindings(e.bindings)))
		}
	}
	if e.dot == len(e.rhs) {
		sb.WriteString(" *")
	}
	return sb.String()
}

func (e *Edge) String() string {
	if e.isLeaf {
		return fmt.Sprintf("[%d:%d] %q", e.start, e.end, e.leaf)
	}
	return fmt.Sprintf("[%d:%d] %s", e.start, e.end, e.describe())
}

// Chart holds the edges built while parsing one token sequence. Edge ids
// are insertion order; per-position roaring bitmaps index them.
type Chart struct {
	tokens []string
	edges  []*Edge
	ids    map[string]int

	byStart  []*roaring.Bitmap
	byEnd    []*roaring.Bitmap
	complete *roaring.Bitmap

	// edge id -> child pointer lists (edge ids)
	children map[int][][]int
	seen     map[int]map[string]bool
	// edge id -> edges advanced from it
	derived map[int][]derivation
}

// derivation records that edge was built by moving the dot of another
// edge over child.
type derivation struct {
	edge, child int
}

// NewChart returns an empty chart over tokens.
func NewChart(tokens []string) *Chart {
	c := &Chart{
		tokens:   tokens,
		ids:      make(map[string]int),
		byStart:  make([]*roaring.Bitmap, len(tokens)+1),
		byEnd:    make([]*roaring.Bitmap, len(tokens)+1),
		complete: roaring.New(),
		children: make(map[int][][]int),
		seen:     make(map[int]map[string]bool),
		derived:  make(map[int][]derivation),
	}
	for i := range c.byStart {
		c.byStart[i] = roaring.New()
		c.byEnd[i] = roaring.New()
	}
	return c
}

// NumEdges returns the number of distinct edges.
func (c *Chart) NumEdges() int { return len(c.edges) }

// Edges returns every edge in insertion order.
func (c *Chart) Edges() []*Edge {
	out := make([]*Edge, len(c.edges))
	copy(out, c.edges)
	return out
}

// insert adds e (or finds its equal) with one child pointer list. It
// reports whether the chart changed.
func (c *Chart) insert(e *Edge, cpl []int) (int, bool) {
	id := c.add(e)
	return id, c.addChildren(id, cpl)
}

// add adds e without children and returns its id, or the id of its equal.
func (c *Chart) add(e *Edge) int {
	if id, ok := c.ids[e.key]; ok {
		return id
	}
	id := len(c.edges)
	c.edges = append(c.edges, e)
	c.ids[e.key] = id
	c.byStart[e.start].Add(uint32(id))
	c.byEnd[e.end].Add(uint32(id))
	if e.IsComplete() {
		c.complete.Add(uint32(id))
	}
	c.seen[id] = make(map[string]bool)
	return id
}

// addChildren records cpl under id. Edges already advanced from id gain
// the matching extended list, so late alternatives reach them too.
func (c *Chart) addChildren(id int, cpl []int) bool {
	ck := fmt.Sprint(cpl)
	if c.seen[id][ck] {
		return false
	}
	c.seen[id][ck] = true
	c.children[id] = append(c.children[id], cpl)
	for _, d := range c.derived[id] {
		c.addChildren(d.edge, appendChild(cpl, d.child))
	}
	return true
}

// advance adds e as the edge leftID advanced over child, with one child
// list per child list of leftID, now or later. It reports whether the
// chart changed.
func (c *Chart) advance(leftID int, e *Edge, child int) (int, bool) {
	id := c.add(e)
	d := derivation{edge: id, child: child}
	for _, old := range c.derived[leftID] {
		if old == d {
			return id, false
		}
	}
	c.derived[leftID] = append(c.derived[leftID], d)
	changed := false
	for _, cpl := range c.children[leftID] {
		if c.addChildren(id, appendChild(cpl, child)) {
			changed = true
		}
	}
	return id, changed
}

func appendChild(cpl []int, id int) []int {
	out := make([]int, len(cpl), len(cpl)+1)
	copy(out, cpl)
	return append(out, id)
}

// incompleteEndingAt returns incomplete edges ending at pos.
func (c *Chart) incompleteEndingAt(pos int) []uint32 {
	return roaring.AndNot(c.byEnd[pos], c.complete).ToArray()
}

// completeWithin returns complete edges starting and ending at pos.
func (c *Chart) completeWithin(pos int) []uint32 {
	return roaring.And(roaring.And(c.byStart[pos], c.byEnd[pos]), c.complete).ToArray()
}

// completeSpanning returns complete edges from start to end.
func (c *Chart) completeSpanning(start, end int) []uint32 {
	return roaring.And(roaring.And(c.byStart[start], c.byEnd[end]), c.complete).ToArray()
}

// trees returns every tree rooted at edge id. memo entries are set before
// recursing so that unary cycles terminate.
func (c *Chart) trees(id int, memo map[int][]*Tree) []*Tree {
	if ts, ok := memo[id]; ok {
		return ts
	}
	e := c.edges[id]
	if e.isLeaf {
		ts := []*Tree{{Leaf: e.leaf}}
		memo[id] = ts
		return ts
	}
	memo[id] = nil

	label := e.LHS()
	var out []*Tree
	for _, cpl := range c.children[id] {
		combos := [][]*Tree{{}}
		for _, child := range cpl {
			sub := c.trees(child, memo)
			var next [][]*Tree
			for _, prefix := range combos {
				for _, t := range sub {
					kids := make([]*Tree, len(prefix), len(prefix)+1)
					copy(kids, prefix)
					next = append(next, append(kids, t))
				}
			}
			combos = next
		}
		for _, kids := range combos {
			out = append(out, &Tree{Label: label, Children: kids})
		}
	}
	memo[id] = out
	return out
}
