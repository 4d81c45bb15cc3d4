package featchart

import (
	"strings"

	"github.com/kittclouds/gofeat/pkg/featstruct"
)

// Tree is a parse tree. Leaves have a Leaf word and no label.
type Tree struct {
	Label    *featstruct.Struct
	Children []*Tree
	Leaf     string
}

// IsLeaf reports whether t is a word.
func (t *Tree) IsLeaf() bool { return t.Label == nil }

// Leaves returns the words under t, left to right.
func (t *Tree) Leaves() []string {
	if t.IsLeaf() {
		return []string{t.Leaf}
	}
	var out []string
	for _, c := range t.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// String writes t in bracketed form: (S (NP[num='sg'] john) (VP ...)).
func (t *Tree) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Tree) write(sb *strings.Builder) {
	if t.IsLeaf() {
		sb.WriteString(t.Leaf)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(CategoryString(t.Label))
	for _, c := range t.Children {
		sb.WriteByte(' ')
		c.write(sb)
	}
	sb.WriteByte(')')
}
