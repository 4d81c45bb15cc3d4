package featstruct

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	canonical := []string{
		"[]",
		"[a=1]",
		"[A='a', B=(1)[C='c'], D->(1)]",
		"(1)[a->(1)]",
		"[a=(1)[b=(2)[], c->(2)], d->(1)]",
		"[a=?x, b=?<x=y>, c=None, d=True, e=-3, f=False]",
		`[s="it's"]`,
		`[s='say "hi"']`,
		`[s='a\\b\n']`,
		`[s='\'"']`,
		"[*type*='NP', agr=[num=?n, per=3]]",
	}
	for _, s := range canonical {
		fs, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, fs.String())

		again, err := Parse(fs.String())
		require.NoError(t, err)
		assert.True(t, fs.EqualValues(again, true), s)
	}
}

func TestParseNormalizes(t *testing.T) {
	tests := []struct{ in, want string }{
		{"[a=sg]", "[a='sg']"},
		{"[b=2, a=1]", "[a=1, b=2]"},
		{" [a = 1 , b=[ ] ] ", "[a=1, b=[]]"},
		{"[a (1)=[x=1], b->(1)]", "[a=(1)[x=1], b->(1)]"},
		{"[a=(1)'x', b->(1)]", "[a='x', b='x']"},
		{"[a=12x]", "[a='12x']"},
		{"[a=Nonesuch]", "[a='Nonesuch']"},
		{`[a="x"]`, "[a='x']"},
	}
	for _, tt := range tests {
		fs, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, fs.String(), tt.in)
	}
}

func TestParseSharesTaggedNodes(t *testing.T) {
	fs := MustParse("[a=(1)[x=1], b=[c->(1)]]")
	a, _ := fs.Path("a")
	c, _ := fs.Path("b", "c")
	assert.Same(t, a, c)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in       string
		offset   int
		expected string
	}{
		{"", 0, "open bracket"},
		{"a=1", 0, "open bracket"},
		{"[a=1", 4, "comma"},
		{"[a=1,", 5, "close bracket"},
		{"[=1]", 1, "feature name"},
		{"[a 1]", 3, "equals sign"},
		{"[a->(1)]", 7, "bound identifier"},
		{"[a->1]", 4, "identifier"},
		{"[a=(1)[], b=(1)[]]", 13, "new identifier"},
		{"[a='x]", 6, "close quote"},
		{"[a=]", 3, "value"},
		{"[a=1] x", 6, "end of string"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.in)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), "%q: %v", tt.in, err)
		assert.Equal(t, tt.expected, perr.Expected, tt.in)
		assert.Equal(t, tt.offset, perr.Offset, tt.in)
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse("[a=1 b=2]")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "    [a=1 b=2]\n")
	assert.True(t, strings.HasSuffix(msg, "\n"+strings.Repeat(" ", 4+4)+"^ Expected comma"), msg)
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("[") })
}

func TestParseAt(t *testing.T) {
	s := "NP[num=?n] VP"
	fs, end, err := ParseAt(s, 2)
	require.NoError(t, err)
	assert.Equal(t, "[num=?n]", fs.String())
	assert.Equal(t, "VP", s[end:])
}

func TestMatrix(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"[]", []string{"[]"}},
		{"[a=1, bb='x']", []string{
			"[ a  = 1   ]",
			"[ bb = 'x' ]",
		}},
		{"[a=[b=1]]", []string{
			"[ a = [ b = 1 ] ]",
		}},
		{"[a=(1)[], b->(1)]", []string{
			"[ a = (1) [] ]",
			"[            ]",
			"[ b -> (1)   ]",
		}},
		{"[a=[b=1, c=2]]", []string{
			"[ a = [ b = 1 ] ]",
			"[     [ c = 2 ] ]",
		}},
		{"(1)[a->(1)]", []string{
			"(1) [ a -> (1) ]",
		}},
	}
	for _, tt := range tests {
		assert.Equal(t, strings.Join(tt.want, "\n"), MustParse(tt.in).Matrix(), tt.in)
	}
}

func TestDisplayUnification(t *testing.T) {
	var buf bytes.Buffer
	var b Bindings
	result, err := DisplayUnification(&buf, MustParse("[a=?x]"), MustParse("[a='sg']"), &b)
	require.NoError(t, err)
	require.NotNil(t, result)

	out := buf.String()
	assert.Contains(t, out, "  [ a = ?x ]   [ a = 'sg' ]\n")
	assert.Contains(t, out, "+-----UNIFY-----+")
	assert.Contains(t, out, "[ a = 'sg' ]")
	assert.Contains(t, out, "<Bindings: ?x='sg'>")

	buf.Reset()
	result, err = DisplayUnification(&buf, MustParse("[a=1]"), MustParse("[a=2]"), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Contains(t, buf.String(), "(FAILED)")
	assert.NotContains(t, buf.String(), "Bindings")
}
