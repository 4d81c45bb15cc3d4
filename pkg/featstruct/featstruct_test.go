package featstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesValues(t *testing.T) {
	fs := New(F{"n": int64(3), "s": "x", "v": Var("v"), "sub": New(F{})})
	n, ok := fs.Get("n")
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"n", "s", "sub", "v"}, fs.FeatureNames())
	assert.Equal(t, 4, fs.Len())
}

func TestSetRejectsInvalidValues(t *testing.T) {
	assert.Panics(t, func() { New(F{"bad": []string{"x"}}) })
	assert.Panics(t, func() { New(F{"bad": (*Struct)(nil)}) })

	var fs Struct
	assert.NotPanics(t, func() { fs.Set("ok", "x") })
	fs.Delete("ok")
	assert.Equal(t, 0, fs.Len())
}

func TestPath(t *testing.T) {
	fs := MustParse("[a=[b=[c=1]]]")

	v, err := fs.Path("a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = fs.Path()
	require.NoError(t, err)
	assert.Same(t, fs, v)

	_, err = fs.Path("a", "x")
	assert.ErrorIs(t, err, ErrFeaturePath)
	_, err = fs.Path("a", "b", "c", "d")
	assert.ErrorIs(t, err, ErrFeaturePath)
}

func TestDeepCopyKeepsReentrance(t *testing.T) {
	fs := MustParse("[a=(1)[x=1], b->(1), c=(2)[d->(2)]]")
	c := fs.DeepCopy()

	assert.Equal(t, fs.String(), c.String())
	assert.False(t, Same(fs, c))

	a, _ := c.Get("a")
	b, _ := c.Get("b")
	assert.Same(t, a, b)
	orig, _ := fs.Get("a")
	assert.NotSame(t, orig, a)
}

func TestEqualValues(t *testing.T) {
	shared := MustParse("[a=(1)[x=1], b->(1)]")
	copied := MustParse("[a=[x=1], b=[x=1]]")

	assert.True(t, shared.EqualValues(copied, false))
	assert.True(t, copied.EqualValues(shared, false))
	assert.False(t, shared.EqualValues(copied, true))
	assert.True(t, shared.EqualValues(shared.DeepCopy(), true))

	assert.False(t, MustParse("[a=1]").EqualValues(MustParse("[a=1, b=2]"), false))
	assert.False(t, MustParse("[a=1]").EqualValues(MustParse("[a='1']"), false))
	assert.False(t, MustParse("[a=?x]").EqualValues(MustParse("[a=?y]"), false))
	assert.True(t, MustParse("[a=?<x=y>]").EqualValues(MustParse("[a=?<y=x>]"), false))
	assert.False(t, MustParse("[a=1]").EqualValues(nil, false))

	cyc1 := MustParse("(1)[next->(1)]")
	cyc2 := MustParse("[next=(1)[next->(1)]]")
	assert.True(t, cyc1.EqualValues(cyc2, false))
	assert.False(t, cyc1.EqualValues(cyc2, true))
}

func TestReentrances(t *testing.T) {
	fs := MustParse("[a=(1)[], b->(1), c=[d->(1)], e=(2)[f=1]]")
	re := fs.Reentrances()
	require.Len(t, re, 1)
	a, _ := fs.Get("a")
	assert.Same(t, a, re[0])

	cyc := MustParse("(1)[a=[b->(1)]]")
	re = cyc.Reentrances()
	require.Len(t, re, 1)
	assert.Same(t, cyc, re[0])

	assert.Empty(t, MustParse("[a=[b=1], c=[b=1]]").Reentrances())
}

func TestVariables(t *testing.T) {
	fs := MustParse("[a=?x, b=[c=?<y=z>, d=?x], e=1]")
	assert.Equal(t, []Variable{Var("x"), Var("y"), Var("z")}, fs.Variables())
}

func TestRemoveVariables(t *testing.T) {
	fs := MustParse("[a=?x, b=[c=?<y=z>, d=1], e=1]")
	assert.Equal(t, "[b=[d=1], e=1]", fs.RemoveVariables().String())
	assert.Equal(t, "[a=?x, b=[c=?<y=z>, d=1], e=1]", fs.String())
}

func TestRenameVariables(t *testing.T) {
	fs := MustParse("[a=?x, b=?x, c=?y, d=?<x=y>]")
	renames := make(map[Variable]Variable)
	r := fs.RenameVariables(renames)

	require.Len(t, renames, 2)
	nx, ny := renames[Var("x")], renames[Var("y")]
	assert.True(t, nx.IsNumbered())
	assert.NotEqual(t, nx, ny)

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	c, _ := r.Get("c")
	d, _ := r.Get("d")
	assert.Equal(t, nx, a)
	assert.Equal(t, nx, b)
	assert.Equal(t, ny, c)
	assert.True(t, SameVar(d.(VarTerm), Alias(nx, ny)))

	// A second call with the same map renames consistently.
	r2 := MustParse("[z=?y]").RenameVariables(renames)
	z, _ := r2.Get("z")
	assert.Equal(t, ny, z)

	// The receiver keeps its variables.
	assert.Equal(t, []Variable{Var("x"), Var("y")}, fs.Variables())
}

func TestApplyBindings(t *testing.T) {
	b, err := NewBindings(map[Variable]any{Var("x"): 1, Var("s"): MustParse("[q=?x]")})
	require.NoError(t, err)

	fs := MustParse("[a=?x, b=?<x=y>, c=?z, d=?s]")
	got := fs.ApplyBindings(b)
	assert.Equal(t, "[a=1, b=1, c=?z, d=[q=1]]", got.String())
	assert.True(t, b.IsBound(Var("y")), "unbound alias members get bound")
	assert.Equal(t, "[a=?x, b=?<x=y>, c=?z, d=?s]", fs.String())

	assert.Equal(t, fs.String(), fs.ApplyBindings(nil).String())
}
