package featstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingsZeroValue(t *testing.T) {
	var b Bindings
	x := Var("x")

	assert.False(t, b.IsBound(x))
	val, err := b.Lookup(x, false)
	require.NoError(t, err)
	assert.Equal(t, x, val, "unbound variables look up to themselves")
	assert.Equal(t, "<Bindings (empty)>", b.String())

	require.NoError(t, b.Bind(x, 1))
	assert.True(t, b.IsBound(x))
	assert.Equal(t, 1, b.Len())
}

func TestBindingsRejectVariableValues(t *testing.T) {
	var b Bindings
	err := b.Bind(Var("x"), Var("y"))
	assert.ErrorIs(t, err, ErrVariableValue)

	_, err = NewBindings(map[Variable]any{Var("x"): Alias(Var("a"), Var("b"))})
	assert.ErrorIs(t, err, ErrVariableValue)
}

func TestBindingsAliased(t *testing.T) {
	x, y := Var("x"), Var("y")
	xy := Alias(x, y)
	b, err := NewBindings(map[Variable]any{x: "sg"})
	require.NoError(t, err)

	assert.True(t, b.IsBound(xy))
	assert.False(t, b.IsBound(y))

	val, err := b.Lookup(xy, false)
	require.NoError(t, err)
	assert.Equal(t, "sg", val)
	assert.False(t, b.IsBound(y), "lookup without update leaves members alone")

	_, err = b.Lookup(xy, true)
	require.NoError(t, err)
	assert.True(t, b.IsBound(y))
	assert.Equal(t, []Variable{x, y}, b.BoundVariables())
}

func TestBindingsInconsistentAlias(t *testing.T) {
	x, y := Var("x"), Var("y")
	b, err := NewBindings(map[Variable]any{x: 1, y: 2})
	require.NoError(t, err)

	xy := Alias(x, y)
	assert.False(t, b.IsBound(xy))
	_, err = b.Lookup(xy, false)
	assert.ErrorIs(t, err, ErrInconsistentBinding)
}

func TestBindAliasedBindsEveryMember(t *testing.T) {
	var b Bindings
	require.NoError(t, b.Bind(Alias(Var("p"), Var("q")), "x"))
	assert.Equal(t, "<Bindings: ?p='x', ?q='x'>", b.String())
}

func TestBindingsCopy(t *testing.T) {
	var b Bindings
	require.NoError(t, b.Bind(Var("x"), 1))

	c := b.Copy()
	require.NoError(t, c.Bind(Var("y"), 2))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 2, c.Len())
}
