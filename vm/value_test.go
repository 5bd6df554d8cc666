package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualStructural(t *testing.T) {
	a := NewArray(IntValue(1), NewArray(StrValue("x")))
	b := NewArray(IntValue(1), NewArray(StrValue("x")))
	assert.True(t, Equal(a, b))
	assert.False(t, Identical(a, b))

	b.Items[1].(*ArrayValue).Items[0] = StrValue("y")
	assert.False(t, Equal(a, b))

	assert.True(t, Equal(IntValue(2), FloatValue(2)))
	assert.False(t, Equal(IntValue(2), StrValue("2")))
	assert.True(t, Equal(None, None))
	assert.False(t, Equal(None, BoolFalse))
}

func TestEqualCycles(t *testing.T) {
	a := NewArray()
	a.Items = append(a.Items, a)
	b := NewArray()
	b.Items = append(b.Items, b)
	assert.True(t, Equal(a, b))
}

func TestDeepCopyPreservesSharing(t *testing.T) {
	inner := NewArray(IntValue(1))
	outer := NewStruct()
	outer.Entries["a"] = inner
	outer.Entries["b"] = inner
	outer.Entries["self"] = outer

	cp := DeepCopy(outer).(*StructValue)
	require.NotSame(t, outer, cp)
	assert.Same(t, cp.Entries["a"], cp.Entries["b"])
	assert.NotSame(t, inner, cp.Entries["a"])
	assert.Same(t, cp, cp.Entries["self"])

	inner.Items[0] = IntValue(5)
	assert.Equal(t, IntValue(1), cp.Entries["a"].(*ArrayValue).Items[0])
}

func TestIdentical(t *testing.T) {
	o := NewObject()
	assert.True(t, Identical(o, o))
	assert.False(t, Identical(o, NewObject()))
	assert.True(t, Identical(IntValue(3), IntValue(3)))
	assert.False(t, Identical(IntValue(3), IntValue(4)))
	assert.True(t, IsMutable(o))
	assert.False(t, IsMutable(StrValue("s")))
}

func TestRepr(t *testing.T) {
	d := NewStruct()
	d.Entries["b"] = NewArray(IntValue(1), FloatValue(2.5), None)
	d.Entries["a"] = BoolTrue
	assert.Equal(t, `{"a": True, "b": [1, 2.5, None]}`, Repr(d))

	o := NewObject()
	o.Attrs["y"] = StrValue("s")
	o.Attrs["x"] = o
	assert.Equal(t, `object(x=..., y="s")`, Repr(o))
}

func TestMethods(t *testing.T) {
	arr := NewArray(IntValue(1))
	m, ok := LookupMethod(arr, "append")
	require.True(t, ok)
	_, err := m(arr, []Value{IntValue(2)})
	require.NoError(t, err)
	assert.Equal(t, []Value{IntValue(1), IntValue(2)}, arr.Items)

	pop, _ := LookupMethod(arr, "pop")
	v, err := pop(arr, nil)
	require.NoError(t, err)
	assert.Equal(t, IntValue(2), v)

	d := NewStruct()
	d.Entries["k"] = IntValue(1)
	dpop, ok := LookupMethod(d, "pop")
	require.True(t, ok)
	v, err = dpop(d, []Value{StrValue("k")})
	require.NoError(t, err)
	assert.Equal(t, IntValue(1), v)
	assert.Empty(t, d.Entries)

	_, ok = LookupMethod(IntValue(1), "append")
	assert.False(t, ok)
}

func TestBuiltins(t *testing.T) {
	r, err := BuiltinRegistry["range"]([]ArgValue{{Value: IntValue(1)}, {Value: IntValue(7)}, {Value: IntValue(3)}})
	require.NoError(t, err)
	assert.Equal(t, "[1, 4]", Repr(r))

	n, err := BuiltinRegistry["len"]([]ArgValue{{Value: StrValue("abc")}})
	require.NoError(t, err)
	assert.Equal(t, IntValue(3), n)

	obj, err := BuiltinRegistry["object"]([]ArgValue{{Key: "x", Value: IntValue(1)}})
	require.NoError(t, err)
	has, err := BuiltinRegistry["hasattr"]([]ArgValue{{Value: obj}, {Value: StrValue("x")}})
	require.NoError(t, err)
	assert.Equal(t, BoolTrue, has)

	_, err = BuiltinRegistry["delattr"]([]ArgValue{{Value: obj}, {Value: StrValue("x")}})
	require.NoError(t, err)
	assert.Empty(t, obj.(*ObjectValue).Attrs)

	_, err = BuiltinRegistry["object"]([]ArgValue{{Value: IntValue(1)}})
	assert.Error(t, err)
}
