package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

func TestNamePathPrefersLocals(t *testing.T) {
	globals := &interp.StackFrame{}
	globals.StoreVar("x", vm.IntValue(1))
	local := &interp.StackFrame{}
	p := NamePath{Name: "x"}

	v, ok := p.Resolve(local, globals)
	require.True(t, ok)
	assert.Equal(t, vm.IntValue(1), v)

	local.StoreVar("x", vm.IntValue(2))
	v, _ = p.Resolve(local, globals)
	assert.Equal(t, vm.IntValue(2), v)

	_, ok = NamePath{Name: "y"}.Resolve(local, globals)
	assert.False(t, ok)
}

func TestSubscriptPathOutOfRange(t *testing.T) {
	list := vm.NewArray(vm.IntValue(1), vm.IntValue(2))
	p := SubscriptPath{Base: list, Key: vm.IntValue(1), Text: "a[1]"}
	v, ok := p.Resolve(nil, nil)
	require.True(t, ok)
	assert.Equal(t, vm.IntValue(2), v)

	list.Items = list.Items[:1]
	_, ok = p.Resolve(nil, nil)
	assert.False(t, ok)

	_, ok = SubscriptPath{Base: vm.IntValue(3), Key: vm.IntValue(0)}.Resolve(nil, nil)
	assert.False(t, ok)
}

func TestPathSame(t *testing.T) {
	obj := vm.NewObject()
	other := vm.NewObject()
	assert.True(t, AttrPath{Base: obj, Name: "a"}.Same(AttrPath{Base: obj, Name: "a"}))
	assert.False(t, AttrPath{Base: obj, Name: "a"}.Same(AttrPath{Base: other, Name: "a"}))
	assert.False(t, AttrPath{Base: obj, Name: "a"}.Same(NamePath{Name: "a"}))

	list := vm.NewArray()
	assert.True(t, SubscriptPath{Base: list, Key: vm.IntValue(0)}.Same(SubscriptPath{Base: list, Key: vm.IntValue(0)}))
	assert.False(t, SubscriptPath{Base: list, Key: vm.IntValue(0)}.Same(SubscriptPath{Base: list, Key: vm.IntValue(1)}))
}

func TestPathFromRefCopiesKey(t *testing.T) {
	key := vm.StrValue("k")
	d := vm.NewStruct()
	ref := &vm.RefValue{Kind: vm.RefIndex, Base: d, Key: key, Text: `d["k"]`}
	p, ok := PathFromRef(ref).(SubscriptPath)
	require.True(t, ok)
	assert.Equal(t, `d["k"]`, p.String())
	assert.Same(t, d, p.Base)
}

func TestTargetLiveness(t *testing.T) {
	globals := &interp.StackFrame{}
	globals.StoreVar("g", vm.IntValue(1))
	inner := &interp.StackFrame{}
	inner.StoreVar("l", vm.IntValue(2))
	frames := interp.StackFrames{globals, inner}

	g, err := newTarget(&vm.RefValue{Kind: vm.RefName, Name: "g"}, frames, globals, TrackValue, nil)
	require.NoError(t, err)
	assert.Same(t, globals, g.Frame())
	l, err := newTarget(&vm.RefValue{Kind: vm.RefName, Name: "l"}, frames, globals, TrackValue, nil)
	require.NoError(t, err)
	assert.Same(t, inner, l.Frame())

	outer := interp.StackFrames{globals}
	assert.True(t, g.liveIn(outer))
	assert.False(t, l.liveIn(outer))
	assert.False(t, l.liveIn(interp.StackFrames{globals, &interp.StackFrame{}}))
	assert.True(t, l.liveIn(frames))

	_, err = newTarget(nil, frames, globals, TrackValue, nil)
	assert.ErrorIs(t, err, ErrNotReference)
}
