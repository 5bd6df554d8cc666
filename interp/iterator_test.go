package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/vm"
)

func TestSliceIteratorSingleVar(t *testing.T) {
	iter, ok := newIterator(vm.NewArray(vm.IntValue(1), vm.IntValue(2), vm.IntValue(3)), 1)
	require.True(t, ok)

	var seen []vm.Value
	for iter.Next() {
		seen = append(seen, iter.Var1())
		assert.Equal(t, vm.None, iter.Var2())
	}
	assert.Equal(t, []vm.Value{vm.IntValue(1), vm.IntValue(2), vm.IntValue(3)}, seen)
	assert.False(t, iter.Next())
}

func TestSliceIteratorTwoVars(t *testing.T) {
	iter, ok := newIterator(vm.NewArray(vm.StrValue("a"), vm.StrValue("b")), 2)
	require.True(t, ok)

	require.True(t, iter.Next())
	assert.Equal(t, vm.IntValue(0), iter.Var1())
	assert.Equal(t, vm.StrValue("a"), iter.Var2())
	require.True(t, iter.Next())
	assert.Equal(t, vm.IntValue(1), iter.Var1())
	assert.Equal(t, vm.StrValue("b"), iter.Var2())
	assert.False(t, iter.Next())
}

func TestSliceIteratorSnapshotsItems(t *testing.T) {
	arr := vm.NewArray(vm.IntValue(1))
	iter, _ := newIterator(arr, 1)
	arr.Items = append(arr.Items, vm.IntValue(2))

	count := 0
	for iter.Next() {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestDictIteratorSortedKeys(t *testing.T) {
	d := vm.NewStruct()
	d.Entries["b"] = vm.IntValue(2)
	d.Entries["a"] = vm.IntValue(1)

	iter, ok := newIterator(d, 2)
	require.True(t, ok)
	require.True(t, iter.Next())
	assert.Equal(t, vm.StrValue("a"), iter.Var1())
	assert.Equal(t, vm.IntValue(1), iter.Var2())
	require.True(t, iter.Next())
	assert.Equal(t, vm.StrValue("b"), iter.Var1())
	assert.Equal(t, vm.IntValue(2), iter.Var2())
	assert.False(t, iter.Next())
}

func TestIteratorClone(t *testing.T) {
	iter, _ := newIterator(vm.NewArray(vm.IntValue(1), vm.IntValue(2)), 1)
	iter.Next()
	clone := iter.Clone()
	iter.Next()
	assert.Equal(t, vm.IntValue(2), iter.Var1())
	assert.Equal(t, vm.IntValue(1), clone.Var1())
}

func TestNotIterable(t *testing.T) {
	_, ok := newIterator(vm.IntValue(3), 1)
	assert.False(t, ok)
}
