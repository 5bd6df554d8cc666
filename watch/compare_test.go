package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timewinder-dev/watchpoint/vm"
)

func TestCompareValueSeesInPlaceMutation(t *testing.T) {
	list := vm.NewArray(vm.IntValue(1), vm.IntValue(2))
	old := Snapshot(list, TrackValue)
	assert.Equal(t, Unchanged, Compare(old, live(list), TrackValue))

	list.Items = append(list.Items, vm.IntValue(3))
	assert.Equal(t, Modified, Compare(old, live(list), TrackValue))
}

func TestCompareObjectIgnoresInPlaceMutation(t *testing.T) {
	list := vm.NewArray(vm.IntValue(1))
	old := Snapshot(list, TrackObject)
	list.Items = append(list.Items, vm.IntValue(2))
	assert.Equal(t, Unchanged, Compare(old, live(list), TrackObject))

	other := vm.NewArray(vm.IntValue(1), vm.IntValue(2))
	assert.Equal(t, Rebound, Compare(old, live(other), TrackObject))
}

func TestCompareEqualRebindingUnderValue(t *testing.T) {
	a := vm.NewArray(vm.IntValue(1))
	b := vm.NewArray(vm.IntValue(1))
	old := Snapshot(a, TrackValue)
	assert.Equal(t, Unchanged, Compare(old, live(b), TrackValue))
	assert.Equal(t, Rebound, Compare(Snapshot(a, TrackValue|TrackObject), live(b), TrackValue|TrackObject))
}

func TestCompareReachability(t *testing.T) {
	old := Snapshot(vm.IntValue(1), TrackValue)
	assert.Equal(t, Vanished, Compare(old, Unreachable, TrackValue))
	assert.Equal(t, Appeared, Compare(Unreachable, live(vm.IntValue(1)), TrackValue))
	assert.Equal(t, Unchanged, Compare(Unreachable, Unreachable, TrackValue))
}

func TestObservationDisplay(t *testing.T) {
	assert.Nil(t, Unreachable.Display())
	assert.Equal(t, vm.IntValue(4), Snapshot(vm.IntValue(4), TrackObject).Display())
	assert.Equal(t, "appeared", Appeared.String())
}
