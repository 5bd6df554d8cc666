package watch

import (
	"fmt"

	"github.com/timewinder-dev/watchpoint/vm"
)

// Observation is what a target looked like at one step. Value holds a deep
// copy under TrackValue; Identity holds the observed object itself under
// TrackObject.
type Observation struct {
	Reachable bool
	Value     vm.Value
	Identity  vm.Value
}

// Snapshot records v for later comparison under track.
func Snapshot(v vm.Value, track TrackMode) Observation {
	obs := Observation{Reachable: true}
	if track.Has(TrackValue) {
		obs.Value = vm.DeepCopy(v)
	}
	if track.Has(TrackObject) {
		obs.Identity = v
	}
	return obs
}

// Unreachable is the observation of a path that did not resolve.
var Unreachable = Observation{}

// live wraps a freshly resolved value without copying it. It is only
// compared against, never stored.
func live(v vm.Value) Observation {
	return Observation{Reachable: true, Value: v, Identity: v}
}

// Display returns the value to show for the observation, nil when
// unreachable.
func (o Observation) Display() vm.Value {
	if !o.Reachable {
		return nil
	}
	if o.Value != nil {
		return o.Value
	}
	return o.Identity
}

type ChangeKind int

const (
	Unchanged ChangeKind = iota
	// Modified: the value differs structurally from the snapshot.
	Modified
	// Rebound: the path now refers to a different object.
	Rebound
	// Vanished: the path stopped resolving.
	Vanished
	// Appeared: the path resolves again after having vanished.
	Appeared
)

func (k ChangeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Modified:
		return "modified"
	case Rebound:
		return "rebound"
	case Vanished:
		return "vanished"
	case Appeared:
		return "appeared"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Compare decides whether cur differs from old under track. When both modes
// are selected an identity change is reported as Rebound in preference to
// Modified.
func Compare(old, cur Observation, track TrackMode) ChangeKind {
	switch {
	case old.Reachable && !cur.Reachable:
		return Vanished
	case !old.Reachable && cur.Reachable:
		return Appeared
	case !old.Reachable && !cur.Reachable:
		return Unchanged
	}
	if track.Has(TrackObject) && !vm.Identical(old.Identity, cur.Identity) {
		return Rebound
	}
	if track.Has(TrackValue) && !vm.Equal(old.Value, cur.Value) {
		return Modified
	}
	return Unchanged
}
