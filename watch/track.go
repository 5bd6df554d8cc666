package watch

import (
	"strings"

	"github.com/timewinder-dev/watchpoint/vm"
)

// TrackMode selects what counts as a change. Modes combine; a target fires
// when any selected mode detects a change.
type TrackMode uint8

const (
	// TrackValue compares deep-copied snapshots by structural equality, so
	// in-place mutation and rebinding to an unequal value both fire.
	TrackValue TrackMode = 1 << iota
	// TrackObject compares identity only: rebinding to a different object
	// fires, in-place mutation does not.
	TrackObject
)

const DefaultTrack = TrackValue

var trackLabels = []struct {
	label string
	mode  TrackMode
}{
	{"variable", TrackValue},
	{"object", TrackObject},
}

func (t TrackMode) Has(m TrackMode) bool {
	return t&m != 0
}

func (t TrackMode) String() string {
	var parts []string
	for _, l := range trackLabels {
		if t.Has(l.mode) {
			parts = append(parts, l.label)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseTrackLabels validates a list of track labels.
func ParseTrackLabels(labels []string) (TrackMode, error) {
	if len(labels) == 0 {
		return 0, configErr("track", ErrInvalidTrack, "empty selection")
	}
	var mode TrackMode
	for _, label := range labels {
		m, ok := lookupTrack(label)
		if !ok {
			return 0, configErr("track", ErrInvalidTrack, "unknown label %q", label)
		}
		if mode.Has(m) {
			return 0, configErr("track", ErrInvalidTrack, "duplicate label %q", label)
		}
		mode |= m
	}
	return mode, nil
}

// ParseTrack validates a script track value: a label or a list of labels.
func ParseTrack(v vm.Value) (TrackMode, error) {
	switch val := v.(type) {
	case vm.StrValue:
		return ParseTrackLabels([]string{string(val)})
	case *vm.ArrayValue:
		labels := make([]string, len(val.Items))
		for i, item := range val.Items {
			s, ok := item.(vm.StrValue)
			if !ok {
				return 0, configErr("track", ErrTrackType, "list item %d is %s", i, vm.GetTypeName(item))
			}
			labels[i] = string(s)
		}
		return ParseTrackLabels(labels)
	}
	return 0, configErr("track", ErrTrackType, "got %s", vm.GetTypeName(v))
}

func lookupTrack(label string) (TrackMode, bool) {
	for _, l := range trackLabels {
		if l.label == label {
			return l.mode, true
		}
	}
	return 0, false
}
