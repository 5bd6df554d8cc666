package watch

import (
	"fmt"

	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

// Target is one registered watch.
type Target struct {
	Path     Path
	Track    TrackMode
	Callback Callback

	// frame is where the watch was registered, or where the watched name
	// is bound; depth is its index on the call stack.
	frame *interp.StackFrame
	depth int
	last  Observation
	// primed is set once a reachable baseline exists; the first reachable
	// observation before that is not a change.
	primed bool
	// removed is set when the target leaves the registry, so a hook pass
	// that copied the target list skips it.
	removed bool
}

func (t *Target) String() string {
	return t.Path.String()
}

// Last returns the most recent stored observation.
func (t *Target) Last() Observation {
	return t.last
}

// Frame returns the frame the target is scoped to.
func (t *Target) Frame() *interp.StackFrame {
	return t.frame
}

// Resolve evaluates the target's path in its own scope.
func (t *Target) Resolve(globals *interp.StackFrame) (vm.Value, bool) {
	return t.Path.Resolve(t.frame, globals)
}

// liveIn reports whether the target's scope is on frames. Globals are
// always live.
func (t *Target) liveIn(frames interp.StackFrames) bool {
	if t.depth == 0 {
		return len(frames) > 0 && frames[0] == t.frame
	}
	return t.depth < len(frames) && frames[t.depth] == t.frame
}

func (t *Target) observe(globals *interp.StackFrame) Observation {
	v, ok := t.Resolve(globals)
	if !ok {
		return Unreachable
	}
	return live(v)
}

func (t *Target) rebaseline(globals *interp.StackFrame) {
	v, ok := t.Resolve(globals)
	if !ok {
		t.last = Unreachable
		return
	}
	t.last = Snapshot(v, t.Track)
	t.primed = true
}

// newTarget builds a target from a call-site reference made in the
// innermost of frames.
func newTarget(ref *vm.RefValue, frames interp.StackFrames, globals *interp.StackFrame, track TrackMode, cb Callback) (*Target, error) {
	if ref == nil {
		return nil, ErrNotReference
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("watch: no calling frame")
	}
	t := &Target{
		Path:     PathFromRef(ref),
		Track:    track,
		Callback: cb,
		frame:    frames.CurrentStack(),
		depth:    len(frames) - 1,
	}
	if np, ok := t.Path.(NamePath); ok {
		t.frame, t.depth = bindingFrame(np.Name, frames, globals)
	}
	t.rebaseline(globals)
	return t, nil
}

// bindingFrame finds the frame a name resolves in from the innermost frame.
func bindingFrame(name string, frames interp.StackFrames, globals *interp.StackFrame) (*interp.StackFrame, int) {
	cur := frames.CurrentStack()
	if !cur.Has(name) && globals.Has(name) && len(frames) > 0 && frames[0] == globals {
		return globals, 0
	}
	return cur, len(frames) - 1
}
