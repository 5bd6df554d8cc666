package watch

import (
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/watchpoint/interp"
)

// OnStep is the frame hook. Each live target is re-resolved and compared
// against its last observation; changes are dispatched in registration
// order.
func (r *Registry) OnStep(ev interp.StepEvent) {
	if r.next != nil {
		r.next.OnStep(ev)
	}
	frame := ev.Frame()
	if len(r.targets) > 0 {
		r.check(ev, r.locate(ev))
	}
	switch ev.Kind {
	case interp.LineEvent:
		r.prevLine[frame] = lineMark{line: ev.Line, function: ev.Function}
	case interp.ReturnEvent:
		delete(r.prevLine, frame)
		if frame != r.machine.Globals {
			r.dropFrame(frame)
		}
	}
}

// locate names the statement that was executing when a change became
// visible: the last line started in the event's frame, or in its caller
// when the frame has not started a line yet.
func (r *Registry) locate(ev interp.StepEvent) Location {
	loc := Location{Filename: ev.Filename, Line: ev.Line, Function: ev.Function}
	for i := len(ev.Frames) - 1; i >= 0; i-- {
		if mark, ok := r.prevLine[ev.Frames[i]]; ok {
			loc.Line = mark.line
			loc.Function = mark.function
			return loc
		}
	}
	return loc
}

func (r *Registry) check(ev interp.StepEvent, loc Location) {
	globals := r.machine.Globals
	var events []*Event
	for _, t := range r.targets {
		if !t.liveIn(ev.Frames) {
			continue
		}
		cur := t.observe(globals)
		if !t.primed {
			if cur.Reachable {
				t.last = Snapshot(cur.Value, t.Track)
				t.primed = true
			}
			continue
		}
		kind := Compare(t.last, cur, t.Track)
		if kind == Unchanged {
			continue
		}
		e := &Event{
			Target:   t,
			Kind:     kind,
			Old:      t.last.Display(),
			Location: loc,
		}
		if cur.Reachable {
			e.New = cur.Value
			t.last = Snapshot(cur.Value, t.Track)
		} else {
			t.last = Unreachable
		}
		log.Trace().Str("target", t.String()).Stringer("kind", kind).Str("location", loc.String()).Msg("watch: change")
		if r.history != nil {
			r.history.Record(e)
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		return
	}
	for _, e := range events {
		if e.Target.removed {
			continue
		}
		r.dispatch(e)
	}
	// A callback's frame is gone once it returns and its return produced no
	// event, so targets it scoped to that frame are dropped here.
	r.removeWhere(func(t *Target) bool {
		return t.frame != globals && !ev.Frames.Contains(t.frame)
	})
	// Callbacks may have mutated watched state; that is not reported.
	for _, t := range r.targets {
		if t.liveIn(ev.Frames) {
			t.rebaseline(globals)
		}
	}
}

// dropFrame removes targets scoped to a frame that is returning.
func (r *Registry) dropFrame(frame *interp.StackFrame) {
	for _, t := range r.targets {
		if t.frame == frame {
			r.removeWhere(func(o *Target) bool { return o.frame == frame })
			return
		}
	}
}
