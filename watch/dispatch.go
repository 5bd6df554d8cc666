package watch

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

// Location is where a change was observed.
type Location struct {
	Filename string
	Line     int
	Function string
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Filename, l.Line)
}

// Event describes one detected change. Old and New are nil when the target
// was or became unreachable.
type Event struct {
	Target   *Target
	Kind     ChangeKind
	Old      vm.Value
	New      vm.Value
	Location Location
}

// Callback receives change events. Its error is reported, never returned
// to the running program.
type Callback func(ev *Event) error

// ScriptCallback adapts a script function or builtin into a Callback. It is
// called as fn(target, old, new, location).
func ScriptCallback(m *interp.Machine, fn vm.Value) Callback {
	return func(ev *Event) error {
		_, err := m.Call(fn,
			vm.StrValue(ev.Target.String()),
			orNone(ev.Old),
			orNone(ev.New),
			vm.StrValue(ev.Location.String()),
		)
		return err
	}
}

func orNone(v vm.Value) vm.Value {
	if v == nil {
		return vm.None
	}
	return v
}

// callbackFor picks the target's own callback, then the configured default,
// then the built-in printer.
func (r *Registry) callbackFor(t *Target) Callback {
	if t.Callback != nil {
		return t.Callback
	}
	if r.config.Callback != nil {
		return r.config.Callback
	}
	return r.printer().Print
}

func (r *Registry) dispatch(ev *Event) {
	cb := r.callbackFor(ev.Target)
	if err := safeCall(cb, ev); err != nil {
		log.Warn().Err(err).Str("target", ev.Target.String()).Str("location", ev.Location.String()).Msg("watch callback failed")
		fmt.Fprintf(r.output(), "watch: callback for %s failed: %v\n", ev.Target, err)
	}
}

func safeCall(cb Callback, ev *Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Debug().Str("stack", string(debug.Stack())).Msg("watch callback panic")
			err = fmt.Errorf("callback panicked: %v", p)
		}
	}()
	return cb(ev)
}
