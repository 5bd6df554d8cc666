package interp

import "fmt"

type EventKind int

const (
	// LineEvent fires before the first instruction of a statement runs.
	LineEvent EventKind = iota
	// ReturnEvent fires when a frame finishes, before it is popped.
	// The top level reports one when the program ends.
	ReturnEvent
)

func (k EventKind) String() string {
	switch k {
	case LineEvent:
		return "line"
	case ReturnEvent:
		return "return"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// StepEvent describes where execution is when a hook runs. Frames is the
// live stack, outermost first; it must not be retained after OnStep returns.
type StepEvent struct {
	Kind     EventKind
	Machine  *Machine
	Frames   StackFrames
	Filename string
	Line     int
	Function string
}

// Frame returns the frame that produced the event.
func (e StepEvent) Frame() *StackFrame {
	return e.Frames.CurrentStack()
}

// Location formats the event position as file:line.
func (e StepEvent) Location() string {
	return fmt.Sprintf("%s:%d", e.Filename, e.Line)
}

// Hook observes execution. At most one hook is attached to a Machine.
// Hooks are not re-entered: code the hook runs through Machine.Call does not
// produce events.
type Hook interface {
	OnStep(ev StepEvent)
}

type HookFunc func(ev StepEvent)

func (f HookFunc) OnStep(ev StepEvent) { f(ev) }
