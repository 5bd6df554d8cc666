package interp

import (
	"fmt"
	"slices"

	"github.com/timewinder-dev/watchpoint/vm"
)

type StackFrame struct {
	Stack         []vm.Value
	PC            vm.ExecPtr
	Variables     map[string]vm.Value
	IteratorStack []*IteratorState
}

type StackFrames []*StackFrame

func (s *StackFrames) PopStack() *StackFrame {
	f := s.CurrentStack()
	*s = (*s)[:len(*s)-1]
	return f
}

func (s *StackFrames) Append(f *StackFrame) {
	*s = append(*s, f)
}

func (s StackFrames) CurrentStack() *StackFrame {
	return s[len(s)-1]
}

// Contains reports whether f is one of the frames on the stack.
func (s StackFrames) Contains(f *StackFrame) bool {
	return slices.Contains(s, f)
}

type IteratorState struct {
	Start    vm.ExecPtr
	End      vm.ExecPtr
	Iter     Iterator
	VarNames []string // Loop variable names for updating in ITER_NEXT
}

func (its *IteratorState) Clone() *IteratorState {
	return &IteratorState{
		Start:    its.Start,
		End:      its.End,
		Iter:     its.Iter.Clone(),
		VarNames: slices.Clone(its.VarNames),
	}
}

type Iterator interface {
	Clone() Iterator
	Next() bool
	Var1() vm.Value
	Var2() vm.Value
}

type StepResult int

const (
	ContinueStep StepResult = iota
	ReturnStep
	EndStep
	CallStep
	MethodCallStep // Method call encountered (e.g., arr.append(x))
	LineStep       // A statement boundary was crossed; n carries the line
	ErrorStep
)

func (r StepResult) String() string {
	switch r {
	case ContinueStep:
		return "Continue"
	case ReturnStep:
		return "Return"
	case EndStep:
		return "End"
	case CallStep:
		return "Call"
	case MethodCallStep:
		return "MethodCall"
	case LineStep:
		return "Line"
	case ErrorStep:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}
