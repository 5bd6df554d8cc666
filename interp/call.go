package interp

import (
	"fmt"
	"slices"

	"github.com/timewinder-dev/watchpoint/vm"
)

// overlayMain runs a separately compiled top level against the functions of
// an existing machine.
type overlayMain struct {
	*Machine
	Main *vm.Function
}

func (o *overlayMain) GetInstruction(ptr vm.ExecPtr) (vm.Op, error) {
	if ptr.CodeID() != 0 {
		return o.Machine.GetInstruction(ptr)
	}
	if len(o.Main.Bytecode) <= ptr.Offset() {
		return vm.Op{}, vm.ErrEndOfCode
	}
	return o.Main.Bytecode[ptr.Offset()], nil
}

func (o *overlayMain) GetFunction(ptr vm.ExecPtr) *vm.Function {
	if ptr.CodeID() == 0 {
		return o.Main
	}
	return o.Machine.GetFunction(ptr)
}

func popArgs(frame *StackFrame, n int) ([]vm.ArgValue, error) {
	if len(frame.Stack) < n {
		return nil, fmt.Errorf("Call stack is too short to build call arguments")
	}
	args := make([]vm.ArgValue, n)
	for i := n - 1; i >= 0; i-- {
		a, ok := frame.Pop().(vm.ArgValue)
		if !ok {
			return nil, fmt.Errorf("Compiler error: stack contains non-call arguments")
		}
		args[i] = a
	}
	return args, nil
}

// BuildCallFrame binds args to the parameters of the function at fnPtr and
// returns the new frame. Keyword arguments bind first, then positionals in
// order, then defaults.
func BuildCallFrame(prog Program, fnPtr vm.FnPtrValue, args []vm.ArgValue) (*StackFrame, error) {
	ptr := vm.ExecPtr(fnPtr)
	fn := prog.GetFunction(ptr)
	if fn == nil {
		return nil, fmt.Errorf("no function at %s", ptr)
	}
	args = slices.Clone(args)
	newFrame := &StackFrame{
		PC:        ptr,
		Variables: make(map[string]vm.Value),
	}
	for _, p := range fn.Params {
		found := false
		for i, a := range args {
			if a.Key == p.Name {
				newFrame.StoreVar(p.Name, a.Value)
				args = slices.Delete(args, i, i+1)
				found = true
				break
			}
		}
		if found {
			continue
		}
		if len(args) != 0 && args[0].Key == "" {
			newFrame.StoreVar(p.Name, args[0].Value)
			args = args[1:]
			continue
		}
		if p.Default != nil {
			newFrame.StoreVar(p.Name, p.Default.Clone())
		} else {
			return nil, fmt.Errorf("%s() missing argument '%s'", fn.Name, p.Name)
		}
	}
	if len(args) != 0 {
		if args[0].Key != "" {
			return nil, fmt.Errorf("%s() got an unexpected keyword argument '%s'", fn.Name, args[0].Key)
		}
		return nil, fmt.Errorf("%s() takes %d arguments but more were given", fn.Name, len(fn.Params))
	}
	return newFrame, nil
}

func toArgs(values []vm.Value) []vm.ArgValue {
	out := make([]vm.ArgValue, len(values))
	for i, v := range values {
		out[i] = vm.ArgValue{Value: v}
	}
	return out
}
