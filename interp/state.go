package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/timewinder-dev/watchpoint/vm"
)

func (f *StackFrame) Pop() vm.Value {
	if len(f.Stack) == 0 {
		panic("Stack underrun")
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}

func (f *StackFrame) Push(v vm.Value) {
	f.Stack = append(f.Stack, v)
}

// Clone copies the frame, deep-copying its operand stack and variables.
func (f *StackFrame) Clone() *StackFrame {
	out := &StackFrame{
		PC: f.PC,
	}
	for _, v := range f.Stack {
		out.Stack = append(out.Stack, v.Clone())
	}
	for k, v := range f.Variables {
		out.StoreVar(k, v.Clone())
	}
	for _, i := range f.IteratorStack {
		out.IteratorStack = append(out.IteratorStack, i.Clone())
	}
	return out
}

func (f *StackFrame) StoreVar(key string, value vm.Value) {
	if f.Variables == nil {
		f.Variables = make(map[string]vm.Value)
	}
	f.Variables[key] = value
}

func (f *StackFrame) Has(key string) bool {
	if f.Variables == nil {
		return false
	}
	_, ok := f.Variables[key]
	return ok
}

// Lookup returns the variable bound to key in this frame only.
func (f *StackFrame) Lookup(key string) (vm.Value, bool) {
	if f == nil || f.Variables == nil {
		return nil, false
	}
	v, ok := f.Variables[key]
	return v, ok
}

// DeleteVar unbinds key. It reports whether the name was bound.
func (f *StackFrame) DeleteVar(key string) bool {
	if !f.Has(key) {
		return false
	}
	delete(f.Variables, key)
	return true
}

// FormatValue formats a vm.Value for display, abbreviating long containers.
func FormatValue(v vm.Value) string {
	switch val := v.(type) {
	case nil:
		return "<undefined>"
	case vm.BoolValue:
		if val {
			return "True"
		}
		return "False"
	case vm.StrValue:
		return fmt.Sprintf("%q", string(val))
	case vm.FnPtrValue:
		return fmt.Sprintf("<function@0x%x>", uint64(val))
	case *vm.ArrayValue:
		if len(val.Items) == 0 {
			return "[]"
		}
		var b strings.Builder
		b.WriteString("[")
		for i, elem := range val.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			if i >= 5 {
				fmt.Fprintf(&b, "... (%d more)", len(val.Items)-i)
				break
			}
			b.WriteString(FormatValue(elem))
		}
		b.WriteString("]")
		return b.String()
	case *vm.StructValue:
		if len(val.Entries) == 0 {
			return "{}"
		}
		var b strings.Builder
		b.WriteString("{")
		for count, k := range val.SortedKeys() {
			if count > 0 {
				b.WriteString(", ")
			}
			if count >= 5 {
				fmt.Fprintf(&b, "... (%d more)", len(val.Entries)-count)
				break
			}
			fmt.Fprintf(&b, "%q: %s", k, FormatValue(val.Entries[k]))
		}
		b.WriteString("}")
		return b.String()
	default:
		return vm.Repr(v)
	}
}

// PrettyPrint describes the variables of each frame, outermost first.
func (s StackFrames) PrettyPrint(prog *vm.Program) string {
	var b strings.Builder
	for idx, frame := range s {
		if idx == 0 {
			b.WriteString("Global Variables:\n")
		} else {
			loc := frame.PC.String()
			if prog != nil {
				if line := prog.GetLineNumber(frame.PC); line > 0 {
					loc = fmt.Sprintf("line %d", line)
				}
			}
			fmt.Fprintf(&b, "Frame %d (%s):\n", idx, loc)
		}
		keys := make([]string, 0, len(frame.Variables))
		for k, v := range frame.Variables {
			// Skip builtins and functions
			if _, isBuiltin := v.(vm.BuiltinValue); isBuiltin {
				continue
			}
			if _, isFn := v.(vm.FnPtrValue); isFn {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) == 0 {
			b.WriteString("  (none)\n")
			continue
		}
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %s\n", k, FormatValue(frame.Variables[k]))
		}
	}
	return b.String()
}
