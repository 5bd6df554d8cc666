package interp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/watchpoint/vm"
)

// MaxCallDepth bounds script recursion.
const MaxCallDepth = 512

// Native is a builtin implemented by the host. ctx describes the caller.
type Native func(ctx *CallContext, args []vm.ArgValue) (vm.Value, error)

// CallContext is handed to natives. Frames is the caller's live stack,
// outermost first.
type CallContext struct {
	Machine  *Machine
	Name     string
	Frames   StackFrames
	Filename string
	Line     int
}

// Caller returns the frame that made the call.
func (c *CallContext) Caller() *StackFrame {
	return c.Frames.CurrentStack()
}

// Location formats the call site as file:line.
func (c *CallContext) Location() string {
	return fmt.Sprintf("%s:%d", c.Filename, c.Line)
}

// RuntimeError is a script failure annotated with the position it happened at.
type RuntimeError struct {
	Filename string
	Line     int
	Err      error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Machine executes a program against a single global frame. It is not safe
// for concurrent use.
type Machine struct {
	Program *vm.Program
	Globals *StackFrame
	Stdout  io.Writer

	natives map[string]Native
	hook    Hook
	inHook  bool
}

func NewMachine(prog *vm.Program) *Machine {
	if prog == nil {
		prog = &vm.Program{Filename: "<stdin>", Main: &vm.Function{Name: "<main>"}}
	}
	m := &Machine{
		Program: prog,
		Globals: &StackFrame{Variables: make(map[string]vm.Value)},
		Stdout:  os.Stdout,
		natives: make(map[string]Native),
	}
	m.RegisterNative("print", nativePrint)
	return m
}

// RegisterNative makes fn callable from scripts under name. Dotted names
// become methods of the builtin named by the prefix.
func (m *Machine) RegisterNative(name string, fn Native) {
	m.natives[name] = fn
}

// SetHook attaches h, replacing any previous hook, and returns the previous
// one. A nil h detaches.
func (m *Machine) SetHook(h Hook) Hook {
	prev := m.hook
	m.hook = h
	return prev
}

func (m *Machine) Hook() Hook {
	return m.hook
}

// InHook reports whether a hook is currently running.
func (m *Machine) InHook() bool {
	return m.inHook
}

func (m *Machine) GetInstruction(ptr vm.ExecPtr) (vm.Op, error) {
	return m.Program.GetInstruction(ptr)
}

func (m *Machine) Resolve(name string) (vm.ExecPtr, bool) {
	return m.Program.Resolve(name)
}

func (m *Machine) GetFunction(ptr vm.ExecPtr) *vm.Function {
	return m.Program.GetFunction(ptr)
}

func (m *Machine) HasBuiltin(name string) bool {
	if _, ok := m.natives[name]; ok {
		return true
	}
	_, ok := vm.BuiltinRegistry[name]
	return ok
}

// Run executes the program's top level.
func (m *Machine) Run() error {
	m.Globals.PC = vm.NewExecPtr(0)
	m.Globals.Stack = nil
	m.Globals.IteratorStack = nil
	_, err := m.run(m, StackFrames{m.Globals}, 0)
	return err
}

// Exec adds prog's definitions to the machine and runs its top level
// against the existing globals.
func (m *Machine) Exec(prog *vm.Program) error {
	m.Program.Main = m.Program.Extend(prog)
	if prog.Filename != "" {
		m.Program.Filename = prog.Filename
	}
	return m.Run()
}

// Eval evaluates a single expression against the globals.
func (m *Machine) Eval(expr string) (vm.Value, error) {
	p, err := vm.CompileExpr(expr)
	if err != nil {
		return nil, err
	}
	overlay := &overlayMain{Machine: m, Main: p.Main}
	frame := &StackFrame{PC: vm.NewExecPtr(0)}
	return m.run(overlay, StackFrames{m.Globals, frame}, 1)
}

// Call invokes a script function or builtin with positional args.
func (m *Machine) Call(fn vm.Value, args ...vm.Value) (vm.Value, error) {
	switch f := fn.(type) {
	case vm.FnPtrValue:
		frame, err := BuildCallFrame(m, f, toArgs(args))
		if err != nil {
			return nil, err
		}
		return m.run(m, StackFrames{m.Globals, frame}, 1)
	case vm.BuiltinValue:
		ctx := &CallContext{Machine: m, Name: f.Name, Frames: StackFrames{m.Globals}, Filename: m.Program.Filename}
		return m.callBuiltin(ctx, toArgs(args))
	}
	return nil, fmt.Errorf("%s is not callable", vm.GetTypeName(fn))
}

type lineNumberer interface {
	GetLineNumber(vm.ExecPtr) int
}

func (m *Machine) GetLineNumber(ptr vm.ExecPtr) int {
	return m.Program.GetLineNumber(ptr)
}

func (o *overlayMain) GetLineNumber(ptr vm.ExecPtr) int {
	if ptr.CodeID() != 0 {
		return o.Machine.GetLineNumber(ptr)
	}
	if len(o.Main.Bytecode) == 0 {
		return 0
	}
	return o.Main.Bytecode[min(ptr.Offset(), len(o.Main.Bytecode)-1)].Line
}

func lineOf(prog Program, frame *StackFrame) int {
	if l, ok := prog.(lineNumberer); ok {
		return l.GetLineNumber(frame.PC)
	}
	return 0
}

func functionName(prog Program, frame *StackFrame) string {
	if frame.PC.CodeID() == 0 {
		return "<module>"
	}
	if fn := prog.GetFunction(frame.PC); fn != nil {
		return fn.Name
	}
	return "?"
}

func (m *Machine) fire(prog Program, kind EventKind, frames StackFrames, line int) {
	if m.hook == nil || m.inHook {
		return
	}
	m.inHook = true
	defer func() { m.inHook = false }()
	m.hook.OnStep(StepEvent{
		Kind:     kind,
		Machine:  m,
		Frames:   frames,
		Filename: m.Program.Filename,
		Line:     line,
		Function: functionName(prog, frames.CurrentStack()),
	})
}

func (m *Machine) wrapError(prog Program, frame *StackFrame, err error) error {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return err
	}
	return &RuntimeError{Filename: m.Program.Filename, Line: lineOf(prog, frame), Err: err}
}

// run steps frames until the frame at index base returns.
func (m *Machine) run(prog Program, frames StackFrames, base int) (vm.Value, error) {
	for {
		frame := frames.CurrentStack()
		res, n, err := Step(prog, m.Globals, frames)
		if err != nil {
			return nil, m.wrapError(prog, frame, err)
		}
		switch res {
		case ContinueStep:
		case LineStep:
			m.fire(prog, LineEvent, frames, n)
		case ReturnStep, EndStep:
			var val vm.Value = vm.None
			if res == ReturnStep {
				val = frame.Pop()
			}
			m.fire(prog, ReturnEvent, frames, lineOf(prog, frame))
			if len(frames)-1 == base {
				frame.Stack = nil
				return val, nil
			}
			frames.PopStack()
			caller := frames.CurrentStack()
			caller.Push(val)
			caller.PC = caller.PC.Inc()
			log.Trace().Interface("return_value", val).Int("stack_depth", len(frames)).Msg("run: function returned")
		case CallStep:
			fnVal := frame.Pop()
			args, err := popArgs(frame, n)
			if err != nil {
				return nil, m.wrapError(prog, frame, err)
			}
			if err := m.invoke(prog, &frames, fnVal, args); err != nil {
				return nil, m.wrapError(prog, frame, err)
			}
		case MethodCallStep:
			name := mustString(frame.Pop())
			recv := frame.Pop()
			args, err := popArgs(frame, n)
			if err != nil {
				return nil, m.wrapError(prog, frame, err)
			}
			if err := m.invokeMethod(prog, &frames, recv, name, args); err != nil {
				return nil, m.wrapError(prog, frame, err)
			}
		default:
			panic("unhandled intermediate step")
		}
	}
}

// invoke calls fnVal from the innermost frame. Script functions push a new
// frame; the caller's PC advances when it returns. Builtins complete
// immediately.
func (m *Machine) invoke(prog Program, frames *StackFrames, fnVal vm.Value, args []vm.ArgValue) error {
	frame := frames.CurrentStack()
	switch fn := fnVal.(type) {
	case vm.FnPtrValue:
		if len(*frames) >= MaxCallDepth {
			return errors.New("maximum recursion depth exceeded")
		}
		newf, err := BuildCallFrame(prog, fn, args)
		if err != nil {
			return err
		}
		frames.Append(newf)
		log.Trace().Int("stack_depth", len(*frames)).Msg("run: pushed call frame")
		return nil
	case vm.BuiltinValue:
		ctx := &CallContext{
			Machine:  m,
			Name:     fn.Name,
			Frames:   *frames,
			Filename: m.Program.Filename,
			Line:     lineOf(prog, frame),
		}
		v, err := m.callBuiltin(ctx, args)
		if err != nil {
			return err
		}
		frame.Push(v)
		frame.PC = frame.PC.Inc()
		return nil
	}
	return fmt.Errorf("'%s' object is not callable", vm.GetTypeName(fnVal))
}

func (m *Machine) invokeMethod(prog Program, frames *StackFrames, recv vm.Value, name string, args []vm.ArgValue) error {
	switch r := recv.(type) {
	case vm.BuiltinValue:
		dotted := r.Name + "." + name
		if !m.HasBuiltin(dotted) {
			return fmt.Errorf("%s has no method '%s'", r.Name, name)
		}
		return m.invoke(prog, frames, vm.BuiltinValue{Name: dotted}, args)
	case *vm.ObjectValue:
		if attr, ok := r.Attrs[name]; ok {
			return m.invoke(prog, frames, attr, args)
		}
	}
	impl, ok := vm.LookupMethod(recv, name)
	if !ok {
		return fmt.Errorf("%s has no method '%s'", vm.GetTypeName(recv), name)
	}
	values := make([]vm.Value, len(args))
	for i, a := range args {
		if a.Key != "" {
			return fmt.Errorf("%s.%s() takes no keyword arguments", vm.GetTypeName(recv), name)
		}
		values[i] = a.Value
	}
	v, err := impl(recv, values)
	if err != nil {
		return err
	}
	frame := frames.CurrentStack()
	frame.Push(v)
	frame.PC = frame.PC.Inc()
	return nil
}

func (m *Machine) callBuiltin(ctx *CallContext, args []vm.ArgValue) (vm.Value, error) {
	if fn, ok := m.natives[ctx.Name]; ok {
		v, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		if v == nil {
			v = vm.None
		}
		return v, nil
	}
	if fn, ok := vm.BuiltinRegistry[ctx.Name]; ok {
		return fn(args)
	}
	return nil, fmt.Errorf("No such builtin: %s", ctx.Name)
}

func nativePrint(ctx *CallContext, args []vm.ArgValue) (vm.Value, error) {
	sep := " "
	var parts []string
	for _, a := range args {
		if a.Key == "sep" {
			s, ok := a.Value.(vm.StrValue)
			if !ok {
				return nil, fmt.Errorf("print: sep must be a string")
			}
			sep = string(s)
			continue
		}
		if a.Key != "" {
			return nil, fmt.Errorf("print: unexpected keyword argument '%s'", a.Key)
		}
		if s, ok := a.Value.(vm.StrValue); ok {
			parts = append(parts, string(s))
		} else {
			parts = append(parts, vm.Repr(a.Value))
		}
	}
	_, err := fmt.Fprintln(ctx.Machine.Stdout, strings.Join(parts, sep))
	return vm.None, err
}

// RunToEnd runs start until it returns on a fresh machine with no hook.
// A nil global makes start the global frame.
func RunToEnd(prog *vm.Program, global *StackFrame, start *StackFrame) (vm.Value, error) {
	m := NewMachine(prog)
	if global == nil || global == start {
		m.Globals = start
		return m.run(m, StackFrames{start}, 0)
	}
	m.Globals = global
	return m.run(m, StackFrames{global, start}, 1)
}
