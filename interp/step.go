package interp

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/watchpoint/vm"
)

type Program interface {
	GetInstruction(vm.ExecPtr) (vm.Op, error)
	Resolve(name string) (vm.ExecPtr, bool)
	GetFunction(vm.ExecPtr) *vm.Function
}

// builtinResolver is implemented by programs that carry host natives in
// addition to the builtins in vm.BuiltinRegistry.
type builtinResolver interface {
	HasBuiltin(name string) bool
}

// Step executes a single instruction of the innermost frame of stack.
// Statement boundaries are reported as LineStep with the line number in n.
func Step(program Program, globals *StackFrame, stack []*StackFrame) (StepResult, int, error) {
	if len(stack) == 0 {
		log.Trace().Msg("Step: empty stack, returning error")
		return ErrorStep, 0, errors.New("No stack frame")
	}
	frame := stack[len(stack)-1]
	inst, err := program.GetInstruction(frame.PC)
	if err != nil {
		if errors.Is(err, vm.ErrEndOfCode) {
			log.Trace().Str("pc", frame.PC.String()).Msg("Step: end of code")
			return EndStep, 0, nil
		}
		log.Trace().Err(err).Str("pc", frame.PC.String()).Msg("Step: error getting instruction")
		return ErrorStep, 0, err
	}

	log.Trace().
		Str("opcode", inst.Code.String()).
		Str("pc", frame.PC.String()).
		Interface("arg", inst.Arg).
		Int("stack_depth", len(frame.Stack)).
		Msg("Step: executing instruction")

	switch inst.Code {
	case vm.NOP, vm.LABEL:
	case vm.LINE:
		frame.PC = frame.PC.Inc()
		return LineStep, int(mustInt(inst.Arg)), nil
	case vm.POP:
		frame.Pop()
	case vm.PUSH:
		frame.Push(inst.Arg.Clone())
	case vm.SETVAL:
		name := frame.Pop()
		val := frame.Pop()
		variable := mustString(name)
		// Functions write through to an existing global unless the name is
		// already local.
		if globals != nil && frame != globals && !frame.Has(variable) && globals.Has(variable) {
			globals.StoreVar(variable, val)
			log.Trace().Str("variable", variable).Interface("value", val).Str("scope", "global").Msg("  SETVAL")
		} else {
			frame.StoreVar(variable, val)
			log.Trace().Str("variable", variable).Interface("value", val).Str("scope", "local").Msg("  SETVAL")
		}
	case vm.GETVAL:
		varName := mustString(frame.Pop())
		v, err := resolveVar(varName, program, globals, frame)
		if err != nil {
			log.Trace().Str("variable", varName).Err(err).Msg("  GETVAL: error")
			return ErrorStep, 0, err
		}
		frame.Push(v)
		log.Trace().Str("variable", varName).Interface("value", v).Msg("  GETVAL")
	case vm.SWAP:
		a := frame.Pop()
		b := frame.Pop()
		frame.Push(a)
		frame.Push(b)
	case vm.DUP:
		a := frame.Pop()
		frame.Push(a)
		frame.Push(a)
	case vm.GETATTR:
		// Stack: A B -> C where C = A.B
		key := frame.Pop()
		obj := frame.Pop()
		val, err := getAttribute(program, obj, mustString(key))
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(val)
		log.Trace().Interface("obj", obj).Interface("key", key).Interface("value", val).Msg("  GETATTR")
	case vm.SETATTR:
		// Stack: C A B -> nothing, sets A.B = C
		key := frame.Pop()
		obj := frame.Pop()
		val := frame.Pop()
		if err := setAttribute(obj, mustString(key), val); err != nil {
			return ErrorStep, 0, err
		}
		log.Trace().Interface("obj", obj).Interface("key", key).Interface("value", val).Msg("  SETATTR")
	case vm.GETITEM:
		key := frame.Pop()
		obj := frame.Pop()
		val, err := getItem(obj, key)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(val)
		log.Trace().Interface("obj", obj).Interface("key", key).Interface("value", val).Msg("  GETITEM")
	case vm.SETITEM:
		key := frame.Pop()
		obj := frame.Pop()
		val := frame.Pop()
		if err := setItem(obj, key, val); err != nil {
			return ErrorStep, 0, err
		}
		log.Trace().Interface("obj", obj).Interface("key", key).Interface("value", val).Msg("  SETITEM")
	case vm.REF_NAME:
		val := frame.Pop()
		name := mustString(inst.Arg)
		frame.Push(&vm.RefValue{Kind: vm.RefName, Name: name, Value: val, Text: name})
	case vm.REF_ATTR:
		key := mustString(frame.Pop())
		base := frame.Pop()
		val, err := getAttribute(program, base, key)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(&vm.RefValue{Kind: vm.RefAttr, Name: key, Base: base, Key: vm.StrValue(key), Value: val, Text: mustString(inst.Arg)})
	case vm.REF_INDEX:
		key := frame.Pop()
		base := frame.Pop()
		val, err := getItem(base, key)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(&vm.RefValue{Kind: vm.RefIndex, Base: base, Key: key, Value: val, Text: mustString(inst.Arg)})
	case vm.NOT:
		a := frame.Pop()
		frame.Push(vm.BoolValue(!a.AsBool()))
	case vm.ADD:
		b := frame.Pop()
		a := frame.Pop()
		v, err := add(a, b)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(v)
		log.Trace().Interface("a", a).Interface("b", b).Interface("result", v).Msg("  ADD")
	case vm.MULTIPLY, vm.DIVIDE, vm.MODULO, vm.FLOOR_DIVIDE, vm.SUBTRACT:
		b := frame.Pop()
		a := frame.Pop()
		v, err := numericOp(inst.Code, a, b)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(v)
		log.Trace().Str("op", inst.Code.String()).Interface("a", a).Interface("b", b).Interface("result", v).Msg("  NUMERIC_OP")
	case vm.EQ:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(vm.BoolValue(vm.Equal(a, b)))
	case vm.LT, vm.LTE:
		b := frame.Pop()
		a := frame.Pop()
		v, ok := a.Cmp(b)
		if !ok {
			return ErrorStep, 0, fmt.Errorf("Can't compare %s to %s", vm.GetTypeName(a), vm.GetTypeName(b))
		}
		if inst.Code == vm.LT {
			frame.Push(vm.BoolValue(v < 0))
		} else {
			frame.Push(vm.BoolValue(v <= 0))
		}
	case vm.IN:
		// Stack: item collection -> bool (item in collection)
		collection := frame.Pop()
		item := frame.Pop()
		found, err := contains(collection, item)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(vm.BoolValue(found))
	case vm.SLICE:
		// Stack: Array Start End -> Result
		endVal := frame.Pop()
		startVal := frame.Pop()
		arrayVal := frame.Pop()
		v, err := slice(arrayVal, startVal, endVal)
		if err != nil {
			return ErrorStep, 0, err
		}
		frame.Push(v)
	case vm.JMP:
		newPC := frame.PC.SetOffset(int(mustInt(inst.Arg)))
		log.Trace().Str("from", frame.PC.String()).Str("to", newPC.String()).Msg("  JMP")
		frame.PC = newPC
		return ContinueStep, 0, nil
	case vm.JFALSE:
		cond := frame.Pop()
		if !cond.AsBool() {
			newPC := frame.PC.SetOffset(int(mustInt(inst.Arg)))
			log.Trace().Interface("condition", cond).Str("to", newPC.String()).Msg("  JFALSE: jumping")
			frame.PC = newPC
			return ContinueStep, 0, nil
		}
	case vm.RETURN:
		log.Trace().Interface("stack", frame.Stack).Msg("  RETURN")
		return ReturnStep, 0, nil
	case vm.BUILD_LIST:
		n := int(mustInt(inst.Arg))
		l := make([]vm.Value, n)
		for i := n - 1; i >= 0; i-- {
			l[i] = frame.Pop()
		}
		frame.Push(vm.NewArray(l...))
	case vm.BUILD_DICT:
		n := int(mustInt(inst.Arg))
		pairs := make([]*vm.ArrayValue, n)
		for i := n - 1; i >= 0; i-- {
			pair, ok := frame.Pop().(*vm.ArrayValue)
			if !ok || len(pair.Items) != 2 {
				return ErrorStep, 0, fmt.Errorf("Error in compilation; BUILD_DICT expects pairs")
			}
			pairs[i] = pair
		}
		d := vm.NewStruct()
		for _, pair := range pairs {
			k, ok := pair.Items[0].(vm.StrValue)
			if !ok {
				return ErrorStep, 0, fmt.Errorf("dict keys must be strings, got %s", vm.GetTypeName(pair.Items[0]))
			}
			d.Entries[string(k)] = pair.Items[1]
		}
		frame.Push(d)
	case vm.BUILD_ARG:
		name := frame.Pop()
		val := frame.Pop()
		var arg vm.ArgValue
		if ref, ok := val.(*vm.RefValue); ok {
			arg = vm.ArgValue{Value: ref.Value, Ref: ref}
		} else {
			arg = vm.ArgValue{Value: val}
		}
		if name != vm.None {
			arg.Key = mustString(name)
		}
		frame.Push(arg)
		log.Trace().Interface("name", name).Interface("arg", arg).Msg("  BUILD_ARG")
	case vm.CALL:
		// Stack: arg1 ... argN fn
		log.Trace().Interface("argc", inst.Arg).Str("pc", frame.PC.String()).Msg("  CALL")
		return CallStep, int(mustInt(inst.Arg)), nil
	case vm.CALL_METHOD:
		// Stack: arg1 ... argN receiver methodName
		log.Trace().Interface("argc", inst.Arg).Str("pc", frame.PC.String()).Msg("  CALL_METHOD")
		return MethodCallStep, int(mustInt(inst.Arg)), nil
	case vm.ITER_START, vm.ITER_START_2:
		iterable := frame.Pop()
		varCount := 1
		if inst.Code == vm.ITER_START_2 {
			varCount = 2
		}
		varNames := make([]string, varCount)
		for i := varCount - 1; i >= 0; i-- {
			varNames[i] = mustString(frame.Pop())
		}
		iter, ok := newIterator(iterable, varCount)
		if !ok {
			return ErrorStep, 0, fmt.Errorf("Cannot iterate over %s", vm.GetTypeName(iterable))
		}
		endLabel := frame.PC.SetOffset(int(mustInt(inst.Arg)))
		iterState := &IteratorState{
			Start:    frame.PC.Inc(),
			End:      endLabel,
			Iter:     iter,
			VarNames: varNames,
		}
		if !iter.Next() {
			frame.PC = endLabel
			log.Trace().Strs("vars", varNames).Str("end_pc", endLabel.String()).Msg("  ITER_START: empty iterable, jumping to end")
			return ContinueStep, 0, nil
		}
		frame.IteratorStack = append(frame.IteratorStack, iterState)
		storeLoopVars(frame, iterState)
		log.Trace().Strs("vars", varNames).Str("start_pc", iterState.Start.String()).Msg("  ITER_START: starting iteration")
	case vm.ITER_NEXT:
		if len(frame.IteratorStack) == 0 {
			return ErrorStep, 0, fmt.Errorf("ITER_NEXT with empty iterator stack")
		}
		iterState := frame.IteratorStack[len(frame.IteratorStack)-1]
		if !iterState.Iter.Next() {
			frame.IteratorStack = frame.IteratorStack[:len(frame.IteratorStack)-1]
			frame.PC = iterState.End
			log.Trace().Str("end_pc", iterState.End.String()).Msg("  ITER_NEXT: exhausted, exiting loop")
			return ContinueStep, 0, nil
		}
		storeLoopVars(frame, iterState)
		frame.PC = iterState.Start
		return ContinueStep, 0, nil
	case vm.ITER_END:
		if len(frame.IteratorStack) == 0 {
			return ErrorStep, 0, fmt.Errorf("ITER_END with empty iterator stack")
		}
		iterState := frame.IteratorStack[len(frame.IteratorStack)-1]
		frame.IteratorStack = frame.IteratorStack[:len(frame.IteratorStack)-1]
		frame.PC = iterState.End
		log.Trace().Str("end_pc", iterState.End.String()).Msg("  ITER_END: breaking from loop")
		return ContinueStep, 0, nil
	default:
		return ErrorStep, 0, fmt.Errorf("Unhandled step instruction %s", inst.Code)
	}
	frame.PC = frame.PC.Inc()
	return ContinueStep, 0, nil
}

func storeLoopVars(frame *StackFrame, its *IteratorState) {
	frame.StoreVar(its.VarNames[0], its.Iter.Var1())
	if len(its.VarNames) == 2 {
		frame.StoreVar(its.VarNames[1], its.Iter.Var2())
	}
}

func mustString(v vm.Value) string {
	return string(v.(vm.StrValue))
}

func mustInt(v vm.Value) vm.IntValue {
	return v.(vm.IntValue)
}

// resolveVar looks a name up in the current frame, then the globals, then
// the program's functions and finally the builtins.
func resolveVar(name string, program Program, globals *StackFrame, frame *StackFrame) (vm.Value, error) {
	if v, ok := frame.Lookup(name); ok {
		return v, nil
	}
	if globals != frame {
		if v, ok := globals.Lookup(name); ok {
			return v, nil
		}
	}
	if v, ok := program.Resolve(name); ok {
		return vm.FnPtrValue(v), nil
	}
	if hasBuiltin(program, name) {
		return vm.BuiltinValue{Name: name}, nil
	}
	return nil, fmt.Errorf("No such variable defined: %s", name)
}

func hasBuiltin(program Program, name string) bool {
	if r, ok := program.(builtinResolver); ok && r.HasBuiltin(name) {
		return true
	}
	_, ok := vm.BuiltinRegistry[name]
	return ok
}
