package interp

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/timewinder-dev/watchpoint/vm"
)

var ErrDivisionByZero = errors.New("division by zero")

func add(a, b vm.Value) (vm.Value, error) {
	switch av := a.(type) {
	case vm.IntValue, vm.FloatValue:
		return numericOp(vm.ADD, a, b)
	case vm.StrValue:
		if bv, ok := b.(vm.StrValue); ok {
			return av + bv, nil
		}
	case *vm.ArrayValue:
		if bv, ok := b.(*vm.ArrayValue); ok {
			items := make([]vm.Value, 0, len(av.Items)+len(bv.Items))
			items = append(items, av.Items...)
			items = append(items, bv.Items...)
			return vm.NewArray(items...), nil
		}
	}
	return nil, fmt.Errorf("Trying to add two disparate types: %s + %s", vm.GetTypeName(a), vm.GetTypeName(b))
}

func numericOp(op vm.Opcode, a, b vm.Value) (vm.Value, error) {
	if s, ok := a.(vm.StrValue); ok && op == vm.MULTIPLY {
		if n, ok := b.(vm.IntValue); ok {
			return vm.StrValue(strings.Repeat(string(s), max(int(n), 0))), nil
		}
	}
	af, aIsFloat, aok := toNumber(a)
	bf, bIsFloat, bok := toNumber(b)
	if !aok || !bok {
		return nil, fmt.Errorf("Trying to do a numeric operation between a %s and a %s", vm.GetTypeName(a), vm.GetTypeName(b))
	}
	if op == vm.DIVIDE || op == vm.MODULO || op == vm.FLOOR_DIVIDE {
		if bf == 0 {
			return nil, ErrDivisionByZero
		}
	}
	if aIsFloat || bIsFloat || op == vm.DIVIDE {
		return floatOp(op, af, bf), nil
	}
	return intOp(op, int(a.(vm.IntValue)), int(b.(vm.IntValue))), nil
}

func toNumber(v vm.Value) (float64, bool, bool) {
	switch n := v.(type) {
	case vm.IntValue:
		return float64(n), false, true
	case vm.FloatValue:
		return float64(n), true, true
	}
	return 0, false, false
}

func floatOp(op vm.Opcode, a, b float64) vm.Value {
	switch op {
	case vm.ADD:
		return vm.FloatValue(a + b)
	case vm.SUBTRACT:
		return vm.FloatValue(a - b)
	case vm.MULTIPLY:
		return vm.FloatValue(a * b)
	case vm.DIVIDE:
		return vm.FloatValue(a / b)
	case vm.MODULO:
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return vm.FloatValue(r)
	case vm.FLOOR_DIVIDE:
		return vm.FloatValue(math.Floor(a / b))
	}
	panic("Unhandled floatOp code")
}

func intOp(op vm.Opcode, a, b int) vm.Value {
	switch op {
	case vm.ADD:
		return vm.IntValue(a + b)
	case vm.SUBTRACT:
		return vm.IntValue(a - b)
	case vm.MULTIPLY:
		return vm.IntValue(a * b)
	case vm.MODULO:
		r := a % b
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return vm.IntValue(r)
	case vm.FLOOR_DIVIDE:
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return vm.IntValue(q)
	}
	panic("Unhandled intOp code")
}

func contains(collection, item vm.Value) (bool, error) {
	switch coll := collection.(type) {
	case *vm.ArrayValue:
		for _, elem := range coll.Items {
			if vm.Equal(item, elem) {
				return true, nil
			}
		}
		return false, nil
	case vm.StrValue:
		s, ok := item.(vm.StrValue)
		if !ok {
			return false, fmt.Errorf("IN operator: can only check for string in string, got %s", vm.GetTypeName(item))
		}
		return strings.Contains(string(coll), string(s)), nil
	case *vm.StructValue:
		s, ok := item.(vm.StrValue)
		if !ok {
			return false, nil
		}
		_, exists := coll.Entries[string(s)]
		return exists, nil
	}
	return false, fmt.Errorf("IN operator: unsupported collection type %s", vm.GetTypeName(collection))
}

func sliceBound(v vm.Value, def, n int) (int, error) {
	if v == vm.None {
		return def, nil
	}
	i, ok := v.(vm.IntValue)
	if !ok {
		return 0, fmt.Errorf("slice indices must be integers or None, got %s", vm.GetTypeName(v))
	}
	idx := int(i)
	if idx < 0 {
		idx += n
	}
	return min(max(idx, 0), n), nil
}

func slice(seq, startVal, endVal vm.Value) (vm.Value, error) {
	var n int
	switch s := seq.(type) {
	case *vm.ArrayValue:
		n = len(s.Items)
	case vm.StrValue:
		n = len(s)
	default:
		return nil, fmt.Errorf("SLICE requires a list or string, got %s", vm.GetTypeName(seq))
	}
	start, err := sliceBound(startVal, 0, n)
	if err != nil {
		return nil, err
	}
	end, err := sliceBound(endVal, n, n)
	if err != nil {
		return nil, err
	}
	start = min(start, end)
	if s, ok := seq.(vm.StrValue); ok {
		return s[start:end], nil
	}
	items := seq.(*vm.ArrayValue).Items[start:end]
	return vm.NewArray(append([]vm.Value(nil), items...)...), nil
}

// getAttribute resolves obj.name. Methods of builtins resolve to the
// dotted builtin when the program knows it, e.g. watch.config.
func getAttribute(program Program, obj vm.Value, name string) (vm.Value, error) {
	switch o := obj.(type) {
	case *vm.ObjectValue:
		if val, ok := o.Attrs[name]; ok {
			return val, nil
		}
		return nil, fmt.Errorf("object has no attribute '%s'", name)
	case vm.BuiltinValue:
		dotted := o.Name + "." + name
		if hasBuiltin(program, dotted) {
			return vm.BuiltinValue{Name: dotted}, nil
		}
	}
	return nil, fmt.Errorf("%s has no attribute '%s'", vm.GetTypeName(obj), name)
}

func setAttribute(obj vm.Value, name string, val vm.Value) error {
	o, ok := obj.(*vm.ObjectValue)
	if !ok {
		return fmt.Errorf("Cannot set attribute on type %s", vm.GetTypeName(obj))
	}
	o.Attrs[name] = val
	return nil
}

func listIndex(a *vm.ArrayValue, key vm.Value) (int, error) {
	idx, ok := key.(vm.IntValue)
	if !ok {
		return 0, fmt.Errorf("list indices must be integers, got %s", vm.GetTypeName(key))
	}
	i := int(idx)
	if i < 0 {
		i += len(a.Items)
	}
	if i < 0 || i >= len(a.Items) {
		return 0, fmt.Errorf("Index %d out of bounds for list of length %d", int(idx), len(a.Items))
	}
	return i, nil
}

func getItem(obj, key vm.Value) (vm.Value, error) {
	switch o := obj.(type) {
	case *vm.ArrayValue:
		i, err := listIndex(o, key)
		if err != nil {
			return nil, err
		}
		return o.Items[i], nil
	case *vm.StructValue:
		k, ok := key.(vm.StrValue)
		if !ok {
			return nil, fmt.Errorf("dict keys must be strings, got %s", vm.GetTypeName(key))
		}
		if val, ok := o.Entries[string(k)]; ok {
			return val, nil
		}
		return nil, fmt.Errorf("Key %q not found in dict", string(k))
	case vm.StrValue:
		idx, ok := key.(vm.IntValue)
		if !ok {
			return nil, fmt.Errorf("string indices must be integers, got %s", vm.GetTypeName(key))
		}
		i := int(idx)
		if i < 0 {
			i += len(o)
		}
		if i < 0 || i >= len(o) {
			return nil, fmt.Errorf("Index %d out of bounds for string of length %d", int(idx), len(o))
		}
		return o[i : i+1], nil
	}
	return nil, fmt.Errorf("%s is not subscriptable", vm.GetTypeName(obj))
}

func setItem(obj, key, val vm.Value) error {
	switch o := obj.(type) {
	case *vm.ArrayValue:
		i, err := listIndex(o, key)
		if err != nil {
			return err
		}
		o.Items[i] = val
		return nil
	case *vm.StructValue:
		k, ok := key.(vm.StrValue)
		if !ok {
			return fmt.Errorf("dict keys must be strings, got %s", vm.GetTypeName(key))
		}
		o.Entries[string(k)] = val
		return nil
	}
	return fmt.Errorf("%s does not support item assignment", vm.GetTypeName(obj))
}

// GetAttr reads obj.name with the same rules as the interpreter.
func GetAttr(obj vm.Value, name string) (vm.Value, error) {
	return getAttribute(nil, obj, name)
}

// GetItem reads obj[key] with the same rules as the interpreter.
func GetItem(obj, key vm.Value) (vm.Value, error) {
	return getItem(obj, key)
}
