package vm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BuiltinFunc is a pure builtin. It sees keyword arguments and argument
// references but no interpreter state.
type BuiltinFunc func(args []ArgValue) (Value, error)

// BuiltinRegistry maps builtin function names to their implementations
var BuiltinRegistry = map[string]BuiltinFunc{
	"range":   builtinRange,
	"len":     builtinLen,
	"str":     builtinStr,
	"object":  builtinObject,
	"hasattr": builtinHasattr,
	"delattr": builtinDelattr,
}

// Positional returns the values of the positional arguments, rejecting
// keyword arguments.
func Positional(name string, args []ArgValue) ([]Value, error) {
	out := make([]Value, 0, len(args))
	for _, a := range args {
		if a.Key != "" {
			return nil, fmt.Errorf("%s() got an unexpected keyword argument '%s'", name, a.Key)
		}
		out = append(out, a.Value)
	}
	return out, nil
}

// builtinRange implements Python-like range() function
// Supports 3 forms:
// - range(stop): returns [0, 1, ..., stop-1]
// - range(start, stop): returns [start, start+1, ..., stop-1]
// - range(start, stop, step): returns [start, start+step, ..., < stop]
func builtinRange(argv []ArgValue) (Value, error) {
	args, err := Positional("range", argv)
	if err != nil {
		return nil, err
	}
	ints := make([]int, len(args))
	for i, a := range args {
		v, ok := a.(IntValue)
		if !ok {
			return nil, fmt.Errorf("range() arguments must be integers, got %T", a)
		}
		ints[i] = int(v)
	}
	var start, stop, step int
	switch len(ints) {
	case 1:
		start, stop, step = 0, ints[0], 1
	case 2:
		start, stop, step = ints[0], ints[1], 1
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
		if step == 0 {
			return nil, fmt.Errorf("range() step argument must not be zero")
		}
	default:
		return nil, fmt.Errorf("range() takes 1 to 3 arguments, got %d", len(args))
	}

	result := &ArrayValue{}
	if step > 0 {
		for i := start; i < stop; i += step {
			result.Items = append(result.Items, IntValue(i))
		}
	} else {
		for i := start; i > stop; i += step {
			result.Items = append(result.Items, IntValue(i))
		}
	}
	return result, nil
}

// builtinLen returns the length of arrays, strings, or dicts
func builtinLen(argv []ArgValue) (Value, error) {
	args, err := Positional("len", argv)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes exactly 1 argument, got %d", len(args))
	}

	switch val := args[0].(type) {
	case *ArrayValue:
		return IntValue(len(val.Items)), nil
	case StrValue:
		return IntValue(len(val)), nil
	case *StructValue:
		return IntValue(len(val.Entries)), nil
	default:
		return nil, fmt.Errorf("len() argument must be array, string, or dict, got %T", args[0])
	}
}

func builtinStr(argv []ArgValue) (Value, error) {
	args, err := Positional("str", argv)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("str() takes exactly 1 argument, got %d", len(args))
	}
	if s, ok := args[0].(StrValue); ok {
		return s, nil
	}
	return StrValue(Repr(args[0])), nil
}

// builtinObject builds an attribute bag from its keyword arguments:
// object(a=1, b="x").
func builtinObject(args []ArgValue) (Value, error) {
	obj := NewObject()
	for _, a := range args {
		if a.Key == "" {
			return nil, fmt.Errorf("object() accepts keyword arguments only")
		}
		obj.Attrs[a.Key] = a.Value
	}
	return obj, nil
}

func attrArgs(name string, argv []ArgValue) (*ObjectValue, string, error) {
	args, err := Positional(name, argv)
	if err != nil {
		return nil, "", err
	}
	if len(args) != 2 {
		return nil, "", fmt.Errorf("%s() takes exactly 2 arguments, got %d", name, len(args))
	}
	obj, ok := args[0].(*ObjectValue)
	if !ok {
		return nil, "", fmt.Errorf("%s() first argument must be an object, got %T", name, args[0])
	}
	attr, ok := args[1].(StrValue)
	if !ok {
		return nil, "", fmt.Errorf("%s() attribute name must be a string, got %T", name, args[1])
	}
	return obj, string(attr), nil
}

func builtinHasattr(argv []ArgValue) (Value, error) {
	obj, attr, err := attrArgs("hasattr", argv)
	if err != nil {
		return nil, err
	}
	_, ok := obj.Attrs[attr]
	return BoolValue(ok), nil
}

func builtinDelattr(argv []ArgValue) (Value, error) {
	obj, attr, err := attrArgs("delattr", argv)
	if err != nil {
		return nil, err
	}
	if _, ok := obj.Attrs[attr]; !ok {
		return nil, fmt.Errorf("object has no attribute '%s'", attr)
	}
	delete(obj.Attrs, attr)
	return None, nil
}

// Repr renders v in source-like form. Nested containers are printed in full;
// cycles print as "...".
func Repr(v Value) string {
	var b strings.Builder
	repr(&b, v, make(map[Value]bool))
	return b.String()
}

func repr(b *strings.Builder, v Value, seen map[Value]bool) {
	if IsMutable(v) {
		if seen[v] {
			b.WriteString("...")
			return
		}
		seen[v] = true
		defer delete(seen, v)
	}
	switch val := v.(type) {
	case nil:
		b.WriteString("<undefined>")
	case NoneValue:
		b.WriteString("None")
	case BoolValue:
		if val {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case IntValue:
		b.WriteString(strconv.Itoa(int(val)))
	case FloatValue:
		b.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case StrValue:
		b.WriteString(strconv.Quote(string(val)))
	case *ArrayValue:
		b.WriteString("[")
		for i, item := range val.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			repr(b, item, seen)
		}
		b.WriteString("]")
	case *StructValue:
		b.WriteString("{")
		for i, k := range val.SortedKeys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(k))
			b.WriteString(": ")
			repr(b, val.Entries[k], seen)
		}
		b.WriteString("}")
	case *ObjectValue:
		b.WriteString("object(")
		keys := make([]string, 0, len(val.Attrs))
		for k := range val.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString("=")
			repr(b, val.Attrs[k], seen)
		}
		b.WriteString(")")
	case FnPtrValue:
		fmt.Fprintf(b, "<function@%s>", ExecPtr(val))
	case BuiltinValue:
		fmt.Fprintf(b, "<builtin:%s>", val.Name)
	case ArgValue:
		repr(b, val.Value, seen)
	case *RefValue:
		fmt.Fprintf(b, "<ref %s>", val.Text)
	default:
		fmt.Fprintf(b, "<%T>", v)
	}
}
