package vm

import "fmt"

// MethodImpl represents a method implementation.
// It takes the receiver and positional arguments and returns the call result.
// Mutating methods change the receiver in place.
type MethodImpl func(receiver Value, args []Value) (Value, error)

// MethodTable maps method names to their implementations for a specific type
type MethodTable map[string]MethodImpl

// MethodRegistry maps type names to their method tables
var MethodRegistry = map[string]MethodTable{
	"array": {
		"append": arrayAppend,
		"extend": arrayExtend,
		"pop":    arrayPop,
		"insert": arrayInsert,
		"clear":  arrayClear,
	},
	"struct": {
		"get":    structGet,
		"keys":   structKeys,
		"values": structValues,
		"pop":    structPop,
		"update": structUpdate,
		"clear":  structClear,
	},
}

// GetTypeName returns the type name for a value (for method dispatch)
func GetTypeName(v Value) string {
	switch v.(type) {
	case *ArrayValue:
		return "array"
	case *StructValue:
		return "struct"
	case *ObjectValue:
		return "object"
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StrValue:
		return "string"
	case BoolValue:
		return "bool"
	case NoneValue:
		return "none"
	case FnPtrValue:
		return "function"
	case BuiltinValue:
		return "builtin"
	default:
		return "unknown"
	}
}

// LookupMethod finds the method implementation for receiver.
func LookupMethod(receiver Value, name string) (MethodImpl, bool) {
	table, ok := MethodRegistry[GetTypeName(receiver)]
	if !ok {
		return nil, false
	}
	m, ok := table[name]
	return m, ok
}

func arrayAppend(receiver Value, args []Value) (Value, error) {
	arr, ok := receiver.(*ArrayValue)
	if !ok {
		return nil, fmt.Errorf("append called on non-array: %T", receiver)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("append expects 1 argument, got %d", len(args))
	}
	arr.Items = append(arr.Items, args[0])
	return None, nil
}

func arrayExtend(receiver Value, args []Value) (Value, error) {
	arr, ok := receiver.(*ArrayValue)
	if !ok {
		return nil, fmt.Errorf("extend called on non-array: %T", receiver)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("extend expects 1 argument, got %d", len(args))
	}
	other, ok := args[0].(*ArrayValue)
	if !ok {
		return nil, fmt.Errorf("extend argument must be an array, got %T", args[0])
	}
	arr.Items = append(arr.Items, other.Items...)
	return None, nil
}

func arrayPop(receiver Value, args []Value) (Value, error) {
	arr, ok := receiver.(*ArrayValue)
	if !ok {
		return nil, fmt.Errorf("pop called on non-array: %T", receiver)
	}
	if len(arr.Items) == 0 {
		return nil, fmt.Errorf("pop from empty array")
	}
	idx := len(arr.Items) - 1
	if len(args) == 1 {
		i, ok := args[0].(IntValue)
		if !ok {
			return nil, fmt.Errorf("pop index must be an integer, got %T", args[0])
		}
		idx = int(i)
		if idx < 0 {
			idx += len(arr.Items)
		}
	} else if len(args) > 1 {
		return nil, fmt.Errorf("pop expects at most 1 argument, got %d", len(args))
	}
	if idx < 0 || idx >= len(arr.Items) {
		return nil, fmt.Errorf("Index %d out of bounds for array of length %d", idx, len(arr.Items))
	}
	v := arr.Items[idx]
	arr.Items = append(arr.Items[:idx], arr.Items[idx+1:]...)
	return v, nil
}

func arrayInsert(receiver Value, args []Value) (Value, error) {
	arr, ok := receiver.(*ArrayValue)
	if !ok {
		return nil, fmt.Errorf("insert called on non-array: %T", receiver)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("insert expects 2 arguments, got %d", len(args))
	}
	i, ok := args[0].(IntValue)
	if !ok {
		return nil, fmt.Errorf("insert index must be an integer, got %T", args[0])
	}
	idx := int(i)
	if idx < 0 {
		idx += len(arr.Items)
	}
	idx = max(0, min(idx, len(arr.Items)))
	arr.Items = append(arr.Items, nil)
	copy(arr.Items[idx+1:], arr.Items[idx:])
	arr.Items[idx] = args[1]
	return None, nil
}

func arrayClear(receiver Value, args []Value) (Value, error) {
	arr, ok := receiver.(*ArrayValue)
	if !ok {
		return nil, fmt.Errorf("clear called on non-array: %T", receiver)
	}
	arr.Items = arr.Items[:0]
	return None, nil
}

func structKey(v Value) (string, error) {
	s, ok := v.(StrValue)
	if !ok {
		return "", fmt.Errorf("dict keys must be strings, got %T", v)
	}
	return string(s), nil
}

func structGet(receiver Value, args []Value) (Value, error) {
	s := receiver.(*StructValue)
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("get expects 1 or 2 arguments, got %d", len(args))
	}
	k, err := structKey(args[0])
	if err != nil {
		return nil, err
	}
	if v, ok := s.Entries[k]; ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return None, nil
}

func structKeys(receiver Value, args []Value) (Value, error) {
	s := receiver.(*StructValue)
	out := &ArrayValue{}
	for _, k := range s.SortedKeys() {
		out.Items = append(out.Items, StrValue(k))
	}
	return out, nil
}

func structValues(receiver Value, args []Value) (Value, error) {
	s := receiver.(*StructValue)
	out := &ArrayValue{}
	for _, k := range s.SortedKeys() {
		out.Items = append(out.Items, s.Entries[k])
	}
	return out, nil
}

func structPop(receiver Value, args []Value) (Value, error) {
	s := receiver.(*StructValue)
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("pop expects 1 or 2 arguments, got %d", len(args))
	}
	k, err := structKey(args[0])
	if err != nil {
		return nil, err
	}
	v, ok := s.Entries[k]
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, fmt.Errorf("Key %s not found in struct", k)
	}
	delete(s.Entries, k)
	return v, nil
}

func structUpdate(receiver Value, args []Value) (Value, error) {
	s := receiver.(*StructValue)
	if len(args) != 1 {
		return nil, fmt.Errorf("update expects 1 argument, got %d", len(args))
	}
	other, ok := args[0].(*StructValue)
	if !ok {
		return nil, fmt.Errorf("update argument must be a dict, got %T", args[0])
	}
	for k, v := range other.Entries {
		s.Entries[k] = v
	}
	return None, nil
}

func structClear(receiver Value, args []Value) (Value, error) {
	s := receiver.(*StructValue)
	clear(s.Entries)
	return None, nil
}
