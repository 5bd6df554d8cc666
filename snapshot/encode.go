package snapshot

import (
	"fmt"
	"sort"

	msgpack "github.com/shamaton/msgpack/v2"
	"github.com/timewinder-dev/watchpoint/vm"
)

type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindDict
	KindObject
	KindFunc
	KindBuiltin
	// KindBackRef points at an enclosing composite by its pre-order index.
	KindBackRef
)

// Node is the canonical serialized form of a vm.Value. Dict and object keys
// are sorted so equal values encode to identical bytes.
type Node struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
	Keys  []string
	Items []Node
}

type encoder struct {
	ids map[vm.Value]int
}

// ToNode converts v into its canonical tree. Shared composites after the
// first occurrence and cycles become back references.
func ToNode(v vm.Value) (Node, error) {
	e := &encoder{ids: make(map[vm.Value]int)}
	return e.node(v)
}

func (e *encoder) node(v vm.Value) (Node, error) {
	if vm.IsMutable(v) {
		if id, ok := e.ids[v]; ok {
			return Node{Kind: KindBackRef, Int: int64(id)}, nil
		}
		e.ids[v] = len(e.ids)
	}
	switch val := v.(type) {
	case nil, vm.NoneValue:
		return Node{Kind: KindNone}, nil
	case vm.BoolValue:
		n := Node{Kind: KindBool}
		if val {
			n.Int = 1
		}
		return n, nil
	case vm.IntValue:
		return Node{Kind: KindInt, Int: int64(val)}, nil
	case vm.FloatValue:
		return Node{Kind: KindFloat, Float: float64(val)}, nil
	case vm.StrValue:
		return Node{Kind: KindStr, Str: string(val)}, nil
	case vm.FnPtrValue:
		return Node{Kind: KindFunc, Int: int64(val)}, nil
	case vm.BuiltinValue:
		return Node{Kind: KindBuiltin, Str: val.Name}, nil
	case *vm.ArrayValue:
		n := Node{Kind: KindList, Items: make([]Node, 0, len(val.Items))}
		for i, item := range val.Items {
			c, err := e.node(item)
			if err != nil {
				return Node{}, fmt.Errorf("list item %d: %w", i, err)
			}
			n.Items = append(n.Items, c)
		}
		return n, nil
	case *vm.StructValue:
		return e.mapping(KindDict, val.Entries)
	case *vm.ObjectValue:
		return e.mapping(KindObject, val.Attrs)
	}
	return Node{}, fmt.Errorf("cannot snapshot %s", vm.GetTypeName(v))
}

func (e *encoder) mapping(kind Kind, m map[string]vm.Value) (Node, error) {
	n := Node{Kind: kind, Keys: sortedKeys(m)}
	n.Items = make([]Node, 0, len(n.Keys))
	for _, k := range n.Keys {
		c, err := e.node(m[k])
		if err != nil {
			return Node{}, fmt.Errorf("key %q: %w", k, err)
		}
		n.Items = append(n.Items, c)
	}
	return n, nil
}

type decoder struct {
	refs []vm.Value
}

// FromNode rebuilds a fresh vm.Value from its canonical tree.
func FromNode(n Node) (vm.Value, error) {
	d := &decoder{}
	return d.value(n)
}

func (d *decoder) value(n Node) (vm.Value, error) {
	switch n.Kind {
	case KindNone:
		return vm.None, nil
	case KindBool:
		return vm.BoolValue(n.Int != 0), nil
	case KindInt:
		return vm.IntValue(n.Int), nil
	case KindFloat:
		return vm.FloatValue(n.Float), nil
	case KindStr:
		return vm.StrValue(n.Str), nil
	case KindFunc:
		return vm.FnPtrValue(n.Int), nil
	case KindBuiltin:
		return vm.BuiltinValue{Name: n.Str}, nil
	case KindBackRef:
		if n.Int < 0 || int(n.Int) >= len(d.refs) {
			return nil, fmt.Errorf("dangling back reference %d", n.Int)
		}
		return d.refs[n.Int], nil
	case KindList:
		arr := vm.NewArray()
		d.refs = append(d.refs, arr)
		for _, c := range n.Items {
			v, err := d.value(c)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil
	case KindDict, KindObject:
		if len(n.Keys) != len(n.Items) {
			return nil, fmt.Errorf("malformed mapping: %d keys, %d items", len(n.Keys), len(n.Items))
		}
		var m map[string]vm.Value
		var out vm.Value
		if n.Kind == KindDict {
			s := vm.NewStruct()
			m, out = s.Entries, s
		} else {
			o := vm.NewObject()
			m, out = o.Attrs, o
		}
		d.refs = append(d.refs, out)
		for i, c := range n.Items {
			v, err := d.value(c)
			if err != nil {
				return nil, err
			}
			m[n.Keys[i]] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown node kind %d", n.Kind)
}

// Encode serializes v canonically with msgpack.
func Encode(v vm.Value) ([]byte, error) {
	n, err := ToNode(v)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(n)
}

// Decode reverses Encode.
func Decode(data []byte) (vm.Value, error) {
	var n Node
	if err := msgpack.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return FromNode(n)
}

func sortedKeys(m map[string]vm.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
