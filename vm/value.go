package vm

import (
	"fmt"
	"sort"
)

type Value interface {
	isValue()
	AsBool() bool
	// Clone returns a deep copy. Scalars return themselves.
	Clone() Value
	// Cmp orders two scalar values. ok is false when they are not comparable.
	Cmp(other Value) (int, bool)
}

type NoneValue struct{}

func (NoneValue) isValue()     {}
func (NoneValue) AsBool() bool { return false }
func (n NoneValue) Clone() Value {
	return n
}
func (NoneValue) Cmp(other Value) (int, bool) {
	if _, ok := other.(NoneValue); ok {
		return 0, true
	}
	return 0, false
}

var None = NoneValue{}

type BoolValue bool

func (BoolValue) isValue() {}

var (
	BoolTrue  = BoolValue(true)
	BoolFalse = BoolValue(false)
)

func (b BoolValue) AsBool() bool {
	return bool(b)
}

func (b BoolValue) Clone() Value { return b }

func (b BoolValue) Cmp(other Value) (int, bool) {
	o, ok := other.(BoolValue)
	if !ok {
		return 0, false
	}
	switch {
	case b == o:
		return 0, true
	case !bool(b):
		return -1, true
	}
	return 1, true
}

type StrValue string

func (StrValue) isValue() {}
func (s StrValue) AsBool() bool {
	return s != ""
}
func (s StrValue) Clone() Value { return s }
func (s StrValue) Cmp(other Value) (int, bool) {
	o, ok := other.(StrValue)
	if !ok {
		return 0, false
	}
	switch {
	case s < o:
		return -1, true
	case s > o:
		return 1, true
	}
	return 0, true
}

type IntValue int

func (IntValue) isValue() {}
func (i IntValue) AsBool() bool {
	return i != 0
}
func (i IntValue) Clone() Value { return i }
func (i IntValue) Cmp(other Value) (int, bool) {
	switch o := other.(type) {
	case IntValue:
		return cmpFloat(float64(i), float64(o)), true
	case FloatValue:
		return cmpFloat(float64(i), float64(o)), true
	}
	return 0, false
}

type FloatValue float64

func (FloatValue) isValue() {}
func (f FloatValue) AsBool() bool {
	return f != 0
}
func (f FloatValue) Clone() Value { return f }
func (f FloatValue) Cmp(other Value) (int, bool) {
	switch o := other.(type) {
	case IntValue:
		return cmpFloat(float64(f), float64(o)), true
	case FloatValue:
		return cmpFloat(float64(f), float64(o)), true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ArrayValue is a mutable list. It is always handled by pointer so that
// assignments alias the same list.
type ArrayValue struct {
	Items []Value
}

func NewArray(items ...Value) *ArrayValue {
	return &ArrayValue{Items: items}
}

func (*ArrayValue) isValue() {}
func (a *ArrayValue) AsBool() bool {
	return len(a.Items) != 0
}
func (a *ArrayValue) Clone() Value {
	return DeepCopy(a)
}
func (a *ArrayValue) Cmp(other Value) (int, bool) {
	if Equal(a, other) {
		return 0, true
	}
	return 0, false
}

// StructValue is a mutable dictionary keyed by strings.
type StructValue struct {
	Entries map[string]Value
}

func NewStruct() *StructValue {
	return &StructValue{Entries: make(map[string]Value)}
}

func (*StructValue) isValue() {}
func (s *StructValue) AsBool() bool {
	return len(s.Entries) != 0
}
func (s *StructValue) Clone() Value {
	return DeepCopy(s)
}
func (s *StructValue) Cmp(other Value) (int, bool) {
	if Equal(s, other) {
		return 0, true
	}
	return 0, false
}

// SortedKeys returns the dictionary keys in a stable order.
func (s *StructValue) SortedKeys() []string {
	keys := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ObjectValue is an attribute bag created by the object() builtin.
type ObjectValue struct {
	Attrs map[string]Value
}

func NewObject() *ObjectValue {
	return &ObjectValue{Attrs: make(map[string]Value)}
}

func (*ObjectValue) isValue()     {}
func (*ObjectValue) AsBool() bool { return true }
func (o *ObjectValue) Clone() Value {
	return DeepCopy(o)
}
func (o *ObjectValue) Cmp(other Value) (int, bool) {
	if Equal(o, other) {
		return 0, true
	}
	return 0, false
}

type FnPtrValue ExecPtr

func (FnPtrValue) isValue()     {}
func (FnPtrValue) AsBool() bool { return true }
func (f FnPtrValue) Clone() Value {
	return f
}
func (f FnPtrValue) Cmp(other Value) (int, bool) {
	if o, ok := other.(FnPtrValue); ok && o == f {
		return 0, true
	}
	return 0, false
}

// BuiltinValue names a native function. Method lookups on a builtin resolve
// to "<Name>.<method>".
type BuiltinValue struct {
	Name string
}

func (BuiltinValue) isValue()     {}
func (BuiltinValue) AsBool() bool { return true }
func (b BuiltinValue) Clone() Value {
	return b
}
func (b BuiltinValue) Cmp(other Value) (int, bool) {
	if o, ok := other.(BuiltinValue); ok && o.Name == b.Name {
		return 0, true
	}
	return 0, false
}

// ArgValue is a call argument as it sits on the operand stack. Ref is set when
// the argument was written as a name, attribute or subscript expression.
type ArgValue struct {
	Key   string
	Value Value
	Ref   *RefValue
}

func (ArgValue) isValue()     {}
func (ArgValue) AsBool() bool { return true }
func (a ArgValue) Clone() Value {
	return a
}
func (ArgValue) Cmp(other Value) (int, bool) {
	return 0, false
}

type RefKind int

const (
	RefName RefKind = iota
	RefAttr
	RefIndex
)

func (k RefKind) String() string {
	switch k {
	case RefName:
		return "name"
	case RefAttr:
		return "attr"
	case RefIndex:
		return "index"
	}
	return fmt.Sprintf("RefKind(%d)", int(k))
}

// RefValue records how a call argument was reached: a bare name, or a base
// object plus an attribute name or subscript key. Text is the source form.
type RefValue struct {
	Kind  RefKind
	Name  string
	Base  Value
	Key   Value
	Value Value
	Text  string
}

func (*RefValue) isValue()     {}
func (*RefValue) AsBool() bool { return true }
func (r *RefValue) Clone() Value {
	return r
}
func (*RefValue) Cmp(other Value) (int, bool) {
	return 0, false
}
