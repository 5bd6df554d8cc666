package watch

import (
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

// Path is how a watched referent is reached. The set of implementations is
// closed: NamePath, AttrPath and SubscriptPath.
type Path interface {
	// Resolve evaluates the path. Names resolve in frame, then globals;
	// attribute and subscript paths use their retained base. A failed lookup
	// reports false and is never an error.
	Resolve(frame, globals *interp.StackFrame) (vm.Value, bool)
	// Same reports whether other denotes the same referent.
	Same(other Path) bool
	String() string
	isPath()
}

type NamePath struct {
	Name string
}

func (NamePath) isPath() {}

func (p NamePath) Resolve(frame, globals *interp.StackFrame) (vm.Value, bool) {
	if v, ok := frame.Lookup(p.Name); ok {
		return v, true
	}
	return globals.Lookup(p.Name)
}

func (p NamePath) Same(other Path) bool {
	o, ok := other.(NamePath)
	return ok && o.Name == p.Name
}

func (p NamePath) String() string {
	return p.Name
}

// AttrPath watches one attribute of a retained object.
type AttrPath struct {
	Base vm.Value
	Name string
	Text string
}

func (AttrPath) isPath() {}

func (p AttrPath) Resolve(_, _ *interp.StackFrame) (vm.Value, bool) {
	v, err := interp.GetAttr(p.Base, p.Name)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (p AttrPath) Same(other Path) bool {
	o, ok := other.(AttrPath)
	return ok && o.Name == p.Name && vm.Identical(o.Base, p.Base)
}

func (p AttrPath) String() string {
	return p.Text
}

// SubscriptPath watches one element of a retained list or dict. The key is
// evaluated once, when the watch is registered.
type SubscriptPath struct {
	Base vm.Value
	Key  vm.Value
	Text string
}

func (SubscriptPath) isPath() {}

func (p SubscriptPath) Resolve(_, _ *interp.StackFrame) (vm.Value, bool) {
	v, err := interp.GetItem(p.Base, p.Key)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (p SubscriptPath) Same(other Path) bool {
	o, ok := other.(SubscriptPath)
	return ok && vm.Identical(o.Base, p.Base) && vm.Equal(o.Key, p.Key)
}

func (p SubscriptPath) String() string {
	return p.Text
}

// PathFromRef converts a call-site reference into a Path.
func PathFromRef(ref *vm.RefValue) Path {
	switch ref.Kind {
	case vm.RefAttr:
		return AttrPath{Base: ref.Base, Name: ref.Name, Text: ref.Text}
	case vm.RefIndex:
		return SubscriptPath{Base: ref.Base, Key: vm.DeepCopy(ref.Key), Text: ref.Text}
	}
	return NamePath{Name: ref.Name}
}
