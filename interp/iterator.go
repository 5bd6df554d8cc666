package interp

import (
	"slices"

	"github.com/timewinder-dev/watchpoint/vm"
)

// SliceIterator iterates over array/list values
type SliceIterator struct {
	Values   []vm.Value // Elements captured when the loop started
	Index    int        // Current position (-1 = not started)
	VarCount int        // 1 or 2 variables
}

// Clone creates a deep copy of the SliceIterator
func (s *SliceIterator) Clone() Iterator {
	return &SliceIterator{
		Values:   slices.Clone(s.Values),
		Index:    s.Index,
		VarCount: s.VarCount,
	}
}

// Next advances the iterator to the next element
// Returns true if there are more elements, false if exhausted
func (s *SliceIterator) Next() bool {
	s.Index++
	return s.Index < len(s.Values)
}

// Var1 returns the element for 1-var loops and the index for 2-var loops.
func (s *SliceIterator) Var1() vm.Value {
	if s.VarCount == 1 {
		return s.Values[s.Index]
	}
	return vm.IntValue(s.Index)
}

// Var2 returns the element for 2-var loops.
func (s *SliceIterator) Var2() vm.Value {
	if s.VarCount == 2 {
		return s.Values[s.Index]
	}
	return vm.None
}

// DictIterator iterates over dict key-value pairs
type DictIterator struct {
	Dict     *vm.StructValue
	Keys     []string // Sorted keys for deterministic iteration
	Index    int      // Current position (-1 = not started)
	VarCount int
}

// Clone creates a copy of the DictIterator sharing the underlying dict
func (d *DictIterator) Clone() Iterator {
	return &DictIterator{
		Dict:     d.Dict,
		Keys:     slices.Clone(d.Keys),
		Index:    d.Index,
		VarCount: d.VarCount,
	}
}

// Next advances the iterator to the next key-value pair
func (d *DictIterator) Next() bool {
	d.Index++
	return d.Index < len(d.Keys)
}

// Var1 returns the key
func (d *DictIterator) Var1() vm.Value {
	return vm.StrValue(d.Keys[d.Index])
}

// Var2 returns the value for the current key in 2-var loops
func (d *DictIterator) Var2() vm.Value {
	if d.VarCount == 2 {
		v, ok := d.Dict.Entries[d.Keys[d.Index]]
		if !ok {
			return vm.None
		}
		return v
	}
	return vm.None
}

func newIterator(iterable vm.Value, varCount int) (Iterator, bool) {
	switch val := iterable.(type) {
	case *vm.ArrayValue:
		return &SliceIterator{
			Values:   slices.Clone(val.Items),
			Index:    -1,
			VarCount: varCount,
		}, true
	case *vm.StructValue:
		return &DictIterator{
			Dict:     val,
			Keys:     val.SortedKeys(),
			Index:    -1,
			VarCount: varCount,
		}, true
	}
	return nil, false
}
