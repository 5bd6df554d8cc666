package vm

// Equal reports structural equality. Lists compare element-wise, dicts and
// objects compare by key set and per-key equality. Cycles are not followed
// past the first revisit of the same pair.
func Equal(a, b Value) bool {
	return equal(a, b, make(map[[2]any]bool))
}

func equal(a, b Value, seen map[[2]any]bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case *ArrayValue:
		bv, ok := b.(*ArrayValue)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		pair := [2]any{av, bv}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !equal(av.Items[i], bv.Items[i], seen) {
				return false
			}
		}
		return true
	case *StructValue:
		bv, ok := b.(*StructValue)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		pair := [2]any{av, bv}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		return equalMaps(av.Entries, bv.Entries, seen)
	case *ObjectValue:
		bv, ok := b.(*ObjectValue)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		pair := [2]any{av, bv}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		return equalMaps(av.Attrs, bv.Attrs, seen)
	}
	c, ok := a.Cmp(b)
	return ok && c == 0
}

func equalMaps(a, b map[string]Value, seen map[[2]any]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !equal(v, w, seen) {
			return false
		}
	}
	return true
}

// Identical reports whether a and b are the same object. Reference values
// compare by pointer; scalars have no identity beyond their value.
func Identical(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a.(type) {
	case *ArrayValue, *StructValue, *ObjectValue, *RefValue:
		return a == b
	}
	if _, ok := a.(ArgValue); ok {
		return false
	}
	return a == b
}

// IsMutable reports whether v can change in place.
func IsMutable(v Value) bool {
	switch v.(type) {
	case *ArrayValue, *StructValue, *ObjectValue:
		return true
	}
	return false
}

// DeepCopy copies every mutable composite reachable from v. Shared and
// cyclic references are preserved in the copy.
func DeepCopy(v Value) Value {
	return deepCopy(v, make(map[Value]Value))
}

func deepCopy(v Value, memo map[Value]Value) Value {
	if !IsMutable(v) {
		return v
	}
	if c, ok := memo[v]; ok {
		return c
	}
	switch x := v.(type) {
	case *ArrayValue:
		out := &ArrayValue{Items: make([]Value, len(x.Items))}
		memo[v] = out
		for i, item := range x.Items {
			out.Items[i] = deepCopy(item, memo)
		}
		return out
	case *StructValue:
		out := &StructValue{Entries: make(map[string]Value, len(x.Entries))}
		memo[v] = out
		for k, item := range x.Entries {
			out.Entries[k] = deepCopy(item, memo)
		}
		return out
	case *ObjectValue:
		out := &ObjectValue{Attrs: make(map[string]Value, len(x.Attrs))}
		memo[v] = out
		for k, item := range x.Attrs {
			out.Attrs[k] = deepCopy(item, memo)
		}
		return out
	}
	return v
}
