package object

import (
	"bytes"
	"math"
)

// Is reports identity. The rule depends on the kind: nil, bools, numbers
// and sentinels are identical when their contents match, while strings,
// native functions and heap objects are identical only when they are the
// same pointer. Values of different kinds are never identical.
func Is(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case NilType:
		return true
	case BoolType, NumberType, SentinelType:
		return a.num == b.num
	default:
		return a.ref == b.ref
	}
}

// Equal reports structural equality. Lists, dicts and buffers compare their
// contents; frozen collections are canonical so identity suffices; every
// other kind falls back to Is.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	if a.typ != ObjType {
		return Is(a, b)
	}
	if a.ref == b.ref {
		return true
	}
	switch x := a.ref.(type) {
	case *List:
		y, ok := b.ref.(*List)
		return ok && itemsEqual(x.Items, y.Items)
	case *Dict:
		y, ok := b.ref.(*Dict)
		return ok && mapsEqual(&x.Map, &y.Map)
	case *Buffer:
		y, ok := b.ref.(*Buffer)
		return ok && bytes.Equal(x.Bytes, y.Bytes)
	}
	return false
}

func itemsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func mapsEqual(a, b *Map) bool {
	if a.Len() != b.Len() {
		return false
	}
	equal := true
	a.Each(func(k, v Value) bool {
		other, ok := b.Get(k)
		equal = ok && Equal(v, other)
		return equal
	})
	return equal
}

// LessThan orders bools, numbers, strings (bytewise) and lists or frozen
// lists (lexicographically). Other pairings are a type error.
func LessThan(a, b Value) (bool, error) {
	if a.typ != b.typ {
		return false, unorderable(a, b)
	}
	switch a.typ {
	case BoolType, NumberType:
		return a.num < b.num, nil
	case StringType:
		return a.AsString().chars < b.AsString().chars, nil
	case ObjType:
		x, okx := sequenceItems(a)
		y, oky := sequenceItems(b)
		if okx && oky && ObjKindOf(a) == ObjKindOf(b) {
			return itemsLess(x, y)
		}
	}
	return false, unorderable(a, b)
}

func sequenceItems(v Value) ([]Value, bool) {
	switch o := v.ref.(type) {
	case *List:
		return o.Items, true
	case *FrozenList:
		return o.Items, true
	}
	return nil, false
}

func itemsLess(a, b []Value) (bool, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		return LessThan(a[i], b[i])
	}
	return len(a) < len(b), nil
}

func unorderable(a, b Value) error {
	return TypeErrorf("'<' not supported between %s and %s", TypeName(a), TypeName(b))
}

// Hash returns the hash of a hashable value. Lists, dicts, buffers,
// classes, instances and functions are not hashable.
func Hash(v Value) (uint32, error) {
	switch v.typ {
	case NilType:
		return 17, nil
	case BoolType:
		if v.num != 0 {
			return 1231, nil
		}
		return 1237, nil
	case NumberType:
		return hashNumber(v.num), nil
	case StringType:
		return v.AsString().hash, nil
	case SentinelType:
		return uint32(v.num), nil
	case ObjType:
		switch o := v.ref.(type) {
		case *FrozenList:
			return o.hash, nil
		case *FrozenDict:
			return o.hash, nil
		}
	}
	return 0, TypeErrorf("%s is not hashable", TypeName(v))
}

func hashNumber(f float64) uint32 {
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return uint32(int32(f))
	}
	bits := math.Float64bits(f)
	return uint32(bits) ^ uint32(bits>>32)
}

func hashFrozenList(items []Value) (uint32, error) {
	h := uint32(fnvOffset)
	for _, item := range items {
		ih, err := Hash(item)
		if err != nil {
			return 0, err
		}
		for i := 0; i < 4; i++ {
			h ^= (ih >> (8 * i)) & 0xff
			h *= fnvPrime
		}
	}
	return h, nil
}

func hashFrozenDict(m *Map) (uint32, error) {
	h := uint32(1927868237)
	h *= uint32(2*m.Len() + 1)
	var err error
	m.Each(func(k, v Value) bool {
		var kh, vh uint32
		if kh, err = Hash(k); err != nil {
			return false
		}
		if vh, err = Hash(v); err != nil {
			return false
		}
		h ^= (kh ^ (kh << 16) ^ 89869747) * 3644798167
		h ^= (vh ^ (vh << 16) ^ 89869747) * 3644798167
		return true
	})
	if err != nil {
		return 0, err
	}
	return h*69069 + 907133923, nil
}
