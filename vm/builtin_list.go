package vm

import (
	"math"
	"sort"

	"github.com/kestrel-lang/kestrel/object"
)

// index converts v to a position in a sequence of length n. Negative
// indices count from the end.
func index(v object.Value, n int) (int, error) {
	if !v.IsNumber() {
		return 0, object.TypeErrorf("Indices must be numbers but got %s", object.TypeName(v))
	}
	f := v.AsNumber()
	if f != math.Trunc(f) {
		return 0, object.ValueErrorf("Index %s is not an integer", object.FormatNumber(f))
	}
	i := int(f)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, object.ValueErrorf("Index out of bounds")
	}
	return i, nil
}

// sliceBounds converts optional slice bounds to [start, end) within a
// sequence of length n. Out of range bounds are clamped.
func sliceBounds(startValue, endValue object.Value, n int) (int, int, error) {
	bound := func(v object.Value, missing int) (int, error) {
		if v.IsNil() {
			return missing, nil
		}
		if !v.IsNumber() {
			return 0, object.TypeErrorf("Slice indices must be numbers but got %s", object.TypeName(v))
		}
		i := int(v.AsNumber())
		if i < 0 {
			i += n
		}
		return max(0, min(i, n)), nil
	}
	start, err := bound(startValue, 0)
	if err != nil {
		return 0, 0, err
	}
	end, err := bound(endValue, n)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func repeatCount(v object.Value) (int, error) {
	if !v.IsNumber() || v.AsNumber() < 0 {
		return 0, object.TypeErrorf("Can only repeat by a non-negative number but got %s", describe(v))
	}
	return int(v.AsNumber()), nil
}

func repeat(items []object.Value, n int) []object.Value {
	out := make([]object.Value, 0, len(items)*n)
	for i := 0; i < n; i++ {
		out = append(out, items...)
	}
	return out
}

func containsValue(rt object.Runtime, items []object.Value, v object.Value) (bool, error) {
	for _, item := range items {
		eq, err := rt.Equal(item, v)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

func listOf(v object.Value) *object.List {
	l, _ := object.As[*object.List](v)
	return l
}

// grow charges the heap for n more items appended to l.
func grow(rt object.Runtime, l *object.List, n int) {
	if n > 0 {
		rt.Heap().Account(l, 32*n)
	}
}

func newList(rt object.Runtime, items []object.Value) object.Value {
	return object.ObjValue(rt.Heap().NewList(items))
}

func listMethods() []*object.CFunction {
	return []*object.CFunction{
		object.NewCFunction("__len__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(len(listOf(recv).Items))), nil
		}),
		object.NewCFunction("__iter__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return newIterator(rt.Heap(), &listIterator{list: listOf(recv)}), nil
		}),
		object.NewCFunction("__getitem__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			l := listOf(recv)
			i, err := index(args[0], len(l.Items))
			if err != nil {
				return object.Nil(), err
			}
			return l.Items[i], nil
		}),
		object.NewCFunction("__setitem__", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			l := listOf(recv)
			i, err := index(args[0], len(l.Items))
			if err != nil {
				return object.Nil(), err
			}
			l.Items[i] = args[1]
			return args[1], nil
		}),
		object.NewCFunction("__delitem__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			l := listOf(recv)
			i, err := index(args[0], len(l.Items))
			if err != nil {
				return object.Nil(), err
			}
			removed := l.Items[i]
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return removed, nil
		}),
		object.NewCFunction("__slice__", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			l := listOf(recv)
			start, end, err := sliceBounds(args[0], args[1], len(l.Items))
			if err != nil {
				return object.Nil(), err
			}
			return newList(rt, append([]object.Value(nil), l.Items[start:end]...)), nil
		}),
		object.NewCFunction("__contains__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			found, err := containsValue(rt, listOf(recv).Items, args[0])
			return object.Bool(found), err
		}),
		{Name: "__add__", Arity: 1, ArgTypes: []object.TypePattern{object.ListArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				a, b := listOf(recv).Items, listOf(args[0]).Items
				items := make([]object.Value, 0, len(a)+len(b))
				return newList(rt, append(append(items, a...), b...)), nil
			}},
		object.NewCFunction("__mul__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			n, err := repeatCount(args[0])
			if err != nil {
				return object.Nil(), err
			}
			return newList(rt, repeat(listOf(recv).Items, n)), nil
		}),
		object.NewCFunction("append", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			l := listOf(recv)
			l.Items = append(l.Items, args[0])
			grow(rt, l, 1)
			return object.Nil(), nil
		}),
		object.NewCFunction("extend", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			l := listOf(recv)
			before := len(l.Items)
			err := rt.Iterate(args[0], func(item object.Value) error {
				l.Items = append(l.Items, item)
				return nil
			})
			grow(rt, l, len(l.Items)-before)
			return object.Nil(), err
		}),
		{Name: "pop", Arity: 0, MaxArity: 1, Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			l := listOf(recv)
			if len(l.Items) == 0 {
				return object.Nil(), object.ValueErrorf("Pop from empty list")
			}
			i := len(l.Items) - 1
			if len(args) > 0 {
				var err error
				if i, err = index(args[0], len(l.Items)); err != nil {
					return object.Nil(), err
				}
			}
			removed := l.Items[i]
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return removed, nil
		}},
		{Name: "insert", Arity: 2, ArgTypes: []object.TypePattern{object.NumberArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				l := listOf(recv)
				i := int(args[0].AsNumber())
				if i < 0 {
					i += len(l.Items)
				}
				i = max(0, min(i, len(l.Items)))
				l.Items = append(l.Items, object.Nil())
				copy(l.Items[i+1:], l.Items[i:])
				l.Items[i] = args[1]
				grow(rt, l, 1)
				return object.Nil(), nil
			}},
		object.NewCFunction("clear", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			listOf(recv).Items = nil
			return object.Nil(), nil
		}),
		object.NewCFunction("reverse", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			items := listOf(recv).Items
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
			return object.Nil(), nil
		}),
		{Name: "sort", Arity: 0, MaxArity: 1, Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			var key object.Value
			if len(args) > 0 {
				key = args[0]
			}
			return object.Nil(), SortValues(rt, listOf(recv).Items, key)
		}},
		{Name: "map", Arity: 1, ArgTypes: []object.TypePattern{object.CallableArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				items := listOf(recv).Items
				out := make([]object.Value, 0, len(items))
				for i := 0; i < len(items); i++ {
					v, err := rt.Call(args[0], items[i])
					if err != nil {
						return object.Nil(), err
					}
					out = append(out, v)
				}
				return newList(rt, out), nil
			}},
		{Name: "filter", Arity: 1, ArgTypes: []object.TypePattern{object.CallableArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				items := listOf(recv).Items
				var out []object.Value
				for i := 0; i < len(items); i++ {
					keep, err := rt.Call(args[0], items[i])
					if err != nil {
						return object.Nil(), err
					}
					if keep.IsTruthy() {
						out = append(out, items[i])
					}
				}
				return newList(rt, out), nil
			}},
		object.NewCFunction("index", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			for i, item := range listOf(recv).Items {
				eq, err := rt.Equal(item, args[0])
				if err != nil {
					return object.Nil(), err
				}
				if eq {
					return object.Number(float64(i)), nil
				}
			}
			return object.Nil(), object.ValueErrorf("Item not found in list")
		}),
		object.NewCFunction("flatten", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			var out []object.Value
			for _, item := range listOf(recv).Items {
				if err := rt.Iterate(item, func(v object.Value) error {
					out = append(out, v)
					return nil
				}); err != nil {
					return object.Nil(), err
				}
			}
			return newList(rt, out), nil
		}),
		object.NewCFunction("freeze", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			fl, err := rt.Heap().FreezeList(listOf(recv).Items)
			if err != nil {
				return object.Nil(), err
			}
			return object.ObjValue(fl), nil
		}),
	}
}

// SortValues sorts items in place by rt.LessThan, comparing key(item) when
// key is callable. The sort is stable.
func SortValues(rt object.Runtime, items []object.Value, key object.Value) error {
	keys := items
	if !key.IsNil() {
		keys = make([]object.Value, len(items))
		for i, item := range items {
			k, err := rt.Call(key, item)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	var err error
	sort.SliceStable(order, func(i, j int) bool {
		if err != nil {
			return false
		}
		var less bool
		less, err = rt.LessThan(keys[order[i]], keys[order[j]])
		return less
	})
	if err != nil {
		return err
	}
	sorted := make([]object.Value, len(items))
	for i, o := range order {
		sorted[i] = items[o]
	}
	copy(items, sorted)
	return nil
}

func frozenListOf(v object.Value) *object.FrozenList {
	fl, _ := object.As[*object.FrozenList](v)
	return fl
}

func frozenListMethods() []*object.CFunction {
	return []*object.CFunction{
		object.NewCFunction("__len__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(len(frozenListOf(recv).Items))), nil
		}),
		object.NewCFunction("__iter__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return newIterator(rt.Heap(), &valuesIterator{values: frozenListOf(recv).Items}), nil
		}),
		object.NewCFunction("__getitem__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			items := frozenListOf(recv).Items
			i, err := index(args[0], len(items))
			if err != nil {
				return object.Nil(), err
			}
			return items[i], nil
		}),
		object.NewCFunction("__slice__", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			items := frozenListOf(recv).Items
			start, end, err := sliceBounds(args[0], args[1], len(items))
			if err != nil {
				return object.Nil(), err
			}
			return freezeItems(rt, items[start:end])
		}),
		object.NewCFunction("__contains__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			found, err := containsValue(rt, frozenListOf(recv).Items, args[0])
			return object.Bool(found), err
		}),
		object.NewCFunction("__add__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			other, ok := object.As[*object.FrozenList](args[0])
			if !ok {
				return object.Nil(), object.TypeErrorf("Can only concatenate FrozenList to FrozenList but got %s",
					object.TypeName(args[0]))
			}
			a := frozenListOf(recv).Items
			items := make([]object.Value, 0, len(a)+len(other.Items))
			return freezeItems(rt, append(append(items, a...), other.Items...))
		}),
		object.NewCFunction("__mul__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			n, err := repeatCount(args[0])
			if err != nil {
				return object.Nil(), err
			}
			return freezeItems(rt, repeat(frozenListOf(recv).Items, n))
		}),
	}
}

func freezeItems(rt object.Runtime, items []object.Value) (object.Value, error) {
	fl, err := rt.Heap().FreezeList(items)
	if err != nil {
		return object.Nil(), err
	}
	return object.ObjValue(fl), nil
}

var listInstantiate = &object.CFunction{
	Name: "List", Arity: 0, MaxArity: 1,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		var items []object.Value
		if len(args) > 0 {
			if err := rt.Iterate(args[0], func(item object.Value) error {
				items = append(items, item)
				return nil
			}); err != nil {
				return object.Nil(), err
			}
		}
		return newList(rt, items), nil
	},
}

var frozenListInstantiate = &object.CFunction{
	Name: "FrozenList", Arity: 0, MaxArity: 1,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		var items []object.Value
		if len(args) > 0 {
			if err := rt.Iterate(args[0], func(item object.Value) error {
				items = append(items, item)
				return nil
			}); err != nil {
				return object.Nil(), err
			}
		}
		return freezeItems(rt, items)
	},
}
