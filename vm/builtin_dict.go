package vm

import (
	"github.com/kestrel-lang/kestrel/object"
)

func dictOf(v object.Value) *object.Dict {
	d, _ := object.As[*object.Dict](v)
	return d
}

// mapOf returns the entries of a dict or frozen dict.
func mapOf(v object.Value) *object.Map {
	switch o := v.AsObj().(type) {
	case *object.Dict:
		return &o.Map
	case *object.FrozenDict:
		return &o.Map
	}
	return nil
}

func mapGet(m *object.Map, key object.Value) (object.Value, bool, error) {
	if _, err := object.Hash(key); err != nil {
		return object.Nil(), false, err
	}
	v, ok := m.Get(key)
	return v, ok, nil
}

// readMethods are shared by dicts and frozen dicts.
func readMethods() []*object.CFunction {
	return []*object.CFunction{
		object.NewCFunction("__len__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(mapOf(recv).Len())), nil
		}),
		object.NewCFunction("__iter__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return newIterator(rt.Heap(), &valuesIterator{values: mapOf(recv).Keys()}), nil
		}),
		object.NewCFunction("__getitem__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			v, ok, err := mapGet(mapOf(recv), args[0])
			if err != nil {
				return object.Nil(), err
			}
			if !ok {
				return object.Nil(), object.ValueErrorf("Key not found in dict")
			}
			return v, nil
		}),
		object.NewCFunction("__contains__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			_, ok, err := mapGet(mapOf(recv), args[0])
			return object.Bool(ok), err
		}),
		{Name: "get", Arity: 1, MaxArity: 2, Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			v, ok, err := mapGet(mapOf(recv), args[0])
			if err != nil || ok {
				return v, err
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return object.Nil(), nil
		}},
		object.NewCFunction("getOrNil", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			v, _, err := mapGet(mapOf(recv), args[0])
			return v, err
		}),
		{Name: "rget", Arity: 1, MaxArity: 2, Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			var found object.Value
			var ok bool
			var err error
			mapOf(recv).Each(func(k, v object.Value) bool {
				var eq bool
				if eq, err = rt.Equal(v, args[0]); err != nil || eq {
					found, ok = k, eq
					return false
				}
				return true
			})
			switch {
			case err != nil:
				return object.Nil(), err
			case ok:
				return found, nil
			case len(args) > 1:
				return args[1], nil
			}
			return object.Nil(), object.ValueErrorf("No entry with given value found in Dict")
		}},
		object.NewCFunction("keys", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return newList(rt, mapOf(recv).Keys()), nil
		}),
		object.NewCFunction("values", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			m := mapOf(recv)
			values := make([]object.Value, 0, m.Len())
			m.Each(func(_, v object.Value) bool {
				values = append(values, v)
				return true
			})
			return newList(rt, values), nil
		}),
		object.NewCFunction("items", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			m := mapOf(recv)
			items := make([]object.Value, 0, m.Len())
			m.Each(func(k, v object.Value) bool {
				items = append(items, newList(rt, []object.Value{k, v}))
				return true
			})
			return newList(rt, items), nil
		}),
	}
}

func dictMethods() []*object.CFunction {
	return append(readMethods(),
		object.NewCFunction("__setitem__", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			d := dictOf(recv)
			added, err := d.Map.Set(args[0], args[1])
			if err != nil {
				return object.Nil(), err
			}
			if added {
				rt.Heap().Account(d, 48)
			}
			return args[1], nil
		}),
		object.NewCFunction("__delitem__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			d := dictOf(recv)
			v, ok, err := mapGet(&d.Map, args[0])
			if err != nil {
				return object.Nil(), err
			}
			if !ok {
				return object.Nil(), object.ValueErrorf("Key not found in dict")
			}
			d.Map.Delete(args[0])
			return v, nil
		}),
		object.NewCFunction("delete", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			if _, err := object.Hash(args[0]); err != nil {
				return object.Nil(), err
			}
			return object.Bool(dictOf(recv).Map.Delete(args[0])), nil
		}),
		object.NewCFunction("clear", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			dictOf(recv).Map.Clear()
			return object.Nil(), nil
		}),
		object.NewCFunction("freeze", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			fd, err := rt.Heap().FreezeDict(&dictOf(recv).Map)
			if err != nil {
				return object.Nil(), err
			}
			return object.ObjValue(fd), nil
		}),
	)
}

func frozenDictMethods() []*object.CFunction {
	return append(readMethods(),
		object.NewCFunction("__add__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			other, ok := object.As[*object.FrozenDict](args[0])
			if !ok {
				return object.Nil(), object.TypeErrorf("Can only merge FrozenDict with FrozenDict but got %s",
					object.TypeName(args[0]))
			}
			merged := object.NewMap()
			merged.AddAll(mapOf(recv))
			merged.AddAll(&other.Map)
			fd, err := rt.Heap().FreezeDict(merged)
			if err != nil {
				return object.Nil(), err
			}
			return object.ObjValue(fd), nil
		}),
	)
}

// addPairs adds each [key, value] pair yielded by iterating pairs to m.
func addPairs(rt object.Runtime, m *object.Map, pairs object.Value) error {
	return rt.Iterate(pairs, func(pair object.Value) error {
		var items []object.Value
		switch o := pair.AsObj().(type) {
		case *object.List:
			items = o.Items
		case *object.FrozenList:
			items = o.Items
		}
		if len(items) != 2 {
			return object.ValueErrorf("Expected a pair but got %s", describe(pair))
		}
		_, err := m.Set(items[0], items[1])
		return err
	})
}

var dictFromPairs = object.NewCFunction("fromPairs", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	d := rt.Heap().NewDict()
	if err := addPairs(rt, &d.Map, args[0]); err != nil {
		return object.Nil(), err
	}
	rt.Heap().Account(d, 48*d.Map.Len())
	return object.ObjValue(d), nil
})

// fillDict copies a dict or frozen dict into m, or adds the pairs of any
// other iterable.
func fillDict(rt object.Runtime, m *object.Map, src object.Value) error {
	if other := mapOf(src); other != nil {
		m.AddAll(other)
		return nil
	}
	return addPairs(rt, m, src)
}

var dictInstantiate = &object.CFunction{
	Name: "Dict", Arity: 0, MaxArity: 1,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		d := rt.Heap().NewDict()
		if len(args) > 0 {
			if err := fillDict(rt, &d.Map, args[0]); err != nil {
				return object.Nil(), err
			}
			rt.Heap().Account(d, 48*d.Map.Len())
		}
		return object.ObjValue(d), nil
	},
}

var frozenDictInstantiate = &object.CFunction{
	Name: "FrozenDict", Arity: 0, MaxArity: 1,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		m := object.NewMap()
		if len(args) > 0 {
			if err := fillDict(rt, m, args[0]); err != nil {
				return object.Nil(), err
			}
		}
		fd, err := rt.Heap().FreezeDict(m)
		if err != nil {
			return object.Nil(), err
		}
		return object.ObjValue(fd), nil
	},
}
