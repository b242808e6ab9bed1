package vm

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/kestrel-lang/kestrel/object"
)

// FromGo converts a Go value to a script value allocated on h. It accepts
// nil, booleans, numeric types, strings, byte slices, object values and
// native functions, and slices and string-keyed maps of those. Callers
// should hold h.Pause while the result is unrooted.
func FromGo(h *object.Heap, v any) (object.Value, error) {
	switch v := v.(type) {
	case nil:
		return object.Nil(), nil
	case object.Value:
		return v, nil
	case *object.CFunction:
		return object.CFunctionValue(v), nil
	case object.NativeValue:
		return object.ObjValue(h.NewNative(v)), nil
	case bool:
		return object.Bool(v), nil
	case string:
		return h.Str(v), nil
	case []byte:
		return object.ObjValue(h.NewBuffer(append([]byte(nil), v...))), nil
	case float64:
		return object.Number(v), nil
	case int:
		return object.Number(float64(v)), nil
	case int64:
		return object.Number(float64(v)), nil
	case []any:
		items := make([]object.Value, len(v))
		for i, item := range v {
			converted, err := FromGo(h, item)
			if err != nil {
				return object.Nil(), err
			}
			items[i] = converted
		}
		return object.ObjValue(h.NewList(items)), nil
	case map[string]any:
		d := h.NewDict()
		for _, k := range sortedKeys(v) {
			converted, err := FromGo(h, v[k])
			if err != nil {
				return object.Nil(), err
			}
			d.Map.SetString(h.Intern(k), converted)
		}
		return object.ObjValue(d), nil
	}
	return fromReflect(h, reflect.ValueOf(v))
}

func fromReflect(h *object.Heap, rv reflect.Value) (object.Value, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return object.Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return object.Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return object.Number(rv.Float()), nil
	case reflect.String:
		return h.Str(rv.String()), nil
	case reflect.Bool:
		return object.Bool(rv.Bool()), nil
	case reflect.Slice, reflect.Array:
		items := make([]object.Value, rv.Len())
		for i := range items {
			converted, err := FromGo(h, rv.Index(i).Interface())
			if err != nil {
				return object.Nil(), err
			}
			items[i] = converted
		}
		return object.ObjValue(h.NewList(items)), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		d := h.NewDict()
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			converted, err := FromGo(h, rv.MapIndex(k).Interface())
			if err != nil {
				return object.Nil(), err
			}
			d.Map.SetString(h.Intern(k.String()), converted)
		}
		return object.ObjValue(d), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return object.Nil(), nil
		}
		return FromGo(h, rv.Elem().Interface())
	}
	return object.Nil(), fmt.Errorf("cannot convert %T to a value", rv.Interface())
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToGo converts a script value to plain Go data: nil, bool, float64,
// string, []byte, []any and map[string]any. Dict keys that are not strings
// are rendered as text. Functions, classes and instances cannot be
// converted.
func ToGo(v object.Value) (any, error) {
	return toGo(v, 0)
}

func toGo(v object.Value, depth int) (any, error) {
	if depth > maxReprDepth {
		return nil, object.ValueErrorf("Value is nested too deeply to convert")
	}
	switch v.Type() {
	case object.NilType:
		return nil, nil
	case object.BoolType:
		return v.AsBool(), nil
	case object.NumberType:
		return v.AsNumber(), nil
	case object.StringType:
		return v.AsString().String(), nil
	}
	switch o := v.AsObj().(type) {
	case *object.List:
		return itemsToGo(o.Items, depth)
	case *object.FrozenList:
		return itemsToGo(o.Items, depth)
	case *object.Dict:
		return mapToGo(&o.Map, depth)
	case *object.FrozenDict:
		return mapToGo(&o.Map, depth)
	case *object.Buffer:
		return append([]byte(nil), o.Bytes...), nil
	}
	return nil, object.TypeErrorf("Cannot convert %s to a Go value", object.TypeName(v))
}

func itemsToGo(items []object.Value, depth int) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		converted, err := toGo(item, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

func mapToGo(m *object.Map, depth int) (map[string]any, error) {
	out := make(map[string]any, m.Len())
	var err error
	m.Each(func(k, val object.Value) bool {
		key := describe(k)
		var converted any
		if converted, err = toGo(val, depth+1); err != nil {
			return false
		}
		out[key] = converted
		return true
	})
	return out, err
}
