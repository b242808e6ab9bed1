// Package yaml provides the yaml module.
package yaml

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

const maxDepth = 512

// toYAML converts v for the encoder. Dicts become MapSlices so their
// insertion order is kept.
func toYAML(v object.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, object.ValueErrorf("Value is nested too deeply to encode as YAML")
	}
	switch v.Type() {
	case object.NilType:
		return nil, nil
	case object.BoolType:
		return v.AsBool(), nil
	case object.NumberType:
		f := v.AsNumber()
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case object.StringType:
		return v.AsString().String(), nil
	}
	var items []object.Value
	var m *object.Map
	switch o := v.AsObj().(type) {
	case *object.List:
		items = o.Items
	case *object.FrozenList:
		items = o.Items
	case *object.Dict:
		m = &o.Map
	case *object.FrozenDict:
		m = &o.Map
	default:
		return nil, object.TypeErrorf("%s is not YAML serializable", object.TypeName(v))
	}
	if m == nil {
		out := make([]any, len(items))
		for i, item := range items {
			converted, err := toYAML(item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	}
	out := make(yaml.MapSlice, 0, m.Len())
	var err error
	m.Each(func(k, val object.Value) bool {
		var key, value any
		if key, err = toYAML(k, depth+1); err != nil {
			return false
		}
		if value, err = toYAML(val, depth+1); err != nil {
			return false
		}
		out = append(out, yaml.MapItem{Key: key, Value: value})
		return true
	})
	return out, err
}

func fromYAML(h *object.Heap, data any, depth int) (object.Value, error) {
	if depth > maxDepth {
		return object.Nil(), object.ValueErrorf("YAML data is nested too deeply")
	}
	switch d := data.(type) {
	case uint64:
		return object.Number(float64(d)), nil
	case []any:
		items := make([]object.Value, len(d))
		for i, item := range d {
			v, err := fromYAML(h, item, depth+1)
			if err != nil {
				return object.Nil(), err
			}
			items[i] = v
		}
		return object.ObjValue(h.NewList(items)), nil
	case yaml.MapSlice:
		return fromPairs(h, d, depth)
	case map[any]any:
		// Nested mappings under a top-level sequence arrive unordered.
		pairs := make(yaml.MapSlice, 0, len(d))
		for k, v := range d {
			pairs = append(pairs, yaml.MapItem{Key: k, Value: v})
		}
		sort.Slice(pairs, func(i, j int) bool { return fmt.Sprint(pairs[i].Key) < fmt.Sprint(pairs[j].Key) })
		return fromPairs(h, pairs, depth)
	case nil, bool, int, int64, float64, string:
		return vm.FromGo(h, d)
	}
	return object.Nil(), object.ValueErrorf("Unsupported YAML value of type %T", data)
}

func fromPairs(h *object.Heap, pairs yaml.MapSlice, depth int) (object.Value, error) {
	dict := h.NewDict()
	for _, item := range pairs {
		key, err := fromYAML(h, item.Key, depth+1)
		if err != nil {
			return object.Nil(), err
		}
		value, err := fromYAML(h, item.Value, depth+1)
		if err != nil {
			return object.Nil(), err
		}
		if _, err := dict.Map.Set(key, value); err != nil {
			return object.Nil(), err
		}
	}
	return object.ObjValue(dict), nil
}

// Marshal returns the YAML text of v.
func Marshal(v object.Value) ([]byte, error) {
	data, err := toYAML(v, 0)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return nil, object.ValueErrorf("yaml.dumps: %s", err)
	}
	return out, nil
}

// Unmarshal parses YAML text to a value on h. Mappings keep their order
// at the top level and below other mappings.
func Unmarshal(h *object.Heap, text []byte) (object.Value, error) {
	var decoded any
	if err := yaml.Unmarshal(text, &decoded); err != nil {
		return object.Nil(), object.ValueErrorf("yaml.loads: %s", err)
	}
	if _, ok := decoded.(map[any]any); ok {
		var ordered yaml.MapSlice
		if err := yaml.Unmarshal(text, &ordered); err != nil {
			return object.Nil(), object.ValueErrorf("yaml.loads: %s", err)
		}
		decoded = ordered
	}
	return fromYAML(h, decoded, 0)
}

var Dumps = object.NewCFunction("dumps", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	data, err := Marshal(args[0])
	if err != nil {
		return object.Nil(), err
	}
	return rt.Heap().Str(string(data)), nil
})

var Loads = &object.CFunction{Name: "loads", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return Unmarshal(rt.Heap(), []byte(args[0].AsString().String()))
	}}

// Module populates the yaml module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, Dumps, Loads)
	return nil
}
