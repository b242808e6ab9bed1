// Package cbor provides the cbor module. Values are encoded in canonical
// CBOR, so equal values always produce identical bytes.
package cbor

import (
	"fmt"
	"math"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

const maxDepth = 512

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: failed to create enc mode: %v", err))
	}
	encMode = em
}

// toCBOR converts v to Go data the encoder understands. Integral numbers
// become integers; dict keys must be nil, booleans, numbers or strings.
func toCBOR(v object.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, object.ValueErrorf("Value is nested too deeply to encode as CBOR")
	}
	switch v.Type() {
	case object.NilType:
		return nil, nil
	case object.BoolType:
		return v.AsBool(), nil
	case object.NumberType:
		f := v.AsNumber()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), nil
		}
		return f, nil
	case object.StringType:
		return v.AsString().String(), nil
	}
	switch o := v.AsObj().(type) {
	case *object.List:
		return itemsToCBOR(o.Items, depth)
	case *object.FrozenList:
		return itemsToCBOR(o.Items, depth)
	case *object.Dict:
		return mapToCBOR(&o.Map, depth)
	case *object.FrozenDict:
		return mapToCBOR(&o.Map, depth)
	case *object.Buffer:
		return append([]byte(nil), o.Bytes...), nil
	}
	return nil, object.TypeErrorf("%s is not CBOR serializable", object.TypeName(v))
}

func itemsToCBOR(items []object.Value, depth int) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		converted, err := toCBOR(item, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

func mapToCBOR(m *object.Map, depth int) (map[any]any, error) {
	out := make(map[any]any, m.Len())
	var err error
	m.Each(func(k, v object.Value) bool {
		if k.IsObj() {
			err = object.TypeErrorf("CBOR map keys must be scalars but got %s", object.TypeName(k))
			return false
		}
		var key, value any
		if key, err = toCBOR(k, depth+1); err != nil {
			return false
		}
		if value, err = toCBOR(v, depth+1); err != nil {
			return false
		}
		out[key] = value
		return true
	})
	return out, err
}

// fromCBOR converts decoded CBOR data to a value on h. Map keys are added
// in the order of their text form.
func fromCBOR(h *object.Heap, data any, depth int) (object.Value, error) {
	if depth > maxDepth {
		return object.Nil(), object.ValueErrorf("CBOR data is nested too deeply")
	}
	switch d := data.(type) {
	case uint64:
		return object.Number(float64(d)), nil
	case int64:
		return object.Number(float64(d)), nil
	case []any:
		items := make([]object.Value, len(d))
		for i, item := range d {
			v, err := fromCBOR(h, item, depth+1)
			if err != nil {
				return object.Nil(), err
			}
			items[i] = v
		}
		return object.ObjValue(h.NewList(items)), nil
	case map[any]any:
		keys := make([]any, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
		dict := h.NewDict()
		for _, k := range keys {
			key, err := fromCBOR(h, k, depth+1)
			if err != nil {
				return object.Nil(), err
			}
			value, err := fromCBOR(h, d[k], depth+1)
			if err != nil {
				return object.Nil(), err
			}
			if _, err := dict.Map.Set(key, value); err != nil {
				return object.Nil(), err
			}
		}
		return object.ObjValue(dict), nil
	case cbor.Tag:
		return object.Nil(), object.ValueErrorf("Unsupported CBOR tag %d", d.Number)
	case nil, bool, float64, string, []byte:
		return vm.FromGo(h, d)
	}
	return object.Nil(), object.ValueErrorf("Unsupported CBOR value of type %T", data)
}

// Marshal returns the canonical CBOR encoding of v.
func Marshal(v object.Value) ([]byte, error) {
	data, err := toCBOR(v, 0)
	if err != nil {
		return nil, err
	}
	out, err := encMode.Marshal(data)
	if err != nil {
		return nil, object.ValueErrorf("cbor.dumps: %s", err)
	}
	return out, nil
}

// Unmarshal decodes CBOR bytes to a value on h.
func Unmarshal(h *object.Heap, data []byte) (object.Value, error) {
	var decoded any
	if err := cbor.Unmarshal(data, &decoded); err != nil {
		return object.Nil(), object.ValueErrorf("cbor.loads: %s", err)
	}
	return fromCBOR(h, decoded, 0)
}

var Dumps = object.NewCFunction("dumps", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	data, err := Marshal(args[0])
	if err != nil {
		return object.Nil(), err
	}
	return object.ObjValue(rt.Heap().NewBuffer(data)), nil
})

var Loads = &object.CFunction{Name: "loads", Arity: 1, ArgTypes: []object.TypePattern{object.BufferArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		b, _ := object.As[*object.Buffer](args[0])
		return Unmarshal(rt.Heap(), b.Bytes)
	}}

// Module populates the cbor module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, Dumps, Loads)
	return nil
}
