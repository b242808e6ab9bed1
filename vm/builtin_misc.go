package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/kestrel-lang/kestrel/object"
)

func numberMethods() []*object.CFunction {
	return []*object.CFunction{
		{Name: "base", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				base := int(args[0].AsNumber())
				if base < 2 || base > 36 {
					return object.Nil(), object.ValueErrorf("Invalid base %d", base)
				}
				s := strconv.FormatInt(int64(recv.AsNumber()), base)
				return rt.Heap().Str(strings.ToUpper(s)), nil
			}},
	}
}

var boolInstantiate = object.NewCFunction("Bool", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	return object.Bool(args[0].IsTruthy()), nil
})

// ParseNumber converts v to a number. Strings are parsed as decimal, hex
// with an 0x prefix, or binary with an 0b prefix.
func ParseNumber(v object.Value) (float64, error) {
	switch v.Type() {
	case object.NumberType:
		return v.AsNumber(), nil
	case object.BoolType:
		if v.AsBool() {
			return 1, nil
		}
		return 0, nil
	case object.StringType:
		s := strings.TrimSpace(v.AsString().String())
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return float64(i), nil
		}
		return 0, object.ValueErrorf("Could not convert string to number: %s", strconv.Quote(s))
	}
	return 0, object.TypeErrorf("Cannot convert %s to a number", object.TypeName(v))
}

var numberInstantiate = object.NewCFunction("Number", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	f, err := ParseNumber(args[0])
	return object.Number(f), err
})

func bufferOf(v object.Value) *object.Buffer {
	b, _ := object.As[*object.Buffer](v)
	return b
}

// appendBytes appends a byte, a string, a buffer or an iterable of bytes
// to data.
func appendBytes(rt object.Runtime, data []byte, v object.Value) ([]byte, error) {
	switch {
	case v.IsNumber():
		return append(data, byte(v.AsNumber())), nil
	case v.IsString():
		return append(data, v.AsString().String()...), nil
	case v.IsBuffer():
		return append(data, bufferOf(v).Bytes...), nil
	}
	err := rt.Iterate(v, func(item object.Value) error {
		if !item.IsNumber() || item.AsNumber() < 0 || item.AsNumber() > math.MaxUint8 {
			return object.ValueErrorf("Expected a byte but got %s", describe(item))
		}
		data = append(data, byte(item.AsNumber()))
		return nil
	})
	return data, err
}

func bufferMethods() []*object.CFunction {
	return []*object.CFunction{
		object.NewCFunction("__len__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(len(bufferOf(recv).Bytes))), nil
		}),
		object.NewCFunction("__iter__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			data := bufferOf(recv).Bytes
			values := make([]object.Value, len(data))
			for i, c := range data {
				values[i] = object.Number(float64(c))
			}
			return newIterator(rt.Heap(), &valuesIterator{values: values}), nil
		}),
		object.NewCFunction("__getitem__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			b := bufferOf(recv)
			i, err := index(args[0], len(b.Bytes))
			if err != nil {
				return object.Nil(), err
			}
			return object.Number(float64(b.Bytes[i])), nil
		}),
		{Name: "__setitem__", Arity: 2, ArgTypes: []object.TypePattern{object.AnyArg, object.NumberArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				b := bufferOf(recv)
				i, err := index(args[0], len(b.Bytes))
				if err != nil {
					return object.Nil(), err
				}
				b.Bytes[i] = byte(args[1].AsNumber())
				return args[1], nil
			}},
		object.NewCFunction("__slice__", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			b := bufferOf(recv)
			start, end, err := sliceBounds(args[0], args[1], len(b.Bytes))
			if err != nil {
				return object.Nil(), err
			}
			return object.ObjValue(rt.Heap().NewBuffer(append([]byte(nil), b.Bytes[start:end]...))), nil
		}),
		object.NewCFunction("append", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			b := bufferOf(recv)
			before := len(b.Bytes)
			data, err := appendBytes(rt, b.Bytes, args[0])
			if err != nil {
				return object.Nil(), err
			}
			b.Bytes = data
			rt.Heap().Account(b, len(data)-before)
			return recv, nil
		}),
		{Name: "decode", Arity: 0, MaxArity: 1, ArgTypes: []object.TypePattern{object.StringArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				enc, err := lookupEncoding(optionalString(args, 0, "utf-8"))
				if err != nil {
					return object.Nil(), err
				}
				data := bufferOf(recv).Bytes
				if enc != nil {
					if data, err = enc.NewDecoder().Bytes(data); err != nil {
						return object.Nil(), object.ValueErrorf("Cannot decode buffer: %s", err)
					}
				}
				return rt.Heap().Str(string(data)), nil
			}},
		object.NewCFunction("clone", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.ObjValue(rt.Heap().NewBuffer(append([]byte(nil), bufferOf(recv).Bytes...))), nil
		}),
		object.NewCFunction("clear", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			b := bufferOf(recv)
			b.Bytes = b.Bytes[:0]
			return object.Nil(), nil
		}),
	}
}

var bufferInstantiate = &object.CFunction{
	Name: "Buffer", Arity: 0, MaxArity: 1,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		var data []byte
		if len(args) > 0 {
			if args[0].IsNumber() {
				n := int(args[0].AsNumber())
				if n < 0 {
					return object.Nil(), object.ValueErrorf("Negative buffer size %d", n)
				}
				data = make([]byte, n)
			} else {
				var err error
				if data, err = appendBytes(rt, nil, args[0]); err != nil {
					return object.Nil(), err
				}
			}
		}
		return object.ObjValue(rt.Heap().NewBuffer(data)), nil
	},
}
