// Package bmon provides the bmon module, a compact binary encoding of
// nil, booleans, numbers, strings, lists and dicts. Integers in the
// encoding are little-endian.
package bmon

import (
	"encoding/binary"
	"math"

	"github.com/kestrel-lang/kestrel/object"
)

const (
	tagNil    = 1
	tagTrue   = 2
	tagFalse  = 3
	tagNumber = 4 // IEEE 754 double
	tagString = 5 // u32 byte length, then bytes
	tagList   = 6 // u32 count, then items
	tagDict   = 7 // u32 count, then key/value pairs
)

const maxDepth = 512

// Dump appends the encoding of v to out. Instances and natives whose class
// defines __bmon__ are encoded as the value that method returns.
func Dump(rt object.Runtime, v object.Value, out []byte) ([]byte, error) {
	return dump(rt, v, out, 0)
}

func dump(rt object.Runtime, v object.Value, out []byte, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, object.ValueErrorf("Value is nested too deeply to serialize in BMON")
	}
	switch v.Type() {
	case object.NilType:
		return append(out, tagNil), nil
	case object.BoolType:
		if v.AsBool() {
			return append(out, tagTrue), nil
		}
		return append(out, tagFalse), nil
	case object.NumberType:
		out = append(out, tagNumber)
		return binary.LittleEndian.AppendUint64(out, math.Float64bits(v.AsNumber())), nil
	case object.StringType:
		s := v.AsString().String()
		if len(s) > math.MaxUint32 {
			return nil, object.ValueErrorf("string is too long to serialize in BMON (length=%d)", len(s))
		}
		out = append(out, tagString)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s)))
		return append(out, s...), nil
	}
	switch o := v.AsObj().(type) {
	case *object.List:
		return dumpItems(rt, o.Items, out, depth)
	case *object.FrozenList:
		return dumpItems(rt, o.Items, out, depth)
	case *object.Dict:
		return dumpMap(rt, &o.Map, out, depth)
	case *object.FrozenDict:
		return dumpMap(rt, &o.Map, out, depth)
	case *object.Instance, *object.Native:
		if _, ok := rt.ClassOf(v).Methods.GetString(rt.Heap().Intern("__bmon__")); ok {
			replacement, err := rt.CallMethod(v, "__bmon__")
			if err != nil {
				return nil, err
			}
			return dump(rt, replacement, out, depth+1)
		}
	}
	return nil, object.TypeErrorf("%s is not BMON serializable", object.TypeName(v))
}

func dumpItems(rt object.Runtime, items []object.Value, out []byte, depth int) ([]byte, error) {
	if len(items) > math.MaxUint32 {
		return nil, object.ValueErrorf("list is too long to serialize in BMON (length=%d)", len(items))
	}
	out = append(out, tagList)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(items)))
	var err error
	for _, item := range items {
		if out, err = dump(rt, item, out, depth+1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func dumpMap(rt object.Runtime, m *object.Map, out []byte, depth int) ([]byte, error) {
	out = append(out, tagDict)
	out = binary.LittleEndian.AppendUint32(out, uint32(m.Len()))
	var err error
	m.Each(func(k, v object.Value) bool {
		if out, err = dump(rt, k, out, depth+1); err != nil {
			return false
		}
		out, err = dump(rt, v, out, depth+1)
		return err == nil
	})
	return out, err
}

// decoder reads one encoded value at a time from data.
type decoder struct {
	h    *object.Heap
	data []byte
	pos  int
}

// Load decodes a single value that must span all of data. Callers outside
// a native function must hold h.Pause until the result is rooted.
func Load(h *object.Heap, data []byte) (object.Value, error) {
	d := &decoder{h: h, data: data}
	v, err := d.load(0)
	if err != nil {
		return object.Nil(), err
	}
	if d.pos < len(d.data) {
		return object.Nil(), object.ValueErrorf("Extra data when loading BMON (pos=%d, length=%d)", d.pos, len(d.data))
	}
	return v, nil
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.data) {
		return object.ValueErrorf("Unexpected EOF when loading BMON (i=%d len=%d limit=%d)", d.pos, n, len(d.data))
	}
	return nil
}

func (d *decoder) u32() (int, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return int(n), nil
}

func (d *decoder) load(depth int) (object.Value, error) {
	if depth > maxDepth {
		return object.Nil(), object.ValueErrorf("BMON data is nested too deeply")
	}
	if err := d.need(1); err != nil {
		return object.Nil(), err
	}
	tag := d.data[d.pos]
	d.pos++
	switch tag {
	case tagNil:
		return object.Nil(), nil
	case tagTrue:
		return object.True(), nil
	case tagFalse:
		return object.False(), nil
	case tagNumber:
		if err := d.need(8); err != nil {
			return object.Nil(), err
		}
		bits := binary.LittleEndian.Uint64(d.data[d.pos:])
		d.pos += 8
		return object.Number(math.Float64frombits(bits)), nil
	case tagString:
		n, err := d.u32()
		if err != nil {
			return object.Nil(), err
		}
		if err := d.need(n); err != nil {
			return object.Nil(), err
		}
		s := string(d.data[d.pos : d.pos+n])
		d.pos += n
		return d.h.Str(s), nil
	case tagList:
		n, err := d.u32()
		if err != nil {
			return object.Nil(), err
		}
		// Every item takes at least one byte.
		if err := d.need(n); err != nil {
			return object.Nil(), err
		}
		items := make([]object.Value, n)
		for i := range items {
			if items[i], err = d.load(depth + 1); err != nil {
				return object.Nil(), err
			}
		}
		return object.ObjValue(d.h.NewList(items)), nil
	case tagDict:
		n, err := d.u32()
		if err != nil {
			return object.Nil(), err
		}
		dict := d.h.NewDict()
		for i := 0; i < n; i++ {
			key, err := d.load(depth + 1)
			if err != nil {
				return object.Nil(), err
			}
			value, err := d.load(depth + 1)
			if err != nil {
				return object.Nil(), err
			}
			if _, err := dict.Map.Set(key, value); err != nil {
				return object.Nil(), err
			}
		}
		return object.ObjValue(dict), nil
	}
	return object.Nil(), object.ValueErrorf("Invalid BMON tag %d", tag)
}

var Dumps = object.NewCFunction("dumps", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	data, err := Dump(rt, args[0], nil)
	if err != nil {
		return object.Nil(), err
	}
	return object.ObjValue(rt.Heap().NewBuffer(data)), nil
})

// Loads accepts a buffer or a string of encoded bytes.
var Loads = object.NewCFunction("loads", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	switch {
	case args[0].IsBuffer():
		b, _ := object.As[*object.Buffer](args[0])
		return Load(rt.Heap(), b.Bytes)
	case args[0].IsString():
		return Load(rt.Heap(), []byte(args[0].AsString().String()))
	}
	return object.Nil(), object.TypeErrorf("bmon.loads expects a buffer but got %s", object.TypeName(args[0]))
})

// Module populates the bmon module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, Dumps, Loads)
	return nil
}
