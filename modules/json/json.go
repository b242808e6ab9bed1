// Package json provides the json module.
package json

import (
	"bytes"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

const maxDepth = 512

// encoder writes values as compact JSON, keeping dict insertion order.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) encode(v object.Value, depth int) error {
	if depth > maxDepth {
		return object.ValueErrorf("Value is nested too deeply to encode as JSON")
	}
	switch v.Type() {
	case object.NilType:
		e.buf.WriteString("null")
		return nil
	case object.BoolType:
		if v.AsBool() {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
		return nil
	case object.NumberType:
		f := v.AsNumber()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return object.ValueErrorf("%s is not JSON serializable", object.FormatNumber(f))
		}
		e.buf.WriteString(object.FormatNumber(f))
		return nil
	case object.StringType:
		return e.str(v.AsString().String())
	}
	switch o := v.AsObj().(type) {
	case *object.List:
		return e.array(o.Items, depth)
	case *object.FrozenList:
		return e.array(o.Items, depth)
	case *object.Dict:
		return e.object(&o.Map, depth)
	case *object.FrozenDict:
		return e.object(&o.Map, depth)
	}
	return object.TypeErrorf("%s is not JSON serializable", object.TypeName(v))
}

func (e *encoder) str(s string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return object.ValueErrorf("json.dumps: %s", err)
	}
	e.buf.Write(data)
	return nil
}

func (e *encoder) array(items []object.Value, depth int) error {
	e.buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(item, depth+1); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) object(m *object.Map, depth int) error {
	e.buf.WriteByte('{')
	first := true
	var err error
	m.Each(func(k, v object.Value) bool {
		if !k.IsString() {
			err = object.TypeErrorf("JSON object keys must be strings but got %s", object.TypeName(k))
			return false
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		if err = e.str(k.AsString().String()); err != nil {
			return false
		}
		e.buf.WriteByte(':')
		err = e.encode(v, depth+1)
		return err == nil
	})
	if err != nil {
		return err
	}
	e.buf.WriteByte('}')
	return nil
}

// Encode returns the JSON text of v. A positive indent pretty-prints with
// that many spaces per level.
func Encode(v object.Value, indent int) ([]byte, error) {
	var e encoder
	if err := e.encode(v, 0); err != nil {
		return nil, err
	}
	if indent <= 0 {
		return e.buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, e.buf.Bytes(), "", strings.Repeat(" ", indent)); err != nil {
		return nil, object.ValueErrorf("json.dumps: %s", err)
	}
	return out.Bytes(), nil
}

var Dumps = &object.CFunction{Name: "dumps", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.AnyArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		indent := 0
		if len(args) > 1 {
			indent = int(args[1].AsNumber())
		}
		data, err := Encode(args[0], indent)
		if err != nil {
			return object.Nil(), err
		}
		return rt.Heap().Str(string(data)), nil
	}}

// Loads parses JSON text from a string or buffer. Object keys come back in
// sorted order.
var Loads = &object.CFunction{Name: "loads", Arity: 1,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		var data []byte
		switch {
		case args[0].IsString():
			data = []byte(args[0].AsString().String())
		case args[0].IsBuffer():
			b, _ := object.As[*object.Buffer](args[0])
			data = b.Bytes
		default:
			return object.Nil(), object.TypeErrorf("json.loads expects a string or buffer but got %s", object.TypeName(args[0]))
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return object.Nil(), object.ValueErrorf("json.loads: %s", err)
		}
		return vm.FromGo(rt.Heap(), decoded)
	}}

// Module populates the json module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, Dumps, Loads)
	return nil
}
