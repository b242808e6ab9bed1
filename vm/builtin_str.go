package vm

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/language"

	"github.com/kestrel-lang/kestrel/object"
)

const defaultStripSet = " \t\r\n"

// encodingAliases are accepted in addition to IANA names.
var encodingAliases = map[string]encoding.Encoding{
	"latin-1": charmap.ISO8859_1,
	"cp1252":  charmap.Windows1252,
}

// lookupEncoding returns the named text encoding, or nil for UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return nil, nil
	}
	if enc, ok := encodingAliases[strings.ToLower(name)]; ok {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, object.ValueErrorf("Unknown encoding '%s'", name)
	}
	return enc, nil
}

func strOf(v object.Value) string {
	return v.AsString().String()
}

func optionalString(args []object.Value, i int, fallback string) string {
	if i < len(args) {
		return strOf(args[i])
	}
	return fallback
}

func stringMethods() []*object.CFunction {
	transform := func(name string, fn func(s string, args []object.Value) string, extra int, types ...object.TypePattern) *object.CFunction {
		return &object.CFunction{
			Name: name, Arity: 0, MaxArity: extra, ArgTypes: types,
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				return rt.Heap().Str(fn(strOf(recv), args)), nil
			},
		}
	}
	return []*object.CFunction{
		object.NewCFunction("__len__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(recv.AsString().Len())), nil
		}),
		object.NewCFunction("getByteLength", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(recv.AsString().ByteLen())), nil
		}),
		object.NewCFunction("__iter__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return newIterator(rt.Heap(), &stringIterator{s: recv.AsString()}), nil
		}),
		object.NewCFunction("__getitem__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			s := recv.AsString()
			i, err := index(args[0], s.Len())
			if err != nil {
				return object.Nil(), err
			}
			return rt.Heap().Str(s.Substring(i, i+1)), nil
		}),
		object.NewCFunction("__slice__", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			s := recv.AsString()
			start, end, err := sliceBounds(args[0], args[1], s.Len())
			if err != nil {
				return object.Nil(), err
			}
			return rt.Heap().Str(s.Substring(start, end)), nil
		}),
		{Name: "__contains__", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				return object.Bool(strings.Contains(strOf(recv), strOf(args[0]))), nil
			}},
		object.NewCFunction("__mul__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			n, err := repeatCount(args[0])
			if err != nil {
				return object.Nil(), err
			}
			return rt.Heap().Str(strings.Repeat(strOf(recv), n)), nil
		}),
		object.NewCFunction("__mod__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			var items []object.Value
			switch o := args[0].AsObj().(type) {
			case *object.List:
				items = o.Items
			case *object.FrozenList:
				items = o.Items
			default:
				items = args[:1]
			}
			s, err := formatString(rt, strOf(recv), items)
			if err != nil {
				return object.Nil(), err
			}
			return rt.Heap().Str(s), nil
		}),
		transform("strip", func(s string, args []object.Value) string {
			return strings.Trim(s, optionalString(args, 0, defaultStripSet))
		}, 1, object.StringArg),
		transform("lstrip", func(s string, args []object.Value) string {
			return strings.TrimLeft(s, optionalString(args, 0, defaultStripSet))
		}, 1, object.StringArg),
		transform("rstrip", func(s string, args []object.Value) string {
			return strings.TrimRight(s, optionalString(args, 0, defaultStripSet))
		}, 1, object.StringArg),
		transform("upper", func(s string, _ []object.Value) string { return cases.Upper(language.Und).String(s) }, 0),
		transform("lower", func(s string, _ []object.Value) string { return cases.Lower(language.Und).String(s) }, 0),
		transform("title", func(s string, _ []object.Value) string { return cases.Title(language.Und).String(s) }, 0),
		{Name: "replace", Arity: 2, ArgTypes: []object.TypePattern{object.StringArg, object.StringArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				return rt.Heap().Str(strings.ReplaceAll(strOf(recv), strOf(args[0]), strOf(args[1]))), nil
			}},
		object.NewCFunction("join", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			var parts []string
			err := rt.Iterate(args[0], func(item object.Value) error {
				if !item.IsString() {
					return object.TypeErrorf("String.join() requires a list of strings, but found %s in the list",
						object.TypeName(item))
				}
				parts = append(parts, strOf(item))
				return nil
			})
			if err != nil {
				return object.Nil(), err
			}
			return rt.Heap().Str(strings.Join(parts, strOf(recv))), nil
		}),
		{Name: "split", Arity: 0, MaxArity: 1, ArgTypes: []object.TypePattern{object.StringArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				var parts []string
				if len(args) == 0 {
					parts = strings.Fields(strOf(recv))
				} else {
					if strOf(args[0]) == "" {
						return object.Nil(), object.ValueErrorf("Empty separator")
					}
					parts = strings.Split(strOf(recv), strOf(args[0]))
				}
				items := make([]object.Value, len(parts))
				for i, p := range parts {
					items[i] = rt.Heap().Str(p)
				}
				return newList(rt, items), nil
			}},
		{Name: "startsWith", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				return object.Bool(strings.HasPrefix(strOf(recv), strOf(args[0]))), nil
			}},
		{Name: "endsWith", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				return object.Bool(strings.HasSuffix(strOf(recv), strOf(args[0]))), nil
			}},
		{Name: "find", Arity: 1, MaxArity: 2, ArgTypes: []object.TypePattern{object.StringArg, object.NumberArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				s := recv.AsString()
				start := 0
				if len(args) > 1 {
					start = max(0, min(int(args[1].AsNumber()), s.Len()))
				}
				rest := s.Substring(start, s.Len())
				at := strings.Index(rest, strOf(args[0]))
				if at < 0 {
					return object.Number(-1), nil
				}
				return object.Number(float64(start + utf8.RuneCountInString(rest[:at]))), nil
			}},
		padFunction("padStart", true),
		padFunction("padEnd", false),
		{Name: "encode", Arity: 0, MaxArity: 1, ArgTypes: []object.TypePattern{object.StringArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				enc, err := lookupEncoding(optionalString(args, 0, "utf-8"))
				if err != nil {
					return object.Nil(), err
				}
				data := []byte(strOf(recv))
				if enc != nil {
					if data, err = enc.NewEncoder().Bytes(data); err != nil {
						return object.Nil(), object.ValueErrorf("Cannot encode string: %s", err)
					}
				}
				return object.ObjValue(rt.Heap().NewBuffer(data)), nil
			}},
	}
}

func padFunction(name string, start bool) *object.CFunction {
	return &object.CFunction{
		Name: name, Arity: 1, MaxArity: 2,
		ArgTypes: []object.TypePattern{object.NumberArg, object.StringArg},
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			s := recv.AsString()
			width := int(args[0].AsNumber())
			pad := []rune(optionalString(args, 1, " "))
			if s.Len() >= width {
				return recv, nil
			}
			if len(pad) == 0 {
				return object.Nil(), object.ValueErrorf("Empty padding")
			}
			var b strings.Builder
			for remain := width - s.Len(); remain > 0; {
				n := min(remain, len(pad))
				b.WriteString(string(pad[:n]))
				remain -= n
			}
			if start {
				return rt.Heap().Str(b.String() + s.String()), nil
			}
			return rt.Heap().Str(s.String() + b.String()), nil
		},
	}
}

// formatString expands %s, %r and %% in format with items.
func formatString(rt object.Runtime, format string, items []object.Value) (string, error) {
	var b strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", object.ValueErrorf("missing format indicator")
		}
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}
		if next >= len(items) {
			return "", object.ValueErrorf("Not enough arguments for format string")
		}
		item := items[next]
		next++
		var s string
		var err error
		switch format[i] {
		case 's':
			s, err = rt.Str(item)
		case 'r':
			s, err = rt.Repr(item)
		default:
			return "", object.ValueErrorf("invalid format indicator '%%%c'", format[i])
		}
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

var stringInstantiate = object.NewCFunction("String", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	s, err := rt.Str(args[0])
	if err != nil {
		return object.Nil(), err
	}
	return rt.Heap().Str(s), nil
})
