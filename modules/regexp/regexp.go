// Package regexp provides the regexp module, a thin layer over Go's RE2
// engine.
package regexp

import (
	"regexp"
	"strconv"

	"github.com/kestrel-lang/kestrel/object"
)

// Regexp is a compiled pattern.
type Regexp struct {
	re *regexp.Regexp
}

func (r *Regexp) Descriptor() *object.NativeDescriptor { return regexpDescriptor }
func (r *Regexp) Trace(h *object.Heap)                 {}

// Pattern returns the source text of the pattern.
func (r *Regexp) Pattern() string { return r.re.String() }

func regexpOf(v object.Value) *Regexp {
	n, _ := object.As[*object.Native](v)
	return n.Value.(*Regexp)
}

func compile(pattern string) (*Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, object.ValueErrorf("regexp.compile: %s", err)
	}
	return &Regexp{re: re}, nil
}

func strings(h *object.Heap, items []string) object.Value {
	values := make([]object.Value, len(items))
	for i, s := range items {
		values[i] = h.Str(s)
	}
	return object.ObjValue(h.NewList(values))
}

func limit(args []object.Value, i int) int {
	if len(args) > i {
		return int(args[i].AsNumber())
	}
	return -1
}

func method(name string, arity, maxArity int, argTypes []object.TypePattern,
	fn func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value) *object.CFunction {
	return &object.CFunction{Name: name, Arity: arity, MaxArity: maxArity, ArgTypes: argTypes,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return fn(rt.Heap(), regexpOf(recv).re, args), nil
		}}
}

var (
	str       = []object.TypePattern{object.StringArg}
	strNumber = []object.TypePattern{object.StringArg, object.NumberArg}
	strStr    = []object.TypePattern{object.StringArg, object.StringArg}
)

var regexpDescriptor = &object.NativeDescriptor{
	Name: "Regexp",
	Methods: []*object.CFunction{
		method("match", 1, 1, str, func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value {
			return object.Bool(re.MatchString(args[0].AsString().String()))
		}),
		method("find", 1, 1, str, func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value {
			loc := re.FindStringIndex(args[0].AsString().String())
			if loc == nil {
				return object.Nil()
			}
			return h.Str(args[0].AsString().String()[loc[0]:loc[1]])
		}),
		method("findAll", 1, 2, strNumber, func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value {
			return strings(h, re.FindAllString(args[0].AsString().String(), limit(args, 1)))
		}),
		method("groups", 1, 1, str, func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value {
			m := re.FindStringSubmatch(args[0].AsString().String())
			if m == nil {
				return object.Nil()
			}
			return strings(h, m)
		}),
		method("replace", 2, 2, strStr, func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value {
			return h.Str(re.ReplaceAllString(args[0].AsString().String(), args[1].AsString().String()))
		}),
		method("split", 1, 2, strNumber, func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value {
			return strings(h, re.Split(args[0].AsString().String(), limit(args, 1)))
		}),
		method("pattern", 0, 0, nil, func(h *object.Heap, re *regexp.Regexp, args []object.Value) object.Value {
			return h.Str(re.String())
		}),
		object.NewCFunction("__repr__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return rt.Heap().Str("Regexp(" + strconv.Quote(regexpOf(recv).Pattern()) + ")"), nil
		}),
	},
}

var Compile = &object.CFunction{Name: "compile", Arity: 1, ArgTypes: str,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		r, err := compile(args[0].AsString().String())
		if err != nil {
			return object.Nil(), err
		}
		return object.ObjValue(rt.Heap().NewNative(r)), nil
	}}

// Match reports whether the string contains a match of the pattern.
var Match = &object.CFunction{Name: "match", Arity: 2, ArgTypes: strStr,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		r, err := compile(args[0].AsString().String())
		if err != nil {
			return object.Nil(), err
		}
		return object.Bool(r.re.MatchString(args[1].AsString().String())), nil
	}}

var Escape = &object.CFunction{Name: "escape", Arity: 1, ArgTypes: str,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return rt.Heap().Str(regexp.QuoteMeta(args[0].AsString().String())), nil
	}}

// Module populates the regexp module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, Compile, Match, Escape)
	return nil
}
