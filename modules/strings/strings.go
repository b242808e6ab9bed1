// Package strings provides the strings module, text helpers beyond the
// methods every string already has.
package strings

import (
	"strings"

	"github.com/kestrel-lang/kestrel/object"
)

var (
	str    = []object.TypePattern{object.StringArg}
	strStr = []object.TypePattern{object.StringArg, object.StringArg}
)

func transform(name string, fn func(string) string) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 1, ArgTypes: str,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return rt.Heap().Str(fn(args[0].AsString().String())), nil
		}}
}

func pair(name string, fn func(s, t string) string) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 2, ArgTypes: strStr,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return rt.Heap().Str(fn(args[0].AsString().String(), args[1].AsString().String())), nil
		}}
}

func test(name string, fn func(s, t string) bool) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 2, ArgTypes: strStr,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Bool(fn(args[0].AsString().String(), args[1].AsString().String())), nil
		}}
}

func index(name string, fn func(s, t string) int) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 2, ArgTypes: strStr,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(fn(args[0].AsString().String(), args[1].AsString().String()))), nil
		}}
}

// trim strips whitespace, or the characters of cutset when one is given.
func trim(name string, space func(string) string, cut func(s, cutset string) string) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 1, MaxArity: 2, ArgTypes: strStr,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			s := args[0].AsString().String()
			if len(args) == 1 {
				return rt.Heap().Str(space(s)), nil
			}
			return rt.Heap().Str(cut(s, args[1].AsString().String())), nil
		}}
}

var Fields = &object.CFunction{Name: "fields", Arity: 1, ArgTypes: str,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		h := rt.Heap()
		fields := strings.Fields(args[0].AsString().String())
		items := make([]object.Value, len(fields))
		for i, f := range fields {
			items[i] = h.Str(f)
		}
		return object.ObjValue(h.NewList(items)), nil
	}}

var Repeat = &object.CFunction{Name: "repeat", Arity: 2, ArgTypes: []object.TypePattern{object.StringArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		n := int(args[1].AsNumber())
		if n < 0 {
			return object.Nil(), object.ValueErrorf("strings.repeat: negative count %d", n)
		}
		return rt.Heap().Str(strings.Repeat(args[0].AsString().String(), n)), nil
	}}

// Module populates the strings module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields,
		test("contains", strings.Contains),
		test("equalFold", strings.EqualFold),
		index("count", strings.Count),
		index("index", strings.Index),
		index("lastIndex", strings.LastIndex),
		transform("toUpper", strings.ToUpper),
		transform("toLower", strings.ToLower),
		pair("trimPrefix", strings.TrimPrefix),
		pair("trimSuffix", strings.TrimSuffix),
		trim("trim", strings.TrimSpace, strings.Trim),
		trim("trimLeft", func(s string) string { return strings.TrimLeft(s, " \t\r\n") }, strings.TrimLeft),
		trim("trimRight", func(s string) string { return strings.TrimRight(s, " \t\r\n") }, strings.TrimRight),
		Fields, Repeat)
	return nil
}
