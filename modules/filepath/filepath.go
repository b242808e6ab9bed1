// Package filepath provides the filepath module for manipulating paths in
// the host's format.
package filepath

import (
	"path/filepath"

	"github.com/kestrel-lang/kestrel/object"
)

var oneString = []object.TypePattern{object.StringArg}

func strFn(name string, fn func(string) string) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 1, ArgTypes: oneString,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return rt.Heap().Str(fn(args[0].AsString().String())), nil
		}}
}

func strList(h *object.Heap, items ...string) []object.Value {
	values := make([]object.Value, len(items))
	for i, s := range items {
		values[i] = h.Str(s)
	}
	return values
}

var IsAbs = &object.CFunction{Name: "isAbs", Arity: 1, ArgTypes: oneString,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return object.Bool(filepath.IsAbs(args[0].AsString().String())), nil
	}}

var Abs = &object.CFunction{Name: "abs", Arity: 1, ArgTypes: oneString,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		p, err := filepath.Abs(args[0].AsString().String())
		if err != nil {
			return object.Nil(), object.RuntimeErrorf("filepath.abs: %s", err)
		}
		return rt.Heap().Str(p), nil
	}}

var Join = &object.CFunction{Name: "join", Arity: 1, MaxArity: object.Variadic,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			if !arg.IsString() {
				return object.Nil(), object.TypeErrorf("filepath.join expects strings but got %s", object.TypeName(arg))
			}
			parts[i] = arg.AsString().String()
		}
		return rt.Heap().Str(filepath.Join(parts...)), nil
	}}

// Match reports whether name matches the shell pattern.
var Match = &object.CFunction{Name: "match", Arity: 2, ArgTypes: []object.TypePattern{object.StringArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		ok, err := filepath.Match(args[0].AsString().String(), args[1].AsString().String())
		if err != nil {
			return object.Nil(), object.ValueErrorf("filepath.match: %s", err)
		}
		return object.Bool(ok), nil
	}}

var Rel = &object.CFunction{Name: "rel", Arity: 2, ArgTypes: []object.TypePattern{object.StringArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		p, err := filepath.Rel(args[0].AsString().String(), args[1].AsString().String())
		if err != nil {
			return object.Nil(), object.ValueErrorf("filepath.rel: %s", err)
		}
		return rt.Heap().Str(p), nil
	}}

// Split returns a frozen (dir, file) pair.
var Split = &object.CFunction{Name: "split", Arity: 1, ArgTypes: oneString,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		h := rt.Heap()
		dir, file := filepath.Split(args[0].AsString().String())
		pair, err := h.FreezeList(strList(h, dir, file))
		if err != nil {
			return object.Nil(), err
		}
		return object.ObjValue(pair), nil
	}}

var SplitList = &object.CFunction{Name: "splitList", Arity: 1, ArgTypes: oneString,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		h := rt.Heap()
		return object.ObjValue(h.NewList(strList(h, filepath.SplitList(args[0].AsString().String())...))), nil
	}}

// Module populates the filepath module.
func Module(rt object.Runtime, module *object.Instance) error {
	h := rt.Heap()
	h.BindNatives(&module.Fields,
		strFn("base", filepath.Base),
		strFn("clean", filepath.Clean),
		strFn("dir", filepath.Dir),
		strFn("ext", filepath.Ext),
		IsAbs, Abs, Join, Match, Rel, Split, SplitList)
	module.Fields.SetString(h.Intern("separator"), h.Str(string(filepath.Separator)))
	return nil
}
