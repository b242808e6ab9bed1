// Package os provides the os module: environment, working directory and
// file access.
package os

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

func osError(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return object.ValueErrorf("os.%s: %s", op, err)
	}
	return object.RuntimeErrorf("os.%s: %s", op, err)
}

var Getenv = &object.CFunction{Name: "getenv", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		if v, ok := os.LookupEnv(args[0].AsString().String()); ok {
			return rt.Heap().Str(v), nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return object.Nil(), nil
	}}

var Cwd = object.NewCFunction("cwd", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	dir, err := os.Getwd()
	if err != nil {
		return object.Nil(), osError("cwd", err)
	}
	return rt.Heap().Str(dir), nil
})

var ReadFile = &object.CFunction{Name: "readFile", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		data, err := os.ReadFile(args[0].AsString().String())
		if err != nil {
			return object.Nil(), osError("readFile", err)
		}
		return rt.Heap().Str(string(data)), nil
	}}

var ReadBytes = &object.CFunction{Name: "readBytes", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		data, err := os.ReadFile(args[0].AsString().String())
		if err != nil {
			return object.Nil(), osError("readBytes", err)
		}
		return object.ObjValue(rt.Heap().NewBuffer(data)), nil
	}}

// WriteFile writes a string or a buffer to a file, replacing its contents.
var WriteFile = &object.CFunction{Name: "writeFile", Arity: 2, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		var data []byte
		switch {
		case args[1].IsString():
			data = []byte(args[1].AsString().String())
		case args[1].IsBuffer():
			b, _ := object.As[*object.Buffer](args[1])
			data = b.Bytes
		default:
			return object.Nil(), object.TypeErrorf("os.writeFile expects a string or buffer but got %s", object.TypeName(args[1]))
		}
		if err := os.WriteFile(args[0].AsString().String(), data, 0o644); err != nil {
			return object.Nil(), osError("writeFile", err)
		}
		return object.Nil(), nil
	}}

var Exists = &object.CFunction{Name: "exists", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		_, err := os.Stat(args[0].AsString().String())
		return object.Bool(err == nil), nil
	}}

var ListDir = &object.CFunction{Name: "listDir", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		entries, err := os.ReadDir(args[0].AsString().String())
		if err != nil {
			return object.Nil(), osError("listDir", err)
		}
		names := make([]string, len(entries))
		for i, entry := range entries {
			names[i] = entry.Name()
		}
		sort.Strings(names)
		items := make([]object.Value, len(names))
		for i, name := range names {
			items[i] = rt.Heap().Str(name)
		}
		return object.ObjValue(rt.Heap().NewList(items)), nil
	}}

var Join = &object.CFunction{Name: "join", Arity: 1, MaxArity: object.Variadic,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			if !arg.IsString() {
				return object.Nil(), object.TypeErrorf("os.join expects strings but got %s", object.TypeName(arg))
			}
			parts[i] = arg.AsString().String()
		}
		return rt.Heap().Str(filepath.Join(parts...)), nil
	}}

// New returns the os module. args becomes os.args as a frozen list of
// strings.
func New(args []string) vm.NativeModule {
	return func(rt object.Runtime, module *object.Instance) error {
		h := rt.Heap()
		h.BindNatives(&module.Fields, Getenv, Cwd, ReadFile, ReadBytes, WriteFile, Exists, ListDir, Join)
		items := make([]object.Value, len(args))
		for i, arg := range args {
			items[i] = h.Str(arg)
		}
		frozen, err := h.FreezeList(items)
		if err != nil {
			return err
		}
		module.Fields.SetString(h.Intern("args"), object.ObjValue(frozen))
		module.Fields.SetString(h.Intern("sep"), h.Str(string(filepath.Separator)))
		return nil
	}
}
