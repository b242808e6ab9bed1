// Package uuid provides the uuid module. UUIDs are strings in their
// canonical hyphenated form.
package uuid

import (
	"github.com/gofrs/uuid"

	"github.com/kestrel-lang/kestrel/object"
)

var namespaces = map[string]uuid.UUID{
	"dns":  uuid.NamespaceDNS,
	"url":  uuid.NamespaceURL,
	"oid":  uuid.NamespaceOID,
	"x500": uuid.NamespaceX500,
}

var V1 = object.NewCFunction("uuid1", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	id, err := uuid.NewV1()
	if err != nil {
		return object.Nil(), object.RuntimeErrorf("uuid.uuid1: %s", err)
	}
	return rt.Heap().Str(id.String()), nil
})

var V4 = object.NewCFunction("uuid4", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return object.Nil(), object.RuntimeErrorf("uuid.uuid4: %s", err)
	}
	return rt.Heap().Str(id.String()), nil
})

// V5 derives a name-based UUID. The namespace is a UUID string or one of
// "dns", "url", "oid" and "x500".
var V5 = &object.CFunction{Name: "uuid5", Arity: 2, ArgTypes: []object.TypePattern{object.StringArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		name := args[0].AsString().String()
		ns, ok := namespaces[name]
		if !ok {
			var err error
			if ns, err = uuid.FromString(name); err != nil {
				return object.Nil(), object.ValueErrorf("uuid.uuid5: invalid namespace %q", name)
			}
		}
		return rt.Heap().Str(uuid.NewV5(ns, args[1].AsString().String()).String()), nil
	}}

// Parse normalizes a UUID string, failing if it is malformed.
var Parse = &object.CFunction{Name: "parse", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		id, err := uuid.FromString(args[0].AsString().String())
		if err != nil {
			return object.Nil(), object.ValueErrorf("uuid.parse: %s", err)
		}
		return rt.Heap().Str(id.String()), nil
	}}

var Version = &object.CFunction{Name: "version", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		id, err := uuid.FromString(args[0].AsString().String())
		if err != nil {
			return object.Nil(), object.ValueErrorf("uuid.version: %s", err)
		}
		return object.Number(float64(id.Version())), nil
	}}

// Module populates the uuid module.
func Module(rt object.Runtime, module *object.Instance) error {
	h := rt.Heap()
	h.BindNatives(&module.Fields, V1, V4, V5, Parse, Version)
	module.Fields.SetString(h.Intern("NIL"), h.Str(uuid.Nil.String()))
	return nil
}
