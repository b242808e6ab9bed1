package vm

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/kestrel-lang/kestrel/object"
)

// maxReprDepth bounds the nesting printed by repr, which also stops
// self-referencing containers from recursing forever.
const maxReprDepth = 64

// runtime is the object.Runtime handed to native functions.
type runtime struct {
	vm *VirtualMachine
}

var _ object.Runtime = (*runtime)(nil)

func (rt *runtime) Context() context.Context { return rt.vm.ctx }
func (rt *runtime) Heap() *object.Heap       { return rt.vm.heap }
func (rt *runtime) Stdout() io.Writer        { return rt.vm.stdout }

func (rt *runtime) Call(fn object.Value, args ...object.Value) (object.Value, error) {
	return rt.vm.call(fn, args)
}

func (rt *runtime) CallMethod(recv object.Value, name string, args ...object.Value) (object.Value, error) {
	return rt.vm.callMethod(recv, rt.vm.heap.Intern(name), args)
}

func (rt *runtime) Repr(v object.Value) (string, error) {
	var b strings.Builder
	err := rt.vm.repr(&b, v, 0)
	return b.String(), err
}

func (rt *runtime) Str(v object.Value) (string, error) {
	return rt.vm.str(v)
}

func (rt *runtime) Len(v object.Value) (int, error) {
	return rt.vm.length(v)
}

func (rt *runtime) Equal(a, b object.Value) (bool, error) {
	return rt.vm.equal(a, b)
}

func (rt *runtime) LessThan(a, b object.Value) (bool, error) {
	return rt.vm.lessThan(a, b)
}

func (rt *runtime) Iterate(v object.Value, fn func(item object.Value) error) error {
	return rt.vm.iterate(v, fn)
}

func (rt *runtime) ClassOf(v object.Value) *object.Class {
	return rt.vm.classOf(v)
}

func (rt *runtime) Interrupted() bool {
	return rt.vm.interrupted.CompareAndSwap(true, false)
}

func (vm *VirtualMachine) str(v object.Value) (string, error) {
	if v.IsString() {
		return v.AsString().String(), nil
	}
	if method, ok := vm.classOf(v).Methods.GetString(vm.names.str); ok && !v.IsClass() {
		result, err := vm.callBound(method, v, nil)
		if err != nil {
			return "", err
		}
		if !result.IsString() {
			return "", object.TypeErrorf("__str__ returned %s", object.TypeName(result))
		}
		return result.AsString().String(), nil
	}
	var b strings.Builder
	err := vm.repr(&b, v, 0)
	return b.String(), err
}

func (vm *VirtualMachine) repr(b *strings.Builder, v object.Value, depth int) error {
	if depth > maxReprDepth {
		b.WriteString("...")
		return nil
	}
	switch o := v.AsObj().(type) {
	case *object.List:
		b.WriteByte('[')
		if err := vm.reprItems(b, o.Items, depth); err != nil {
			return err
		}
		b.WriteByte(']')
		return nil
	case *object.FrozenList:
		b.WriteByte('(')
		if err := vm.reprItems(b, o.Items, depth); err != nil {
			return err
		}
		if len(o.Items) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
		return nil
	case *object.Dict:
		return vm.reprMap(b, "{", &o.Map, depth)
	case *object.FrozenDict:
		return vm.reprMap(b, "final{", &o.Map, depth)
	case *object.Instance, *object.Native:
		if method, ok := vm.classOf(v).Methods.GetString(vm.names.repr); ok {
			result, err := vm.callBound(method, v, nil)
			if err != nil {
				return err
			}
			if !result.IsString() {
				return object.TypeErrorf("__repr__ returned %s", object.TypeName(result))
			}
			b.WriteString(result.AsString().String())
			return nil
		}
	}
	if v.IsString() {
		b.WriteString(strconv.Quote(v.AsString().String()))
		return nil
	}
	b.WriteString(describe(v))
	return nil
}

func (vm *VirtualMachine) reprItems(b *strings.Builder, items []object.Value, depth int) error {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := vm.repr(b, item, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VirtualMachine) reprMap(b *strings.Builder, open string, m *object.Map, depth int) error {
	b.WriteString(open)
	var err error
	first := true
	m.Each(func(k, v object.Value) bool {
		if !first {
			b.WriteString(", ")
		}
		first = false
		if err = vm.repr(b, k, depth+1); err != nil {
			return false
		}
		b.WriteString(": ")
		err = vm.repr(b, v, depth+1)
		return err == nil
	})
	b.WriteByte('}')
	return err
}

// describe renders v without running any script code. Strings are shown
// unquoted.
func describe(v object.Value) string {
	switch v.Type() {
	case object.NilType:
		return "nil"
	case object.BoolType:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case object.NumberType:
		return object.FormatNumber(v.AsNumber())
	case object.StringType:
		return v.AsString().String()
	case object.CFunctionType:
		return "<function " + v.AsCFunction().Name + ">"
	case object.SentinelType:
		if v.IsStopIteration() {
			return "StopIteration"
		}
		return "<sentinel>"
	}
	switch o := v.AsObj().(type) {
	case *object.Instance:
		if o.Class.IsModuleClass {
			return "<module " + o.Class.Name.String() + ">"
		}
		return "<" + o.Class.Name.String() + " instance>"
	case *object.Class:
		return "<class " + o.Name.String() + ">"
	case *object.Closure:
		return "<function " + o.Thunk.Name.String() + ">"
	case *object.Buffer:
		return "<buffer " + strconv.Itoa(len(o.Bytes)) + " bytes>"
	case *object.Native:
		return "<" + o.Value.Descriptor().Name + ">"
	case *object.List, *object.FrozenList, *object.Dict, *object.FrozenDict:
		var b strings.Builder
		items := func(values []object.Value) {
			for i, item := range values {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(describe(item))
			}
		}
		switch o := o.(type) {
		case *object.List:
			b.WriteByte('[')
			items(o.Items)
			b.WriteByte(']')
		case *object.FrozenList:
			b.WriteByte('(')
			items(o.Items)
			b.WriteByte(')')
		case *object.Dict:
			b.WriteString("<dict " + strconv.Itoa(o.Map.Len()) + " entries>")
		case *object.FrozenDict:
			b.WriteString("<frozendict " + strconv.Itoa(o.Map.Len()) + " entries>")
		}
		return b.String()
	case object.Obj:
		return "<" + o.Kind().String() + ">"
	}
	return "<unknown>"
}

func (vm *VirtualMachine) length(v object.Value) (int, error) {
	if v.IsString() {
		return v.AsString().Len(), nil
	}
	switch o := v.AsObj().(type) {
	case *object.List:
		return len(o.Items), nil
	case *object.FrozenList:
		return len(o.Items), nil
	case *object.Dict:
		return o.Map.Len(), nil
	case *object.FrozenDict:
		return o.Map.Len(), nil
	case *object.Buffer:
		return len(o.Bytes), nil
	}
	method, ok := vm.classOf(v).Methods.GetString(vm.names.len)
	if !ok || v.IsClass() {
		return 0, object.TypeErrorf("Object of type %s has no len()", object.TypeName(v))
	}
	result, err := vm.callBound(method, v, nil)
	if err != nil {
		return 0, err
	}
	if !result.IsNumber() {
		return 0, object.TypeErrorf("__len__ returned %s", object.TypeName(result))
	}
	return int(result.AsNumber()), nil
}

func (vm *VirtualMachine) equal(a, b object.Value) (bool, error) {
	if inst, ok := object.As[*object.Instance](a); ok {
		if method, ok := inst.Class.Methods.GetString(vm.names.eq); ok {
			result, err := vm.callBound(method, a, []object.Value{b})
			if err != nil {
				return false, err
			}
			return result.IsTruthy(), nil
		}
	}
	return object.Equal(a, b), nil
}

func (vm *VirtualMachine) lessThan(a, b object.Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() < b.AsNumber(), nil
	}
	if inst, ok := object.As[*object.Instance](a); ok {
		method, ok := inst.Class.Methods.GetString(vm.names.lt)
		if !ok {
			return false, object.TypeErrorf("'<' not supported between %s and %s",
				object.TypeName(a), object.TypeName(b))
		}
		result, err := vm.callBound(method, a, []object.Value{b})
		if err != nil {
			return false, err
		}
		return result.IsTruthy(), nil
	}
	return object.LessThan(a, b)
}

// iterate calls fn with each item of v. Lists are read by index so items
// appended by fn are visited; dicts iterate over a snapshot of their keys.
func (vm *VirtualMachine) iterate(v object.Value, fn func(item object.Value) error) error {
	switch o := v.AsObj().(type) {
	case *object.List:
		for i := 0; i < len(o.Items); i++ {
			if err := fn(o.Items[i]); err != nil {
				return err
			}
		}
		return nil
	case *object.FrozenList:
		for _, item := range o.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		return nil
	case *object.Dict:
		return eachValue(o.Map.Keys(), fn)
	case *object.FrozenDict:
		return eachValue(o.Map.Keys(), fn)
	}
	if v.IsString() {
		s := v.AsString()
		for i := 0; i < s.Len(); i++ {
			if err := fn(vm.heap.Str(s.Substring(i, i+1))); err != nil {
				return err
			}
		}
		return nil
	}
	it := v
	if !isIterator(v) {
		if _, _, ok := vm.lookupMethod(v, vm.names.iter); !ok {
			return object.TypeErrorf("%s is not iterable", object.TypeName(v))
		}
		var err error
		if it, err = vm.callMethod(v, vm.names.iter, nil); err != nil {
			return err
		}
	}
	for {
		var item object.Value
		var err error
		if n, ok := object.As[*object.Native](it); ok {
			if iter, ok := n.Value.(object.Iterator); ok {
				item, err = iter.Next(vm.rt)
			} else {
				item, err = vm.call(it, nil)
			}
		} else {
			item, err = vm.call(it, nil)
		}
		if err != nil {
			return err
		}
		if item.IsStopIteration() {
			return nil
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

func eachValue(values []object.Value, fn func(object.Value) error) error {
	for _, v := range values {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
