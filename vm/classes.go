package vm

import (
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

// names holds the interned method and field names the VM looks up on its
// own.
type names struct {
	init     *object.String
	iter     *object.String
	call     *object.String
	eq       *object.String
	lt       *object.String
	contains *object.String
	neg      *object.String
	repr     *object.String
	str      *object.String
	len      *object.String
	name     *object.String
	binary   [op.BitwiseXor + 1]*object.String
}

func newNames(h *object.Heap) names {
	n := names{
		init:     h.Intern("__init__"),
		iter:     h.Intern("__iter__"),
		call:     h.Intern("__call__"),
		eq:       h.Intern("__eq__"),
		lt:       h.Intern("__lt__"),
		contains: h.Intern("__contains__"),
		neg:      h.Intern("__neg__"),
		repr:     h.Intern("__repr__"),
		str:      h.Intern("__str__"),
		len:      h.Intern("__len__"),
		name:     h.Intern("__name__"),
	}
	for t := op.Add; t <= op.BitwiseXor; t++ {
		n.binary[t] = h.Intern(t.Dunder())
	}
	return n
}

func (n *names) mark(h *object.Heap) {
	for _, s := range []*object.String{n.init, n.iter, n.call, n.eq, n.lt,
		n.contains, n.neg, n.repr, n.str, n.len, n.name} {
		h.MarkString(s)
	}
	for _, s := range n.binary {
		h.MarkString(s)
	}
}

// builtinClasses are the classes of values that are not instances.
type builtinClasses struct {
	nil        *object.Class
	bool       *object.Class
	number     *object.Class
	str        *object.Class
	function   *object.Class
	list       *object.Class
	frozenList *object.Class
	dict       *object.Class
	frozenDict *object.Class
	buffer     *object.Class
	class      *object.Class
	sentinel   *object.Class
}

func newBuiltinClasses(vm *VirtualMachine) builtinClasses {
	return builtinClasses{
		nil:        vm.newBuiltinClass("Nil", nil, nil),
		bool:       vm.newBuiltinClass("Bool", nil, boolInstantiate),
		number:     vm.newBuiltinClass("Number", numberMethods(), numberInstantiate),
		str:        vm.newBuiltinClass("String", stringMethods(), stringInstantiate),
		function:   vm.newBuiltinClass("Function", nil, nil),
		list:       vm.newBuiltinClass("List", listMethods(), listInstantiate),
		frozenList: vm.newBuiltinClass("FrozenList", frozenListMethods(), frozenListInstantiate),
		dict:       vm.newBuiltinClass("Dict", dictMethods(), dictInstantiate),
		frozenDict: vm.newBuiltinClass("FrozenDict", frozenDictMethods(), frozenDictInstantiate),
		buffer:     vm.newBuiltinClass("Buffer", bufferMethods(), bufferInstantiate),
		class:      vm.newBuiltinClass("Class", nil, nil),
		sentinel:   vm.newBuiltinClass("Sentinel", nil, nil),
	}
}

func (vm *VirtualMachine) newBuiltinClass(name string, methods []*object.CFunction, instantiate *object.CFunction) *object.Class {
	class := vm.heap.NewClass(vm.heap.Intern(name))
	class.IsBuiltin = true
	class.Instantiate = instantiate
	vm.heap.BindNatives(&class.Methods, methods...)
	return class
}

func (c *builtinClasses) all() []*object.Class {
	return []*object.Class{c.nil, c.bool, c.number, c.str, c.function, c.list,
		c.frozenList, c.dict, c.frozenDict, c.buffer, c.class, c.sentinel}
}

// install makes the builtin classes visible as globals.
func (c *builtinClasses) install(vm *VirtualMachine) {
	for _, class := range c.all() {
		if class == c.sentinel {
			continue
		}
		vm.builtins.SetString(class.Name, object.ObjValue(class))
	}
	vm.builtins.SetString(vm.heap.Intern("Tuple"), object.ObjValue(c.frozenList))
	vm.heap.BindNatives(&c.dict.StaticMethods, dictFromPairs)
}

func (c *builtinClasses) mark(h *object.Heap) {
	for _, class := range c.all() {
		h.MarkObject(class)
	}
}

// classOf returns the class that holds the methods of v.
func (vm *VirtualMachine) classOf(v object.Value) *object.Class {
	switch v.Type() {
	case object.NilType:
		return vm.classes.nil
	case object.BoolType:
		return vm.classes.bool
	case object.NumberType:
		return vm.classes.number
	case object.StringType:
		return vm.classes.str
	case object.CFunctionType:
		return vm.classes.function
	case object.SentinelType:
		return vm.classes.sentinel
	}
	switch o := v.AsObj().(type) {
	case *object.Instance:
		return o.Class
	case *object.Class:
		return vm.classes.class
	case *object.Closure:
		return vm.classes.function
	case *object.List:
		return vm.classes.list
	case *object.FrozenList:
		return vm.classes.frozenList
	case *object.Dict:
		return vm.classes.dict
	case *object.FrozenDict:
		return vm.classes.frozenDict
	case *object.Buffer:
		return vm.classes.buffer
	case *object.Native:
		return vm.nativeClass(o.Value.Descriptor())
	}
	return vm.classes.sentinel
}

// nativeClass returns the class built from a native descriptor, creating
// it on first use.
func (vm *VirtualMachine) nativeClass(desc *object.NativeDescriptor) *object.Class {
	if class, ok := vm.nativeClasses[desc]; ok {
		return class
	}
	resume := vm.heap.Pause()
	defer resume()
	class := vm.newBuiltinClass(desc.Name, desc.Methods, nil)
	class.Descriptor = desc
	class.Call = desc.Call
	vm.nativeClasses[desc] = class
	return class
}
