package vm

import (
	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
)

// callValue calls callee with the argc arguments on top of the stack. The
// callee occupies the slot below the arguments. Natives complete at once
// and leave their result in that slot; closures push a frame.
func (vm *VirtualMachine) callValue(callee object.Value, argc int) error {
	switch callee.Type() {
	case object.CFunctionType:
		return vm.callNative(callee.AsCFunction(), object.Nil(), argc)
	case object.ObjType:
		switch o := callee.AsObj().(type) {
		case *object.Closure:
			return vm.callClosure(o, argc)
		case *object.Class:
			return vm.callClass(o, argc)
		case *object.Instance:
			if method, ok := o.Class.Methods.GetString(vm.names.call); ok {
				return vm.callMethodValue(method, callee, argc)
			}
		case *object.Native:
			if call := o.Value.Descriptor().Call; call != nil {
				return vm.callNative(call, callee, argc)
			}
			if it, ok := o.Value.(object.Iterator); ok && argc == 0 {
				return vm.callIterator(it)
			}
		}
	}
	return vm.typeError("Can only call functions and classes but got %s", object.TypeName(callee))
}

// callValueKw is callValue with a dict of keyword arguments on top of the
// stack, above the positional arguments.
func (vm *VirtualMachine) callValueKw(callee object.Value, argc int) error {
	switch o := callee.AsObj().(type) {
	case *object.Closure:
		n, err := vm.bindKeywords(o.Thunk, argc)
		if err != nil {
			return err
		}
		return vm.callClosure(o, n)
	case *object.Class:
		if o.Instantiate != nil {
			return vm.typeError("%s does not accept keyword arguments", o.Name)
		}
		vm.stack[vm.sp-2-argc] = object.ObjValue(vm.heap.NewInstance(o))
		init, ok := o.Methods.GetString(vm.names.init)
		if !ok {
			return vm.typeError("%s takes no arguments", o.Name)
		}
		return vm.callMethodValueKw(init, vm.peek(argc+1), argc)
	}
	if callee.IsCFunction() {
		return vm.typeError("Function %s does not accept keyword arguments", callee.AsCFunction().Name)
	}
	return vm.typeError("Can only call functions and classes with keyword arguments but got %s",
		object.TypeName(callee))
}

func (vm *VirtualMachine) callClosure(closure *object.Closure, argc int) error {
	thunk := closure.Thunk
	if argc != thunk.Arity {
		required := thunk.RequiredArity()
		if argc < required || argc > thunk.Arity {
			return vm.typeError("Expected %d arguments but got %d", thunk.Arity, argc)
		}
		for i := argc - required; i < len(thunk.DefaultArgs); i++ {
			vm.push(thunk.DefaultArgs[i])
		}
		argc = thunk.Arity
	}
	if vm.fc >= vm.maxFrames {
		return vm.evalError("Stack overflow")
	}
	vm.frames[vm.fc] = frame{closure: closure, base: vm.sp - argc - 1}
	vm.fc++
	return vm.observeCall(thunk.Name.String(), argc)
}

func (vm *VirtualMachine) callClass(class *object.Class, argc int) error {
	if class.Instantiate != nil {
		return vm.callNative(class.Instantiate, object.ObjValue(class), argc)
	}
	if class.IsBuiltin || class.IsModuleClass {
		return vm.typeError("Cannot instantiate %s", class.Name)
	}
	inst := vm.heap.NewInstance(class)
	vm.stack[vm.sp-1-argc] = object.ObjValue(inst)
	init, ok := class.Methods.GetString(vm.names.init)
	if !ok {
		if argc != 0 {
			return vm.typeError("Expected 0 arguments but got %d", argc)
		}
		return nil
	}
	if init.IsCFunction() {
		// The instance, not the initializer's result, is the value of the
		// call.
		if err := vm.callNative(init.AsCFunction(), object.ObjValue(inst), argc); err != nil {
			return err
		}
		vm.stack[vm.sp-1] = object.ObjValue(inst)
		return nil
	}
	return vm.callMethodValue(init, object.ObjValue(inst), argc)
}

// callNative runs fn on the arguments on top of the stack. The collector
// is paused while native code runs, so natives may hold new objects in Go
// variables. Calls back into scripts lift the pause; see complete.
func (vm *VirtualMachine) callNative(fn *object.CFunction, recv object.Value, argc int) error {
	args := vm.stack[vm.sp-argc : vm.sp]
	if err := fn.CheckArgs(args); err != nil {
		return err
	}
	if err := vm.observeCall(fn.Name, argc); err != nil {
		return err
	}
	resume := vm.heap.Pause()
	defer resume()
	result, err := fn.Body(vm.rt, recv, args)
	if err != nil {
		vm.keepRaised(err)
		return err
	}
	vm.sp -= argc + 1
	vm.push(result)
	return nil
}

func (vm *VirtualMachine) callIterator(it object.Iterator) error {
	resume := vm.heap.Pause()
	defer resume()
	v, err := it.Next(vm.rt)
	if err != nil {
		vm.keepRaised(err)
		return err
	}
	vm.stack[vm.sp-1] = v
	return nil
}

// callMethodValue calls a method found on a class. The receiver is already
// in the callee slot.
func (vm *VirtualMachine) callMethodValue(method, recv object.Value, argc int) error {
	if method.IsCFunction() {
		return vm.callNative(method.AsCFunction(), recv, argc)
	}
	if closure, ok := object.As[*object.Closure](method); ok {
		return vm.callClosure(closure, argc)
	}
	vm.stack[vm.sp-1-argc] = method
	return vm.callValue(method, argc)
}

func (vm *VirtualMachine) callMethodValueKw(method, recv object.Value, argc int) error {
	if closure, ok := object.As[*object.Closure](method); ok {
		n, err := vm.bindKeywords(closure.Thunk, argc)
		if err != nil {
			return err
		}
		return vm.callClosure(closure, n)
	}
	if method.IsCFunction() {
		return vm.typeError("Function %s does not accept keyword arguments", method.AsCFunction().Name)
	}
	vm.stack[vm.sp-2-argc] = method
	return vm.callValueKw(method, argc)
}

// bindKeywords replaces the positional arguments and the keyword dict on top
// of the stack with one value per parameter of thunk, filling unnamed
// trailing parameters from their defaults. It returns the new argument
// count.
func (vm *VirtualMachine) bindKeywords(thunk *object.Thunk, argc int) (int, error) {
	kwargs, ok := object.As[*object.Dict](vm.peek(0))
	if !ok {
		errz.Fatalf("keyword arguments are not a dict")
	}
	if argc > thunk.Arity {
		return 0, vm.typeError("Expected %d arguments but got %d", thunk.Arity, argc)
	}
	args := make([]object.Value, thunk.Arity)
	set := make([]bool, thunk.Arity)
	copy(args, vm.stack[vm.sp-1-argc:vm.sp-1])
	for i := 0; i < argc; i++ {
		set[i] = true
	}
	var err error
	kwargs.Map.Each(func(k, v object.Value) bool {
		index := -1
		for i, p := range thunk.ParamNames {
			if k.IsString() && p == k.AsString() {
				index = i
				break
			}
		}
		switch {
		case index < 0:
			err = vm.typeError("Unused keyword argument '%s'", describe(k))
		case set[index]:
			err = vm.typeError("Got multiple values for argument '%s'", describe(k))
		default:
			args[index] = v
			set[index] = true
		}
		return err == nil
	})
	if err != nil {
		return 0, err
	}
	required := thunk.RequiredArity()
	for i := argc; i < thunk.Arity; i++ {
		if set[i] {
			continue
		}
		if i < required {
			return 0, vm.typeError("Missing argument '%s'", thunk.ParamNames[i])
		}
		args[i] = thunk.DefaultArgs[i-required]
	}
	vm.sp -= argc + 1
	for _, a := range args {
		vm.push(a)
	}
	return thunk.Arity, nil
}

// lookupMethod finds the method called name for recv. Module and instance
// fields shadow methods; calls on a class use its static methods.
func (vm *VirtualMachine) lookupMethod(recv object.Value, name *object.String) (method object.Value, field bool, ok bool) {
	switch o := recv.AsObj().(type) {
	case *object.Instance:
		if v, ok := o.Fields.GetString(name); ok {
			return v, true, true
		}
	case *object.Class:
		if v, ok := o.StaticMethods.GetString(name); ok {
			return v, false, true
		}
	}
	method, ok = vm.classOf(recv).Methods.GetString(name)
	return method, false, ok
}

func (vm *VirtualMachine) invoke(name *object.String, argc int) error {
	recv := vm.peek(argc)
	method, field, ok := vm.lookupMethod(recv, name)
	if !ok {
		return vm.missingMethod(recv, name)
	}
	if field {
		vm.stack[vm.sp-1-argc] = method
		return vm.callValue(method, argc)
	}
	return vm.callMethodValue(method, recv, argc)
}

func (vm *VirtualMachine) invokeKw(name *object.String, argc int) error {
	recv := vm.peek(argc + 1)
	method, field, ok := vm.lookupMethod(recv, name)
	if !ok {
		return vm.missingMethod(recv, name)
	}
	if field {
		vm.stack[vm.sp-2-argc] = method
		return vm.callValueKw(method, argc)
	}
	return vm.callMethodValueKw(method, recv, argc)
}

// superInvoke calls a method of the superclass on top of the stack, with
// the receiver and arguments below it.
func (vm *VirtualMachine) superInvoke(name *object.String, argc int) error {
	super, ok := object.As[*object.Class](vm.pop())
	if !ok {
		return vm.typeError("Superclass must be a class")
	}
	method, ok := super.Methods.GetString(name)
	if !ok {
		return vm.typeError("Method '%s' not found on %s", name, super.Name)
	}
	return vm.callMethodValue(method, vm.peek(argc), argc)
}

// invokeOperator invokes a dunder method on the operand below the argc
// arguments on top of the stack, reporting a missing method as an
// unsupported operator.
func (vm *VirtualMachine) invokeOperator(name *object.String, argc int, symbol string) error {
	recv := vm.peek(argc)
	if _, _, ok := vm.lookupMethod(recv, name); !ok {
		if argc == 0 {
			return vm.typeError("Bad operand type for unary %s: %s", symbol, object.TypeName(recv))
		}
		return vm.typeError("Unsupported operand types for %s: %s and %s",
			symbol, object.TypeName(recv), object.TypeName(vm.peek(0)))
	}
	return vm.invoke(name, argc)
}

func (vm *VirtualMachine) missingMethod(recv object.Value, name *object.String) error {
	if recv.IsModule() {
		inst, _ := object.As[*object.Instance](recv)
		return vm.runtimeError(errz.ErrName, "Module %s has no member '%s'", inst.Class.Name, name)
	}
	return vm.typeError("Method '%s' not found on %s", name, object.TypeName(recv))
}
