package vm

import (
	"math"
	"strings"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

// binaryOp applies an arithmetic or bitwise operator to the two values on
// top of the stack. Numbers and string concatenation are handled inline;
// every other pairing invokes the left operand's dunder method.
func (vm *VirtualMachine) binaryOp(t op.BinaryOpType) error {
	a, b := vm.peek(1), vm.peek(0)
	switch {
	case a.IsNumber() && b.IsNumber():
		result, err := numericOp(t, a.AsNumber(), b.AsNumber())
		if err != nil {
			return err
		}
		vm.sp--
		vm.stack[vm.sp-1] = object.Number(result)
		return nil
	case t == op.Add && a.IsString() && b.IsString():
		s := vm.heap.Str(a.AsString().String() + b.AsString().String())
		vm.sp--
		vm.stack[vm.sp-1] = s
		return nil
	}
	name := vm.names.binary[t]
	if name == nil {
		errz.Fatalf("unknown binary operator %d", t)
	}
	return vm.invokeOperator(name, 1, t.String())
}

func numericOp(t op.BinaryOpType, a, b float64) (float64, error) {
	switch t {
	case op.Add:
		return a + b, nil
	case op.Subtract:
		return a - b, nil
	case op.Multiply:
		return a * b, nil
	case op.Divide:
		return a / b, nil
	case op.FloorDivide:
		return math.Floor(a / b), nil
	case op.Modulo:
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	case op.Power:
		return math.Pow(a, b), nil
	}
	x, y := int64(a), int64(b)
	switch t {
	case op.LShift, op.RShift:
		if y < 0 {
			return 0, object.ValueErrorf("Negative shift count")
		}
		if t == op.LShift {
			return float64(x << uint64(y)), nil
		}
		return float64(x >> uint64(y)), nil
	case op.BitwiseAnd:
		return float64(x & y), nil
	case op.BitwiseOr:
		return float64(x | y), nil
	case op.BitwiseXor:
		return float64(x ^ y), nil
	}
	errz.Fatalf("unknown binary operator %d", t)
	return 0, nil
}

// compareOp applies a comparison to the two values on top of the stack.
// "a > b" is evaluated as "b < a".
func (vm *VirtualMachine) compareOp(t op.CompareOpType) error {
	switch t {
	case op.Equal:
		a, b := vm.peek(1), vm.peek(0)
		if inst, ok := object.As[*object.Instance](a); ok {
			if _, ok := inst.Class.Methods.GetString(vm.names.eq); ok {
				return vm.invoke(vm.names.eq, 1)
			}
		}
		vm.sp--
		vm.stack[vm.sp-1] = object.Bool(object.Equal(a, b))
		return nil
	case op.Is:
		a, b := vm.peek(1), vm.peek(0)
		vm.sp--
		vm.stack[vm.sp-1] = object.Bool(object.Is(a, b))
		return nil
	case op.GreaterThan:
		vm.swap()
		fallthrough
	case op.LessThan:
		a, b := vm.peek(1), vm.peek(0)
		switch {
		case a.IsNumber() && b.IsNumber():
			vm.sp--
			vm.stack[vm.sp-1] = object.Bool(a.AsNumber() < b.AsNumber())
			return nil
		case a.IsInstance():
			return vm.invokeOperator(vm.names.lt, 1, "<")
		}
		less, err := object.LessThan(a, b)
		if err != nil {
			return err
		}
		vm.sp--
		vm.stack[vm.sp-1] = object.Bool(less)
		return nil
	case op.In:
		vm.swap()
		container, item := vm.peek(1), vm.peek(0)
		if container.IsString() && item.IsString() {
			vm.sp--
			vm.stack[vm.sp-1] = object.Bool(strings.Contains(container.AsString().String(), item.AsString().String()))
			return nil
		}
		if _, _, ok := vm.lookupMethod(container, vm.names.contains); !ok {
			return vm.typeError("Argument of type %s is not a container", object.TypeName(container))
		}
		return vm.invoke(vm.names.contains, 1)
	}
	errz.Fatalf("unknown comparison %d", t)
	return nil
}

func (vm *VirtualMachine) swap() {
	vm.stack[vm.sp-1], vm.stack[vm.sp-2] = vm.stack[vm.sp-2], vm.stack[vm.sp-1]
}

// isIterator reports whether v can be stepped by calling it.
func isIterator(v object.Value) bool {
	if v.IsCFunction() || v.IsClosure() {
		return true
	}
	if n, ok := object.As[*object.Native](v); ok {
		_, ok := n.Value.(object.Iterator)
		return ok
	}
	return false
}

// getIter replaces the value on top of the stack with an iterator over it.
func (vm *VirtualMachine) getIter() error {
	v := vm.peek(0)
	if isIterator(v) {
		return nil
	}
	if _, _, ok := vm.lookupMethod(v, vm.names.iter); !ok {
		return vm.typeError("%s is not iterable", object.TypeName(v))
	}
	return vm.invoke(vm.names.iter, 0)
}

// getNext pushes the next item of the iterator on top of the stack, or
// StopIteration.
func (vm *VirtualMachine) getNext() error {
	it := vm.peek(0)
	if n, ok := object.As[*object.Native](it); ok {
		if iter, ok := n.Value.(object.Iterator); ok {
			vm.push(object.Nil())
			return vm.callIterator(iter)
		}
	}
	vm.push(it)
	return vm.callValue(it, 0)
}

// getField reads a field. Instances consult their fields, then getters,
// then the class's Getattr hook; classes expose their static methods.
func (vm *VirtualMachine) getField(recv object.Value, name *object.String) (object.Value, error) {
	var class *object.Class
	switch o := recv.AsObj().(type) {
	case *object.Instance:
		if v, ok := o.Fields.GetString(name); ok {
			return v, nil
		}
		if o.Class.IsModuleClass {
			return object.Nil(), vm.runtimeError(errz.ErrName, "Module %s has no member '%s'", o.Class.Name, name)
		}
		class = o.Class
	case *object.Class:
		if v, ok := o.StaticMethods.GetString(name); ok {
			return v, nil
		}
		if name == vm.names.name {
			return object.StringValue(o.Name), nil
		}
		class = vm.classes.class
	default:
		class = vm.classOf(recv)
	}
	if getter, ok := class.Getters.GetString(name); ok {
		return vm.callBound(getter, recv, nil)
	}
	if class.Getattr != nil {
		return vm.callBound(object.CFunctionValue(class.Getattr), recv, []object.Value{object.StringValue(name)})
	}
	return object.Nil(), vm.typeError("Field '%s' not found on %s", name, object.TypeName(recv))
}

func (vm *VirtualMachine) setField(recv object.Value, name *object.String, v object.Value) error {
	var class *object.Class
	inst, isInstance := object.As[*object.Instance](recv)
	if isInstance {
		class = inst.Class
	} else {
		class = vm.classOf(recv)
	}
	if setter, ok := class.Setters.GetString(name); ok {
		_, err := vm.callBound(setter, recv, []object.Value{v})
		return err
	}
	if class.Setattr != nil {
		_, err := vm.callBound(object.CFunctionValue(class.Setattr), recv, []object.Value{object.StringValue(name), v})
		return err
	}
	if !isInstance {
		return vm.typeError("Cannot set field '%s' on %s", name, object.TypeName(recv))
	}
	inst.Fields.SetString(name, v)
	return nil
}

// callBound calls method with recv as its receiver and runs it to
// completion.
func (vm *VirtualMachine) callBound(method, recv object.Value, args []object.Value) (object.Value, error) {
	base, sp, tries := vm.fc, vm.sp, len(vm.tries)
	vm.push(recv)
	for _, arg := range args {
		vm.push(arg)
	}
	return vm.complete(base, sp, tries, vm.callMethodValue(method, recv, len(args)))
}

// captureUpvalue returns the open upvalue for a stack slot, creating it if
// needed. Open upvalues are kept sorted by descending slot so each slot has
// at most one.
func (vm *VirtualMachine) captureUpvalue(slot int) *object.Upvalue {
	var prev *object.Upvalue
	u := vm.openUpvalues
	for u != nil && u.Slot() > slot {
		prev = u
		u = u.Next
	}
	if u != nil && u.Slot() == slot {
		return u
	}
	created := vm.heap.NewUpvalue(slot)
	created.Next = u
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above slot last.
func (vm *VirtualMachine) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot() >= last {
		u := vm.openUpvalues
		u.Close(vm.stack)
		vm.openUpvalues = u.Next
		u.Next = nil
	}
}
