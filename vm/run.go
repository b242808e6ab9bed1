package vm

import (
	"sync/atomic"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

// execute runs instructions until the frame at index base returns. It
// returns the first error raised, leaving the frames as they were at the
// failing instruction.
func (vm *VirtualMachine) execute(base int) error {
	// Instruction counter for deterministic context checking
	var instructionCount int
	checkInterval := vm.contextCheckInterval
	doneChan := vm.ctx.Done()

	for {
		if atomic.LoadInt32(&vm.halt) == 1 {
			return vm.haltError()
		}

		// Deterministic check of ctx.Done() every N instructions.
		if checkInterval > 0 && doneChan != nil {
			instructionCount++
			if instructionCount >= checkInterval {
				instructionCount = 0
				select {
				case <-doneChan:
					atomic.StoreInt32(&vm.halt, 1)
					return vm.haltError()
				default:
				}
			}
		}

		if vm.interrupted.CompareAndSwap(true, false) {
			return vm.evalError("Interrupted")
		}

		f := vm.frame()
		if vm.observer != nil {
			if err := vm.observeStep(f); err != nil {
				return err
			}
		}

		switch code := op.Code(f.readByte()); code {
		case op.Constant:
			vm.push(f.readConstant())
		case op.Nil:
			vm.push(object.Nil())
		case op.True:
			vm.push(object.True())
		case op.False:
			vm.push(object.False())
		case op.Pop:
			vm.sp--
		case op.Dup:
			vm.push(vm.peek(0))

		case op.GetLocal:
			vm.push(vm.stack[f.base+int(f.readByte())])
		case op.SetLocal:
			vm.stack[f.base+int(f.readByte())] = vm.peek(0)
		case op.GetGlobal:
			name := f.readString()
			module := f.closure.Module
			v, ok := module.Fields.GetString(name)
			if !ok {
				if v, ok = vm.builtins.GetString(name); !ok {
					return vm.undefined(name, module)
				}
			}
			vm.push(v)
		case op.SetGlobal:
			name := f.readString()
			module := f.closure.Module
			if _, ok := module.Fields.GetString(name); !ok {
				return vm.undefined(name, module)
			}
			module.Fields.SetString(name, vm.peek(0))
		case op.DefineGlobal:
			f.closure.Module.Fields.SetString(f.readString(), vm.pop())
		case op.GetUpvalue:
			vm.push(f.closure.Upvalues[f.readByte()].Get(vm.stack))
		case op.SetUpvalue:
			f.closure.Upvalues[f.readByte()].Set(vm.stack, vm.peek(0))
		case op.GetField:
			v, err := vm.getField(vm.peek(0), f.readString())
			if err != nil {
				return err
			}
			vm.stack[vm.sp-1] = v
		case op.SetField:
			if err := vm.setField(vm.peek(1), f.readString(), vm.peek(0)); err != nil {
				return err
			}
			v := vm.pop()
			vm.stack[vm.sp-1] = v

		case op.BinaryOp:
			if err := vm.binaryOp(op.BinaryOpType(f.readByte())); err != nil {
				return err
			}
		case op.CompareOp:
			if err := vm.compareOp(op.CompareOpType(f.readByte())); err != nil {
				return err
			}
		case op.Not:
			vm.stack[vm.sp-1] = object.Bool(vm.peek(0).IsFalsey())
		case op.Negate:
			if v := vm.peek(0); v.IsNumber() {
				vm.stack[vm.sp-1] = object.Number(-v.AsNumber())
			} else if err := vm.invokeOperator(vm.names.neg, 0, "-"); err != nil {
				return err
			}
		case op.BitNot:
			v := vm.peek(0)
			if !v.IsNumber() {
				return vm.typeError("Bad operand type for unary ~: %s", object.TypeName(v))
			}
			vm.stack[vm.sp-1] = object.Number(float64(^int64(v.AsNumber())))

		case op.Jump:
			offset := f.readShort()
			f.ip += offset
		case op.JumpIfFalse:
			offset := f.readShort()
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case op.JumpIfStopIteration:
			offset := f.readShort()
			if vm.peek(0).IsStopIteration() {
				f.ip += offset
			}
		case op.Loop:
			offset := f.readShort()
			f.ip -= offset

		case op.GetIter:
			if err := vm.getIter(); err != nil {
				return err
			}
		case op.GetNext:
			if err := vm.getNext(); err != nil {
				return err
			}

		case op.Call:
			argc := int(f.readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
		case op.CallKw:
			argc := int(f.readByte())
			if err := vm.callValueKw(vm.peek(argc+1), argc); err != nil {
				return err
			}
		case op.Invoke:
			name := f.readString()
			if err := vm.invoke(name, int(f.readByte())); err != nil {
				return err
			}
		case op.InvokeKw:
			name := f.readString()
			if err := vm.invokeKw(name, int(f.readByte())); err != nil {
				return err
			}
		case op.SuperInvoke:
			name := f.readString()
			argc := int(f.readByte())
			if err := vm.superInvoke(name, argc); err != nil {
				return err
			}
		case op.Return:
			result := vm.pop()
			vm.closeUpvalues(f.base)
			for len(vm.tries) > 0 && vm.tries[len(vm.tries)-1].frameCount >= vm.fc {
				vm.tries = vm.tries[:len(vm.tries)-1]
			}
			if err := vm.observeReturn(f); err != nil {
				return err
			}
			vm.fc--
			vm.sp = f.base
			vm.push(result)
			if vm.fc == base {
				return nil
			}

		case op.Closure:
			thunk, ok := object.As[*object.Thunk](f.readConstant())
			if !ok {
				errz.Fatalf("closure constant is not a thunk")
			}
			closure := vm.heap.NewClosure(thunk, f.closure.Module)
			vm.push(object.ObjValue(closure))
			for i := range closure.Upvalues {
				isLocal := f.readByte()
				index := int(f.readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(f.base + index)
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
		case op.CloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.sp--

		case op.NewList:
			n := int(f.readByte())
			items := make([]object.Value, n)
			copy(items, vm.stack[vm.sp-n:vm.sp])
			list := vm.heap.NewList(items)
			vm.sp -= n
			vm.push(object.ObjValue(list))
		case op.NewFrozenList:
			n := int(f.readByte())
			fl, err := vm.heap.FreezeList(vm.stack[vm.sp-n : vm.sp])
			if err != nil {
				return err
			}
			vm.sp -= n
			vm.push(object.ObjValue(fl))
		case op.NewDict:
			n := int(f.readByte())
			dict := vm.heap.NewDict()
			vm.push(object.ObjValue(dict))
			entries := vm.stack[vm.sp-1-2*n : vm.sp-1]
			for i := 0; i < len(entries); i += 2 {
				if _, err := dict.Map.Set(entries[i], entries[i+1]); err != nil {
					return err
				}
			}
			vm.sp -= 2*n + 1
			vm.push(object.ObjValue(dict))
		case op.NewFrozenDict:
			n := int(f.readByte())
			m := object.NewMap()
			entries := vm.stack[vm.sp-2*n : vm.sp]
			for i := 0; i < len(entries); i += 2 {
				if _, err := m.Set(entries[i], entries[i+1]); err != nil {
					return err
				}
			}
			fd, err := vm.heap.FreezeDict(m)
			if err != nil {
				return err
			}
			vm.sp -= 2 * n
			vm.push(object.ObjValue(fd))

		case op.Class:
			vm.push(object.ObjValue(vm.heap.NewClass(f.readString())))
		case op.Inherit:
			super, ok := object.As[*object.Class](vm.peek(1))
			if !ok {
				return vm.typeError("Superclass must be a class but got %s", object.TypeName(vm.peek(1)))
			}
			sub, _ := object.As[*object.Class](vm.peek(0))
			sub.Methods.AddAll(&super.Methods)
			sub.StaticMethods.AddAll(&super.StaticMethods)
			sub.Getters.AddAll(&super.Getters)
			sub.Setters.AddAll(&super.Setters)
			sub.Super = super
			vm.sp--
		case op.Method:
			class, _ := object.As[*object.Class](vm.peek(1))
			class.Methods.SetString(f.readString(), vm.peek(0))
			vm.sp--
		case op.StaticMethod:
			class, _ := object.As[*object.Class](vm.peek(1))
			class.StaticMethods.SetString(f.readString(), vm.peek(0))
			vm.sp--
		case op.Import:
			module, err := vm.importModule(f.readString().String())
			if err != nil {
				return err
			}
			vm.push(object.ObjValue(module))

		case op.TryStart:
			offset := f.readShort()
			if len(vm.tries) >= vm.maxTries {
				return vm.evalError("Too many nested try blocks")
			}
			vm.tries = append(vm.tries, trySnapshot{
				frameCount: vm.fc,
				handler:    f.ip + offset,
				sp:         vm.sp,
			})
		case op.TryEnd:
			offset := f.readShort()
			vm.tries = vm.tries[:len(vm.tries)-1]
			f.ip += offset
		case op.Raise:
			return vm.raise(vm.pop())
		case op.GetError:
			vm.push(vm.caught)
			vm.caught = object.Nil()

		default:
			errz.Fatalf("unknown opcode %d", code)
		}
	}
}

func (vm *VirtualMachine) observeStep(f *frame) error {
	cfg := vm.observerConfig
	ip := f.ip
	switch cfg.StepMode {
	case StepNone:
		return nil
	case StepSampled:
		vm.stepCount++
		if vm.stepCount < cfg.SampleInterval {
			return nil
		}
		vm.stepCount = 0
	case StepOnLine:
		line := f.thunk().LineAt(ip)
		if line == vm.lastLine {
			return nil
		}
		vm.lastLine = line
	}
	code := op.Code(f.thunk().Code[ip])
	event := StepEvent{
		IP:         ip,
		Function:   f.functionName(),
		Opcode:     code,
		OpcodeName: op.GetInfo(code).Name,
		Location:   f.location(ip),
		StackDepth: vm.sp,
		FrameDepth: vm.fc,
	}
	if !vm.observer.OnStep(event) {
		return errHalted
	}
	return nil
}

func (vm *VirtualMachine) observeCall(name string, argc int) error {
	if vm.observer == nil || !vm.observerConfig.ObserveCalls {
		return nil
	}
	event := CallEvent{
		FunctionName: name,
		ArgCount:     argc,
		Location:     vm.getCurrentLocation(),
		FrameDepth:   vm.fc,
	}
	if !vm.observer.OnCall(event) {
		return errHalted
	}
	return nil
}

func (vm *VirtualMachine) observeReturn(f *frame) error {
	if vm.observer == nil || !vm.observerConfig.ObserveReturns {
		return nil
	}
	event := ReturnEvent{
		FunctionName: f.functionName(),
		Location:     f.location(f.ip - 1),
		FrameDepth:   vm.fc - 1,
	}
	if !vm.observer.OnReturn(event) {
		return errHalted
	}
	return nil
}
