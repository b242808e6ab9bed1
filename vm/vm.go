// Package vm provides a VirtualMachine that executes compiled kestrel code.
//
// The machine keeps one operand stack shared by all call frames. A frame
// records the running closure, its instruction pointer and the stack index
// of its slot 0, which holds the callee (or the method receiver) and later
// receives the return value. Natives may re-enter the machine through the
// object.Runtime interface; each re-entry runs a nested dispatch loop that
// returns once its own frame has returned.
//
// Errors are Go errors. Inside a try block an error rolls the frames and
// the stack back to the snapshot taken by TRY_START and resumes at the
// handler. Errors that escape are *errz.StructuredError values carrying a
// stack trace. Broken invariants panic with *errz.FatalError and are never
// delivered to a handler.
package vm

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
)

const (
	// DefaultMaxFrames is the default limit on the depth of the call stack.
	DefaultMaxFrames = 256
	// StackSlotsPerFrame sizes the operand stack relative to the frame limit.
	StackSlotsPerFrame = 512
	// DefaultMaxTrySnapshots is the default limit on active try blocks.
	DefaultMaxTrySnapshots = 64

	// DefaultContextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

var (
	// ErrGlobalNotFound is returned by Get for unknown names.
	ErrGlobalNotFound = errors.New("global not found")
	// ErrRunning is returned when the VM is entered while it is running.
	ErrRunning = errors.New("vm is already running")

	errHalted = errors.New("execution halted by observer")
)

// VirtualMachine executes thunks produced by the compiler. It is not safe
// for concurrent use; Signal is the one method that may be called from
// another goroutine.
type VirtualMachine struct {
	heap   *object.Heap
	logger zerolog.Logger
	id     uuid.UUID

	stack        []object.Value
	sp           int
	frames       []frame
	fc           int
	tries        []trySnapshot
	openUpvalues *object.Upvalue
	caught       object.Value
	inflight     object.Value

	maxFrames int
	maxTries  int

	builtins      object.Map
	classes       builtinClasses
	nativeClasses map[*object.NativeDescriptor]*object.Class
	names         names
	modules       map[string]*object.Instance
	main          *object.Instance

	inputGlobals  map[string]any
	inputBuiltins []*object.CFunction
	nativeModules map[string]NativeModule
	searchPath    []string
	archive       *zip.Reader
	mainDir       string
	stdout        io.Writer

	ctx         context.Context
	halt        int32
	stopped     chan struct{}
	interrupted atomic.Bool
	running     bool
	runMutex    sync.Mutex

	// contextCheckInterval is the number of instructions between deterministic
	// checks of ctx.Done(). A value of 0 disables deterministic checking,
	// relying only on the background goroutine.
	contextCheckInterval int

	// observer receives callbacks for VM execution events (steps, calls, returns).
	// If nil, no callbacks are made.
	observer       Observer
	observerConfig ObserverConfig
	stepCount      int
	lastLine       int

	rt          *runtime
	removeRoots func()
}

// New creates a Virtual Machine allocating on heap. The machine registers
// itself as a root set of the heap until Close is called.
//
// New panics if a value given to WithGlobals cannot be converted.
func New(heap *object.Heap, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		heap:                 heap,
		logger:               zerolog.Nop(),
		maxFrames:            DefaultMaxFrames,
		maxTries:             DefaultMaxTrySnapshots,
		builtins:             *object.NewMap(),
		nativeClasses:        map[*object.NativeDescriptor]*object.Class{},
		modules:              map[string]*object.Instance{},
		inputGlobals:         map[string]any{},
		nativeModules:        map[string]NativeModule{},
		stdout:               os.Stdout,
		ctx:                  context.Background(),
		contextCheckInterval: DefaultContextCheckInterval,
		caught:               object.Nil(),
		inflight:             object.Nil(),
	}
	for _, opt := range options {
		opt(vm)
	}
	vm.id = uuid.Must(uuid.NewV4())
	vm.logger = vm.logger.With().Str("vm", vm.id.String()).Logger()
	vm.stack = make([]object.Value, vm.maxFrames*StackSlotsPerFrame)
	vm.frames = make([]frame, vm.maxFrames)
	vm.rt = &runtime{vm: vm}
	if vm.observer != nil {
		vm.observerConfig = vm.observer.Config().normalized()
	}

	resume := heap.Pause()
	defer resume()
	vm.removeRoots = heap.AddRoots(vm)
	vm.names = newNames(heap)
	vm.classes = newBuiltinClasses(vm)
	vm.classes.install(vm)
	heap.BindNatives(&vm.builtins, vm.inputBuiltins...)
	for name, value := range vm.inputGlobals {
		v, err := FromGo(heap, value)
		if err != nil {
			// Being unable to convert a global is a programming error in
			// the host.
			panic(fmt.Errorf("invalid global %q: %w", name, err))
		}
		vm.builtins.SetString(heap.Intern(name), v)
	}
	return vm
}

// ID returns the unique identifier of this VM instance.
func (vm *VirtualMachine) ID() string {
	return vm.id.String()
}

// Heap returns the heap the VM allocates on.
func (vm *VirtualMachine) Heap() *object.Heap {
	return vm.heap
}

// Runtime returns the interface natives use to call back into the VM.
func (vm *VirtualMachine) Runtime() object.Runtime {
	return vm.rt
}

// Close unregisters the VM from its heap. Values it owned become garbage.
func (vm *VirtualMachine) Close() {
	if vm.removeRoots != nil {
		vm.removeRoots()
		vm.removeRoots = nil
	}
}

func (vm *VirtualMachine) start(ctx context.Context) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return ErrRunning
	}
	vm.running = true
	vm.ctx = ctx
	// Halt execution when the context is cancelled
	atomic.StoreInt32(&vm.halt, 0)
	vm.stopped = make(chan struct{})
	if doneChan := ctx.Done(); doneChan != nil {
		go func(stopped <-chan struct{}) {
			select {
			case <-doneChan:
				atomic.StoreInt32(&vm.halt, 1)
			case <-stopped:
			}
		}(vm.stopped)
	}
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
	vm.ctx = context.Background()
	close(vm.stopped)
}

// guard runs fn with the VM started. Panics are translated to errors and
// leave the VM reset.
func (vm *VirtualMachine) guard(ctx context.Context, fn func() error) (err error) {
	if err := vm.start(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			vm.reset()
			if fatal, ok := r.(*errz.FatalError); ok {
				err = fatal
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
		vm.stop()
	}()
	return fn()
}

func (vm *VirtualMachine) reset() {
	vm.closeUpvalues(0)
	vm.sp = 0
	vm.fc = 0
	vm.tries = vm.tries[:0]
	vm.caught = object.Nil()
	vm.inflight = object.Nil()
}

// Run executes thunk as the main module and returns the value of its final
// expression statement, or nil. The result is not rooted: keep it with the
// heap or convert it before running more code.
func (vm *VirtualMachine) Run(ctx context.Context, thunk *object.Thunk) (result object.Value, err error) {
	err = vm.guard(ctx, func() error {
		module, v, err := vm.execModule(thunk.ModuleName.String(), thunk)
		vm.main = module
		result = v
		return err
	})
	return result, err
}

// Continue executes thunk in the namespace of the last main module, so
// globals defined by earlier runs stay visible. Without a previous run it
// behaves like Run.
func (vm *VirtualMachine) Continue(ctx context.Context, thunk *object.Thunk) (result object.Value, err error) {
	if vm.main == nil {
		return vm.Run(ctx, thunk)
	}
	err = vm.guard(ctx, func() error {
		resume := vm.heap.Pause()
		closure := object.ObjValue(vm.heap.NewClosure(thunk, vm.main))
		base, sp, tries := vm.fc, vm.sp, len(vm.tries)
		vm.push(closure)
		resume()
		result, err = vm.complete(base, sp, tries, vm.callValue(closure, 0))
		return err
	})
	return result, err
}

// RunModule executes thunk as the module called name and caches it so later
// imports of name find it.
func (vm *VirtualMachine) RunModule(ctx context.Context, name string, thunk *object.Thunk) (module *object.Instance, err error) {
	err = vm.guard(ctx, func() error {
		module, _, err = vm.execModule(name, thunk)
		return err
	})
	return module, err
}

// Call calls fn with args and returns its result.
func (vm *VirtualMachine) Call(ctx context.Context, fn object.Value, args ...object.Value) (result object.Value, err error) {
	err = vm.guard(ctx, func() error {
		result, err = vm.call(fn, args)
		return err
	})
	return result, err
}

// CallMethod invokes the method called name on recv.
func (vm *VirtualMachine) CallMethod(ctx context.Context, recv object.Value, name string, args ...object.Value) (result object.Value, err error) {
	err = vm.guard(ctx, func() error {
		result, err = vm.callMethod(recv, vm.heap.Intern(name), args)
		return err
	})
	return result, err
}

// Repr returns the source-like representation of v, calling its __repr__
// method if it has one.
func (vm *VirtualMachine) Repr(ctx context.Context, v object.Value) (s string, err error) {
	err = vm.guard(ctx, func() error {
		s, err = vm.rt.Repr(v)
		return err
	})
	return s, err
}

// Str returns the string form of v as print shows it.
func (vm *VirtualMachine) Str(ctx context.Context, v object.Value) (s string, err error) {
	err = vm.guard(ctx, func() error {
		s, err = vm.str(v)
		return err
	})
	return s, err
}

// Import loads the module called name, running it if it was not loaded
// before.
func (vm *VirtualMachine) Import(ctx context.Context, name string) (module *object.Instance, err error) {
	err = vm.guard(ctx, func() error {
		module, err = vm.importModule(name)
		return err
	})
	return module, err
}

// Get returns a global of the main module, falling back to the builtins.
func (vm *VirtualMachine) Get(name string) (object.Value, error) {
	key := vm.heap.Intern(name)
	if vm.main != nil {
		if v, ok := vm.main.Fields.GetString(key); ok {
			return v, nil
		}
	}
	if v, ok := vm.builtins.GetString(key); ok {
		return v, nil
	}
	return object.Nil(), fmt.Errorf("%w: %q", ErrGlobalNotFound, name)
}

// GlobalNames returns the names of the main module's globals.
func (vm *VirtualMachine) GlobalNames() []string {
	if vm.main == nil {
		return nil
	}
	var names []string
	vm.main.Fields.Each(func(k, _ object.Value) bool {
		names = append(names, k.AsString().String())
		return true
	})
	return names
}

// Signal asks the running code to stop. The next instruction raises a
// catchable "Interrupted" error. It is safe to call from any goroutine.
func (vm *VirtualMachine) Signal() {
	vm.interrupted.Store(true)
}

// MarkRoots marks everything the VM keeps alive.
func (vm *VirtualMachine) MarkRoots(h *object.Heap) {
	h.MarkValues(vm.stack[:vm.sp])
	for i := 0; i < vm.fc; i++ {
		h.MarkObject(vm.frames[i].closure)
	}
	for u := vm.openUpvalues; u != nil; u = u.Next {
		h.MarkObject(u)
	}
	h.MarkValue(vm.caught)
	h.MarkValue(vm.inflight)
	h.MarkMap(&vm.builtins)
	for _, m := range vm.modules {
		h.MarkObject(m)
	}
	if vm.main != nil {
		h.MarkObject(vm.main)
	}
	for _, c := range vm.nativeClasses {
		h.MarkObject(c)
	}
	vm.classes.mark(h)
	vm.names.mark(h)
}

// execModule runs thunk as the top level of a new module called name.
func (vm *VirtualMachine) execModule(name string, thunk *object.Thunk) (*object.Instance, object.Value, error) {
	resume := vm.heap.Pause()
	key := vm.heap.Intern(name)
	module := vm.heap.NewModule(key)
	vm.modules[name] = module
	module.Fields.SetString(vm.names.name, object.StringValue(key))
	closure := object.ObjValue(vm.heap.NewClosure(thunk, module))
	base, sp, tries := vm.fc, vm.sp, len(vm.tries)
	vm.push(closure)
	resume()
	result, err := vm.complete(base, sp, tries, vm.callValue(closure, 0))
	if err != nil {
		delete(vm.modules, name)
	}
	return module, result, err
}

// call calls fn and runs it to completion. On error the frames and stack
// are restored to their state before the call.
func (vm *VirtualMachine) call(fn object.Value, args []object.Value) (object.Value, error) {
	base, sp, tries := vm.fc, vm.sp, len(vm.tries)
	vm.push(fn)
	for _, arg := range args {
		vm.push(arg)
	}
	return vm.complete(base, sp, tries, vm.callValue(fn, len(args)))
}

func (vm *VirtualMachine) callMethod(recv object.Value, name *object.String, args []object.Value) (object.Value, error) {
	base, sp, tries := vm.fc, vm.sp, len(vm.tries)
	vm.push(recv)
	for _, arg := range args {
		vm.push(arg)
	}
	return vm.complete(base, sp, tries, vm.invoke(name, len(args)))
}

// complete finishes a call whose setup returned err: it runs any pushed
// frame and pops the result. The collector runs during the nested frames
// even when called from native code; the result and any raised value stay
// rooted for the caller.
func (vm *VirtualMachine) complete(base, sp, tries int, err error) (object.Value, error) {
	if err == nil && vm.fc > base {
		restore := vm.heap.Lift()
		err = vm.run(base)
		restore()
	}
	if err != nil {
		err = vm.annotate(err)
		vm.closeUpvalues(sp)
		vm.fc = base
		vm.sp = sp
		vm.tries = vm.tries[:tries]
		vm.keepRaised(err)
		return object.Nil(), err
	}
	result := vm.pop()
	vm.heap.Hold(result)
	return result, nil
}

// run executes until the frame count drops back to base, delivering errors
// to handlers of try blocks entered within this run.
func (vm *VirtualMachine) run(base int) error {
	for {
		err := vm.execute(base)
		if err == nil {
			return nil
		}
		err = vm.annotate(err)
		if !vm.recoverTo(base, err) {
			return err
		}
	}
}

func (vm *VirtualMachine) recoverTo(base int, err error) bool {
	if len(vm.tries) == 0 || !catchable(err) {
		return false
	}
	snap := vm.tries[len(vm.tries)-1]
	if snap.frameCount <= base {
		return false
	}
	vm.tries = vm.tries[:len(vm.tries)-1]
	vm.closeUpvalues(snap.sp)
	vm.fc = snap.frameCount
	vm.sp = snap.sp
	vm.frames[vm.fc-1].ip = snap.handler
	vm.caught = vm.errorValue(err)
	vm.inflight = object.Nil()
	vm.logger.Debug().Err(err).Int("frame", vm.fc).Msg("error caught")
	return true
}

func (vm *VirtualMachine) push(v object.Value) {
	if vm.sp >= len(vm.stack) {
		errz.Fatalf("value stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VirtualMachine) pop() object.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VirtualMachine) peek(distance int) object.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VirtualMachine) frame() *frame {
	return &vm.frames[vm.fc-1]
}

// captureStack builds a stack trace from the current call frames.
func (vm *VirtualMachine) captureStack() []errz.StackFrame {
	frames := make([]errz.StackFrame, 0, vm.fc)
	for i := vm.fc - 1; i >= 0; i-- {
		f := &vm.frames[i]
		frames = append(frames, errz.StackFrame{
			Function: f.functionName(),
			Location: f.location(f.ip - 1),
		})
	}
	return frames
}

// getCurrentLocation returns the source location of the current instruction.
func (vm *VirtualMachine) getCurrentLocation() errz.SourceLocation {
	if vm.fc == 0 {
		return errz.SourceLocation{}
	}
	f := vm.frame()
	return f.location(f.ip - 1)
}

// runtimeError creates a StructuredError with source location and stack trace.
func (vm *VirtualMachine) runtimeError(kind errz.ErrorKind, format string, args ...any) *errz.StructuredError {
	return errz.NewStructuredErrorf(kind, vm.getCurrentLocation(), vm.captureStack(), format, args...)
}

// typeError creates a type error with location and stack trace.
func (vm *VirtualMachine) typeError(format string, args ...any) *errz.StructuredError {
	return vm.runtimeError(errz.ErrType, format, args...)
}

// evalError creates an evaluation error with location and stack trace.
func (vm *VirtualMachine) evalError(format string, args ...any) *errz.StructuredError {
	return vm.runtimeError(errz.ErrRuntime, format, args...)
}
