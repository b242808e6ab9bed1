package vm

import (
	"archive/zip"
	"io"

	"github.com/rs/zerolog"

	"github.com/kestrel-lang/kestrel/object"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// NativeModule populates a module implemented in Go. It runs once, the
// first time the module is imported.
type NativeModule func(rt object.Runtime, module *object.Instance) error

// WithGlobals provides global variables visible to every module. Values
// are converted with FromGo.
func WithGlobals(globals map[string]any) Option {
	return func(vm *VirtualMachine) {
		for name, value := range globals {
			vm.inputGlobals[name] = value
		}
	}
}

// WithBuiltins adds native functions to the builtin scope.
func WithBuiltins(fns ...*object.CFunction) Option {
	return func(vm *VirtualMachine) {
		vm.inputBuiltins = append(vm.inputBuiltins, fns...)
	}
}

// WithLogger sets the logger used for import and execution diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of 0
// disables deterministic checking, relying only on the background goroutine
// that monitors the context. The default is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithObserver sets an observer for VM execution events.
// Returning false from any observer method halts execution immediately.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithSearchPath appends directories searched for source modules.
func WithSearchPath(dirs ...string) Option {
	return func(vm *VirtualMachine) {
		vm.searchPath = append(vm.searchPath, dirs...)
	}
}

// WithArchive makes the modules stored in a zip archive importable. The
// archive is searched before the search path.
func WithArchive(archive *zip.Reader) Option {
	return func(vm *VirtualMachine) {
		vm.archive = archive
	}
}

// WithMainDir sets the directory of the main script, which is searched
// first for source modules.
func WithMainDir(dir string) Option {
	return func(vm *VirtualMachine) {
		vm.mainDir = dir
	}
}

// WithNativeModules registers modules implemented in Go.
func WithNativeModules(modules map[string]NativeModule) Option {
	return func(vm *VirtualMachine) {
		for name, load := range modules {
			vm.nativeModules[name] = load
		}
	}
}

// WithStdout sets the writer that print and friends write to.
func WithStdout(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.stdout = w
	}
}

// WithMaxFrames limits the depth of the call stack.
func WithMaxFrames(n int) Option {
	return func(vm *VirtualMachine) {
		if n > 0 {
			vm.maxFrames = n
		}
	}
}

// WithMaxTrySnapshots limits how many try blocks may be active at once.
func WithMaxTrySnapshots(n int) Option {
	return func(vm *VirtualMachine) {
		if n > 0 {
			vm.maxTries = n
		}
	}
}
