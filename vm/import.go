package vm

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
)

// SourceExt is the file extension of script modules.
const SourceExt = ".ks"

// importModule returns the module called name. Modules are looked up in
// the cache, then among native modules, then as source files in the
// archive, the main directory and the search path, in that order.
func (vm *VirtualMachine) importModule(name string) (*object.Instance, error) {
	if module, ok := vm.modules[name]; ok {
		return module, nil
	}
	if init, ok := vm.nativeModules[name]; ok {
		return vm.initNativeModule(name, init)
	}
	src, filename, err := vm.findSource(name)
	if err != nil {
		return nil, err
	}
	vm.logger.Debug().Str("module", name).Str("file", filename).Msg("importing module")
	thunk, err := compiler.Compile(vm.heap, src,
		compiler.WithModuleName(name),
		compiler.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	module, _, err := vm.execModule(name, thunk)
	if err != nil {
		return nil, err
	}
	return module, nil
}

func (vm *VirtualMachine) initNativeModule(name string, init NativeModule) (*object.Instance, error) {
	resume := vm.heap.Pause()
	defer resume()
	key := vm.heap.Intern(name)
	module := vm.heap.NewModule(key)
	module.Fields.SetString(vm.names.name, object.StringValue(key))
	vm.modules[name] = module
	if err := init(vm.rt, module); err != nil {
		delete(vm.modules, name)
		return nil, err
	}
	vm.logger.Debug().Str("module", name).Msg("initialized native module")
	return module, nil
}

// findSource reads the source of the module called name.
func (vm *VirtualMachine) findSource(name string) (string, string, error) {
	rel := strings.ReplaceAll(name, ".", "/") + SourceExt
	var result *multierror.Error
	if vm.archive != nil {
		src, err := readFS(vm.archive, rel)
		if err == nil {
			return src, rel, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, err)
		}
	}
	var dirs []string
	if vm.mainDir != "" {
		dirs = append(dirs, vm.mainDir)
	}
	dirs = append(dirs, vm.searchPath...)
	for _, dir := range dirs {
		filename := filepath.Join(dir, filepath.FromSlash(rel))
		data, err := os.ReadFile(filename)
		if err == nil {
			return string(data), filename, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, err)
		}
	}
	notFound := errz.NewStructuredErrorf(errz.ErrImport, errz.SourceLocation{}, nil, "Module '%s' not found", name)
	if err := result.ErrorOrNil(); err != nil {
		return "", "", notFound.WithCause(err)
	}
	return "", "", notFound
}

func readFS(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(path.Clean(name))
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
