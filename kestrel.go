// Package kestrel embeds the kestrel scripting language in Go programs.
//
// Eval is the quickest way to run a script:
//
//	result, err := kestrel.Eval(ctx, "1 + 2")
//
// Each call to Eval or Run gets its own heap and virtual machine. Use NewVM
// for an interpreter whose globals persist between evaluations, as a REPL
// needs.
package kestrel

import (
	"archive/zip"
	"context"
	"io"
	"maps"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kestrel-lang/kestrel/builtins"
	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/config"
	modBcrypt "github.com/kestrel-lang/kestrel/modules/bcrypt"
	modBmon "github.com/kestrel-lang/kestrel/modules/bmon"
	modCbor "github.com/kestrel-lang/kestrel/modules/cbor"
	modFilepath "github.com/kestrel-lang/kestrel/modules/filepath"
	modFmt "github.com/kestrel-lang/kestrel/modules/fmt"
	modJMESPath "github.com/kestrel-lang/kestrel/modules/jmespath"
	modJSON "github.com/kestrel-lang/kestrel/modules/json"
	modMath "github.com/kestrel-lang/kestrel/modules/math"
	modOS "github.com/kestrel-lang/kestrel/modules/os"
	modRand "github.com/kestrel-lang/kestrel/modules/rand"
	modRegexp "github.com/kestrel-lang/kestrel/modules/regexp"
	modStrings "github.com/kestrel-lang/kestrel/modules/strings"
	modText "github.com/kestrel-lang/kestrel/modules/text"
	modTime "github.com/kestrel-lang/kestrel/modules/time"
	modUUID "github.com/kestrel-lang/kestrel/modules/uuid"
	modYAML "github.com/kestrel-lang/kestrel/modules/yaml"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

// Option configures compilation and execution.
type Option func(*options)

type options struct {
	globals        map[string]any
	filename       string
	observer       vm.Observer
	stdout         io.Writer
	logger         zerolog.Logger
	cfg            *config.Config
	args           []string
	modules        map[string]vm.NativeModule
	defaultModules bool
	searchPath     []string
	archive        *zip.Reader
	mainDir        string
}

func collectOptions(opts ...Option) *options {
	o := &options{
		globals:        map[string]any{},
		modules:        map[string]vm.NativeModule{},
		defaultModules: true,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) compilerOpts() []compiler.Option {
	var opts []compiler.Option
	if o.filename != "" {
		opts = append(opts, compiler.WithFilename(o.filename))
	}
	return opts
}

func (o *options) heapOpts() []object.HeapOption {
	if o.cfg != nil {
		return o.cfg.HeapOptions(o.logger)
	}
	return []object.HeapOption{object.WithLogger(o.logger)}
}

func (o *options) vmOpts() ([]vm.Option, error) {
	var opts []vm.Option
	if o.cfg != nil {
		cfgOpts, err := o.cfg.VMOptions()
		if err != nil {
			return nil, err
		}
		opts = append(opts, cfgOpts...)
	}
	modules := map[string]vm.NativeModule{}
	if o.defaultModules {
		maps.Copy(modules, DefaultModules(o.args))
	}
	maps.Copy(modules, o.modules)
	opts = append(opts,
		vm.WithLogger(o.logger),
		vm.WithBuiltins(builtins.Builtins()...),
		vm.WithNativeModules(modules),
	)
	if len(o.globals) > 0 {
		opts = append(opts, vm.WithGlobals(o.globals))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.stdout != nil {
		opts = append(opts, vm.WithStdout(o.stdout))
	}
	if len(o.searchPath) > 0 {
		opts = append(opts, vm.WithSearchPath(o.searchPath...))
	}
	if o.archive != nil {
		opts = append(opts, vm.WithArchive(o.archive))
	}
	if o.mainDir != "" {
		opts = append(opts, vm.WithMainDir(o.mainDir))
	}
	return opts, nil
}

// WithGlobals makes Go values visible to scripts as builtins. The option is
// additive; if a name is given more than once the last value wins. Values
// are converted with vm.FromGo.
func WithGlobals(globals map[string]any) Option {
	return func(o *options) {
		maps.Copy(o.globals, globals)
	}
}

// WithGlobal makes one Go value visible to scripts.
func WithGlobal(name string, value any) Option {
	return func(o *options) {
		o.globals[name] = value
	}
}

// WithFilename sets the filename used in error messages and stack traces.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithObserver sets an observer for VM execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithStdout redirects print and other script output.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfig applies heap and VM settings loaded from a kestrel.toml file.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithArgs sets the command line arguments exposed as os.args.
func WithArgs(args []string) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithModule registers a native module importable under name. It takes
// precedence over a default module of the same name.
func WithModule(name string, module vm.NativeModule) Option {
	return func(o *options) {
		o.modules[name] = module
	}
}

// WithoutDefaultModules leaves out the modules returned by DefaultModules.
// Modules added with WithModule are still available.
func WithoutDefaultModules() Option {
	return func(o *options) {
		o.defaultModules = false
	}
}

// WithSearchPath adds directories searched by import.
func WithSearchPath(dirs ...string) Option {
	return func(o *options) {
		o.searchPath = append(o.searchPath, dirs...)
	}
}

// WithArchive makes import read modules from a zip archive.
func WithArchive(archive *zip.Reader) Option {
	return func(o *options) {
		o.archive = archive
	}
}

// WithMainDir sets the directory of the main script, searched first by
// import.
func WithMainDir(dir string) Option {
	return func(o *options) {
		o.mainDir = dir
	}
}

// DefaultModules returns the native modules available to scripts unless
// WithoutDefaultModules is given. args becomes os.args.
func DefaultModules(args []string) map[string]vm.NativeModule {
	return map[string]vm.NativeModule{
		"bcrypt":   modBcrypt.Module,
		"bmon":     modBmon.Module,
		"cbor":     modCbor.Module,
		"filepath": modFilepath.Module,
		"fmt":      modFmt.Module,
		"jmespath": modJMESPath.Module,
		"json":     modJSON.Module,
		"math":     modMath.Module,
		"os":       modOS.New(args),
		"rand":     modRand.Module,
		"regexp":   modRegexp.Module,
		"strings":  modStrings.Module,
		"text":     modText.Module,
		"time":     modTime.Module,
		"uuid":     modUUID.Module,
		"yaml":     modYAML.Module,
	}
}

// ModuleNames returns the sorted names of the default modules.
func ModuleNames() []string {
	names := make([]string, 0, 16)
	for name := range DefaultModules(nil) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Program is source code that compiled successfully. Compiled bytecode
// belongs to the heap it was allocated on, so a Program keeps the source
// and each Run compiles it again on a fresh heap.
type Program struct {
	source   string
	filename string
}

// Source returns the program text.
func (p *Program) Source() string {
	return p.source
}

// Filename returns the filename associated with this program, if any.
func (p *Program) Filename() string {
	return p.filename
}

// Compile checks that source compiles and returns it as a Program. A
// Program is immutable and may be run from many goroutines at once.
func Compile(source string, opts ...Option) (*Program, error) {
	o := collectOptions(opts...)
	if _, err := compiler.Compile(object.NewHeap(), source, o.compilerOpts()...); err != nil {
		return nil, err
	}
	return &Program{source: source, filename: o.filename}, nil
}

// Run executes p on a fresh virtual machine and returns the value of its
// final expression statement converted to Go data.
func Run(ctx context.Context, p *Program, opts ...Option) (any, error) {
	if p.filename != "" {
		opts = append([]Option{WithFilename(p.filename)}, opts...)
	}
	machine, err := NewVM(opts...)
	if err != nil {
		return nil, err
	}
	defer machine.Close()
	return machine.Eval(ctx, p.source)
}

// Eval compiles and runs source on a fresh virtual machine.
func Eval(ctx context.Context, source string, opts ...Option) (any, error) {
	machine, err := NewVM(opts...)
	if err != nil {
		return nil, err
	}
	defer machine.Close()
	return machine.Eval(ctx, source)
}
