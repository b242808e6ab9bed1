package object

import (
	"errors"

	"github.com/rs/zerolog"
)

const (
	// DefaultInitialThreshold is the accounted size that triggers the first
	// collection.
	DefaultInitialThreshold = 1024 * 1024
	// DefaultGrowFactor multiplies the live size after a collection to get
	// the next threshold.
	DefaultGrowFactor = 2
	// MaxForeverValues bounds the set of values pinned with Keep.
	MaxForeverValues = 128
)

// ErrTooManyForeverValues is returned by Keep when the forever set is full.
var ErrTooManyForeverValues = errors.New("too many forever values")

// RootSet is implemented by owners of references the collector cannot see
// on its own, such as a VM's stack or a compiler's function chain.
type RootSet interface {
	MarkRoots(h *Heap)
}

// Stats summarizes the state of a Heap.
type Stats struct {
	Collections int
	Objects     int
	Strings     int
	Bytes       int
	StringBytes int
	NextGC      int
	LastFreed   int
	FrozenLists int
	FrozenDicts int
}

// HeapOption configures a Heap.
type HeapOption func(*Heap)

// WithLogger sets the logger used to report collections.
func WithLogger(logger zerolog.Logger) HeapOption {
	return func(h *Heap) {
		h.logger = logger
	}
}

// WithInitialThreshold sets the size that triggers the first collection.
func WithInitialThreshold(bytes int) HeapOption {
	return func(h *Heap) {
		if bytes > 0 {
			h.nextGC = bytes
			h.minThreshold = bytes
		}
	}
}

// WithGrowFactor sets how the threshold grows after each collection.
func WithGrowFactor(factor int) HeapOption {
	return func(h *Heap) {
		if factor > 1 {
			h.growFactor = factor
		}
	}
}

// WithStress makes every allocation trigger a full collection.
func WithStress(stress bool) HeapOption {
	return func(h *Heap) {
		h.stress = stress
	}
}

// Heap allocates kestrel objects and reclaims unreachable ones with a
// tracing mark-sweep collector. Every object is linked into one intrusive
// list; interned strings live in a separate table. A Heap is not safe for
// concurrent use.
type Heap struct {
	logger       zerolog.Logger
	objects      Obj
	objectCount  int
	bytes        int
	nextGC       int
	minThreshold int
	growFactor   int
	stress       bool

	strings     map[string]*String
	stringBytes int

	frozenLists Map
	frozenDicts Map

	gray       []Obj
	forever    []Value
	temps      []Value
	roots      []RootSet
	pause      int
	pending    bool
	collecting bool
	stats      Stats
}

// NewHeap returns an empty Heap.
func NewHeap(opts ...HeapOption) *Heap {
	h := &Heap{
		logger:       zerolog.Nop(),
		nextGC:       DefaultInitialThreshold,
		minThreshold: DefaultInitialThreshold,
		growFactor:   DefaultGrowFactor,
		strings:      map[string]*String{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddRoots registers a root set and returns a function that removes it.
func (h *Heap) AddRoots(r RootSet) func() {
	h.roots = append(h.roots, r)
	return func() {
		for i := len(h.roots) - 1; i >= 0; i-- {
			if h.roots[i] == r {
				h.roots = append(h.roots[:i], h.roots[i+1:]...)
				return
			}
		}
	}
}

// Keep pins v for the lifetime of the heap.
func (h *Heap) Keep(v Value) error {
	if len(h.forever) >= MaxForeverValues {
		return ErrTooManyForeverValues
	}
	h.forever = append(h.forever, v)
	return nil
}

// Pause defers collections until the returned function is called. Pauses
// nest; a collection requested while paused runs when the last pause ends.
// Objects allocated while paused are held as temporary roots until the
// pause that was active at their allocation ends, so they survive a Lift.
func (h *Heap) Pause() (resume func()) {
	h.pause++
	base := len(h.temps)
	return func() {
		h.pause--
		clear(h.temps[base:])
		h.temps = h.temps[:base]
		if h.pause == 0 && h.pending {
			h.pending = false
			h.Collect()
		}
	}
}

// Lift lets collections run again while paused code re-enters the
// interpreter, for example a native calling back into a script function.
// The returned function restores the pause count.
func (h *Heap) Lift() (restore func()) {
	saved := h.pause
	if saved == 0 {
		return func() {}
	}
	h.pause = 0
	if h.pending && !h.collecting {
		h.pending = false
		h.Collect()
	}
	return func() { h.pause = saved }
}

// Hold roots v until the current pause ends. It does nothing when the heap
// is not paused.
func (h *Heap) Hold(v Value) {
	if h.pause > 0 {
		h.temps = append(h.temps, v)
	}
}

// Account charges delta more bytes to o, for example when a list grows.
// It may trigger a collection, so o must already be reachable.
func (h *Heap) Account(o Obj, delta int) {
	o.hdr().size += delta
	h.reserve(delta)
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.Objects = h.objectCount
	s.Strings = len(h.strings)
	s.Bytes = h.bytes
	s.StringBytes = h.stringBytes
	s.NextGC = h.nextGC
	s.FrozenLists = h.frozenLists.Len()
	s.FrozenDicts = h.frozenDicts.Len()
	return s
}

// reserve accounts for size bytes and collects first when the threshold
// is crossed. New objects are linked only after reserve returns, so an
// object is never swept during its own allocation.
func (h *Heap) reserve(size int) {
	h.bytes += size
	if !h.stress && h.bytes+h.stringBytes <= h.nextGC {
		return
	}
	if h.pause > 0 || h.collecting {
		h.pending = true
		return
	}
	h.Collect()
}

func (h *Heap) link(o Obj, size int) {
	hd := o.hdr()
	hd.size = size
	hd.next = h.objects
	h.objects = o
	h.objectCount++
	if h.pause > 0 {
		h.temps = append(h.temps, ObjValue(o))
	}
}

// Intern returns the unique String with the given contents.
func (h *Heap) Intern(s string) *String {
	if str, ok := h.strings[s]; ok {
		h.Hold(StringValue(str))
		return str
	}
	str := newString(s)
	size := str.accountedSize()
	if h.stress || h.bytes+h.stringBytes+size > h.nextGC {
		if h.pause > 0 || h.collecting {
			h.pending = true
		} else {
			h.Collect()
		}
	}
	h.strings[s] = str
	h.stringBytes += size
	h.Hold(StringValue(str))
	return str
}

// Str interns s and wraps it in a Value.
func (h *Heap) Str(s string) Value {
	return StringValue(h.Intern(s))
}

// NewList allocates a list holding items.
func (h *Heap) NewList(items []Value) *List {
	size := 40 + 32*cap(items)
	h.reserve(size)
	l := &List{Items: items}
	h.link(l, size)
	return l
}

// NewDict allocates an empty dict.
func (h *Heap) NewDict() *Dict {
	h.reserve(64)
	d := &Dict{Map: *NewMap()}
	h.link(d, 64)
	return d
}

// NewBuffer allocates a buffer holding data.
func (h *Heap) NewBuffer(data []byte) *Buffer {
	size := 40 + cap(data)
	h.reserve(size)
	b := &Buffer{Bytes: data}
	h.link(b, size)
	return b
}

// NewClass allocates a class with the given name.
func (h *Heap) NewClass(name *String) *Class {
	h.reserve(256)
	c := &Class{
		Name:          name,
		Methods:       *NewMap(),
		StaticMethods: *NewMap(),
		Getters:       *NewMap(),
		Setters:       *NewMap(),
	}
	h.link(c, 256)
	return c
}

// NewThunk allocates an empty function prototype.
func (h *Heap) NewThunk(name, moduleName *String) *Thunk {
	h.reserve(128)
	t := &Thunk{Name: name, ModuleName: moduleName}
	h.link(t, 128)
	return t
}

// NewClosure allocates a closure over thunk with room for its upvalues.
func (h *Heap) NewClosure(thunk *Thunk, module *Instance) *Closure {
	size := 48 + 8*thunk.UpvalueCount
	h.reserve(size)
	c := &Closure{
		Thunk:    thunk,
		Module:   module,
		Upvalues: make([]*Upvalue, thunk.UpvalueCount),
	}
	h.link(c, size)
	return c
}

// NewUpvalue allocates an open upvalue for the given stack slot.
func (h *Heap) NewUpvalue(slot int) *Upvalue {
	h.reserve(48)
	u := &Upvalue{open: true, slot: slot}
	h.link(u, 48)
	return u
}

// NewInstance allocates an instance of class.
func (h *Heap) NewInstance(class *Class) *Instance {
	h.reserve(64)
	i := &Instance{Class: class, Fields: *NewMap()}
	h.link(i, 64)
	return i
}

// NewModule allocates a module named name. The module is an instance of a
// fresh module class of the same name.
func (h *Heap) NewModule(name *String) *Instance {
	// One reservation covers both objects so the class cannot be swept
	// before the instance references it.
	h.reserve(256 + 64)
	class := &Class{
		Name:          name,
		Methods:       *NewMap(),
		StaticMethods: *NewMap(),
		Getters:       *NewMap(),
		Setters:       *NewMap(),
		IsModuleClass: true,
	}
	h.link(class, 256)
	inst := &Instance{Class: class, Fields: *NewMap()}
	h.link(inst, 64)
	return inst
}

// NewNative wraps a host value.
func (h *Heap) NewNative(v NativeValue) *Native {
	h.reserve(32)
	n := &Native{Value: v}
	h.link(n, 32)
	return n
}

// FreezeList returns the canonical frozen list with the given items. Every
// item must be hashable.
func (h *Heap) FreezeList(items []Value) (*FrozenList, error) {
	hash, err := hashFrozenList(items)
	if err != nil {
		return nil, err
	}
	found, ok := h.frozenLists.Find(hash, func(k Value) bool {
		other, _ := As[*FrozenList](k)
		return other != nil && identicalItems(other.Items, items)
	})
	if ok {
		fl, _ := As[*FrozenList](found)
		return fl, nil
	}
	size := 48 + 32*len(items)
	h.reserve(size)
	fl := &FrozenList{Items: append([]Value(nil), items...), hash: hash}
	h.link(fl, size)
	h.frozenLists.set(ObjValue(fl), hash, True())
	return fl, nil
}

// FreezeDict returns the canonical frozen dict with the entries of m.
// Keys and values must be hashable.
func (h *Heap) FreezeDict(m *Map) (*FrozenDict, error) {
	hash, err := hashFrozenDict(m)
	if err != nil {
		return nil, err
	}
	found, ok := h.frozenDicts.Find(hash, func(k Value) bool {
		other, _ := As[*FrozenDict](k)
		return other != nil && identicalEntries(&other.Map, m)
	})
	if ok {
		fd, _ := As[*FrozenDict](found)
		return fd, nil
	}
	size := 64 + 48*m.Len()
	h.reserve(size)
	fd := &FrozenDict{Map: *NewMap(), hash: hash}
	fd.Map.AddAll(m)
	h.link(fd, size)
	h.frozenDicts.set(ObjValue(fd), hash, True())
	return fd, nil
}

// Members of frozen collections are hashable, hence primitives, interned
// strings or other canonical frozen collections, so identity is structural
// equality here.
func identicalItems(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Is(a[i], b[i]) {
			return false
		}
	}
	return true
}

func identicalEntries(a, b *Map) bool {
	if a.Len() != b.Len() {
		return false
	}
	same := true
	a.Each(func(k, v Value) bool {
		other, ok := b.Get(k)
		same = ok && Is(v, other)
		return same
	})
	return same
}
