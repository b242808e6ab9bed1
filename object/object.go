package object

// ObjKind identifies the kind of a heap object.
type ObjKind uint8

const (
	KindNone ObjKind = iota
	KindClass
	KindClosure
	KindThunk
	KindInstance
	KindBuffer
	KindList
	KindFrozenList
	KindDict
	KindFrozenDict
	KindNative
	KindUpvalue
)

func (k ObjKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindClosure:
		return "function"
	case KindThunk:
		return "thunk"
	case KindInstance:
		return "instance"
	case KindBuffer:
		return "buffer"
	case KindList:
		return "list"
	case KindFrozenList:
		return "frozenlist"
	case KindDict:
		return "dict"
	case KindFrozenDict:
		return "frozendict"
	case KindNative:
		return "native"
	case KindUpvalue:
		return "upvalue"
	default:
		return "none"
	}
}

// Obj is implemented by every object allocated on a Heap.
type Obj interface {
	Kind() ObjKind
	hdr() *header
}

// header is embedded in every heap object: the mark bit, the intrusive
// link to the next allocated object, and the accounted size.
type header struct {
	marked bool
	next   Obj
	size   int
}

func (h *header) hdr() *header { return h }

// List is a mutable, growable array.
type List struct {
	header
	Items []Value
}

func (*List) Kind() ObjKind { return KindList }

// FrozenList is an immutable, structurally interned list.
type FrozenList struct {
	header
	Items []Value
	hash  uint32
}

func (*FrozenList) Kind() ObjKind { return KindFrozenList }

// Hash returns the memoized structural hash.
func (f *FrozenList) Hash() uint32 { return f.hash }

// Dict is a mutable mapping backed by a Map.
type Dict struct {
	header
	Map Map
}

func (*Dict) Kind() ObjKind { return KindDict }

// FrozenDict is an immutable, structurally interned mapping.
type FrozenDict struct {
	header
	Map  Map
	hash uint32
}

func (*FrozenDict) Kind() ObjKind { return KindFrozenDict }

// Hash returns the memoized structural hash.
func (f *FrozenDict) Hash() uint32 { return f.hash }

// Buffer is a mutable byte array.
type Buffer struct {
	header
	Bytes []byte
}

func (*Buffer) Kind() ObjKind { return KindBuffer }

// Class holds the method tables of user, builtin, module and native classes.
type Class struct {
	header
	Name          *String
	Super         *Class
	Methods       Map
	StaticMethods Map
	Getters       Map
	Setters       Map
	Descriptor    *NativeDescriptor

	// Optional overrides used by builtin classes.
	Call        *CFunction // invoked when an instance is called
	Getattr     *CFunction // consulted when a field is missing
	Setattr     *CFunction // replaces field assignment
	Instantiate *CFunction // invoked when the class itself is called

	IsModuleClass bool
	IsBuiltin     bool
}

func (*Class) Kind() ObjKind { return KindClass }

// IsSubclassOf reports whether c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == other {
			return true
		}
	}
	return false
}

// Thunk is a compiled function prototype. It is not callable on its own;
// the VM binds it to upvalues and a module to form a Closure.
type Thunk struct {
	header
	Name         *String
	ModuleName   *String
	Filename     string
	Code         []byte
	Lines        []int
	Constants    []Value
	Arity        int
	DefaultArgs  []Value
	UpvalueCount int
	ParamNames   []*String
}

func (*Thunk) Kind() ObjKind { return KindThunk }

// Write appends one byte of bytecode along with its source line.
func (t *Thunk) Write(b byte, line int) {
	t.Code = append(t.Code, b)
	t.Lines = append(t.Lines, line)
}

// LineAt returns the source line for the instruction at ip.
func (t *Thunk) LineAt(ip int) int {
	if ip < 0 || len(t.Lines) == 0 {
		return 0
	}
	if ip >= len(t.Lines) {
		ip = len(t.Lines) - 1
	}
	return t.Lines[ip]
}

// RequiredArity is the number of parameters without default values.
func (t *Thunk) RequiredArity() int {
	return t.Arity - len(t.DefaultArgs)
}

// Closure binds a Thunk to its module and captured upvalues.
type Closure struct {
	header
	Thunk    *Thunk
	Module   *Instance
	Upvalues []*Upvalue
}

func (*Closure) Kind() ObjKind { return KindClosure }

// Upvalue refers to a variable of an enclosing function. While the
// variable's frame is live the upvalue is open and names a stack slot;
// afterwards it is closed and owns the value.
type Upvalue struct {
	header
	open   bool
	slot   int
	closed Value
	// Next links open upvalues in descending slot order.
	Next *Upvalue
}

func (*Upvalue) Kind() ObjKind { return KindUpvalue }

// IsOpen reports whether the upvalue still refers to a stack slot.
func (u *Upvalue) IsOpen() bool { return u.open }

// Slot returns the stack index of an open upvalue.
func (u *Upvalue) Slot() int { return u.slot }

// Get reads the upvalue, consulting stack when it is open.
func (u *Upvalue) Get(stack []Value) Value {
	if u.open {
		return stack[u.slot]
	}
	return u.closed
}

// Set writes the upvalue, writing through to stack when it is open.
func (u *Upvalue) Set(stack []Value, v Value) {
	if u.open {
		stack[u.slot] = v
		return
	}
	u.closed = v
}

// Close copies the value out of the stack and detaches the upvalue from it.
func (u *Upvalue) Close(stack []Value) {
	if !u.open {
		return
	}
	u.closed = stack[u.slot]
	u.open = false
	u.slot = -1
}

// Instance is an object of a user class. Modules are instances of a
// synthetic module class whose fields form the module namespace.
type Instance struct {
	header
	Class  *Class
	Fields Map
}

func (*Instance) Kind() ObjKind { return KindInstance }

// Native wraps a host value exposed to scripts.
type Native struct {
	header
	Value NativeValue
}

func (*Native) Kind() ObjKind { return KindNative }

// TypeName returns the user-facing name of v's type.
func TypeName(v Value) string {
	switch v.typ {
	case NilType:
		return "nil"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case CFunctionType:
		return "function"
	case SentinelType:
		return "sentinel"
	}
	switch o := v.AsObj().(type) {
	case *Instance:
		if o.Class.IsModuleClass {
			return "module"
		}
		return o.Class.Name.String()
	case *Native:
		return o.Value.Descriptor().Name
	case Obj:
		return o.Kind().String()
	}
	return "unknown"
}
