package compiler

import (
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
	kindLambda
	kindMethod
	kindInitializer
	kindStatic
)

type local struct {
	name     string
	depth    int // -1 until the initializer completes
	captured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

type loopInfo struct {
	start     int
	depth     int
	tryDepth  int
	breaks    []int
	enclosing *loopInfo
}

type classInfo struct {
	enclosing *classInfo
	hasSuper  bool
}

// environment holds the compile-time state of one function.
type environment struct {
	enclosing *environment
	thunk     *object.Thunk
	kind      funcKind
	locals    []local
	upvalues  []upvalueRef
	depth     int
	loop      *loopInfo
	tryDepth  int
}

func newEnvironment(enclosing *environment, thunk *object.Thunk, kind funcKind) *environment {
	env := &environment{enclosing: enclosing, thunk: thunk, kind: kind}
	// Slot 0 holds the receiver for methods and the callee otherwise.
	receiver := ""
	if kind == kindMethod || kind == kindInitializer {
		receiver = "this"
	}
	env.locals = append(env.locals, local{name: receiver})
	return env
}

// variable is a declared but not yet defined variable.
type variable struct {
	global bool
	name   byte // constant index, for globals
	slot   int  // local slot, for locals
}

func (c *Compiler) inGlobalScope() bool {
	return c.env.enclosing == nil && c.env.depth == 0
}

func (c *Compiler) beginScope() {
	c.env.depth++
}

func (c *Compiler) endScope() {
	env := c.env
	env.depth--
	for len(env.locals) > 0 && env.locals[len(env.locals)-1].depth > env.depth {
		c.discardLocal(env.locals[len(env.locals)-1])
		env.locals = env.locals[:len(env.locals)-1]
	}
}

// popLocalsAbove emits the code that discards every local deeper than
// depth without forgetting them, for jumps out of nested scopes.
func (c *Compiler) popLocalsAbove(depth int) {
	locals := c.env.locals
	for i := len(locals) - 1; i >= 0 && locals[i].depth > depth; i-- {
		c.discardLocal(locals[i])
	}
}

func (c *Compiler) discardLocal(l local) {
	if l.captured {
		c.emit(op.CloseUpvalue)
	} else {
		c.emit(op.Pop)
	}
}

func (c *Compiler) addLocal(name string) (int, error) {
	if len(c.env.locals) >= MaxLocals {
		return 0, c.errorf("Too many local variables")
	}
	c.env.locals = append(c.env.locals, local{name: name, depth: -1})
	return len(c.env.locals) - 1, nil
}

// declareVariable reserves a variable. Globals record their name; locals
// take the next stack slot, which is where the initializer leaves its
// value. A variable declared ready may be referenced by its own
// initializer, as functions and classes can.
func (c *Compiler) declareVariable(name string, ready bool) (variable, error) {
	if c.inGlobalScope() {
		idx, err := c.nameConstant(name)
		if err != nil {
			return variable{}, err
		}
		return variable{global: true, name: idx}, nil
	}
	slot, err := c.addLocal(name)
	if err != nil {
		return variable{}, err
	}
	if ready {
		c.env.locals[slot].depth = c.env.depth
	}
	return variable{slot: slot}, nil
}

// defineVariable binds the value on top of the stack to v.
func (c *Compiler) defineVariable(v variable) {
	if v.global {
		c.emit(op.DefineGlobal, v.name)
		return
	}
	c.env.locals[v.slot].depth = c.env.depth
}

func (c *Compiler) resolveLocal(env *environment, name string) (int, error) {
	for i := len(env.locals) - 1; i >= 0; i-- {
		if env.locals[i].name != name {
			continue
		}
		if env.locals[i].depth == -1 {
			return 0, c.errorf("Reading a local variable in its own initializer is not allowed")
		}
		return i, nil
	}
	return -1, nil
}

func (c *Compiler) resolveUpvalue(env *environment, name string) (int, error) {
	if env.enclosing == nil {
		return -1, nil
	}
	slot, err := c.resolveLocal(env.enclosing, name)
	if err != nil {
		return 0, err
	}
	if slot != -1 {
		env.enclosing.locals[slot].captured = true
		return c.addUpvalue(env, slot, true)
	}
	index, err := c.resolveUpvalue(env.enclosing, name)
	if err != nil || index == -1 {
		return index, err
	}
	return c.addUpvalue(env, index, false)
}

func (c *Compiler) addUpvalue(env *environment, index int, isLocal bool) (int, error) {
	for i, u := range env.upvalues {
		if int(u.index) == index && u.isLocal == isLocal {
			return i, nil
		}
	}
	if len(env.upvalues) >= MaxUpvalues {
		return 0, c.errorf("Too many closure variables in thunk")
	}
	env.upvalues = append(env.upvalues, upvalueRef{index: byte(index), isLocal: isLocal})
	return len(env.upvalues) - 1, nil
}

// resolve finds how name is reached from the current function. ok is false
// when the name is global.
func (c *Compiler) resolve(name string) (get, set op.Code, index int, ok bool, err error) {
	index, err = c.resolveLocal(c.env, name)
	if err != nil {
		return
	}
	if index != -1 {
		return op.GetLocal, op.SetLocal, index, true, nil
	}
	index, err = c.resolveUpvalue(c.env, name)
	if err != nil {
		return
	}
	if index != -1 {
		return op.GetUpvalue, op.SetUpvalue, index, true, nil
	}
	return op.GetGlobal, op.SetGlobal, 0, false, nil
}

func (c *Compiler) loadVariable(name string) error {
	get, _, index, ok, err := c.resolve(name)
	if err != nil {
		return err
	}
	if ok {
		c.emit(get, byte(index))
		return nil
	}
	return c.emitWithName(op.GetGlobal, name)
}

func (c *Compiler) storeVariable(name string) error {
	_, set, index, ok, err := c.resolve(name)
	if err != nil {
		return err
	}
	if ok {
		c.emit(set, byte(index))
		return nil
	}
	return c.emitWithName(op.SetGlobal, name)
}

// loadHidden loads a compiler-introduced local such as "this" or "super",
// which never falls back to a global.
func (c *Compiler) loadHidden(name, misuse string) error {
	get, _, index, ok, err := c.resolve(name)
	if err != nil {
		return err
	}
	if !ok {
		return c.errorf("%s", misuse)
	}
	c.emit(get, byte(index))
	return nil
}
