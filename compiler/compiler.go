// Package compiler translates kestrel source text into bytecode.
//
// # Single-Pass Compilation
//
// The compiler pulls tokens from the lexer and emits bytecode as it goes; no
// syntax tree is ever built. Statements are handled by recursive descent and
// expressions by a Pratt parser: a table maps each token type to an optional
// prefix handler, an optional infix handler and the infix precedence.
//
// Forward jumps are emitted with a placeholder offset and backpatched once
// the target is known. Offsets are 16 bits wide, so a single jump or loop
// can span at most 65535 bytes of code.
//
// # Scopes
//
// Each function being compiled has an environment holding its locals and
// upvalues. A name resolves, in order, to:
//
//   - Local: a slot in the current call frame (GET_LOCAL/SET_LOCAL)
//   - Upvalue: a variable of an enclosing function, captured by the closure
//     (GET_UPVALUE/SET_UPVALUE)
//   - Global: a field of the module, looked up by name when the code runs
//     (GET_GLOBAL/SET_GLOBAL)
//
// Upvalue resolution walks the enclosing environments recursively and marks
// the captured local so that leaving its scope closes the upvalue instead of
// just popping the slot. Repeated captures of one variable share a slot.
//
// Compilation is all or nothing: the first error aborts it and no thunk is
// returned.
//
// # Garbage Collection
//
// Thunks under construction are reachable only from the compiler, so the
// compiler registers itself as a root set on the heap for the duration of a
// compilation. Strings are stored into a rooted thunk as soon as they are
// interned.
package compiler

import (
	"math"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/internal/lexer"
	"github.com/kestrel-lang/kestrel/internal/token"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

const (
	// MaxConstants is the size limit of a thunk's constant pool.
	MaxConstants = 255
	// MaxLocals is the number of local slots available to one function,
	// including the receiver slot.
	MaxLocals = 255
	// MaxUpvalues is the number of variables one closure may capture.
	MaxUpvalues = 255
	// MaxArgs is the maximum number of arguments in a call.
	MaxArgs = 255

	// DefaultModuleName names the module compiled when no name is given.
	DefaultModuleName = "__main__"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithModuleName sets the name of the module being compiled.
func WithModuleName(name string) Option {
	return func(c *Compiler) {
		c.moduleName = name
	}
}

// WithFilename sets the filename reported in errors and stack traces.
func WithFilename(name string) Option {
	return func(c *Compiler) {
		c.filename = name
	}
}

// Compiler compiles source text for one module into a thunk.
type Compiler struct {
	heap       *object.Heap
	lexer      *lexer.Lexer
	filename   string
	moduleName string

	current   token.Token
	previous  token.Token
	lookahead []token.Token

	env   *environment
	class *classInfo

	// Set while compiling the target of a del statement.
	delTarget  bool
	delEmitted bool
}

// New returns a Compiler that allocates on heap.
func New(heap *object.Heap, opts ...Option) *Compiler {
	c := &Compiler{heap: heap, moduleName: DefaultModuleName}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles src into the thunk for a module's top-level code.
func Compile(heap *object.Heap, src string, opts ...Option) (*object.Thunk, error) {
	return New(heap, opts...).Compile(src)
}

// Compile compiles src. The returned thunk is not rooted; the caller must
// make it reachable before allocating again.
//
// When the last top-level statement is an expression, the thunk returns
// its value instead of nil.
func (c *Compiler) Compile(src string) (*object.Thunk, error) {
	c.lexer = lexer.New(src, lexer.WithFile(c.filename))
	c.lookahead = nil
	c.class = nil
	remove := c.heap.AddRoots(c)
	defer remove()

	thunk := c.heap.NewThunk(nil, nil)
	c.env = newEnvironment(nil, thunk, kindScript)
	thunk.ModuleName = c.heap.Intern(c.moduleName)
	thunk.Name = thunk.ModuleName
	thunk.Filename = c.filename

	if err := c.advance(); err != nil {
		return nil, err
	}
	for !c.at(token.EOF) {
		if err := c.declaration(); err != nil {
			return nil, err
		}
	}
	c.emit(op.Nil)
	c.emit(op.Return)
	c.env = nil
	return thunk, nil
}

// MarkRoots marks the thunks of every function currently being compiled.
func (c *Compiler) MarkRoots(h *object.Heap) {
	for env := c.env; env != nil; env = env.enclosing {
		h.MarkObject(env.thunk)
	}
}

func (c *Compiler) advance() error {
	c.previous = c.current
	if len(c.lookahead) > 0 {
		c.current = c.lookahead[0]
		c.lookahead = c.lookahead[1:]
		return nil
	}
	tok, err := c.lexer.Next()
	if err != nil {
		return err
	}
	c.current = tok
	return nil
}

// peek returns the token after the current one without consuming anything.
func (c *Compiler) peek() (token.Token, error) {
	if len(c.lookahead) == 0 {
		tok, err := c.lexer.Next()
		if err != nil {
			return token.Token{}, err
		}
		c.lookahead = append(c.lookahead, tok)
	}
	return c.lookahead[0], nil
}

func (c *Compiler) peekIs(t token.Type) (bool, error) {
	next, err := c.peek()
	if err != nil {
		return false, err
	}
	return next.Type == t, nil
}

func (c *Compiler) at(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) expect(t token.Type) error {
	if !c.at(t) {
		return c.errorAtCurrent("Expected token %s but got %s", describe(t), describe(c.current.Type))
	}
	return c.advance()
}

// match consumes the current token if it has type t.
func (c *Compiler) match(t token.Type) (bool, error) {
	if !c.at(t) {
		return false, nil
	}
	return true, c.advance()
}

func (c *Compiler) atStatementEnd() bool {
	switch c.current.Type {
	case token.NEWLINE, token.SEMICOLON, token.EOF, token.DEDENT:
		return true
	}
	return false
}

func (c *Compiler) expectStatementEnd() error {
	switch c.current.Type {
	case token.NEWLINE, token.SEMICOLON:
		return c.advance()
	case token.EOF, token.DEDENT:
		return nil
	}
	return c.errorAtCurrent("Expected end of statement but got %s", describe(c.current.Type))
}

func (c *Compiler) skipNewlines() error {
	for c.at(token.NEWLINE) {
		if err := c.advance(); err != nil {
			return err
		}
	}
	return nil
}

func describe(t token.Type) string {
	switch t {
	case token.EOF, token.NEWLINE, token.INDENT, token.DEDENT, token.IDENT,
		token.NUMBER, token.NUMBER_HEX, token.NUMBER_BIN, token.STRING, token.RAW_STRING:
		return string(t)
	}
	return "'" + string(t) + "'"
}

func (c *Compiler) errorAt(tok token.Token, format string, args ...any) error {
	return errz.NewStructuredErrorf(errz.ErrSyntax, errz.SourceLocation{
		Filename: c.filename,
		Line:     tok.StartPosition.LineNumber(),
		Column:   tok.StartPosition.ColumnNumber(),
		Source:   c.lexer.GetLineText(tok),
	}, nil, format, args...)
}

// errorf reports an error at the token just consumed.
func (c *Compiler) errorf(format string, args ...any) error {
	return c.errorAt(c.previous, format, args...)
}

func (c *Compiler) errorAtCurrent(format string, args ...any) error {
	return c.errorAt(c.current, format, args...)
}

// Bytecode emission

func (c *Compiler) thunk() *object.Thunk {
	return c.env.thunk
}

func (c *Compiler) line() int {
	return c.previous.StartPosition.LineNumber()
}

func (c *Compiler) pos() int {
	return len(c.thunk().Code)
}

func (c *Compiler) emit(code op.Code, operands ...byte) {
	t := c.thunk()
	line := c.line()
	t.Write(byte(code), line)
	for _, b := range operands {
		t.Write(b, line)
	}
}

// emitJump emits a forward jump with a placeholder offset and returns the
// position of the offset for patchJump.
func (c *Compiler) emitJump(code op.Code) int {
	c.emit(code, 0xff, 0xff)
	return c.pos() - 2
}

func (c *Compiler) patchJump(at int) error {
	jump := c.pos() - at - 2
	if jump > math.MaxUint16 {
		return c.errorf("Too much code to jump over")
	}
	code := c.thunk().Code
	code[at] = byte(jump >> 8)
	code[at+1] = byte(jump)
	return nil
}

func (c *Compiler) emitLoop(start int) error {
	c.emit(op.Loop)
	offset := c.pos() - start + 2
	if offset > math.MaxUint16 {
		return c.errorf("Loop body too large")
	}
	t := c.thunk()
	t.Write(byte(offset>>8), c.line())
	t.Write(byte(offset), c.line())
	return nil
}

// makeConstant adds v to the constant pool, reusing an existing entry for
// primitive values and strings.
func (c *Compiler) makeConstant(v object.Value) (byte, error) {
	t := c.thunk()
	if !v.IsObj() {
		for i, k := range t.Constants {
			if k.Type() == v.Type() && object.Is(k, v) {
				return byte(i), nil
			}
		}
	}
	if len(t.Constants) >= MaxConstants {
		return 0, c.errorf("Too many constants in thunk")
	}
	t.Constants = append(t.Constants, v)
	return byte(len(t.Constants) - 1), nil
}

func (c *Compiler) nameConstant(name string) (byte, error) {
	return c.makeConstant(c.heap.Str(name))
}

func (c *Compiler) emitConstant(v object.Value) error {
	idx, err := c.makeConstant(v)
	if err != nil {
		return err
	}
	c.emit(op.Constant, idx)
	return nil
}

// emitWithName emits an instruction whose first operand names a constant
// string, followed by any extra operands.
func (c *Compiler) emitWithName(code op.Code, name string, extra ...byte) error {
	idx, err := c.nameConstant(name)
	if err != nil {
		return err
	}
	c.emit(code, append([]byte{idx}, extra...)...)
	return nil
}
