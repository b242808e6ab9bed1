package compiler

import (
	"strings"

	"github.com/kestrel-lang/kestrel/internal/token"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

func (c *Compiler) declaration() error {
	switch c.current.Type {
	case token.CLASS:
		return c.classDeclaration()
	case token.TRAIT:
		return c.traitDeclaration()
	case token.AT:
		return c.decoratedFunction()
	case token.VAR:
		return c.varDeclaration()
	case token.DEF:
		named, err := c.peekIs(token.IDENT)
		if err != nil {
			return err
		}
		if named {
			return c.functionDeclaration()
		}
	case token.FINAL:
		named, err := c.peekIs(token.IDENT)
		if err != nil {
			return err
		}
		if named {
			return c.varDeclaration()
		}
	}
	return c.statement()
}

func (c *Compiler) statement() error {
	switch c.current.Type {
	case token.FOR:
		return c.forStatement()
	case token.IF:
		return c.ifStatement()
	case token.WHILE:
		return c.whileStatement()
	case token.RETURN:
		return c.returnStatement()
	case token.IMPORT, token.FROM:
		return c.importStatement()
	case token.BREAK:
		return c.breakStatement()
	case token.CONTINUE:
		return c.continueStatement()
	case token.ASSERT:
		return c.assertStatement()
	case token.DEL:
		return c.delStatement()
	case token.TRY:
		block, err := c.peekIs(token.COLON)
		if err != nil {
			return err
		}
		if block {
			return c.tryStatement()
		}
	case token.NEWLINE, token.SEMICOLON:
		return c.advance()
	case token.PASS:
		if err := c.advance(); err != nil {
			return err
		}
		return c.expectStatementEnd()
	}
	return c.expressionStatement()
}

// expressionStatement discards the value of an expression, except for the
// final statement of a module whose value becomes the module's result.
func (c *Compiler) expressionStatement() error {
	if err := c.expression(); err != nil {
		return err
	}
	if err := c.expectStatementEnd(); err != nil {
		return err
	}
	if c.env.kind == kindScript && c.env.depth == 0 {
		if err := c.skipNewlines(); err != nil {
			return err
		}
		if c.at(token.EOF) {
			c.emit(op.Return)
			return nil
		}
	}
	c.emit(op.Pop)
	return nil
}

// block compiles an indented block. The caller has consumed the colon.
func (c *Compiler) block(newScope bool) error {
	if newScope {
		c.beginScope()
	}
	if err := c.skipNewlines(); err != nil {
		return err
	}
	if err := c.expect(token.INDENT); err != nil {
		return err
	}
	if err := c.skipNewlines(); err != nil {
		return err
	}
	count := 0
	for !c.at(token.DEDENT) && !c.at(token.EOF) {
		count++
		if err := c.declaration(); err != nil {
			return err
		}
		if err := c.skipNewlines(); err != nil {
			return err
		}
	}
	if err := c.expect(token.DEDENT); err != nil {
		return err
	}
	if count == 0 {
		return c.errorf("Blocks require at least one declaration, but got none")
	}
	if newScope {
		c.endScope()
	}
	return nil
}

func (c *Compiler) varDeclaration() error {
	if err := c.advance(); err != nil { // var or final
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	v, err := c.declareVariable(c.previous.Literal, false)
	if err != nil {
		return err
	}
	if err := c.optionalTypeAnnotation(); err != nil {
		return err
	}
	// documentation string
	if c.at(token.STRING) || c.at(token.RAW_STRING) {
		if err := c.advance(); err != nil {
			return err
		}
	}
	if err := c.expect(token.ASSIGN); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	if err := c.expectStatementEnd(); err != nil {
		return err
	}
	c.defineVariable(v)
	return nil
}

func (c *Compiler) functionDeclaration() error {
	if err := c.advance(); err != nil { // def
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	name := c.previous.Literal
	v, err := c.declareVariable(name, true)
	if err != nil {
		return err
	}
	if err := c.function(name, kindFunction); err != nil {
		return err
	}
	c.defineVariable(v)
	return nil
}

// decoratedFunction compiles one or more "@expr" lines followed by a def.
// The function is bound to the result of applying the decorators, innermost
// first.
func (c *Compiler) decoratedFunction() error {
	count := 0
	for c.at(token.AT) {
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.parsePrecedence(precCall); err != nil {
			return err
		}
		if err := c.expectStatementEnd(); err != nil {
			return err
		}
		if err := c.skipNewlines(); err != nil {
			return err
		}
		count++
	}
	if err := c.expect(token.DEF); err != nil {
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	name := c.previous.Literal
	if err := c.function(name, kindFunction); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		c.emit(op.Call, 1)
	}
	// Declared only now: the decorators occupy the stack slots below.
	v, err := c.declareVariable(name, true)
	if err != nil {
		return err
	}
	c.defineVariable(v)
	return nil
}

// function compiles a parameter list and body and leaves a closure on the
// stack. The function name has already been consumed.
func (c *Compiler) function(name string, kind funcKind) error {
	if err := c.typeParameters(); err != nil {
		return err
	}
	thunk := c.heap.NewThunk(nil, c.thunk().ModuleName)
	env := newEnvironment(c.env, thunk, kind)
	c.env = env
	thunk.Name = c.heap.Intern(name)
	thunk.Filename = c.filename

	if err := c.parameters(); err != nil {
		return err
	}
	if ok, err := c.match(token.ARROW); err != nil {
		return err
	} else if ok {
		if err := c.typeExpression(); err != nil {
			return err
		}
	}
	if err := c.expect(token.COLON); err != nil {
		return err
	}
	if kind == kindLambda {
		if err := c.expression(); err != nil {
			return err
		}
		c.emit(op.Return)
	} else {
		if err := c.block(false); err != nil {
			return err
		}
		if kind == kindInitializer {
			c.emit(op.GetLocal, 0)
		} else {
			c.emit(op.Nil)
		}
		c.emit(op.Return)
	}
	thunk.UpvalueCount = len(env.upvalues)

	c.env = env.enclosing
	idx, err := c.makeConstant(object.ObjValue(thunk))
	if err != nil {
		return err
	}
	c.emit(op.Closure, idx)
	enclosing, line := c.thunk(), c.line()
	for _, u := range env.upvalues {
		isLocal := byte(0)
		if u.isLocal {
			isLocal = 1
		}
		enclosing.Write(isLocal, line)
		enclosing.Write(u.index, line)
	}
	return nil
}

func (c *Compiler) parameters() error {
	if err := c.expect(token.LPAREN); err != nil {
		return err
	}
	thunk := c.thunk()
	for !c.at(token.RPAREN) {
		if err := c.expect(token.IDENT); err != nil {
			return err
		}
		name := c.previous.Literal
		slot, err := c.addLocal(name)
		if err != nil {
			return err
		}
		c.env.locals[slot].depth = c.env.depth
		thunk.Arity++
		thunk.ParamNames = append(thunk.ParamNames, c.heap.Intern(name))
		if err := c.optionalTypeAnnotation(); err != nil {
			return err
		}
		if len(thunk.DefaultArgs) > 0 && !c.at(token.ASSIGN) {
			return c.errorf("Non-optional arguments may not follow any optional arguments")
		}
		if ok, err := c.match(token.ASSIGN); err != nil {
			return err
		} else if ok {
			if err := c.defaultArgument(); err != nil {
				return err
			}
		}
		if ok, err := c.match(token.COMMA); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	return c.expect(token.RPAREN)
}

// defaultArgument parses a literal default value and appends it to the
// thunk's defaults.
func (c *Compiler) defaultArgument() error {
	thunk := c.thunk()
	negate := false
	if c.at(token.MINUS) {
		negate = true
		if err := c.advance(); err != nil {
			return err
		}
	}
	tok := c.current
	var v object.Value
	switch {
	case tok.Type == token.NUMBER || tok.Type == token.NUMBER_HEX || tok.Type == token.NUMBER_BIN:
		f, err := c.parseNumber(tok)
		if err != nil {
			return err
		}
		if negate {
			f = -f
		}
		v = object.Number(f)
	case negate:
		return c.errorAtCurrent("Expected default argument expression but got %s", describe(tok.Type))
	case tok.Type == token.NIL:
		v = object.Nil()
	case tok.Type == token.TRUE:
		v = object.True()
	case tok.Type == token.FALSE:
		v = object.False()
	case tok.Type == token.STRING || tok.Type == token.RAW_STRING:
		v = c.heap.Str(tok.Literal)
	default:
		return c.errorAtCurrent("Expected default argument expression but got %s", describe(tok.Type))
	}
	thunk.DefaultArgs = append(thunk.DefaultArgs, v)
	return c.advance()
}

// Type annotations are checked for syntax only.

func (c *Compiler) optionalTypeAnnotation() error {
	if ok, err := c.match(token.COLON); err != nil || !ok {
		return err
	}
	return c.typeExpression()
}

func (c *Compiler) typeExpression() error {
	if c.at(token.NIL) {
		if err := c.advance(); err != nil {
			return err
		}
	} else if err := c.expect(token.IDENT); err != nil {
		return err
	}
	for {
		switch c.current.Type {
		case token.QUESTION:
			if err := c.advance(); err != nil {
				return err
			}
		case token.PERIOD:
			if err := c.advance(); err != nil {
				return err
			}
			if err := c.expect(token.IDENT); err != nil {
				return err
			}
		case token.BITOR:
			if err := c.advance(); err != nil {
				return err
			}
			if err := c.typeExpression(); err != nil {
				return err
			}
		case token.LBRACKET:
			if err := c.advance(); err != nil {
				return err
			}
			for c.at(token.IDENT) || c.at(token.NIL) {
				if err := c.typeExpression(); err != nil {
					return err
				}
				if ok, err := c.match(token.COMMA); err != nil {
					return err
				} else if !ok {
					break
				}
			}
			if err := c.expect(token.RBRACKET); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Compiler) typeParameters() error {
	if !c.at(token.LBRACKET) {
		return nil
	}
	if err := c.advance(); err != nil {
		return err
	}
	for c.at(token.IDENT) {
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.optionalTypeAnnotation(); err != nil {
			return err
		}
		if ok, err := c.match(token.COMMA); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	return c.expect(token.RBRACKET)
}

// importStatement compiles "import a.b [as c]" and
// "from a.b import c [as d]". Imports always bind module-level names.
func (c *Compiler) importStatement() error {
	from := c.at(token.FROM)
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	parts := []string{c.previous.Literal}
	for c.at(token.PERIOD) {
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expect(token.IDENT); err != nil {
			return err
		}
		parts = append(parts, c.previous.Literal)
	}
	module := strings.Join(parts, ".")
	alias := parts[len(parts)-1]
	member := ""
	if from {
		if err := c.expect(token.IMPORT); err != nil {
			return err
		}
		if err := c.expect(token.IDENT); err != nil {
			return err
		}
		member = c.previous.Literal
		alias = member
	}
	if ok, err := c.match(token.AS); err != nil {
		return err
	} else if ok {
		if err := c.expect(token.IDENT); err != nil {
			return err
		}
		alias = c.previous.Literal
	}
	if err := c.emitWithName(op.Import, module); err != nil {
		return err
	}
	if from {
		if err := c.emitWithName(op.GetField, member); err != nil {
			return err
		}
	}
	if err := c.emitWithName(op.DefineGlobal, alias); err != nil {
		return err
	}
	return c.expectStatementEnd()
}

func (c *Compiler) classDeclaration() error {
	info := &classInfo{enclosing: c.class}
	c.class = info
	defer func() { c.class = info.enclosing }()

	if err := c.advance(); err != nil { // class
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	name := c.previous.Literal
	if err := c.emitWithName(op.Class, name); err != nil {
		return err
	}
	v, err := c.declareVariable(name, true)
	if err != nil {
		return err
	}
	c.defineVariable(v)

	if err := c.typeParameters(); err != nil {
		return err
	}
	if ok, err := c.match(token.LPAREN); err != nil {
		return err
	} else if ok {
		if !c.at(token.RPAREN) {
			if err := c.expression(); err != nil {
				return err
			}
			info.hasSuper = true
			c.beginScope()
			super, err := c.declareVariable("super", false)
			if err != nil {
				return err
			}
			c.defineVariable(super)
			if err := c.loadVariable(name); err != nil {
				return err
			}
			c.emit(op.Inherit)
		}
		if err := c.expect(token.RPAREN); err != nil {
			return err
		}
	}
	if err := c.loadVariable(name); err != nil {
		return err
	}
	if err := c.expect(token.COLON); err != nil {
		return err
	}
	if err := c.skipNewlines(); err != nil {
		return err
	}
	if err := c.expect(token.INDENT); err != nil {
		return err
	}
	for !c.at(token.DEDENT) && !c.at(token.EOF) {
		if err := c.classMember(); err != nil {
			return err
		}
	}
	if err := c.expect(token.DEDENT); err != nil {
		return err
	}
	c.emit(op.Pop) // the class
	if info.hasSuper {
		c.endScope()
	}
	return nil
}

func (c *Compiler) classMember() error {
	switch c.current.Type {
	case token.NEWLINE, token.SEMICOLON:
		return c.advance()
	case token.STRING, token.RAW_STRING, token.PASS:
		// docstrings and placeholders
		if err := c.advance(); err != nil {
			return err
		}
		return c.expectStatementEnd()
	case token.VAR, token.FINAL:
		// Field declarations only document the class.
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expect(token.IDENT); err != nil {
			return err
		}
		if err := c.optionalTypeAnnotation(); err != nil {
			return err
		}
		if c.at(token.STRING) || c.at(token.RAW_STRING) {
			if err := c.advance(); err != nil {
				return err
			}
		}
		return c.expectStatementEnd()
	case token.STATIC:
		if err := c.advance(); err != nil {
			return err
		}
		return c.method(kindStatic, op.StaticMethod)
	case token.DEF:
		return c.method(kindMethod, op.Method)
	}
	return c.errorAtCurrent("Expected method or field declaration but got %s", describe(c.current.Type))
}

func (c *Compiler) method(kind funcKind, code op.Code) error {
	if err := c.expect(token.DEF); err != nil {
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	name := c.previous.Literal
	if kind == kindMethod && name == "__init__" {
		kind = kindInitializer
	}
	idx, err := c.nameConstant(name)
	if err != nil {
		return err
	}
	if err := c.function(name, kind); err != nil {
		return err
	}
	c.emit(code, idx)
	return nil
}

// traitDeclaration skips a trait and its body. Traits have no runtime
// effect.
func (c *Compiler) traitDeclaration() error {
	for !c.at(token.EOF) && !c.at(token.INDENT) {
		if err := c.advance(); err != nil {
			return err
		}
	}
	if c.at(token.EOF) {
		return nil
	}
	depth := 0
	for {
		switch c.current.Type {
		case token.INDENT:
			depth++
		case token.DEDENT:
			depth--
		case token.EOF:
			return nil
		}
		if err := c.advance(); err != nil {
			return err
		}
		if depth == 0 {
			return nil
		}
	}
}

func (c *Compiler) ifStatement() error {
	var endJumps []int
	for {
		if err := c.advance(); err != nil { // if or elif
			return err
		}
		if err := c.expression(); err != nil {
			return err
		}
		if err := c.expect(token.COLON); err != nil {
			return err
		}
		next := c.emitJump(op.JumpIfFalse)
		c.emit(op.Pop)
		if err := c.block(true); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emitJump(op.Jump))
		if err := c.patchJump(next); err != nil {
			return err
		}
		c.emit(op.Pop)
		if !c.at(token.ELIF) {
			break
		}
	}
	if ok, err := c.match(token.ELSE); err != nil {
		return err
	} else if ok {
		if err := c.expect(token.COLON); err != nil {
			return err
		}
		if err := c.block(true); err != nil {
			return err
		}
	}
	for _, j := range endJumps {
		if err := c.patchJump(j); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) pushLoop(start int) *loopInfo {
	l := &loopInfo{
		start:     start,
		depth:     c.env.depth,
		tryDepth:  c.env.tryDepth,
		enclosing: c.env.loop,
	}
	c.env.loop = l
	return l
}

func (c *Compiler) popLoop(l *loopInfo) error {
	c.env.loop = l.enclosing
	for _, j := range l.breaks {
		if err := c.patchJump(j); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) whileStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	start := c.pos()
	if err := c.expression(); err != nil {
		return err
	}
	if err := c.expect(token.COLON); err != nil {
		return err
	}
	exit := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	loop := c.pushLoop(start)
	if err := c.block(true); err != nil {
		return err
	}
	if err := c.emitLoop(start); err != nil {
		return err
	}
	if err := c.patchJump(exit); err != nil {
		return err
	}
	c.emit(op.Pop)
	return c.popLoop(loop)
}

// forStatement lowers "for x in e:" to a loop over an iterator kept in a
// hidden local.
func (c *Compiler) forStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	c.beginScope()
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	name := c.previous.Literal
	if err := c.expect(token.IN); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	c.emit(op.GetIter)
	iter, err := c.declareVariable("@iterator", true)
	if err != nil {
		return err
	}
	c.defineVariable(iter)

	start := c.pos()
	c.emit(op.GetNext)
	exit := c.emitJump(op.JumpIfStopIteration)
	loop := c.pushLoop(start)

	c.beginScope()
	item, err := c.declareVariable(name, true)
	if err != nil {
		return err
	}
	c.defineVariable(item)
	if err := c.expect(token.COLON); err != nil {
		return err
	}
	if err := c.block(false); err != nil {
		return err
	}
	c.endScope()

	if err := c.emitLoop(start); err != nil {
		return err
	}
	if err := c.patchJump(exit); err != nil {
		return err
	}
	c.emit(op.Pop) // StopIteration
	if err := c.popLoop(loop); err != nil {
		return err
	}
	c.endScope()
	return nil
}

func (c *Compiler) loopForJump(keyword string) (*loopInfo, error) {
	loop := c.env.loop
	if loop == nil {
		return nil, c.errorf("'%s' outside loop", keyword)
	}
	if loop.tryDepth != c.env.tryDepth {
		return nil, c.errorf("'%s' cannot cross a try block", keyword)
	}
	return loop, nil
}

func (c *Compiler) breakStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	loop, err := c.loopForJump("break")
	if err != nil {
		return err
	}
	c.popLocalsAbove(loop.depth)
	loop.breaks = append(loop.breaks, c.emitJump(op.Jump))
	return c.expectStatementEnd()
}

func (c *Compiler) continueStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	loop, err := c.loopForJump("continue")
	if err != nil {
		return err
	}
	c.popLocalsAbove(loop.depth)
	if err := c.emitLoop(loop.start); err != nil {
		return err
	}
	return c.expectStatementEnd()
}

func (c *Compiler) returnStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	kind := c.env.kind
	if kind == kindScript {
		return c.errorf("Cannot return from top-level code")
	}
	if c.atStatementEnd() {
		if kind == kindInitializer {
			c.emit(op.GetLocal, 0)
		} else {
			c.emit(op.Nil)
		}
	} else {
		if kind == kindInitializer {
			return c.errorf("Cannot return a value from an initializer")
		}
		if err := c.expression(); err != nil {
			return err
		}
	}
	if err := c.expectStatementEnd(); err != nil {
		return err
	}
	c.emit(op.Return)
	return nil
}

// tryStatement compiles
//
//	try:
//	  body
//	except [as name]:
//	  handler
//
// TRY_START records a snapshot that the VM rolls back to when the body
// raises; TRY_END discards it and skips the handler.
func (c *Compiler) tryStatement() error {
	if err := c.advance(); err != nil { // try
		return err
	}
	if err := c.expect(token.COLON); err != nil {
		return err
	}
	handler := c.emitJump(op.TryStart)
	c.env.tryDepth++
	if err := c.block(true); err != nil {
		return err
	}
	c.env.tryDepth--
	end := c.emitJump(op.TryEnd)
	if err := c.patchJump(handler); err != nil {
		return err
	}
	if err := c.skipNewlines(); err != nil {
		return err
	}
	if err := c.expect(token.EXCEPT); err != nil {
		return err
	}
	c.beginScope()
	if ok, err := c.match(token.AS); err != nil {
		return err
	} else if ok {
		if err := c.expect(token.IDENT); err != nil {
			return err
		}
		c.emit(op.GetError)
		slot, err := c.addLocal(c.previous.Literal)
		if err != nil {
			return err
		}
		c.env.locals[slot].depth = c.env.depth
	}
	if err := c.expect(token.COLON); err != nil {
		return err
	}
	if err := c.block(false); err != nil {
		return err
	}
	c.endScope()
	return c.patchJump(end)
}

// assertStatement raises when the condition is falsey, with an optional
// message expression.
func (c *Compiler) assertStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	fail := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	end := c.emitJump(op.Jump)
	if err := c.patchJump(fail); err != nil {
		return err
	}
	c.emit(op.Pop)
	if ok, err := c.match(token.COMMA); err != nil {
		return err
	} else if ok {
		if err := c.expression(); err != nil {
			return err
		}
	} else if err := c.emitConstant(c.heap.Str("Assertion failed")); err != nil {
		return err
	}
	c.emit(op.Raise)
	if err := c.patchJump(end); err != nil {
		return err
	}
	return c.expectStatementEnd()
}

// delStatement compiles "del x[i]" into a __delitem__ call.
func (c *Compiler) delStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	c.delTarget, c.delEmitted = true, false
	err := c.parsePrecedence(precCall)
	emitted := c.delEmitted
	c.delTarget, c.delEmitted = false, false
	if err != nil {
		return err
	}
	if !emitted {
		return c.errorf("Invalid target for 'del'")
	}
	c.emit(op.Pop)
	return c.expectStatementEnd()
}
