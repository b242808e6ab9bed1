package compiler

import (
	"errors"
	"strconv"

	"github.com/kestrel-lang/kestrel/internal/token"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

type precedence int

const (
	precNone precedence = iota
	precOr
	precAnd
	precNot
	precComparison // == != < > <= >= is in
	precBitwiseOr
	precBitwiseXor
	precBitwiseAnd
	precShift
	precTerm   // + -
	precFactor // * / // %
	precUnary  // - ~
	precPower
	precCall // . () []
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool) error

type rule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules map[token.Type]rule

func init() {
	rules = map[token.Type]rule{
		token.LPAREN:      {prefix: grouping, infix: call, prec: precCall},
		token.LBRACKET:    {prefix: listDisplay, infix: subscript, prec: precCall},
		token.LBRACE:      {prefix: dictDisplay},
		token.PERIOD:      {infix: dot, prec: precCall},
		token.MINUS:       {prefix: unary, infix: binary, prec: precTerm},
		token.PLUS:        {infix: binary, prec: precTerm},
		token.ASTERISK:    {infix: binary, prec: precFactor},
		token.SLASH:       {infix: binary, prec: precFactor},
		token.SLASH_SLASH: {infix: binary, prec: precFactor},
		token.MOD:         {infix: binary, prec: precFactor},
		token.POW:         {infix: binary, prec: precPower},
		token.LT_LT:       {infix: binary, prec: precShift},
		token.GT_GT:       {infix: binary, prec: precShift},
		token.AMPERSAND:   {infix: binary, prec: precBitwiseAnd},
		token.CARET:       {infix: binary, prec: precBitwiseXor},
		token.BITOR:       {infix: binary, prec: precBitwiseOr},
		token.TILDE:       {prefix: unary},
		token.EQ:          {infix: binary, prec: precComparison},
		token.NOT_EQ:      {infix: binary, prec: precComparison},
		token.LT:          {infix: binary, prec: precComparison},
		token.GT:          {infix: binary, prec: precComparison},
		token.LT_EQUALS:   {infix: binary, prec: precComparison},
		token.GT_EQUALS:   {infix: binary, prec: precComparison},
		token.IS:          {infix: binary, prec: precComparison},
		token.IN:          {infix: binary, prec: precComparison},
		token.NOT:         {prefix: not, infix: binary, prec: precComparison},
		token.AND:         {infix: and, prec: precAnd},
		token.OR:          {infix: or, prec: precOr},
		token.AS:          {infix: cast, prec: precComparison},
		token.IDENT:       {prefix: variableExpr},
		token.STRING:      {prefix: stringLiteral},
		token.RAW_STRING:  {prefix: stringLiteral},
		token.NUMBER:      {prefix: numberLiteral},
		token.NUMBER_HEX:  {prefix: numberLiteral},
		token.NUMBER_BIN:  {prefix: numberLiteral},
		token.NIL:         {prefix: literal},
		token.TRUE:        {prefix: literal},
		token.FALSE:       {prefix: literal},
		token.THIS:        {prefix: this},
		token.SUPER:       {prefix: super},
		token.IF:          {prefix: conditional},
		token.DEF:         {prefix: lambda},
		token.FINAL:       {prefix: frozenDisplay},
		token.RAISE:       {prefix: raise},
		token.TRY:         {prefix: tryExpression},
	}
}

func (c *Compiler) expression() error {
	return c.parsePrecedence(precOr)
}

func (c *Compiler) parsePrecedence(prec precedence) error {
	prefix := rules[c.current.Type].prefix
	if prefix == nil {
		return c.errorAtCurrent("Expected expression but got %s", describe(c.current.Type))
	}
	canAssign := prec <= precOr
	if err := prefix(c, canAssign); err != nil {
		return err
	}
	for {
		r := rules[c.current.Type]
		if r.infix == nil || r.prec < prec {
			break
		}
		if err := r.infix(c, canAssign); err != nil {
			return err
		}
	}
	if canAssign && c.at(token.ASSIGN) {
		return c.errorAtCurrent("Invalid assignment target")
	}
	return nil
}

// Prefix handlers start at the token that selected them.

func literal(c *Compiler, _ bool) error {
	switch c.current.Type {
	case token.NIL:
		c.emit(op.Nil)
	case token.TRUE:
		c.emit(op.True)
	case token.FALSE:
		c.emit(op.False)
	}
	return c.advance()
}

func numberLiteral(c *Compiler, _ bool) error {
	f, err := c.parseNumber(c.current)
	if err != nil {
		return err
	}
	if err := c.advance(); err != nil {
		return err
	}
	return c.emitConstant(object.Number(f))
}

func (c *Compiler) parseNumber(tok token.Token) (float64, error) {
	switch tok.Type {
	case token.NUMBER_HEX:
		return parseDigits(tok.Literal[2:], 16), nil
	case token.NUMBER_BIN:
		return parseDigits(tok.Literal[2:], 2), nil
	}
	f, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, c.errorAt(tok, "Invalid number literal %s", tok.Literal)
	}
	return f, nil
}

// parseDigits accumulates into a float so large literals lose precision
// instead of overflowing.
func parseDigits(s string, base int) float64 {
	var f float64
	for _, ch := range s {
		var d int
		switch {
		case ch >= '0' && ch <= '9':
			d = int(ch - '0')
		case ch >= 'a' && ch <= 'f':
			d = int(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			d = int(ch-'A') + 10
		}
		f = f*float64(base) + float64(d)
	}
	return f
}

func stringLiteral(c *Compiler, _ bool) error {
	s := c.current.Literal
	if err := c.advance(); err != nil {
		return err
	}
	return c.emitConstant(c.heap.Str(s))
}

func variableExpr(c *Compiler, canAssign bool) error {
	name := c.current.Literal
	if err := c.advance(); err != nil {
		return err
	}
	if canAssign && c.at(token.ASSIGN) {
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expression(); err != nil {
			return err
		}
		return c.storeVariable(name)
	}
	return c.loadVariable(name)
}

func this(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	return c.loadHidden("this", "'this' cannot be used outside a method")
}

// super compiles "super.name(args)". Only method calls are supported.
func super(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	if c.class == nil || !c.class.hasSuper {
		return c.errorf("'super' cannot be used outside a class with a super class")
	}
	if err := c.expect(token.PERIOD); err != nil {
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	name := c.previous.Literal
	if err := c.loadHidden("this", "'super' cannot be used outside a method"); err != nil {
		return err
	}
	if err := c.expect(token.LPAREN); err != nil {
		return err
	}
	argc, kwargc, err := c.argumentList()
	if err != nil {
		return err
	}
	if kwargc > 0 {
		return c.errorf("Keyword arguments are not supported in super calls")
	}
	if err := c.loadHidden("super", "'super' cannot be used outside a class with a super class"); err != nil {
		return err
	}
	return c.emitWithName(op.SuperInvoke, name, argc)
}

func unary(c *Compiler, _ bool) error {
	t := c.current.Type
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.parsePrecedence(precUnary); err != nil {
		return err
	}
	switch t {
	case token.MINUS:
		c.emit(op.Negate)
	case token.TILDE:
		c.emit(op.BitNot)
	}
	return nil
}

func not(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.parsePrecedence(precNot); err != nil {
		return err
	}
	c.emit(op.Not)
	return nil
}

// grouping handles parenthesized expressions and frozen list displays:
// "()", "(a,)" and "(a, b)".
func grouping(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	if ok, err := c.match(token.RPAREN); err != nil {
		return err
	} else if ok {
		c.emit(op.NewFrozenList, 0)
		return nil
	}
	if err := c.expression(); err != nil {
		return err
	}
	if ok, err := c.match(token.RPAREN); err != nil || ok {
		return err
	}
	if err := c.expect(token.COMMA); err != nil {
		return err
	}
	count := 1
	for !c.at(token.RPAREN) {
		if err := c.expression(); err != nil {
			return err
		}
		count++
		if count > 255 {
			return c.errorf("The number of items in a list display cannot exceed 255")
		}
		if ok, err := c.match(token.COMMA); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	if err := c.expect(token.RPAREN); err != nil {
		return err
	}
	c.emit(op.NewFrozenList, byte(count))
	return nil
}

func listDisplay(c *Compiler, _ bool) error {
	return c.listItems(op.NewList)
}

func dictDisplay(c *Compiler, _ bool) error {
	return c.dictItems(op.NewDict)
}

// frozenDisplay handles "final[...]" and "final{...}".
func frozenDisplay(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	switch c.current.Type {
	case token.LBRACKET:
		return c.listItems(op.NewFrozenList)
	case token.LBRACE:
		return c.dictItems(op.NewFrozenDict)
	}
	return c.errorAtCurrent("Expected '[' or '{' after 'final' but got %s", describe(c.current.Type))
}

func (c *Compiler) listItems(code op.Code) error {
	if err := c.expect(token.LBRACKET); err != nil {
		return err
	}
	count := 0
	for !c.at(token.RBRACKET) {
		if err := c.expression(); err != nil {
			return err
		}
		count++
		if count > 255 {
			return c.errorf("The number of items in a list display cannot exceed 255")
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
	c.emit(code, byte(count))
	return nil
}

// dictItems compiles "{k: v, ...}". A key without a value maps to nil,
// which makes "{a, b}" a set-like display.
func (c *Compiler) dictItems(code op.Code) error {
	if err := c.expect(token.LBRACE); err != nil {
		return err
	}
	count := 0
	for !c.at(token.RBRACE) {
		if err := c.expression(); err != nil {
			return err
		}
		if ok, err := c.match(token.COLON); err != nil {
			return err
		} else if ok {
			if err := c.expression(); err != nil {
				return err
			}
		} else {
			c.emit(op.Nil)
		}
		count++
		if count > 255 {
			return c.errorf("The number of pairs in a map display cannot exceed 255")
		}
		if ok, err := c.match(token.COMMA); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	if err := c.expect(token.RBRACE); err != nil {
		return err
	}
	c.emit(code, byte(count))
	return nil
}

// conditional compiles "if c then a else b".
func conditional(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	if err := c.expect(token.THEN); err != nil {
		return err
	}
	elseJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	if err := c.expression(); err != nil {
		return err
	}
	endJump := c.emitJump(op.Jump)
	if err := c.patchJump(elseJump); err != nil {
		return err
	}
	c.emit(op.Pop)
	if err := c.expect(token.ELSE); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	return c.patchJump(endJump)
}

func lambda(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	return c.function("<lambda>", kindLambda)
}

func raise(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	c.emit(op.Raise)
	return nil
}

// tryExpression compiles "try a else b", which evaluates to b when a
// raises.
func tryExpression(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	handler := c.emitJump(op.TryStart)
	c.env.tryDepth++
	if err := c.parsePrecedence(precOr + 1); err != nil {
		return err
	}
	c.env.tryDepth--
	end := c.emitJump(op.TryEnd)
	if err := c.patchJump(handler); err != nil {
		return err
	}
	if err := c.expect(token.ELSE); err != nil {
		return err
	}
	if err := c.parsePrecedence(precOr + 1); err != nil {
		return err
	}
	return c.patchJump(end)
}

// Infix handlers

func binary(c *Compiler, _ bool) error {
	t := c.current.Type
	r := rules[t]
	if err := c.advance(); err != nil {
		return err
	}
	negate := false
	switch t {
	case token.IS:
		if ok, err := c.match(token.NOT); err != nil {
			return err
		} else if ok {
			negate = true
		}
	case token.NOT:
		if err := c.expect(token.IN); err != nil {
			return err
		}
		negate = true
	}
	next := r.prec + 1
	if t == token.POW {
		next = r.prec // right associative
	}
	if err := c.parsePrecedence(next); err != nil {
		return err
	}
	switch t {
	case token.PLUS:
		c.emit(op.BinaryOp, byte(op.Add))
	case token.MINUS:
		c.emit(op.BinaryOp, byte(op.Subtract))
	case token.ASTERISK:
		c.emit(op.BinaryOp, byte(op.Multiply))
	case token.SLASH:
		c.emit(op.BinaryOp, byte(op.Divide))
	case token.SLASH_SLASH:
		c.emit(op.BinaryOp, byte(op.FloorDivide))
	case token.MOD:
		c.emit(op.BinaryOp, byte(op.Modulo))
	case token.POW:
		c.emit(op.BinaryOp, byte(op.Power))
	case token.LT_LT:
		c.emit(op.BinaryOp, byte(op.LShift))
	case token.GT_GT:
		c.emit(op.BinaryOp, byte(op.RShift))
	case token.AMPERSAND:
		c.emit(op.BinaryOp, byte(op.BitwiseAnd))
	case token.CARET:
		c.emit(op.BinaryOp, byte(op.BitwiseXor))
	case token.BITOR:
		c.emit(op.BinaryOp, byte(op.BitwiseOr))
	case token.EQ:
		c.emit(op.CompareOp, byte(op.Equal))
	case token.NOT_EQ:
		c.emit(op.CompareOp, byte(op.Equal))
		negate = true
	case token.LT:
		c.emit(op.CompareOp, byte(op.LessThan))
	case token.GT:
		c.emit(op.CompareOp, byte(op.GreaterThan))
	case token.LT_EQUALS:
		c.emit(op.CompareOp, byte(op.GreaterThan))
		negate = true
	case token.GT_EQUALS:
		c.emit(op.CompareOp, byte(op.LessThan))
		negate = true
	case token.IS:
		c.emit(op.CompareOp, byte(op.Is))
	case token.IN, token.NOT:
		c.emit(op.CompareOp, byte(op.In))
	}
	if negate {
		c.emit(op.Not)
	}
	return nil
}

// and leaves the left operand when it is falsey.
func and(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	end := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	if err := c.parsePrecedence(precAnd + 1); err != nil {
		return err
	}
	return c.patchJump(end)
}

// or leaves the left operand when it is truthy.
func or(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	elseJump := c.emitJump(op.JumpIfFalse)
	endJump := c.emitJump(op.Jump)
	if err := c.patchJump(elseJump); err != nil {
		return err
	}
	c.emit(op.Pop)
	if err := c.parsePrecedence(precOr + 1); err != nil {
		return err
	}
	return c.patchJump(endJump)
}

// cast accepts "expr as Type". Types are not checked at runtime.
func cast(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	return c.typeExpression()
}

func call(c *Compiler, _ bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	argc, kwargc, err := c.argumentList()
	if err != nil {
		return err
	}
	if kwargc > 0 {
		c.emit(op.CallKw, argc)
	} else {
		c.emit(op.Call, argc)
	}
	return nil
}

// argumentList compiles call arguments up to and including the closing
// parenthesis. Keyword arguments are collected into a dict pushed after the
// positional arguments.
func (c *Compiler) argumentList() (argc byte, kwargc int, err error) {
	count := 0
	for !c.at(token.RPAREN) {
		if c.at(token.IDENT) {
			kw, err := c.peekIs(token.ASSIGN)
			if err != nil {
				return 0, 0, err
			}
			if kw {
				break
			}
		}
		if err := c.expression(); err != nil {
			return 0, 0, err
		}
		count++
		if count > MaxArgs {
			return 0, 0, c.errorf("Too many arguments (no more than %d are allowed)", MaxArgs)
		}
		if ok, err := c.match(token.COMMA); err != nil {
			return 0, 0, err
		} else if !ok {
			break
		}
	}
	for c.at(token.IDENT) {
		name := c.current.Literal
		if err := c.advance(); err != nil {
			return 0, 0, err
		}
		if err := c.expect(token.ASSIGN); err != nil {
			return 0, 0, err
		}
		if err := c.emitConstant(c.heap.Str(name)); err != nil {
			return 0, 0, err
		}
		if err := c.expression(); err != nil {
			return 0, 0, err
		}
		kwargc++
		if kwargc > MaxArgs {
			return 0, 0, c.errorf("Too many arguments (no more than %d are allowed)", MaxArgs)
		}
		if ok, err := c.match(token.COMMA); err != nil {
			return 0, 0, err
		} else if !ok {
			break
		}
	}
	if err := c.expect(token.RPAREN); err != nil {
		return 0, 0, err
	}
	if kwargc > 0 {
		c.emit(op.NewDict, byte(kwargc))
	}
	return byte(count), kwargc, nil
}

// dot compiles field access, field assignment and method invocation.
func dot(c *Compiler, canAssign bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	if err := c.expect(token.IDENT); err != nil {
		return err
	}
	name := c.previous.Literal
	switch {
	case canAssign && c.at(token.ASSIGN):
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expression(); err != nil {
			return err
		}
		return c.emitWithName(op.SetField, name)
	case c.at(token.LPAREN):
		if err := c.advance(); err != nil {
			return err
		}
		argc, kwargc, err := c.argumentList()
		if err != nil {
			return err
		}
		if kwargc > 0 {
			return c.emitWithName(op.InvokeKw, name, argc)
		}
		return c.emitWithName(op.Invoke, name, argc)
	}
	return c.emitWithName(op.GetField, name)
}

// subscript compiles x[i], x[i] = v, x[a:b] and, as the target of a del
// statement, del x[i].
func subscript(c *Compiler, canAssign bool) error {
	if err := c.advance(); err != nil {
		return err
	}
	if c.at(token.COLON) {
		c.emit(op.Nil)
		return c.sliceRest()
	}
	if err := c.expression(); err != nil {
		return err
	}
	if c.at(token.COLON) {
		return c.sliceRest()
	}
	if err := c.expect(token.RBRACKET); err != nil {
		return err
	}
	switch {
	case canAssign && c.at(token.ASSIGN):
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expression(); err != nil {
			return err
		}
		return c.emitWithName(op.Invoke, "__setitem__", 2)
	case c.delTarget && c.atStatementEnd():
		c.delEmitted = true
		return c.emitWithName(op.Invoke, "__delitem__", 1)
	}
	return c.emitWithName(op.Invoke, "__getitem__", 1)
}

// sliceRest compiles the part of a slice after the start bound, starting
// at the colon.
func (c *Compiler) sliceRest() error {
	if err := c.expect(token.COLON); err != nil {
		return err
	}
	if c.at(token.RBRACKET) {
		c.emit(op.Nil)
	} else if err := c.expression(); err != nil {
		return err
	}
	if err := c.expect(token.RBRACKET); err != nil {
		return err
	}
	return c.emitWithName(op.Invoke, "__slice__", 2)
}
