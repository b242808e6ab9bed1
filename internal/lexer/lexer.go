// Package lexer converts source text into the token stream consumed by the
// compiler. Blocks are delimited by indentation: the lexer emits INDENT and
// DEDENT tokens as the leading whitespace of logical lines changes, and it
// ignores newlines inside (), [] and {}.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/internal/token"
)

// IndentWidth is the number of spaces in one level of indentation.
const IndentWidth = 2

// Lexer tokenizes an input string.
type Lexer struct {
	input         string
	pos           int
	line          int
	lineStart     int
	file          string
	groupingDepth int
	indent        int
	pendingIndent int // >0 queued INDENTs, <0 queued DEDENTs
	last          token.Type
	finished      bool
}

// Option is a configuration function for a Lexer.
type Option func(*Lexer)

// WithFile sets the filename reported in token positions.
func WithFile(file string) Option {
	return func(l *Lexer) {
		l.file = file
	}
}

// New returns a Lexer for the given input.
func New(input string, opts ...Option) *Lexer {
	l := &Lexer{input: input}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Filename returns the filename associated with the lexer, if any.
func (l *Lexer) Filename() string {
	return l.file
}

// Position returns the current position of the lexer.
func (l *Lexer) Position() token.Position {
	return token.Position{
		Char:      l.pos,
		LineStart: l.lineStart,
		Line:      l.line,
		Column:    l.pos - l.lineStart,
		File:      l.file,
	}
}

// GetLineText returns the full source line containing the given token.
func (l *Lexer) GetLineText(tok token.Token) string {
	start := tok.StartPosition.LineStart
	if start > len(l.input) {
		return ""
	}
	end := strings.IndexByte(l.input[start:], '\n')
	if end < 0 {
		return strings.TrimRight(l.input[start:], "\r")
	}
	return strings.TrimRight(l.input[start:start+end], "\r")
}

// Tokens lexes the entire input.
func (l *Lexer) Tokens() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Next returns the next token from the input.
func (l *Lexer) Next() (token.Token, error) {
	tok, err := l.next()
	if err == nil {
		l.last = tok.Type
	}
	return tok, err
}

func (l *Lexer) next() (token.Token, error) {
	if l.pendingIndent > 0 {
		l.pendingIndent--
		return l.emit(token.INDENT, "", l.Position()), nil
	}
	if l.pendingIndent < 0 {
		l.pendingIndent++
		return l.emit(token.DEDENT, "", l.Position()), nil
	}
	if err := l.skipSpacesAndComments(); err != nil {
		return token.Token{}, err
	}
	start := l.Position()
	if l.pos >= len(l.input) {
		return l.atEOF(start), nil
	}
	ch := l.input[l.pos]
	if ch == '\n' {
		return l.newline(start)
	}
	next := l.peekAt(1)
	switch {
	case ch == 'r' && (next == '"' || next == '\''):
		return l.readString(start, true)
	case ch == '"' || ch == '\'':
		return l.readString(start, false)
	case ch == '0' && next == 'x':
		return l.readRadix(start, token.NUMBER_HEX, isHexDigit)
	case ch == '0' && next == 'b':
		return l.readRadix(start, token.NUMBER_BIN, isBinDigit)
	case isDigit(ch):
		return l.readDecimal(start)
	case isIdentStart(ch):
		begin := l.pos
		for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
			l.pos++
		}
		lit := l.input[begin:l.pos]
		return l.emit(token.LookupIdentifier(lit), lit, start), nil
	}
	if typ, ok := twoCharTokens[string([]byte{ch, next})]; ok && next != 0 {
		l.pos += 2
		return l.emit(typ, string(typ), start), nil
	}
	if typ, ok := oneCharTokens[ch]; ok {
		l.pos++
		switch ch {
		case '(', '[', '{':
			l.groupingDepth++
		case ')', ']', '}':
			l.groupingDepth--
			if l.groupingDepth < 0 {
				return token.Token{}, l.errorf(start, "unmatched '%c'", ch)
			}
		}
		return l.emit(typ, string(ch), start), nil
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return token.Token{}, l.errorf(start, "unexpected character: %q", r)
}

func (l *Lexer) emit(typ token.Type, lit string, pos token.Position) token.Token {
	return token.Token{Type: typ, Literal: lit, StartPosition: pos}
}

// atEOF terminates the last logical line, closes open blocks and then
// reports EOF forever.
func (l *Lexer) atEOF(pos token.Position) token.Token {
	if !l.finished && l.last != token.NEWLINE && l.last != token.DEDENT && l.last != "" {
		l.finished = true
		return l.emit(token.NEWLINE, "", pos)
	}
	l.finished = true
	if l.indent > 0 {
		l.indent--
		return l.emit(token.DEDENT, "", pos)
	}
	return l.emit(token.EOF, "", pos)
}

func (l *Lexer) newline(start token.Position) (token.Token, error) {
	l.pos++
	l.line++
	l.lineStart = l.pos
	tok := l.emit(token.NEWLINE, "\n", start)
	// Skip blank and comment-only lines, then measure the indentation of
	// the next logical line.
	for {
		p := l.pos
		width := 0
		for p < len(l.input) && (l.input[p] == ' ' || l.input[p] == '\r' || l.input[p] == '\t') {
			if l.input[p] == '\t' {
				return token.Token{}, l.errorf(l.Position(), "tabs may not be used for indentation")
			}
			if l.input[p] == ' ' {
				width++
			}
			p++
		}
		if p >= len(l.input) {
			l.pos = p
			return tok, nil
		}
		if l.input[p] == '#' {
			for p < len(l.input) && l.input[p] != '\n' {
				p++
			}
		}
		if p < len(l.input) && l.input[p] == '\n' {
			l.pos = p + 1
			l.line++
			l.lineStart = l.pos
			continue
		}
		if p >= len(l.input) {
			l.pos = p
			return tok, nil
		}
		l.pos = p
		if width%IndentWidth != 0 {
			return token.Token{}, l.errorf(l.Position(),
				"indentation must be a multiple of %d spaces, but got %d", IndentWidth, width)
		}
		level := width / IndentWidth
		if level > l.indent+1 {
			return token.Token{}, l.errorf(l.Position(),
				"one level of indentation must be exactly %d spaces, but got %d",
				IndentWidth, (level-l.indent)*IndentWidth)
		}
		l.pendingIndent = level - l.indent
		l.indent = level
		return tok, nil
	}
}

func (l *Lexer) skipSpacesAndComments() error {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\r', '\t':
			l.pos++
		case '\\':
			// explicit line continuation
			if l.peekAt(1) == '\n' {
				l.pos += 2
				l.line++
				l.lineStart = l.pos
				continue
			}
			return nil
		case '\n':
			if l.groupingDepth == 0 {
				return nil
			}
			l.pos++
			l.line++
			l.lineStart = l.pos
		case '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) readString(start token.Position, raw bool) (token.Token, error) {
	if raw {
		l.pos++
	}
	quote := l.input[l.pos]
	l.pos++
	triple := l.peekAt(0) == quote && l.peekAt(1) == quote
	if triple {
		l.pos += 2
	}
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return token.Token{}, l.errorf(start, "unterminated string literal")
		}
		ch := l.input[l.pos]
		if ch == quote && (!triple || (l.peekAt(1) == quote && l.peekAt(2) == quote)) {
			if triple {
				l.pos += 3
			} else {
				l.pos++
			}
			break
		}
		if ch == '\n' {
			if !triple {
				return token.Token{}, l.errorf(start, "unterminated string literal")
			}
			sb.WriteByte(ch)
			l.pos++
			l.line++
			l.lineStart = l.pos
			continue
		}
		if ch == '\\' && !raw {
			if err := l.readEscape(&sb, start); err != nil {
				return token.Token{}, err
			}
			continue
		}
		if ch == '\\' && raw && l.peekAt(1) == quote {
			sb.WriteByte(ch)
			sb.WriteByte(quote)
			l.pos += 2
			continue
		}
		sb.WriteByte(ch)
		l.pos++
	}
	if raw {
		return l.emit(token.RAW_STRING, sb.String(), start), nil
	}
	return l.emit(token.STRING, sb.String(), start), nil
}

func (l *Lexer) readEscape(sb *strings.Builder, start token.Position) error {
	l.pos++ // backslash
	if l.pos >= len(l.input) {
		return l.errorf(start, "unterminated string literal")
	}
	ch := l.input[l.pos]
	l.pos++
	switch ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '0':
		sb.WriteByte(0)
	case '\\', '\'', '"':
		sb.WriteByte(ch)
	case '\n':
		l.line++
		l.lineStart = l.pos
	case 'x', 'u', 'U':
		n := map[byte]int{'x': 2, 'u': 4, 'U': 8}[ch]
		if l.pos+n > len(l.input) {
			return l.errorf(start, "invalid escape sequence: \\%c", ch)
		}
		code, err := strconv.ParseUint(l.input[l.pos:l.pos+n], 16, 32)
		if err != nil {
			return l.errorf(start, "invalid escape sequence: \\%c%s", ch, l.input[l.pos:l.pos+n])
		}
		l.pos += n
		if ch == 'x' {
			sb.WriteByte(byte(code))
		} else {
			sb.WriteRune(rune(code))
		}
	default:
		return l.errorf(start, "invalid escape sequence: \\%c", ch)
	}
	return nil
}

func (l *Lexer) readRadix(start token.Position, typ token.Type, valid func(byte) bool) (token.Token, error) {
	begin := l.pos
	l.pos += 2
	for l.pos < len(l.input) && valid(l.input[l.pos]) {
		l.pos++
	}
	if l.pos == begin+2 || (l.pos < len(l.input) && isIdentChar(l.input[l.pos])) {
		end := l.pos + 1
		if end > len(l.input) {
			end = len(l.input)
		}
		return token.Token{}, l.errorf(start, "invalid number literal: %s", l.input[begin:end])
	}
	return l.emit(typ, l.input[begin:l.pos], start), nil
}

func (l *Lexer) readDecimal(start token.Position) (token.Token, error) {
	begin := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.peekAt(0) == '.' && isDigit(l.peekAt(1)) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if c := l.peekAt(0); c == 'e' || c == 'E' {
		save := l.pos
		l.pos++
		if c := l.peekAt(0); c == '+' || c == '-' {
			l.pos++
		}
		if !isDigit(l.peekAt(0)) {
			l.pos = save
		}
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && isIdentStart(l.input[l.pos]) {
		return token.Token{}, l.errorf(start, "invalid decimal literal: %s", l.input[begin:l.pos+1])
	}
	return l.emit(token.NUMBER, l.input[begin:l.pos], start), nil
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) errorf(pos token.Position, format string, args ...any) error {
	return errz.NewStructuredErrorf(errz.ErrSyntax, errz.SourceLocation{
		Filename: l.file,
		Line:     pos.LineNumber(),
		Column:   pos.ColumnNumber(),
		Source:   l.GetLineText(token.Token{StartPosition: pos}),
	}, nil, format, args...)
}

var oneCharTokens = map[byte]token.Type{
	'(': token.LPAREN,
	')': token.RPAREN,
	'[': token.LBRACKET,
	']': token.RBRACKET,
	'{': token.LBRACE,
	'}': token.RBRACE,
	':': token.COLON,
	';': token.SEMICOLON,
	',': token.COMMA,
	'.': token.PERIOD,
	'-': token.MINUS,
	'+': token.PLUS,
	'/': token.SLASH,
	'%': token.MOD,
	'*': token.ASTERISK,
	'@': token.AT,
	'|': token.BITOR,
	'&': token.AMPERSAND,
	'^': token.CARET,
	'~': token.TILDE,
	'?': token.QUESTION,
	'!': token.BANG,
	'=': token.ASSIGN,
	'<': token.LT,
	'>': token.GT,
}

var twoCharTokens = map[string]token.Type{
	"!=": token.NOT_EQ,
	"==": token.EQ,
	">=": token.GT_EQUALS,
	"<=": token.LT_EQUALS,
	"<<": token.LT_LT,
	">>": token.GT_GT,
	"//": token.SLASH_SLASH,
	"**": token.POW,
	"->": token.ARROW,
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isBinDigit(ch byte) bool {
	return ch == '0' || ch == '1'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// String returns a debug rendering of a token stream.
func String(toks []token.Token) string {
	parts := make([]string, len(toks))
	for i, tok := range toks {
		if tok.Literal == "" || tok.Literal == string(tok.Type) {
			parts[i] = string(tok.Type)
		} else {
			parts[i] = fmt.Sprintf("%s(%s)", tok.Type, tok.Literal)
		}
	}
	return strings.Join(parts, " ")
}
