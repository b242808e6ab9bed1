// Package token defines language keywords and tokens used when lexing source code.
package token

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in an input string.
type Position struct {
	Char      int    // byte offset within the file
	LineStart int    // byte offset of the start of the current line
	Line      int    // 0-indexed line number
	Column    int    // 0-indexed column number
	File      string // filename
}

// LineNumber returns the 1-indexed line number for this position in the input.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position in the input.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

// IsValid returns true if this position has been set.
func (p Position) IsValid() bool {
	return p.File != "" || p.Line > 0 || p.Column > 0 || p.Char > 0
}

// NoPos is the zero value Position, representing an invalid/unset position.
var NoPos = Position{}

// Token represents one token lexed from the input source code.
type Token struct {
	Type          Type
	Literal       string
	StartPosition Position
}

// Token types
const (
	EOF     Type = "EOF"
	ILLEGAL Type = "ILLEGAL"
	NEWLINE Type = "NEWLINE"
	INDENT  Type = "INDENT"
	DEDENT  Type = "DEDENT"

	IDENT      Type = "IDENT"
	NUMBER     Type = "NUMBER"
	NUMBER_HEX Type = "NUMBER_HEX"
	NUMBER_BIN Type = "NUMBER_BIN"
	STRING     Type = "STRING"
	RAW_STRING Type = "RAW_STRING"

	LPAREN    Type = "("
	RPAREN    Type = ")"
	LBRACKET  Type = "["
	RBRACKET  Type = "]"
	LBRACE    Type = "{"
	RBRACE    Type = "}"
	COLON     Type = ":"
	SEMICOLON Type = ";"
	COMMA     Type = ","
	PERIOD    Type = "."
	MINUS     Type = "-"
	PLUS      Type = "+"
	SLASH     Type = "/"
	MOD       Type = "%"
	ASTERISK  Type = "*"
	AT        Type = "@"
	BITOR     Type = "|"
	AMPERSAND Type = "&"
	CARET     Type = "^"
	TILDE     Type = "~"
	QUESTION  Type = "?"
	BANG      Type = "!"
	ASSIGN    Type = "="
	LT        Type = "<"
	GT        Type = ">"

	NOT_EQ      Type = "!="
	EQ          Type = "=="
	GT_EQUALS   Type = ">="
	LT_EQUALS   Type = "<="
	LT_LT       Type = "<<"
	GT_GT       Type = ">>"
	SLASH_SLASH Type = "//"
	POW         Type = "**"
	ARROW       Type = "->"

	AND      Type = "and"
	AS       Type = "as"
	ASSERT   Type = "assert"
	ASYNC    Type = "async"
	AWAIT    Type = "await"
	BREAK    Type = "break"
	CLASS    Type = "class"
	CONTINUE Type = "continue"
	DEF      Type = "def"
	DEL      Type = "del"
	ELIF     Type = "elif"
	ELSE     Type = "else"
	EXCEPT   Type = "except"
	FALSE    Type = "false"
	FINAL    Type = "final"
	FINALLY  Type = "finally"
	FOR      Type = "for"
	FROM     Type = "from"
	GLOBAL   Type = "global"
	IF       Type = "if"
	IMPORT   Type = "import"
	IN       Type = "in"
	IS       Type = "is"
	LAMBDA   Type = "lambda"
	NIL      Type = "nil"
	NOT      Type = "not"
	OR       Type = "or"
	PASS     Type = "pass"
	RAISE    Type = "raise"
	RETURN   Type = "return"
	STATIC   Type = "static"
	SUPER    Type = "super"
	THEN     Type = "then"
	THIS     Type = "this"
	TRAIT    Type = "trait"
	TRUE     Type = "true"
	TRY      Type = "try"
	VAR      Type = "var"
	WHILE    Type = "while"
	WITH     Type = "with"
	YIELD    Type = "yield"
)

// Reserved keywords
var keywords = map[string]Type{
	"and":      AND,
	"as":       AS,
	"assert":   ASSERT,
	"async":    ASYNC,
	"await":    AWAIT,
	"break":    BREAK,
	"class":    CLASS,
	"continue": CONTINUE,
	"def":      DEF,
	"del":      DEL,
	"elif":     ELIF,
	"else":     ELSE,
	"except":   EXCEPT,
	"false":    FALSE,
	"final":    FINAL,
	"finally":  FINALLY,
	"for":      FOR,
	"from":     FROM,
	"global":   GLOBAL,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"is":       IS,
	"lambda":   LAMBDA,
	"nil":      NIL,
	"not":      NOT,
	"or":       OR,
	"pass":     PASS,
	"raise":    RAISE,
	"return":   RETURN,
	"static":   STATIC,
	"super":    SUPER,
	"then":     THEN,
	"this":     THIS,
	"trait":    TRAIT,
	"true":     TRUE,
	"try":      TRY,
	"var":      VAR,
	"while":    WHILE,
	"with":     WITH,
	"yield":    YIELD,
}

// LookupIdentifier returns the keyword type of identifier, or IDENT.
func LookupIdentifier(identifier string) Type {
	if tok, ok := keywords[identifier]; ok {
		return tok
	}
	return IDENT
}
