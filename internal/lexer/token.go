package lexer

import "fmt"

type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Identifiers + literals
	IDENT
	INT // integer and character literals; Value holds the number
	STRING

	// Keywords
	KW_VOID
	KW_CHAR
	KW_INT
	KW_LONG
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_FOR
	KW_RETURN
	KW_PRINT

	// Symbols
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }
	LBRACK // [
	RBRACK // ]
	SEMI   // ;
	COMMA  // ,
	ASSIGN // =
	AMP    // &

	// Arithmetic
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /
	INC   // ++
	DEC   // --

	// Shifts
	SHL // <<
	SHR // >>

	// Bitwise/logical
	ANDAND // &&
	OROR   // ||
	PIPE   // |
	CARET  // ^
	TILDE  // ~
	BANG   // !

	// Comparison
	EQEQ // ==
	NEQ  // !=
	LT   // <
	LE   // <=
	GT   // >
	GE   // >=
)

var tokenNames = map[TokenType]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL", IDENT: "identifier", INT: "integer literal", STRING: "string literal",
	KW_VOID: "void", KW_CHAR: "char", KW_INT: "int", KW_LONG: "long", KW_IF: "if", KW_ELSE: "else",
	KW_WHILE: "while", KW_FOR: "for", KW_RETURN: "return", KW_PRINT: "print",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACK: "[", RBRACK: "]",
	SEMI: ";", COMMA: ",", ASSIGN: "=", AMP: "&",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", INC: "++", DEC: "--",
	SHL: "<<", SHR: ">>", ANDAND: "&&", OROR: "||", PIPE: "|", CARET: "^", TILDE: "~", BANG: "!",
	EQEQ: "==", NEQ: "!=", LT: "<", LE: "<=", GT: ">", GE: ">=",
}

func (tt TokenType) String() string {
	if s, ok := tokenNames[tt]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(tt))
}

var keywords = map[string]TokenType{
	"void":   KW_VOID,
	"char":   KW_CHAR,
	"int":    KW_INT,
	"long":   KW_LONG,
	"if":     KW_IF,
	"else":   KW_ELSE,
	"while":  KW_WHILE,
	"for":    KW_FOR,
	"return": KW_RETURN,
	"print":  KW_PRINT,
}

type Token struct {
	Type  TokenType
	Lex   string
	Value int64 // INT only
	Line  int
	Col   int
}

func (t Token) Is(op TokenType) bool { return t.Type == op }
