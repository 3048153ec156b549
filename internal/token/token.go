package token

import "fmt"

type TokenType string

type Token struct {
	Type    TokenType
	Lexeme  string      // Raw text as it appears in the source
	Literal interface{} // Parsed value: float64 for numbers, string for identifiers
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT TokenType = "IDENT"
	INT   TokenType = "INT"
	FLOAT TokenType = "FLOAT"

	// Operators
	ASSIGN          TokenType = "="
	PLUS_ASSIGN     TokenType = "+="
	MINUS_ASSIGN    TokenType = "-="
	ASTERISK_ASSIGN TokenType = "*="
	SLASH_ASSIGN    TokenType = "/="
	PLUS            TokenType = "+"
	MINUS           TokenType = "-"
	ASTERISK        TokenType = "*"
	SLASH           TokenType = "/"
	PERCENT         TokenType = "%"
	POWER           TokenType = "^"
	INCR            TokenType = "++"
	DECR            TokenType = "--"
	BANG            TokenType = "!"
	AND             TokenType = "&&"
	OR              TokenType = "||"
	XOR             TokenType = "^|"
	EQ              TokenType = "=="
	NOT_EQ          TokenType = "!="
	LT              TokenType = "<"
	LTE             TokenType = "<="
	GT              TokenType = ">"
	GTE             TokenType = ">="
	APPEND          TokenType = "<<"
	QUESTION        TokenType = "?"
	COLON           TokenType = ":"
	DOLLAR          TokenType = "$"

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"

	// Keywords
	OPTIONS TokenType = "OPTIONS"
	IMAGES  TokenType = "IMAGES"
	INIT    TokenType = "INIT"
	READ    TokenType = "READ"
	WRITE   TokenType = "WRITE"
	IF      TokenType = "IF"
	ELSE    TokenType = "ELSE"
	WHILE   TokenType = "WHILE"
	UNTIL   TokenType = "UNTIL"
	FOREACH TokenType = "FOREACH"
	IN      TokenType = "IN"
	BREAKIF TokenType = "BREAKIF"
	BREAK   TokenType = "BREAK"
	TRUE    TokenType = "TRUE"
	FALSE   TokenType = "FALSE"
	NULL    TokenType = "NULL"
)

var keywords = map[string]TokenType{
	"options": OPTIONS,
	"images":  IMAGES,
	"init":    INIT,
	"read":    READ,
	"write":   WRITE,
	"if":      IF,
	"else":    ELSE,
	"while":   WHILE,
	"until":   UNTIL,
	"foreach": FOREACH,
	"in":      IN,
	"breakif": BREAKIF,
	"break":   BREAK,
	"true":    TRUE,
	"TRUE":    TRUE,
	"false":   FALSE,
	"FALSE":   FALSE,
	"null":    NULL,
	"NULL":    NULL,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
