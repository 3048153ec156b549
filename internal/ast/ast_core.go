package ast

import (
	"github.com/funvibe/jiffle/internal/token"
)

// TokenProvider is an interface for any AST node that can provide its primary token.
// This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenProvider
	TokenLiteral() string
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every tree the parser produces. Header blocks
// are kept as lists so that later stages can report duplicates.
type Program struct {
	File       string
	Options    []*OptionsBlock
	Images     []*ImagesBlock
	Inits      []*InitBlock
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) GetToken() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].GetToken()
	}
	return token.Token{}
}

// OptionsBlock: options { outside = 0; }
type OptionsBlock struct {
	Token   token.Token
	Entries []*OptionEntry
}

type OptionEntry struct {
	Token token.Token // option name
	Name  string
	Value Expression
}

func (ob *OptionsBlock) TokenLiteral() string  { return ob.Token.Lexeme }
func (ob *OptionsBlock) GetToken() token.Token { return ob.Token }

// ImagesBlock: images { src = read; dest = write; }
type ImagesBlock struct {
	Token   token.Token
	Entries []*ImageEntry
}

type ImageEntry struct {
	Token token.Token // image name
	Name  string
	Role  token.TokenType // token.READ or token.WRITE
}

func (ib *ImagesBlock) TokenLiteral() string  { return ib.Token.Lexeme }
func (ib *ImagesBlock) GetToken() token.Token { return ib.Token }

// InitBlock: init { n = 0; limit; }
type InitBlock struct {
	Token   token.Token
	Entries []*InitEntry
}

type InitEntry struct {
	Token token.Token // variable name
	Name  string
	Value Expression // nil when no default was given
}

func (ib *InitBlock) TokenLiteral() string  { return ib.Token.Lexeme }
func (ib *InitBlock) GetToken() token.Token { return ib.Token }
