package ast

import "github.com/funvibe/jiffle/internal/token"

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token { return i.Token }

type NumberLiteral struct {
	Token token.Token
	Value float64
	IsInt bool
}

func (nl *NumberLiteral) expressionNode()       {}
func (nl *NumberLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NumberLiteral) GetToken() token.Token { return nl.Token }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()       {}
func (bl *BooleanLiteral) TokenLiteral() string  { return bl.Token.Lexeme }
func (bl *BooleanLiteral) GetToken() token.Token { return bl.Token }

type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()       {}
func (nl *NullLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NullLiteral) GetToken() token.Token { return nl.Token }

type ListLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()       {}
func (ll *ListLiteral) TokenLiteral() string  { return ll.Token.Lexeme }
func (ll *ListLiteral) GetToken() token.Token { return ll.Token }

type PrefixExpression struct {
	Token    token.Token // the operator token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }

type PostfixExpression struct {
	Token    token.Token // the operator token
	Operator string
	Left     Expression
}

func (pe *PostfixExpression) expressionNode()       {}
func (pe *PostfixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PostfixExpression) GetToken() token.Token { return pe.Token }

type InfixExpression struct {
	Token    token.Token // the operator token
	Operator string
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }

// AssignExpression: target op value, op one of = += -= *= /=
type AssignExpression struct {
	Token    token.Token // the operator token
	Operator string
	Target   *Identifier
	Value    Expression
}

func (ae *AssignExpression) expressionNode()       {}
func (ae *AssignExpression) TokenLiteral() string  { return ae.Token.Lexeme }
func (ae *AssignExpression) GetToken() token.Token { return ae.Token }

// TernaryExpression: cond ? a : b
type TernaryExpression struct {
	Token       token.Token // the '?' token
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (te *TernaryExpression) expressionNode()       {}
func (te *TernaryExpression) TokenLiteral() string  { return te.Token.Lexeme }
func (te *TernaryExpression) GetToken() token.Token { return te.Token }

type CallExpression struct {
	Token     token.Token // the function name token
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }

// ImagePosition is an image variable followed by a position specifier:
// src[b], src[dx, dy], src[dx, dy, b], src[$x, dy], src[[x, y]], src[[x, y], b].
// Nil X/Y means the current pixel; nil Band means band 0.
type ImagePosition struct {
	Token token.Token // the '[' token
	Image *Identifier
	X     Expression
	Y     Expression
	AbsX  bool
	AbsY  bool
	Band  Expression
}

func (ip *ImagePosition) expressionNode()       {}
func (ip *ImagePosition) TokenLiteral() string  { return ip.Token.Lexeme }
func (ip *ImagePosition) GetToken() token.Token { return ip.Token }
