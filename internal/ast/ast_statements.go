package ast

import "github.com/funvibe/jiffle/internal/token"

type ExpressionStatement struct {
	Token      token.Token // first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token { return es.Token }

type BlockStatement struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()        {}
func (bs *BlockStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BlockStatement) GetToken() token.Token { return bs.Token }

type IfStatement struct {
	Token       token.Token // the 'if' token
	Condition   Expression
	Consequence Statement
	Alternative Statement // may be nil
}

func (is *IfStatement) statementNode()        {}
func (is *IfStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *IfStatement) GetToken() token.Token { return is.Token }

// WhileStatement covers both while and until loops; Until inverts the test.
type WhileStatement struct {
	Token     token.Token // the 'while' or 'until' token
	Until     bool
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()        {}
func (ws *WhileStatement) TokenLiteral() string  { return ws.Token.Lexeme }
func (ws *WhileStatement) GetToken() token.Token { return ws.Token }

// ForEachStatement: foreach (v in lo:hi) body, or foreach (v in list) body.
// When High is nil, Low is the list expression.
type ForEachStatement struct {
	Token    token.Token // the 'foreach' token
	Variable *Identifier
	Low      Expression
	High     Expression
	Body     Statement
}

func (fs *ForEachStatement) statementNode()        {}
func (fs *ForEachStatement) TokenLiteral() string  { return fs.Token.Lexeme }
func (fs *ForEachStatement) GetToken() token.Token { return fs.Token }

// IsRange reports whether the loop iterates over a numeric range.
func (fs *ForEachStatement) IsRange() bool { return fs.High != nil }

type BreakIfStatement struct {
	Token     token.Token // the 'breakif' token
	Condition Expression
}

func (bs *BreakIfStatement) statementNode()        {}
func (bs *BreakIfStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BreakIfStatement) GetToken() token.Token { return bs.Token }

type BreakStatement struct {
	Token token.Token // the 'break' token
}

func (bs *BreakStatement) statementNode()        {}
func (bs *BreakStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BreakStatement) GetToken() token.Token { return bs.Token }

// AppendStatement: list << value
type AppendStatement struct {
	Token  token.Token // the '<<' token
	Target *Identifier
	Value  Expression
}

func (as *AppendStatement) statementNode()        {}
func (as *AppendStatement) TokenLiteral() string  { return as.Token.Lexeme }
func (as *AppendStatement) GetToken() token.Token { return as.Token }
