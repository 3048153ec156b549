package ir

import (
	"github.com/funvibe/jiffle/internal/symbols"
	"github.com/funvibe/jiffle/internal/token"
)

type SimpleStatement struct {
	Token token.Token
	Expr  Expr
}

func (n *SimpleStatement) stmtNode()             {}
func (n *SimpleStatement) GetToken() token.Token { return n.Token }

type StatementList struct {
	Token      token.Token
	Statements []Stmt
}

func (n *StatementList) stmtNode()             {}
func (n *StatementList) GetToken() token.Token { return n.Token }

type IfElse struct {
	Token     token.Token
	Condition Expr
	Then      Stmt // may be nil
	Else      Stmt // may be nil
}

func (n *IfElse) stmtNode()             {}
func (n *IfElse) GetToken() token.Token { return n.Token }

type While struct {
	Token     token.Token
	Condition Expr
	Body      Stmt
}

func (n *While) stmtNode()             {}
func (n *While) GetToken() token.Token { return n.Token }

// Until loops while Condition is not true.
type Until struct {
	Token     token.Token
	Condition Expr
	Body      Stmt
}

func (n *Until) stmtNode()             {}
func (n *Until) GetToken() token.Token { return n.Token }

// ForEachInRange binds Var to floor(Low)..floor(High) inclusive.
type ForEachInRange struct {
	Token token.Token
	Var   *symbols.Symbol
	Low   Expr
	High  Expr
	Body  Stmt
}

func (n *ForEachInRange) stmtNode()             {}
func (n *ForEachInRange) GetToken() token.Token { return n.Token }

// ForEachInList binds Var to each element of List.
type ForEachInList struct {
	Token token.Token
	Var   *symbols.Symbol
	List  Expr
	Body  Stmt
}

func (n *ForEachInList) stmtNode()             {}
func (n *ForEachInList) GetToken() token.Token { return n.Token }

type BreakIf struct {
	Token     token.Token
	Condition Expr
}

func (n *BreakIf) stmtNode()             {}
func (n *BreakIf) GetToken() token.Token { return n.Token }

type Break struct {
	Token token.Token
}

func (n *Break) stmtNode()             {}
func (n *Break) GetToken() token.Token { return n.Token }

// ListAppend adds Value to the end of List.
type ListAppend struct {
	Token token.Token
	List  *Variable
	Value Expr
}

func (n *ListAppend) stmtNode()             {}
func (n *ListAppend) GetToken() token.Token { return n.Token }
