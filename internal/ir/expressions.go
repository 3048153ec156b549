package ir

import (
	"github.com/funvibe/jiffle/internal/functions"
	"github.com/funvibe/jiffle/internal/symbols"
	"github.com/funvibe/jiffle/internal/token"
	"github.com/funvibe/jiffle/internal/typesystem"
)

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
)

var binaryOpNames = [...]string{"+", "-", "*", "/", "%", "^", "=", "+=", "-=", "*=", "/="}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// IsAssign reports whether op stores into its left operand.
func (op BinaryOp) IsAssign() bool { return op >= OpAssign }

// Arithmetic returns the arithmetic operator a compound assignment applies.
func (op BinaryOp) Arithmetic() BinaryOp {
	switch op {
	case OpAddAssign:
		return OpAdd
	case OpSubAssign:
		return OpSub
	case OpMulAssign:
		return OpMul
	case OpDivAssign:
		return OpDiv
	}
	return op
}

type UnaryOp int

const (
	OpPlus UnaryOp = iota
	OpMinus
	OpPreIncr
	OpPreDecr
	OpPostIncr
	OpPostDecr
)

// IsStep reports whether op modifies its operand.
func (op UnaryOp) IsStep() bool { return op >= OpPreIncr }

type IntLiteral struct {
	Token token.Token
	Value int64
}

func (n *IntLiteral) exprNode()             {}
func (n *IntLiteral) GetToken() token.Token { return n.Token }
func (n *IntLiteral) Type() typesystem.Type { return typesystem.Scalar }

type DoubleLiteral struct {
	Token token.Token
	Value float64
}

func (n *DoubleLiteral) exprNode()             {}
func (n *DoubleLiteral) GetToken() token.Token { return n.Token }
func (n *DoubleLiteral) Type() typesystem.Type { return typesystem.Scalar }

// BoolConstant is 1 or 0.
type BoolConstant struct {
	Token token.Token
	Value bool
}

func (n *BoolConstant) exprNode()             {}
func (n *BoolConstant) GetToken() token.Token { return n.Token }
func (n *BoolConstant) Type() typesystem.Type { return typesystem.Scalar }

// NullConstant is NaN.
type NullConstant struct {
	Token token.Token
}

func (n *NullConstant) exprNode()             {}
func (n *NullConstant) GetToken() token.Token { return n.Token }
func (n *NullConstant) Type() typesystem.Type { return typesystem.Scalar }

// Variable reads a scalar, list, loop or init block variable.
type Variable struct {
	Token  token.Token
	Symbol *symbols.Symbol
}

func (n *Variable) exprNode()             {}
func (n *Variable) GetToken() token.Token { return n.Token }
func (n *Variable) Type() typesystem.Type { return n.Symbol.Type() }

// BinaryExpression covers arithmetic and assignment. For assignment
// operators Left is always a *Variable.
type BinaryExpression struct {
	Token    token.Token
	Operator BinaryOp
	Left     Expr
	Right    Expr
	typ      typesystem.Type
}

func NewBinaryExpression(tok token.Token, op BinaryOp, left, right Expr) *BinaryExpression {
	typ := typesystem.Combine(left.Type(), right.Type())
	if op == OpAssign {
		typ = left.Type()
	}
	return &BinaryExpression{Token: tok, Operator: op, Left: left, Right: right, typ: typ}
}

func (n *BinaryExpression) exprNode()             {}
func (n *BinaryExpression) GetToken() token.Token { return n.Token }
func (n *BinaryExpression) Type() typesystem.Type { return n.typ }

// UnaryExpression: +x, -x, ++x, --x, x++, x--. Step operators always
// have a *Variable operand.
type UnaryExpression struct {
	Token    token.Token
	Operator UnaryOp
	Operand  Expr
}

func (n *UnaryExpression) exprNode()             {}
func (n *UnaryExpression) GetToken() token.Token { return n.Token }
func (n *UnaryExpression) Type() typesystem.Type { return typesystem.Scalar }

// FunctionCall invokes a library function resolved by name and arity.
type FunctionCall struct {
	Token token.Token
	Def   *functions.Def
	Args  []Expr
}

func (n *FunctionCall) exprNode()             {}
func (n *FunctionCall) GetToken() token.Token { return n.Token }
func (n *FunctionCall) Type() typesystem.Type { return n.Def.Result }

// ConditionalFunction is con(cond, ...) with one to three branch values;
// the ternary operator builds the three-argument form.
type ConditionalFunction struct {
	Token     token.Token
	Condition Expr
	Branches  []Expr
}

func (n *ConditionalFunction) exprNode()             {}
func (n *ConditionalFunction) GetToken() token.Token { return n.Token }
func (n *ConditionalFunction) Type() typesystem.Type { return typesystem.Scalar }

// ImageRead samples a source image. Nil X/Y read the current pixel
// (offset 0); a nil Band reads band 0. Absolute axes ignore the current
// pixel position.
type ImageRead struct {
	Token token.Token
	Image *symbols.Symbol
	Band  Expr
	X, Y  Expr
	AbsX  bool
	AbsY  bool
}

func (n *ImageRead) exprNode()             {}
func (n *ImageRead) GetToken() token.Token { return n.Token }
func (n *ImageRead) Type() typesystem.Type { return typesystem.Scalar }

// ImageWrite stores a value into a destination image at the current pixel.
// In Indirect mode it assigns the evaluator result instead.
type ImageWrite struct {
	Token token.Token
	Image *symbols.Symbol
	Value Expr
}

func (n *ImageWrite) exprNode()             {}
func (n *ImageWrite) GetToken() token.Token { return n.Token }
func (n *ImageWrite) Type() typesystem.Type { return typesystem.Scalar }

type ListLiteral struct {
	Token    token.Token
	Elements []Expr
}

func (n *ListLiteral) exprNode()             {}
func (n *ListLiteral) GetToken() token.Token { return n.Token }
func (n *ListLiteral) Type() typesystem.Type { return typesystem.List }
