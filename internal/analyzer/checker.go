package analyzer

import (
	"math"

	"github.com/funvibe/jiffle/internal/ast"
	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/functions"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/symbols"
	"github.com/funvibe/jiffle/internal/token"
	"github.com/funvibe/jiffle/internal/typesystem"
)

// Checker type checks a scoped parse tree and builds the IR.
type Checker struct {
	tree   *symbols.ScopeTree
	mode   ir.Mode
	errors []*diagnostics.DiagnosticError
}

func NewChecker(tree *symbols.ScopeTree, mode ir.Mode) *Checker {
	return &Checker{tree: tree, mode: mode}
}

func (c *Checker) addError(code diagnostics.ErrorCode, tok token.Token, args ...interface{}) *diagnostics.DiagnosticError {
	err := diagnostics.NewError(code, tok, args...)
	c.errors = append(c.errors, err)
	return err
}

// Check builds the Script. The returned script is only meaningful when no
// error diagnostics were returned.
func (c *Checker) Check(program *ast.Program) (*ir.Script, []*diagnostics.DiagnosticError) {
	script := &ir.Script{Options: c.options(program)}

	for _, sym := range c.tree.Images() {
		role := ir.RoleSource
		if sym.Kind == symbols.DestImageSymbol {
			role = ir.RoleDest
		}
		script.Images = append(script.Images, ir.ImageDecl{Symbol: sym, Role: role})
	}

	for _, block := range program.Inits {
		for _, entry := range block.Entries {
			sym, ok := c.tree.Global.Find(entry.Name)
			if !ok || !sym.Global {
				continue
			}
			gv := ir.GlobalVar{Symbol: sym}
			if entry.Value != nil {
				gv.Default = c.scalar(c.expression(entry.Value, false), entry.Value)
			}
			script.Globals = append(script.Globals, gv)
		}
	}

	for _, stmt := range program.Statements {
		if s := c.statement(stmt); s != nil {
			script.Body = append(script.Body, s)
		}
	}
	return script, c.errors
}

// scalar reports T013 when e is list typed.
func (c *Checker) scalar(e ir.Expr, src ast.Node) ir.Expr {
	if e != nil && e.Type() != typesystem.Scalar {
		c.addError(diagnostics.ErrT013, src.GetToken(), src.TokenLiteral())
	}
	return e
}

// condition checks a branch or loop test.
func (c *Checker) condition(expr ast.Expression) ir.Expr {
	e := c.expression(expr, false)
	if e != nil && e.Type() != typesystem.Scalar {
		c.addError(diagnostics.ErrT002, expr.GetToken())
	}
	return e
}

func (c *Checker) statement(stmt ast.Statement) ir.Stmt {
	switch n := stmt.(type) {
	case nil:
		return nil
	case *ast.ExpressionStatement:
		return &ir.SimpleStatement{Token: n.Token, Expr: c.expression(n.Expression, true)}
	case *ast.BlockStatement:
		list := &ir.StatementList{Token: n.Token}
		for _, inner := range n.Statements {
			if s := c.statement(inner); s != nil {
				list.Statements = append(list.Statements, s)
			}
		}
		return list
	case *ast.IfStatement:
		return &ir.IfElse{
			Token:     n.Token,
			Condition: c.condition(n.Condition),
			Then:      c.statement(n.Consequence),
			Else:      c.statement(n.Alternative),
		}
	case *ast.WhileStatement:
		cond := c.condition(n.Condition)
		body := c.statement(n.Body)
		if n.Until {
			return &ir.Until{Token: n.Token, Condition: cond, Body: body}
		}
		return &ir.While{Token: n.Token, Condition: cond, Body: body}
	case *ast.ForEachStatement:
		return c.forEach(n)
	case *ast.BreakIfStatement:
		return &ir.BreakIf{Token: n.Token, Condition: c.condition(n.Condition)}
	case *ast.BreakStatement:
		return &ir.Break{Token: n.Token}
	case *ast.AppendStatement:
		sym, _ := c.tree.Lookup(n.Target)
		value := c.scalar(c.expression(n.Value, false), n.Value)
		if sym == nil || sym.Kind != symbols.ListSymbol {
			c.addError(diagnostics.ErrT001, n.Token, n.Target.Value)
			return nil
		}
		return &ir.ListAppend{Token: n.Token, List: &ir.Variable{Token: n.Target.Token, Symbol: sym}, Value: value}
	}
	return nil
}

func (c *Checker) forEach(n *ast.ForEachStatement) ir.Stmt {
	scope, _ := c.tree.LoopScope(n)
	var loopVar *symbols.Symbol
	if scope != nil {
		loopVar, _ = scope.Find(n.Variable.Value)
	}
	if n.IsRange() {
		low := c.scalar(c.expression(n.Low, false), n.Low)
		high := c.scalar(c.expression(n.High, false), n.High)
		return &ir.ForEachInRange{Token: n.Token, Var: loopVar, Low: low, High: high, Body: c.statement(n.Body)}
	}
	list := c.expression(n.Low, false)
	if list != nil && list.Type() != typesystem.List {
		c.addError(diagnostics.ErrT014, n.Low.GetToken(), n.Low.TokenLiteral())
	}
	return &ir.ForEachInList{Token: n.Token, Var: loopVar, List: list, Body: c.statement(n.Body)}
}

// expression converts expr. statement is true when expr is the whole of
// an expression statement, the only place a Direct image write may appear.
func (c *Checker) expression(expr ast.Expression, statement bool) ir.Expr {
	switch n := expr.(type) {
	case *ast.NumberLiteral:
		if n.IsInt && n.Value <= math.MaxInt64 {
			return &ir.IntLiteral{Token: n.Token, Value: int64(n.Value)}
		}
		return &ir.DoubleLiteral{Token: n.Token, Value: n.Value}
	case *ast.BooleanLiteral:
		return &ir.BoolConstant{Token: n.Token, Value: n.Value}
	case *ast.NullLiteral:
		return &ir.NullConstant{Token: n.Token}
	case *ast.Identifier:
		return c.identifier(n)
	case *ast.ListLiteral:
		list := &ir.ListLiteral{Token: n.Token}
		for _, el := range n.Elements {
			list.Elements = append(list.Elements, c.scalar(c.expression(el, false), el))
		}
		return list
	case *ast.ImagePosition:
		return c.imageRead(n)
	case *ast.PrefixExpression:
		return c.prefix(n)
	case *ast.PostfixExpression:
		operand := c.stepOperand(n.Left, n.Token)
		op := ir.OpPostIncr
		if n.Operator == "--" {
			op = ir.OpPostDecr
		}
		return &ir.UnaryExpression{Token: n.Token, Operator: op, Operand: operand}
	case *ast.InfixExpression:
		return c.infix(n)
	case *ast.TernaryExpression:
		return &ir.ConditionalFunction{
			Token:     n.Token,
			Condition: c.condition(n.Condition),
			Branches: []ir.Expr{
				c.scalar(c.expression(n.Consequence, false), n.Consequence),
				c.scalar(c.expression(n.Alternative, false), n.Alternative),
			},
		}
	case *ast.CallExpression:
		return c.call(n)
	case *ast.AssignExpression:
		return c.assignment(n, statement)
	}
	return &ir.NullConstant{Token: expr.GetToken()}
}

func (c *Checker) identifier(n *ast.Identifier) ir.Expr {
	sym, ok := c.tree.Lookup(n)
	if !ok {
		return &ir.NullConstant{Token: n.Token}
	}
	switch sym.Kind {
	case symbols.ConstantSymbol:
		return &ir.DoubleLiteral{Token: n.Token, Value: sym.Value}
	case symbols.SourceImageSymbol:
		return &ir.ImageRead{Token: n.Token, Image: sym}
	}
	return &ir.Variable{Token: n.Token, Symbol: sym}
}

func (c *Checker) imageRead(n *ast.ImagePosition) ir.Expr {
	sym, _ := c.tree.Lookup(n.Image)
	read := &ir.ImageRead{Token: n.Image.Token, Image: sym, AbsX: n.AbsX, AbsY: n.AbsY}
	if n.X != nil {
		read.X = c.scalar(c.expression(n.X, false), n.X)
		read.Y = c.scalar(c.expression(n.Y, false), n.Y)
	}
	if n.Band != nil {
		read.Band = c.scalar(c.expression(n.Band, false), n.Band)
	}
	return read
}

// stepOperand checks the target of ++ and --.
func (c *Checker) stepOperand(operand ast.Expression, tok token.Token) ir.Expr {
	e := c.expression(operand, false)
	if e != nil && e.Type() == typesystem.List {
		c.addError(diagnostics.ErrT001, tok, tok.Lexeme)
	}
	return e
}

func (c *Checker) prefix(n *ast.PrefixExpression) ir.Expr {
	switch n.Operator {
	case "!":
		arg := c.expression(n.Right, false)
		if arg.Type() == typesystem.List {
			c.addError(diagnostics.ErrT001, n.Token, n.Operator)
		}
		def, _ := functions.Lookup(config.NotFuncName, 1)
		return &ir.FunctionCall{Token: n.Token, Def: def, Args: []ir.Expr{arg}}
	case "++", "--":
		op := ir.OpPreIncr
		if n.Operator == "--" {
			op = ir.OpPreDecr
		}
		return &ir.UnaryExpression{Token: n.Token, Operator: op, Operand: c.stepOperand(n.Right, n.Token)}
	}
	operand := c.expression(n.Right, false)
	if operand.Type() == typesystem.List {
		c.addError(diagnostics.ErrT001, n.Token, n.Operator)
	}
	op := ir.OpPlus
	if n.Operator == "-" {
		op = ir.OpMinus
	}
	return &ir.UnaryExpression{Token: n.Token, Operator: op, Operand: operand}
}

var arithmeticOps = map[string]ir.BinaryOp{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv, "%": ir.OpMod, "^": ir.OpPow,
}

var logicalFuncs = map[string]string{
	">": config.GtFuncName, ">=": config.GeFuncName, "<": config.LtFuncName, "<=": config.LeFuncName,
	"==": config.EqFuncName, "!=": config.NeFuncName,
	"&&": config.AndFuncName, "||": config.OrFuncName, "^|": config.XorFuncName,
}

func (c *Checker) infix(n *ast.InfixExpression) ir.Expr {
	left := c.expression(n.Left, false)
	right := c.expression(n.Right, false)
	if left.Type() == typesystem.List || right.Type() == typesystem.List {
		c.addError(diagnostics.ErrT001, n.Token, n.Operator)
	}
	if op, ok := arithmeticOps[n.Operator]; ok {
		return ir.NewBinaryExpression(n.Token, op, left, right)
	}
	def, _ := functions.Lookup(logicalFuncs[n.Operator], 2)
	return &ir.FunctionCall{Token: n.Token, Def: def, Args: []ir.Expr{left, right}}
}

func (c *Checker) call(n *ast.CallExpression) ir.Expr {
	name := n.Function.Value
	args := make([]ir.Expr, len(n.Arguments))
	for i, arg := range n.Arguments {
		args[i] = c.expression(arg, false)
	}

	if name == config.ConFuncName {
		if len(args) < 1 || len(args) > 4 {
			c.addError(diagnostics.ErrT004, n.Token, name, len(args))
			return &ir.NullConstant{Token: n.Token}
		}
		if args[0].Type() != typesystem.Scalar {
			c.addError(diagnostics.ErrT002, n.Arguments[0].GetToken())
		}
		for i := 1; i < len(args); i++ {
			c.scalar(args[i], n.Arguments[i])
		}
		return &ir.ConditionalFunction{Token: n.Token, Condition: args[0], Branches: args[1:]}
	}

	if !functions.Exists(name) {
		err := c.addError(diagnostics.ErrT003, n.Token, name)
		if hint := suggest(name, functions.Names()); hint != "" {
			err.WithHint("did you mean " + hint + "?")
		}
		return &ir.NullConstant{Token: n.Token}
	}
	def, ok := functions.Lookup(name, len(args))
	if !ok {
		c.addError(diagnostics.ErrT004, n.Token, name, len(args))
		return &ir.NullConstant{Token: n.Token}
	}
	for i, want := range def.Args {
		got := args[i].Type()
		switch {
		case want == typesystem.Scalar && got == typesystem.List:
			c.addError(diagnostics.ErrT005, n.Arguments[i].GetToken(), name)
		case want == typesystem.List && got == typesystem.Scalar:
			c.addError(diagnostics.ErrT006, n.Arguments[i].GetToken(), name)
		}
	}
	return &ir.FunctionCall{Token: n.Token, Def: def, Args: args}
}

var assignOps = map[string]ir.BinaryOp{
	"=": ir.OpAssign, "+=": ir.OpAddAssign, "-=": ir.OpSubAssign, "*=": ir.OpMulAssign, "/=": ir.OpDivAssign,
}

func (c *Checker) assignment(n *ast.AssignExpression, statement bool) ir.Expr {
	value := c.expression(n.Value, false)
	sym, ok := c.tree.Lookup(n.Target)
	if !ok {
		return value
	}
	op := assignOps[n.Operator]

	switch sym.Kind {
	case symbols.DestImageSymbol:
		if op != ir.OpAssign {
			c.addError(diagnostics.ErrT009, n.Token, n.Operator)
		}
		if c.mode == ir.Direct && !statement {
			c.addError(diagnostics.ErrT010, n.Target.Token, n.Target.Value)
		}
		if value.Type() != typesystem.Scalar {
			c.addError(diagnostics.ErrT007, n.Token, n.Target.Value)
		}
		return &ir.ImageWrite{Token: n.Token, Image: sym, Value: value}
	case symbols.ListSymbol:
		if op != ir.OpAssign {
			c.addError(diagnostics.ErrT001, n.Token, n.Operator)
		} else if value.Type() != typesystem.List {
			c.addError(diagnostics.ErrT008, n.Token, n.Target.Value)
		}
	default:
		if value.Type() != typesystem.Scalar {
			c.addError(diagnostics.ErrT007, n.Token, n.Target.Value)
		}
	}
	target := &ir.Variable{Token: n.Target.Token, Symbol: sym}
	return ir.NewBinaryExpression(n.Token, op, target, value)
}
