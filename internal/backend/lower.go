package backend

import (
	"fmt"
	"math"

	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/functions"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/symbols"
	"github.com/funvibe/jiffle/internal/token"
	"github.com/funvibe/jiffle/internal/typesystem"
)

type flow int

const (
	flowNext flow = iota
	flowBreak
)

type (
	exprFn func(f *frame) (float64, error)
	listFn func(f *frame) ([]float64, error)
	stmtFn func(f *frame) (flow, error)
)

// lowerer turns IR nodes into closures. Every symbol gets one slot, so a
// loop-local variable and an outer variable with the same name never alias.
type lowerer struct {
	mode    ir.Mode
	globals *GlobalTable

	scalarSlots map[*symbols.Symbol]int
	listSlots   map[*symbols.Symbol]int
	numScalars  int
	numLists    int
	loopDepth   int

	errors []*diagnostics.DiagnosticError
}

func newLowerer(mode ir.Mode) *lowerer {
	return &lowerer{
		mode:        mode,
		scalarSlots: make(map[*symbols.Symbol]int),
		listSlots:   make(map[*symbols.Symbol]int),
	}
}

func (l *lowerer) addError(code diagnostics.ErrorCode, tok token.Token, args ...interface{}) {
	l.errors = append(l.errors, diagnostics.NewError(code, tok, args...))
}

func (l *lowerer) scalarSlot(sym *symbols.Symbol) int {
	if i, ok := l.scalarSlots[sym]; ok {
		return i
	}
	i := l.numScalars
	l.scalarSlots[sym] = i
	l.numScalars++
	return i
}

func (l *lowerer) listSlot(sym *symbols.Symbol) int {
	if i, ok := l.listSlots[sym]; ok {
		return i
	}
	i := l.numLists
	l.listSlots[sym] = i
	l.numLists++
	return i
}

func noop(*frame) (flow, error) { return flowNext, nil }

func (l *lowerer) statement(stmt ir.Stmt) stmtFn {
	switch n := stmt.(type) {
	case nil:
		return noop
	case *ir.SimpleStatement:
		if n.Expr.Type() == typesystem.List {
			list := l.list(n.Expr)
			return func(f *frame) (flow, error) {
				_, err := list(f)
				return flowNext, err
			}
		}
		expr := l.scalar(n.Expr)
		return func(f *frame) (flow, error) {
			_, err := expr(f)
			return flowNext, err
		}
	case *ir.StatementList:
		return l.block(n.Statements)
	case *ir.IfElse:
		return l.ifElse(n)
	case *ir.While:
		return l.loop(n.Condition, n.Body, false)
	case *ir.Until:
		return l.loop(n.Condition, n.Body, true)
	case *ir.ForEachInRange:
		return l.forRange(n)
	case *ir.ForEachInList:
		return l.forList(n)
	case *ir.BreakIf:
		if l.loopDepth == 0 {
			l.addError(diagnostics.ErrC001, n.Token, "breakif")
			return noop
		}
		cond := l.scalar(n.Condition)
		return func(f *frame) (flow, error) {
			c, err := cond(f)
			if err != nil {
				return flowNext, err
			}
			if functions.Truthy(c) {
				return flowBreak, nil
			}
			return flowNext, nil
		}
	case *ir.Break:
		if l.loopDepth == 0 {
			l.addError(diagnostics.ErrC001, n.Token, "break")
			return noop
		}
		return func(*frame) (flow, error) { return flowBreak, nil }
	case *ir.ListAppend:
		slot := l.listSlot(n.List.Symbol)
		value := l.scalar(n.Value)
		return func(f *frame) (flow, error) {
			v, err := value(f)
			if err != nil {
				return flowNext, err
			}
			f.lists[slot] = append(f.lists[slot], v)
			return flowNext, nil
		}
	}
	panic(fmt.Sprintf("backend: unexpected statement %T", stmt))
}

func (l *lowerer) block(stmts []ir.Stmt) stmtFn {
	fns := make([]stmtFn, len(stmts))
	for i, s := range stmts {
		fns[i] = l.statement(s)
	}
	return func(f *frame) (flow, error) {
		for _, fn := range fns {
			fl, err := fn(f)
			if err != nil || fl == flowBreak {
				return fl, err
			}
		}
		return flowNext, nil
	}
}

func (l *lowerer) ifElse(n *ir.IfElse) stmtFn {
	cond := l.scalar(n.Condition)
	then := l.statement(n.Then)
	otherwise := l.statement(n.Else)
	return func(f *frame) (flow, error) {
		c, err := cond(f)
		if err != nil {
			return flowNext, err
		}
		if functions.Truthy(c) {
			return then(f)
		}
		return otherwise(f)
	}
}

// loop covers while (run while cond is true) and until (run while cond is
// not true).
func (l *lowerer) loop(condition ir.Expr, body ir.Stmt, until bool) stmtFn {
	cond := l.scalar(condition)
	l.loopDepth++
	run := l.statement(body)
	l.loopDepth--
	return func(f *frame) (flow, error) {
		for {
			c, err := cond(f)
			if err != nil {
				return flowNext, err
			}
			if functions.Truthy(c) == until {
				return flowNext, nil
			}
			fl, err := run(f)
			if err != nil {
				return flowNext, err
			}
			if fl == flowBreak {
				return flowNext, nil
			}
		}
	}
}

// forRange evaluates both bounds once and iterates floor(lo)..floor(hi).
// A NaN bound gives no iterations.
func (l *lowerer) forRange(n *ir.ForEachInRange) stmtFn {
	slot := l.scalarSlot(n.Var)
	low := l.scalar(n.Low)
	high := l.scalar(n.High)
	l.loopDepth++
	run := l.statement(n.Body)
	l.loopDepth--
	return func(f *frame) (flow, error) {
		lo, err := low(f)
		if err != nil {
			return flowNext, err
		}
		hi, err := high(f)
		if err != nil {
			return flowNext, err
		}
		if math.IsNaN(lo) || math.IsNaN(hi) {
			return flowNext, nil
		}
		for v := math.Floor(lo); v <= math.Floor(hi); v++ {
			f.scalars[slot] = v
			fl, err := run(f)
			if err != nil {
				return flowNext, err
			}
			if fl == flowBreak {
				break
			}
		}
		return flowNext, nil
	}
}

// forList iterates over a snapshot, so appends in the body do not extend
// the loop.
func (l *lowerer) forList(n *ir.ForEachInList) stmtFn {
	slot := l.scalarSlot(n.Var)
	list := l.list(n.List)
	l.loopDepth++
	run := l.statement(n.Body)
	l.loopDepth--
	return func(f *frame) (flow, error) {
		values, err := list(f)
		if err != nil {
			return flowNext, err
		}
		snapshot := append([]float64(nil), values...)
		for _, v := range snapshot {
			f.scalars[slot] = v
			fl, err := run(f)
			if err != nil {
				return flowNext, err
			}
			if fl == flowBreak {
				break
			}
		}
		return flowNext, nil
	}
}

func constant(v float64) exprFn {
	return func(*frame) (float64, error) { return v, nil }
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// scalar lowers an expression of scalar type.
func (l *lowerer) scalar(expr ir.Expr) exprFn {
	if expr.Type() != typesystem.Scalar {
		l.addError(diagnostics.ErrT013, expr.GetToken(), expr.GetToken().Lexeme)
		return constant(math.NaN())
	}
	switch n := expr.(type) {
	case *ir.IntLiteral:
		return constant(float64(n.Value))
	case *ir.DoubleLiteral:
		return constant(n.Value)
	case *ir.BoolConstant:
		return constant(boolValue(n.Value))
	case *ir.NullConstant:
		return constant(math.NaN())
	case *ir.Variable:
		return l.readVar(n.Symbol)
	case *ir.BinaryExpression:
		if n.Operator.IsAssign() {
			return l.assign(n)
		}
		return binary(n.Operator, l.scalar(n.Left), l.scalar(n.Right))
	case *ir.UnaryExpression:
		return l.unary(n)
	case *ir.FunctionCall:
		return l.call(n)
	case *ir.ConditionalFunction:
		return l.conditional(n)
	case *ir.ImageRead:
		return l.imageRead(n)
	case *ir.ImageWrite:
		return l.imageWrite(n)
	}
	panic(fmt.Sprintf("backend: unexpected expression %T", expr))
}

func arithmetic(op ir.BinaryOp, a, b float64) float64 {
	switch op {
	case ir.OpAdd:
		return a + b
	case ir.OpSub:
		return a - b
	case ir.OpMul:
		return a * b
	case ir.OpDiv:
		return a / b
	case ir.OpMod:
		return math.Mod(a, b)
	case ir.OpPow:
		return math.Pow(a, b)
	}
	panic("backend: not an arithmetic operator: " + op.String())
}

func binary(op ir.BinaryOp, left, right exprFn) exprFn {
	return func(f *frame) (float64, error) {
		a, err := left(f)
		if err != nil {
			return 0, err
		}
		b, err := right(f)
		if err != nil {
			return 0, err
		}
		return arithmetic(op, a, b), nil
	}
}

func (l *lowerer) readVar(sym *symbols.Symbol) exprFn {
	switch {
	case sym.Kind == symbols.ConstantSymbol:
		return constant(sym.Value)
	case sym.Global:
		g := l.globals
		i := g.index[sym.Name]
		return func(*frame) (float64, error) { return g.read(i) }
	default:
		slot := l.scalarSlot(sym)
		return func(f *frame) (float64, error) { return f.scalars[slot], nil }
	}
}

// store returns a setter for a scalar variable.
func (l *lowerer) store(sym *symbols.Symbol) func(f *frame, v float64) {
	if sym.Global {
		g := l.globals
		i := g.index[sym.Name]
		return func(_ *frame, v float64) { g.write(i, v) }
	}
	slot := l.scalarSlot(sym)
	return func(f *frame, v float64) { f.scalars[slot] = v }
}

func (l *lowerer) assign(n *ir.BinaryExpression) exprFn {
	sym := n.Left.(*ir.Variable).Symbol
	value := l.scalar(n.Right)
	set := l.store(sym)
	if n.Operator == ir.OpAssign {
		return func(f *frame) (float64, error) {
			v, err := value(f)
			if err != nil {
				return 0, err
			}
			set(f, v)
			return v, nil
		}
	}
	get := l.readVar(sym)
	op := n.Operator.Arithmetic()
	return func(f *frame) (float64, error) {
		v, err := value(f)
		if err != nil {
			return 0, err
		}
		cur, err := get(f)
		if err != nil {
			return 0, err
		}
		v = arithmetic(op, cur, v)
		set(f, v)
		return v, nil
	}
}

func (l *lowerer) unary(n *ir.UnaryExpression) exprFn {
	if !n.Operator.IsStep() {
		operand := l.scalar(n.Operand)
		if n.Operator == ir.OpPlus {
			return operand
		}
		return func(f *frame) (float64, error) {
			v, err := operand(f)
			return -v, err
		}
	}
	sym := n.Operand.(*ir.Variable).Symbol
	get := l.readVar(sym)
	set := l.store(sym)
	delta := 1.0
	if n.Operator == ir.OpPreDecr || n.Operator == ir.OpPostDecr {
		delta = -1
	}
	post := n.Operator == ir.OpPostIncr || n.Operator == ir.OpPostDecr
	return func(f *frame) (float64, error) {
		cur, err := get(f)
		if err != nil {
			return 0, err
		}
		set(f, cur+delta)
		if post {
			return cur, nil
		}
		return cur + delta, nil
	}
}

func (l *lowerer) call(n *ir.FunctionCall) exprFn {
	def := n.Def
	switch def.Kind {
	case functions.KindProxy:
		return proxy(def.Name)
	case functions.KindReducer:
		list := l.list(n.Args[0])
		return func(f *frame) (float64, error) {
			values, err := list(f)
			if err != nil {
				return 0, err
			}
			return def.Reduce(values), nil
		}
	}
	args := make([]exprFn, len(n.Args))
	for i, a := range n.Args {
		args[i] = l.scalar(a)
	}
	return func(f *frame) (float64, error) {
		values := make([]float64, len(args))
		for i, a := range args {
			v, err := a(f)
			if err != nil {
				return 0, err
			}
			values[i] = v
		}
		return def.Scalar(values), nil
	}
}

// proxy reads the current position or a world property.
func proxy(name string) exprFn {
	switch name {
	case config.XFuncName:
		return func(f *frame) (float64, error) { return f.x, nil }
	case config.YFuncName:
		return func(f *frame) (float64, error) { return f.y, nil }
	}
	pick := map[string]func(WorldInfo) float64{
		"width":  func(w WorldInfo) float64 { return w.Width },
		"height": func(w WorldInfo) float64 { return w.Height },
		"xmin":   func(w WorldInfo) float64 { return w.MinX },
		"xmax":   func(w WorldInfo) float64 { return w.MinX + w.Width },
		"ymin":   func(w WorldInfo) float64 { return w.MinY },
		"ymax":   func(w WorldInfo) float64 { return w.MinY + w.Height },
		"xres":   func(w WorldInfo) float64 { return w.XRes },
		"yres":   func(w WorldInfo) float64 { return w.YRes },
	}[name]
	if pick == nil {
		panic("backend: unknown proxy function " + name)
	}
	return func(f *frame) (float64, error) { return pick(f.env.World()), nil }
}

// conditional evaluates only the selected branch.
func (l *lowerer) conditional(n *ir.ConditionalFunction) exprFn {
	cond := l.scalar(n.Condition)
	branches := make([]exprFn, len(n.Branches))
	for i, b := range n.Branches {
		branches[i] = l.scalar(b)
	}
	return func(f *frame) (float64, error) {
		c, err := cond(f)
		if err != nil {
			return 0, err
		}
		var branchErr error
		v := functions.Con(c, func(i int) float64 {
			r, err := branches[i](f)
			if err != nil {
				branchErr = err
			}
			return r
		}, len(branches))
		return v, branchErr
	}
}

func (l *lowerer) optional(expr ir.Expr) exprFn {
	if expr == nil {
		return constant(0)
	}
	return l.scalar(expr)
}

// imageRead resolves the sample position. Relative axes are offsets in
// world units from the current pixel; absolute axes are world coordinates.
func (l *lowerer) imageRead(n *ir.ImageRead) exprFn {
	name := n.Image.Name
	xFn, yFn, bandFn := l.optional(n.X), l.optional(n.Y), l.optional(n.Band)
	absX, absY := n.AbsX, n.AbsY
	return func(f *frame) (float64, error) {
		x, err := xFn(f)
		if err != nil {
			return 0, err
		}
		y, err := yFn(f)
		if err != nil {
			return 0, err
		}
		b, err := bandFn(f)
		if err != nil {
			return 0, err
		}
		if !absX {
			x += f.x
		}
		if !absY {
			y += f.y
		}
		return f.env.ReadFromImage(name, x, y, bandIndex(b))
	}
}

// bandIndex truncates a band expression; NaN maps to an invalid index.
func bandIndex(b float64) int {
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return -1
	}
	return int(b)
}

func (l *lowerer) imageWrite(n *ir.ImageWrite) exprFn {
	value := l.scalar(n.Value)
	if l.mode == ir.Indirect {
		return func(f *frame) (float64, error) {
			v, err := value(f)
			if err != nil {
				return 0, err
			}
			f.result = v
			return v, nil
		}
	}
	name := n.Image.Name
	return func(f *frame) (float64, error) {
		v, err := value(f)
		if err != nil {
			return 0, err
		}
		return v, f.env.WriteToImage(name, f.x, f.y, 0, v)
	}
}

// list lowers an expression of list type.
func (l *lowerer) list(expr ir.Expr) listFn {
	switch n := expr.(type) {
	case *ir.ListLiteral:
		elems := make([]exprFn, len(n.Elements))
		for i, e := range n.Elements {
			elems[i] = l.scalar(e)
		}
		return func(f *frame) ([]float64, error) {
			out := make([]float64, len(elems))
			for i, e := range elems {
				v, err := e(f)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	case *ir.Variable:
		slot := l.listSlot(n.Symbol)
		return func(f *frame) ([]float64, error) { return f.lists[slot], nil }
	case *ir.BinaryExpression:
		if n.Operator == ir.OpAssign {
			slot := l.listSlot(n.Left.(*ir.Variable).Symbol)
			value := l.list(n.Right)
			return func(f *frame) ([]float64, error) {
				values, err := value(f)
				if err != nil {
					return nil, err
				}
				f.lists[slot] = append(f.lists[slot][:0], values...)
				return f.lists[slot], nil
			}
		}
	}
	l.addError(diagnostics.ErrT014, expr.GetToken(), expr.GetToken().Lexeme)
	return func(*frame) ([]float64, error) { return nil, nil }
}
