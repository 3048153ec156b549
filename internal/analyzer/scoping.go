package analyzer

import (
	"sort"

	"github.com/funvibe/jiffle/internal/ast"
	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/diagnostics"
	"github.com/funvibe/jiffle/internal/ir"
	"github.com/funvibe/jiffle/internal/symbols"
	"github.com/funvibe/jiffle/internal/token"
)

// Scoper classifies every identifier of a parse tree and builds the scope
// tree. It never stops at the first problem: all diagnostics are collected.
type Scoper struct {
	tree   *symbols.ScopeTree
	errors []*diagnostics.DiagnosticError
	inInit bool
}

func NewScoper() *Scoper {
	return &Scoper{tree: symbols.NewScopeTree()}
}

// Analyze runs the scoping pass over program. roles are the image roles
// supplied by the caller; they are merged with the script's images block.
func (s *Scoper) Analyze(program *ast.Program, roles map[string]ir.ImageRole) (*symbols.ScopeTree, []*diagnostics.DiagnosticError) {
	s.checkHeaderCounts(program)
	s.declareImages(program, roles)
	s.declareGlobals(program)
	for _, stmt := range program.Statements {
		s.statement(stmt, s.tree.Global)
	}
	for _, img := range s.tree.Images() {
		if !img.Used {
			s.errors = append(s.errors, diagnostics.NewWarning(diagnostics.WarnS101, img.Token, img.Name))
		}
	}
	return s.tree, s.errors
}

func (s *Scoper) addError(code diagnostics.ErrorCode, tok token.Token, args ...interface{}) {
	s.errors = append(s.errors, diagnostics.NewError(code, tok, args...))
}

func (s *Scoper) checkHeaderCounts(program *ast.Program) {
	if len(program.Options) > 1 {
		s.addError(diagnostics.ErrC002, program.Options[1].Token, config.OptionsBlockName)
	}
	if len(program.Images) > 1 {
		s.addError(diagnostics.ErrC002, program.Images[1].Token, config.ImagesBlockName)
	}
	if len(program.Inits) > 1 {
		s.addError(diagnostics.ErrC002, program.Inits[1].Token, config.InitBlockName)
	}
}

func symbolKindFor(role ir.ImageRole) symbols.SymbolKind {
	if role == ir.RoleDest {
		return symbols.DestImageSymbol
	}
	return symbols.SourceImageSymbol
}

// declareImages defines image symbols from the images block followed by
// any caller roles the block does not mention.
func (s *Scoper) declareImages(program *ast.Program, roles map[string]ir.ImageRole) {
	global := s.tree.Global
	for _, block := range program.Images {
		for _, entry := range block.Entries {
			role := ir.RoleSource
			if entry.Role == token.WRITE {
				role = ir.RoleDest
			}
			if _, exists := global.Find(entry.Name); exists {
				s.addError(diagnostics.ErrS002, entry.Token, entry.Name)
				continue
			}
			if callerRole, ok := roles[entry.Name]; ok && callerRole != role {
				s.addError(diagnostics.ErrS010, entry.Token, entry.Name)
			}
			global.Define(entry.Name, symbolKindFor(role), entry.Token)
		}
	}

	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, exists := global.Find(name); exists {
			continue
		}
		global.Define(name, symbolKindFor(roles[name]), token.Token{Type: token.IDENT, Lexeme: name})
	}
}

func (s *Scoper) declareGlobals(program *ast.Program) {
	global := s.tree.Global
	s.inInit = true
	defer func() { s.inInit = false }()

	for _, block := range program.Inits {
		for _, entry := range block.Entries {
			if entry.Value != nil {
				s.expression(entry.Value, global)
			}
			if sym, ok := global.Resolve(entry.Name); ok {
				switch {
				case sym.Kind.IsImage():
					s.addError(diagnostics.ErrS008, entry.Token, entry.Name)
				case sym.Kind == symbols.ConstantSymbol:
					s.addError(diagnostics.ErrS006, entry.Token, entry.Name)
				default:
					s.addError(diagnostics.ErrS002, entry.Token, entry.Name)
				}
				continue
			}
			sym := global.Define(entry.Name, symbols.ScalarSymbol, entry.Token)
			sym.Global = true
		}
	}
}

func (s *Scoper) statement(stmt ast.Statement, scope *symbols.SymbolTable) {
	switch n := stmt.(type) {
	case nil:
	case *ast.ExpressionStatement:
		s.expression(n.Expression, scope)
	case *ast.BlockStatement:
		for _, inner := range n.Statements {
			s.statement(inner, scope)
		}
	case *ast.IfStatement:
		s.expression(n.Condition, scope)
		s.statement(n.Consequence, scope)
		s.statement(n.Alternative, scope)
	case *ast.WhileStatement:
		s.expression(n.Condition, scope)
		s.statement(n.Body, s.tree.OpenLoopScope(n, scope))
	case *ast.ForEachStatement:
		s.expression(n.Low, scope)
		if n.High != nil {
			s.expression(n.High, scope)
		}
		body := s.tree.OpenLoopScope(n, scope)
		if _, visible := scope.Resolve(n.Variable.Value); visible {
			s.addError(diagnostics.ErrS002, n.Variable.Token, n.Variable.Value)
		} else {
			s.tree.Bind(n.Variable, body.Define(n.Variable.Value, symbols.LoopVarSymbol, n.Variable.Token))
		}
		s.statement(n.Body, body)
	case *ast.BreakIfStatement:
		s.expression(n.Condition, scope)
	case *ast.BreakStatement:
	case *ast.AppendStatement:
		s.expression(n.Value, scope)
		if sym, ok := s.resolve(n.Target, scope); ok {
			s.tree.Bind(n.Target, sym)
		}
	}
}

// resolve looks up an identifier and reports S001 when it is not visible.
func (s *Scoper) resolve(ident *ast.Identifier, scope *symbols.SymbolTable) (*symbols.Symbol, bool) {
	sym, ok := scope.Resolve(ident.Value)
	if !ok {
		s.addError(diagnostics.ErrS001, ident.Token, ident.Value)
		return nil, false
	}
	return sym, true
}

// read binds an identifier used as a value.
func (s *Scoper) read(ident *ast.Identifier, scope *symbols.SymbolTable) {
	sym, ok := s.resolve(ident, scope)
	if !ok {
		return
	}
	switch sym.Kind {
	case symbols.DestImageSymbol:
		s.addError(diagnostics.ErrS003, ident.Token, ident.Value)
	case symbols.SourceImageSymbol:
		if s.inInit {
			s.addError(diagnostics.ErrS007, ident.Token, ident.Value)
		}
	}
	sym.Used = true
	s.tree.Bind(ident, sym)
}

// checkWritable reports assignments to symbols that cannot be written.
func (s *Scoper) checkWritable(ident *ast.Identifier, sym *symbols.Symbol) bool {
	switch sym.Kind {
	case symbols.ConstantSymbol:
		s.addError(diagnostics.ErrS006, ident.Token, ident.Value)
	case symbols.LoopVarSymbol:
		s.addError(diagnostics.ErrS005, ident.Token, ident.Value)
	case symbols.SourceImageSymbol:
		s.addError(diagnostics.ErrS004, ident.Token, ident.Value)
	default:
		return true
	}
	return false
}

func (s *Scoper) expression(expr ast.Expression, scope *symbols.SymbolTable) {
	switch n := expr.(type) {
	case nil:
	case *ast.Identifier:
		s.read(n, scope)
	case *ast.NumberLiteral, *ast.BooleanLiteral, *ast.NullLiteral:
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			s.expression(el, scope)
		}
	case *ast.PrefixExpression:
		s.expression(n.Right, scope)
		if ident, ok := n.Right.(*ast.Identifier); ok && (n.Operator == "++" || n.Operator == "--") {
			if sym, ok := scope.Resolve(ident.Value); ok {
				s.checkWritable(ident, sym)
			}
		}
	case *ast.PostfixExpression:
		s.expression(n.Left, scope)
		if ident, ok := n.Left.(*ast.Identifier); ok {
			if sym, ok := scope.Resolve(ident.Value); ok {
				s.checkWritable(ident, sym)
			}
		}
	case *ast.InfixExpression:
		s.expression(n.Left, scope)
		s.expression(n.Right, scope)
	case *ast.TernaryExpression:
		s.expression(n.Condition, scope)
		s.expression(n.Consequence, scope)
		s.expression(n.Alternative, scope)
	case *ast.CallExpression:
		for _, arg := range n.Arguments {
			s.expression(arg, scope)
		}
	case *ast.ImagePosition:
		s.imagePosition(n, scope)
	case *ast.AssignExpression:
		s.assignment(n, scope)
	}
}

func (s *Scoper) imagePosition(n *ast.ImagePosition, scope *symbols.SymbolTable) {
	s.expression(n.X, scope)
	s.expression(n.Y, scope)
	s.expression(n.Band, scope)

	sym, ok := scope.Resolve(n.Image.Value)
	if !ok || sym.Kind != symbols.SourceImageSymbol {
		s.addError(diagnostics.ErrS009, n.Image.Token, n.Image.Value)
		return
	}
	if s.inInit {
		s.addError(diagnostics.ErrS007, n.Image.Token, n.Image.Value)
	}
	sym.Used = true
	s.tree.Bind(n.Image, sym)
}

// assignment binds the target of an assignment, declaring it in the
// current scope on first use. The value is visited first so that a
// variable cannot appear in its own initialiser.
func (s *Scoper) assignment(n *ast.AssignExpression, scope *symbols.SymbolTable) {
	s.expression(n.Value, scope)

	if sym, ok := scope.Resolve(n.Target.Value); ok {
		if s.checkWritable(n.Target, sym) {
			sym.Used = true
			s.tree.Bind(n.Target, sym)
		}
		return
	}
	if n.Operator != "=" {
		s.addError(diagnostics.ErrS001, n.Target.Token, n.Target.Value)
		return
	}
	kind := symbols.ScalarSymbol
	if s.isListValue(n.Value) {
		kind = symbols.ListSymbol
	}
	s.tree.Bind(n.Target, scope.Define(n.Target.Value, kind, n.Target.Token))
}

// isListValue decides the kind of a newly declared variable from the
// shape of its first value.
func (s *Scoper) isListValue(value ast.Expression) bool {
	switch v := value.(type) {
	case *ast.ListLiteral:
		return true
	case *ast.Identifier:
		sym, ok := s.tree.Lookup(v)
		return ok && sym.Kind == symbols.ListSymbol
	case *ast.AssignExpression:
		return s.isListValue(v.Value)
	}
	return false
}
