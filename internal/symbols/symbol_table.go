package symbols

import (
	"sort"

	"github.com/funvibe/jiffle/internal/ast"
	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/token"
)

// SymbolTable is one scope: a name -> Symbol mapping plus its parent.
type SymbolTable struct {
	store     map[string]*Symbol
	order     []string
	outer     *SymbolTable
	scopeType ScopeType
	children  []*SymbolTable
}

func NewEmptySymbolTable() *SymbolTable {
	return &SymbolTable{store: make(map[string]*Symbol), scopeType: ScopeGlobal}
}

func NewEnclosedSymbolTable(outer *SymbolTable, scopeType ScopeType) *SymbolTable {
	st := NewEmptySymbolTable()
	st.outer = outer
	st.scopeType = scopeType
	if outer != nil {
		outer.children = append(outer.children, st)
	}
	return st
}

// NewPrelude returns a scope holding the named numeric constants.
func NewPrelude() *SymbolTable {
	st := NewEmptySymbolTable()
	st.scopeType = ScopePrelude
	names := make([]string, 0, len(config.Constants))
	for name := range config.Constants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sym := st.Define(name, ConstantSymbol, token.Token{})
		sym.Value = config.Constants[name]
	}
	return st
}

func (s *SymbolTable) Outer() *SymbolTable      { return s.outer }
func (s *SymbolTable) Type() ScopeType          { return s.scopeType }
func (s *SymbolTable) Children() []*SymbolTable { return s.children }
func (s *SymbolTable) IsLoopScope() bool        { return s.scopeType == ScopeLoop }
func (s *SymbolTable) IsGlobalScope() bool      { return s.scopeType == ScopeGlobal }

// Define adds a symbol to this scope, replacing any previous one.
func (s *SymbolTable) Define(name string, kind SymbolKind, tok token.Token) *Symbol {
	if _, exists := s.store[name]; !exists {
		s.order = append(s.order, name)
	}
	sym := &Symbol{Name: name, Kind: kind, Scope: s, Token: tok}
	s.store[name] = sym
	return sym
}

// Find looks only in this scope.
func (s *SymbolTable) Find(name string) (*Symbol, bool) {
	sym, ok := s.store[name]
	return sym, ok
}

// Resolve walks outwards to the nearest declaration of name.
func (s *SymbolTable) Resolve(name string) (*Symbol, bool) {
	for scope := s; scope != nil; scope = scope.outer {
		if sym, ok := scope.store[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// DeclaringScope returns the scope that holds the visible declaration of
// name, or nil when the name is not visible from s.
func (s *SymbolTable) DeclaringScope(name string) *SymbolTable {
	if sym, ok := s.Resolve(name); ok {
		return sym.Scope
	}
	return nil
}

// Symbols returns the symbols of this scope in declaration order.
func (s *SymbolTable) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.store[name])
	}
	return out
}

// ScopeTree is the result of the scoping pass: the scope hierarchy plus the
// symbol every identifier in the parse tree was bound to.
type ScopeTree struct {
	Prelude *SymbolTable
	Global  *SymbolTable

	loopScopes map[ast.Statement]*SymbolTable
	bindings   map[*ast.Identifier]*Symbol
}

func NewScopeTree() *ScopeTree {
	prelude := NewPrelude()
	return &ScopeTree{
		Prelude:    prelude,
		Global:     NewEnclosedSymbolTable(prelude, ScopeGlobal),
		loopScopes: make(map[ast.Statement]*SymbolTable),
		bindings:   make(map[*ast.Identifier]*Symbol),
	}
}

// OpenLoopScope creates the body scope of a loop statement.
func (t *ScopeTree) OpenLoopScope(loop ast.Statement, outer *SymbolTable) *SymbolTable {
	scope := NewEnclosedSymbolTable(outer, ScopeLoop)
	t.loopScopes[loop] = scope
	return scope
}

// LoopScope returns the body scope created for loop.
func (t *ScopeTree) LoopScope(loop ast.Statement) (*SymbolTable, bool) {
	scope, ok := t.loopScopes[loop]
	return scope, ok
}

// Bind records the symbol an identifier refers to.
func (t *ScopeTree) Bind(ident *ast.Identifier, sym *Symbol) {
	t.bindings[ident] = sym
}

// Lookup returns the symbol bound to ident by the scoping pass.
func (t *ScopeTree) Lookup(ident *ast.Identifier) (*Symbol, bool) {
	sym, ok := t.bindings[ident]
	return sym, ok
}

// Images returns image symbols in declaration order.
func (t *ScopeTree) Images() []*Symbol {
	var out []*Symbol
	for _, sym := range t.Global.Symbols() {
		if sym.Kind.IsImage() {
			out = append(out, sym)
		}
	}
	return out
}
