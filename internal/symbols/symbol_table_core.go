package symbols

import (
	"github.com/funvibe/jiffle/internal/token"
	"github.com/funvibe/jiffle/internal/typesystem"
)

type SymbolKind int

type ScopeType int

const (
	ScopePrelude ScopeType = iota // Named constants
	ScopeGlobal                   // Images, init variables and top-level body variables
	ScopeLoop                     // Body of a while, until or foreach loop
)

const (
	SourceImageSymbol SymbolKind = iota
	DestImageSymbol
	ScalarSymbol
	ListSymbol
	LoopVarSymbol
	ConstantSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case SourceImageSymbol:
		return "source image"
	case DestImageSymbol:
		return "destination image"
	case ScalarSymbol:
		return "scalar"
	case ListSymbol:
		return "list"
	case LoopVarSymbol:
		return "loop variable"
	case ConstantSymbol:
		return "constant"
	default:
		return "unknown"
	}
}

// IsImage reports whether the kind names a bound image.
func (k SymbolKind) IsImage() bool {
	return k == SourceImageSymbol || k == DestImageSymbol
}

type Symbol struct {
	Name  string
	Kind  SymbolKind
	Scope *SymbolTable // declaring scope
	Token token.Token  // declaration site

	// Global is set for variables declared in the init block.
	Global bool
	// Value holds the numeric value of a ConstantSymbol.
	Value float64
	// Used is set when the symbol is referenced anywhere in the body.
	Used bool
}

// Type returns the value shape the symbol carries when read.
func (s *Symbol) Type() typesystem.Type {
	if s.Kind == ListSymbol {
		return typesystem.List
	}
	return typesystem.Scalar
}
