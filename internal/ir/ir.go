// Package ir holds the typed, immutable node tree built by the type checker
// and consumed by both evaluator backends.
package ir

import (
	"github.com/funvibe/jiffle/internal/symbols"
	"github.com/funvibe/jiffle/internal/token"
	"github.com/funvibe/jiffle/internal/typesystem"
)

// Mode selects the evaluator flavour a script is compiled for.
type Mode int

const (
	// Direct evaluators write destination images as a side effect.
	Direct Mode = iota
	// Indirect evaluators return one value per pixel.
	Indirect
)

func (m Mode) String() string {
	if m == Indirect {
		return "indirect"
	}
	return "direct"
}

type ImageRole int

const (
	RoleSource ImageRole = iota
	RoleDest
)

func (r ImageRole) String() string {
	if r == RoleDest {
		return "dest"
	}
	return "source"
}

// Node is implemented by every IR node.
type Node interface {
	GetToken() token.Token
}

// Expr is a typed expression node.
type Expr interface {
	Node
	Type() typesystem.Type
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// ImageDecl is one image variable with its role.
type ImageDecl struct {
	Symbol *symbols.Symbol
	Role   ImageRole
}

// GlobalVar is an init block variable with its optional default value.
type GlobalVar struct {
	Symbol  *symbols.Symbol
	Default Expr // nil when the caller must supply a value
}

// Script is the fully checked program.
type Script struct {
	// Options maps option names to values; only set options are present.
	Options map[string]float64
	Images  []ImageDecl
	Globals []GlobalVar
	Body    []Stmt
}

// Destinations returns the destination image declarations.
func (s *Script) Destinations() []ImageDecl {
	var out []ImageDecl
	for _, img := range s.Images {
		if img.Role == RoleDest {
			out = append(out, img)
		}
	}
	return out
}

// Sources returns the source image declarations.
func (s *Script) Sources() []ImageDecl {
	var out []ImageDecl
	for _, img := range s.Images {
		if img.Role == RoleSource {
			out = append(out, img)
		}
	}
	return out
}
