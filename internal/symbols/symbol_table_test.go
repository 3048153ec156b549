package symbols

import (
	"math"
	"testing"

	"github.com/funvibe/jiffle/internal/token"
	"github.com/funvibe/jiffle/internal/typesystem"
)

func TestResolveWalksOutwards(t *testing.T) {
	tree := NewScopeTree()
	tree.Global.Define("n", ScalarSymbol, token.Token{})
	loop := NewEnclosedSymbolTable(tree.Global, ScopeLoop)
	inner := NewEnclosedSymbolTable(loop, ScopeLoop)
	inner.Define("i", LoopVarSymbol, token.Token{})

	sym, ok := inner.Resolve("n")
	if !ok || sym.Scope != tree.Global {
		t.Fatalf("n should resolve to the global scope, got %v", sym)
	}
	if _, ok := loop.Resolve("i"); ok {
		t.Error("loop variable leaked into the enclosing scope")
	}
	if inner.DeclaringScope("i") != inner {
		t.Error("declaring scope of i should be the inner loop scope")
	}
	if loop.DeclaringScope("missing") != nil {
		t.Error("unknown names have no declaring scope")
	}
}

func TestPreludeConstants(t *testing.T) {
	tree := NewScopeTree()
	sym, ok := tree.Global.Resolve("M_PI")
	if !ok || sym.Kind != ConstantSymbol || sym.Value != math.Pi {
		t.Fatalf("M_PI not visible from the global scope: %+v", sym)
	}
	nan, ok := tree.Global.Resolve("NaN")
	if !ok || !math.IsNaN(nan.Value) {
		t.Fatal("NaN constant missing")
	}
}

func TestSymbolOrderAndType(t *testing.T) {
	st := NewEmptySymbolTable()
	st.Define("b", ListSymbol, token.Token{})
	st.Define("a", ScalarSymbol, token.Token{})
	syms := st.Symbols()
	if len(syms) != 2 || syms[0].Name != "b" || syms[1].Name != "a" {
		t.Fatalf("symbols not in declaration order: %v", syms)
	}
	if syms[0].Type() != typesystem.List || syms[1].Type() != typesystem.Scalar {
		t.Error("symbol types do not follow their kind")
	}
}

func TestImagesListing(t *testing.T) {
	tree := NewScopeTree()
	tree.Global.Define("src", SourceImageSymbol, token.Token{})
	tree.Global.Define("n", ScalarSymbol, token.Token{})
	tree.Global.Define("dest", DestImageSymbol, token.Token{})
	images := tree.Images()
	if len(images) != 2 || images[0].Name != "src" || images[1].Name != "dest" {
		t.Fatalf("unexpected images: %v", images)
	}
}
