// Package functions is the fixed function library scripts can call. The
// table is built once at init time and never modified, so it is safe to
// share between evaluators running on different goroutines.
package functions

import (
	"fmt"
	"sort"

	"github.com/funvibe/jiffle/internal/typesystem"
)

type Kind int

const (
	// KindScalar functions take scalar arguments.
	KindScalar Kind = iota
	// KindReducer functions take exactly one list argument.
	KindReducer
	// KindProxy functions read evaluator state (current pixel, world bounds).
	KindProxy
)

type Def struct {
	Name   string
	Args   []typesystem.Type
	Result typesystem.Type
	Kind   Kind

	Scalar func(args []float64) float64   // KindScalar
	Reduce func(values []float64) float64 // KindReducer
}

func (d *Def) Arity() int { return len(d.Args) }

func (d *Def) String() string {
	return fmt.Sprintf("%s/%d", d.Name, len(d.Args))
}

var (
	table = make(map[string]*Def)
	names = make(map[string]bool)
)

func key(name string, arity int) string {
	return fmt.Sprintf("%s/%d", name, arity)
}

func register(def *Def) {
	table[key(def.Name, def.Arity())] = def
	names[def.Name] = true
}

func scalars(n int) []typesystem.Type {
	args := make([]typesystem.Type, n)
	for i := range args {
		args[i] = typesystem.Scalar
	}
	return args
}

func unary(name string, fn func(float64) float64) {
	register(&Def{Name: name, Args: scalars(1), Result: typesystem.Scalar, Kind: KindScalar,
		Scalar: func(a []float64) float64 { return fn(a[0]) }})
}

func binary(name string, fn func(float64, float64) float64) {
	register(&Def{Name: name, Args: scalars(2), Result: typesystem.Scalar, Kind: KindScalar,
		Scalar: func(a []float64) float64 { return fn(a[0], a[1]) }})
}

func reducer(name string, fn func([]float64) float64) {
	register(&Def{Name: name, Args: []typesystem.Type{typesystem.List}, Result: typesystem.Scalar,
		Kind: KindReducer, Reduce: fn})
}

func proxy(name string) {
	register(&Def{Name: name, Result: typesystem.Scalar, Kind: KindProxy})
}

// Lookup resolves a function by name and argument count.
func Lookup(name string, arity int) (*Def, bool) {
	def, ok := table[key(name, arity)]
	return def, ok
}

// Exists reports whether any arity of name is defined.
func Exists(name string) bool {
	return names[name]
}

// Arities lists the defined argument counts of name in ascending order.
func Arities(name string) []int {
	var out []int
	for _, def := range table {
		if def.Name == name {
			out = append(out, def.Arity())
		}
	}
	sort.Ints(out)
	return out
}

// Names returns every function name, sorted.
func Names() []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
