package backend

import (
	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/symbols"
)

type globalSlot struct {
	name       string
	defaultFn  exprFn // nil when the caller must supply a value
	override   float64
	overridden bool
	value      float64
	set        bool
}

// GlobalTable holds init block variables. Values survive between pixels and
// are recomputed when the table is initialised: caller values win over
// defaults, and a variable with neither stays unset.
type GlobalTable struct {
	slots       []*globalSlot
	index       map[string]int
	initialized bool
}

func newGlobalTable() *GlobalTable {
	return &GlobalTable{index: make(map[string]int)}
}

func (g *GlobalTable) add(sym *symbols.Symbol) {
	g.index[sym.Name] = len(g.slots)
	g.slots = append(g.slots, &globalSlot{name: sym.Name})
}

func (g *GlobalTable) setDefault(name string, fn exprFn) {
	g.slots[g.index[name]].defaultFn = fn
}

func (g *GlobalTable) initialize(f *frame) error {
	for _, s := range g.slots {
		s.set = false
	}
	for _, s := range g.slots {
		switch {
		case s.overridden:
			s.value, s.set = s.override, true
		case s.defaultFn != nil:
			v, err := s.defaultFn(f)
			if err != nil {
				return errors.Wrapf(err, "initialising %s", s.name)
			}
			s.value, s.set = v, true
		}
	}
	g.initialized = true
	return nil
}

func (g *GlobalTable) read(i int) (float64, error) {
	s := g.slots[i]
	if !s.set {
		return 0, errors.Wrapf(ErrUndefinedVar, "%s has no value", s.name)
	}
	return s.value, nil
}

func (g *GlobalTable) write(i int, v float64) {
	s := g.slots[i]
	s.value, s.set = v, true
}

func (g *GlobalTable) get(name string) *float64 {
	i, ok := g.index[name]
	if !ok || !g.slots[i].set {
		return nil
	}
	v := g.slots[i].value
	return &v
}

// set records a caller value. The table is re-initialised on next use so
// defaults that depend on the changed variable are recomputed. A nil value
// drops the override and leaves the variable unset until then.
func (g *GlobalTable) set(name string, value *float64) error {
	i, ok := g.index[name]
	if !ok {
		return errors.Wrapf(ErrUndefinedVar, "no init variable named %s", name)
	}
	s := g.slots[i]
	if value == nil {
		s.overridden = false
		s.set = false
	} else {
		s.override, s.overridden = *value, true
		s.value, s.set = *value, true
	}
	g.initialized = false
	return nil
}

func (g *GlobalTable) names() []string {
	out := make([]string, len(g.slots))
	for i, s := range g.slots {
		out[i] = s.name
	}
	return out
}
