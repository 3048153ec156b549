package analyzer

import (
	"math"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/funvibe/jiffle/internal/ast"
	"github.com/funvibe/jiffle/internal/config"
	"github.com/funvibe/jiffle/internal/diagnostics"
)

var knownOptions = []string{config.OutsideOptionName}

// options validates the options block. Values must be numeric literals,
// optionally signed, null or a named constant.
func (c *Checker) options(program *ast.Program) map[string]float64 {
	out := make(map[string]float64)
	for _, block := range program.Options {
		for _, entry := range block.Entries {
			if !isKnownOption(entry.Name) {
				err := c.addError(diagnostics.ErrT011, entry.Token, entry.Name)
				if hint := suggest(entry.Name, knownOptions); hint != "" {
					err.WithHint("did you mean " + hint + "?")
				}
				continue
			}
			value, ok := c.optionValue(entry.Value)
			if !ok {
				c.addError(diagnostics.ErrT012, entry.Value.GetToken(), entry.Value.TokenLiteral(), entry.Name)
				continue
			}
			out[entry.Name] = value
		}
	}
	return out
}

func isKnownOption(name string) bool {
	for _, known := range knownOptions {
		if known == name {
			return true
		}
	}
	return false
}

func (c *Checker) optionValue(expr ast.Expression) (float64, bool) {
	switch n := expr.(type) {
	case *ast.NumberLiteral:
		return n.Value, true
	case *ast.NullLiteral:
		return math.NaN(), true
	case *ast.BooleanLiteral:
		if n.Value {
			return 1, true
		}
		return 0, true
	case *ast.Identifier:
		v, ok := config.Constants[n.Value]
		return v, ok
	case *ast.PrefixExpression:
		if n.Operator != "-" && n.Operator != "+" {
			return 0, false
		}
		v, ok := c.optionValue(n.Right)
		if n.Operator == "-" {
			v = -v
		}
		return v, ok
	}
	return 0, false
}

// suggest returns the candidate closest to name, or "".
func suggest(name string, candidates []string) string {
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		// Also catch names with extra characters, e.g. "sqrtt".
		for _, candidate := range candidates {
			if fuzzy.MatchFold(candidate, name) {
				ranks = append(ranks, fuzzy.Rank{Source: candidate, Target: candidate, Distance: len(name) - len(candidate)})
			}
		}
	}
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
