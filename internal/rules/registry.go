package rules

import (
	"prism/internal/diag"
	"prism/internal/syntax"
)

// Registry holds rules in registration order. The set is assembled once at
// pipeline construction; the runner dispatches through the kind index and
// never discovers rules dynamically.
type Registry struct {
	rules  []Rule
	byKind map[syntax.NodeKind][]int
}

func NewRegistry() *Registry {
	return &Registry{
		byKind: make(map[syntax.NodeKind][]int),
	}
}

// Register appends a rule. Dispatch at a node follows registration order,
// so output stays deterministic regardless of how rules are grouped.
func (r *Registry) Register(rule Rule) {
	idx := len(r.rules)
	r.rules = append(r.rules, rule)
	for _, kind := range rule.Kinds() {
		r.byKind[kind] = append(r.byKind[kind], idx)
	}
}

// Len reports the number of registered rules.
func (r *Registry) Len() int { return len(r.rules) }

// interested returns the registration-ordered rules for a node kind.
func (r *Registry) interested(kind syntax.NodeKind) []Rule {
	idxs := r.byKind[kind]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Rule, len(idxs))
	for i, idx := range idxs {
		out[i] = r.rules[idx]
	}
	return out
}

// DefaultRegistry assembles the built-in rule set, skipping any code listed
// in disabled.
func DefaultRegistry(disabled map[diag.Code]bool) *Registry {
	reg := NewRegistry()
	for _, rule := range []Rule{
		&CountCompare{},
		&AsyncNaming{},
		&MatchBool{},
	} {
		if disabled[rule.Code()] {
			continue
		}
		reg.Register(rule)
	}
	return reg
}
