package validator

import (
	"sort"

	"fatura/internal/domain"
)

var reviewChecks = DefaultRegistry()

// Registry maps rule keys to rules.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// DefaultRegistry returns a registry holding the required-field and totals rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, v := range RequiredFieldRules() {
		r.Register(v)
	}
	for _, v := range TotalsRules() {
		r.Register(v)
	}
	return r
}

// Register adds a rule to the registry.
func (r *Registry) Register(v Rule) {
	r.rules[v.Key()] = v
}

// Get returns the rule for a key, or nil if not found.
func (r *Registry) Get(key string) Rule {
	return r.rules[key]
}

// All returns every registered rule ordered by key.
func (r *Registry) All() []Rule {
	out := make([]Rule, 0, len(r.rules))
	for _, v := range r.rules {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Run checks inv against every registered rule.
func (r *Registry) Run(inv *domain.ExtractedInvoice) []Result {
	var results []Result
	for _, v := range r.All() {
		results = append(results, v.Check(inv)...)
	}
	return results
}
