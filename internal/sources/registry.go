// Package sources holds the static registry of known data sources. The
// registry is built once from config and shared read-only across workers;
// nothing in the engine mutates it at runtime.
package sources

import (
	"fmt"
	"sort"
	"strings"

	"jobsignal-engine/internal/domain"
)

// Default base weights per reliability tier, used when a source entry does
// not pin its own weight.
var tierWeights = map[string]float64{
	"A": 0.90,
	"B": 0.70,
	"C": 0.50,
}

type Entry struct {
	Name   string  `yaml:"name"`
	Tier   string  `yaml:"tier"`
	Weight float64 `yaml:"weight"` // 0 = use tier default
}

type Registry struct {
	byName map[string]domain.Source
}

func NewRegistry(entries []Entry) (*Registry, error) {
	byName := make(map[string]domain.Source, len(entries))

	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("source with empty name")
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("duplicate source %q", name)
		}

		tier := strings.ToUpper(strings.TrimSpace(e.Tier))
		base, ok := tierWeights[tier]
		if !ok {
			return nil, fmt.Errorf("source %q: unknown tier %q (want A, B or C)", name, e.Tier)
		}

		w := e.Weight
		if w == 0 {
			w = base
		}
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("source %q: weight %v out of [0,1]", name, e.Weight)
		}

		byName[name] = domain.Source{Name: name, Tier: tier, Weight: w}
	}

	return &Registry{byName: byName}, nil
}

func (r *Registry) Lookup(name string) (domain.Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

func (r *Registry) Known(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Weight returns the source's base reliability weight, or 0 for sources the
// registry has never heard of (their evidence then carries no weight).
func (r *Registry) Weight(name string) float64 {
	return r.byName[name].Weight
}

// All returns every registered source ordered by name.
func (r *Registry) All() []domain.Source {
	out := make([]domain.Source, 0, len(r.byName))
	for _, s := range r.byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int { return len(r.byName) }
