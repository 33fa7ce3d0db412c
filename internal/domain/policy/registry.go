package policy

import (
	"fmt"
)

// Registry is the process-wide catalogue of retention policies and data
// sources. It is built once at startup and read-only afterwards, so lookups
// are safe for unsynchronized concurrent use.
type Registry struct {
	policies   []RetentionPolicy
	sources    []DataSource
	byID       map[string]RetentionPolicy
	byCategory map[Category][]RetentionPolicy
	sourcesBy  map[Category][]DataSource
	byColl     map[string]DataSource
}

func NewRegistry(policies []RetentionPolicy, sources []DataSource) (*Registry, error) {
	r := &Registry{
		byID:       make(map[string]RetentionPolicy),
		byCategory: make(map[Category][]RetentionPolicy),
		sourcesBy:  make(map[Category][]DataSource),
		byColl:     make(map[string]DataSource),
	}
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate policy id %s", p.ID)
		}
		r.policies = append(r.policies, p)
		r.byID[p.ID] = p
		r.byCategory[p.Category] = append(r.byCategory[p.Category], p)
	}
	for _, src := range sources {
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byColl[src.Collection]; dup {
			return nil, fmt.Errorf("duplicate data source %s", src.Collection)
		}
		r.sources = append(r.sources, src)
		r.sourcesBy[src.Category] = append(r.sourcesBy[src.Category], src)
		r.byColl[src.Collection] = src
	}
	return r, nil
}

func (r *Registry) Policies() []RetentionPolicy {
	out := make([]RetentionPolicy, len(r.policies))
	copy(out, r.policies)
	return out
}

func (r *Registry) PolicyByID(id string) (RetentionPolicy, error) {
	p, ok := r.byID[id]
	if !ok {
		return RetentionPolicy{}, ErrPolicyNotFound
	}
	return p, nil
}

func (r *Registry) PoliciesByCategory(c Category) []RetentionPolicy {
	return append([]RetentionPolicy(nil), r.byCategory[c]...)
}

func (r *Registry) Sources() []DataSource {
	out := make([]DataSource, len(r.sources))
	copy(out, r.sources)
	return out
}

// SourcesByCategory returns the data sources mapped to a category. A category
// with no registered source is legal and yields an empty slice, not an error.
func (r *Registry) SourcesByCategory(c Category) []DataSource {
	return append([]DataSource(nil), r.sourcesBy[c]...)
}

func (r *Registry) SourceByCollection(name string) (DataSource, bool) {
	src, ok := r.byColl[name]
	return src, ok
}
