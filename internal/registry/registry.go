// Package registry tracks metric metadata for one model instance: the unique
// id, display name, category, declared dimension subset, and whether the
// metric carries a formula.
package registry

import (
	"fmt"
	"sort"
)

// Metric is one node's metadata. Dims lists the dimension names the metric
// varies over, in declared order; the order fixes the tensor's axis layout.
type Metric struct {
	ID         string
	Name       string
	Category   string
	Dims       []string
	Calculated bool

	// Placeholder marks a metric that was auto-created on first reference
	// (from a formula or an edge) and has not been explicitly registered.
	Placeholder bool
}

// Registry is the set of all metrics known to a model.
type Registry struct {
	metrics map[string]*Metric
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{metrics: make(map[string]*Metric)}
}

// Add registers a metric explicitly. Re-adding an existing id updates its
// display metadata and dimension list; upgrading a placeholder clears the
// placeholder mark.
func (r *Registry) Add(id, name, category string, dims []string) (*Metric, error) {
	if id == "" {
		return nil, fmt.Errorf("metric id must not be empty")
	}
	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if seen[d] {
			return nil, fmt.Errorf("metric %q declares dimension %q twice", id, d)
		}
		seen[d] = true
	}
	if name == "" {
		name = id
	}
	m, ok := r.metrics[id]
	if !ok {
		m = &Metric{ID: id}
		r.metrics[id] = m
	}
	m.Name = name
	m.Category = category
	m.Dims = append([]string(nil), dims...)
	m.Placeholder = false
	return m, nil
}

// Ensure returns the metric with the given id, auto-creating a dimensionless
// placeholder input if it does not exist yet.
func (r *Registry) Ensure(id string) *Metric {
	if m, ok := r.metrics[id]; ok {
		return m
	}
	m := &Metric{ID: id, Name: id, Placeholder: true}
	r.metrics[id] = m
	return m
}

// Get returns the metric with the given id.
func (r *Registry) Get(id string) (*Metric, bool) {
	m, ok := r.metrics[id]
	return m, ok
}

// IDs returns all metric ids in lexicographic order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.metrics))
	for id := range r.metrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered metrics.
func (r *Registry) Len() int {
	return len(r.metrics)
}
