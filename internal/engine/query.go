package engine

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/vk/metricgrid/internal/trace"
)

// ResultCell is one non-zero tensor cell: the month, the value, and one
// member label per dimension the metric varies over. It marshals flat, e.g.
// {"month":3,"value":120,"geography":"us","product":"basic"}.
type ResultCell struct {
	Month  int
	Value  float64
	Coords map[string]string
}

// MarshalJSON flattens the coordinates into the top-level object.
func (c ResultCell) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(c.Coords)+2)
	fields["month"] = json.RawMessage(strconv.Itoa(c.Month))
	value, err := json.Marshal(c.Value)
	if err != nil {
		return nil, err
	}
	fields["value"] = value
	for dim, member := range c.Coords {
		m, err := json.Marshal(member)
		if err != nil {
			return nil, err
		}
		fields[dim] = m
	}
	return json.Marshal(fields)
}

// Results returns, per metric, the sparse non-zero cells of its tensor. The
// optional filter restricts each dimension it names to one member; metrics
// that do not vary over a filtered dimension are returned unrestricted.
// Cells are ordered by month, then by coordinates.
func (m *Model) Results(filter map[string]string) (map[string][]ResultCell, error) {
	for dimName, member := range filter {
		dim, ok := m.catalog.Get(dimName)
		if !ok {
			return nil, configErrorf("results filter: dimension %q is not defined", dimName)
		}
		if _, ok := dim.Index(member); !ok {
			return nil, configErrorf("results filter: dimension %q has no member %q", dimName, member)
		}
	}

	out := make(map[string][]ResultCell)
	for _, id := range m.registry.IDs() {
		metric, _ := m.registry.Get(id)
		t, ok := m.tensors[id]
		if !ok {
			continue
		}

		// Per-axis member filter, resolved once per metric.
		want := make([]int, len(metric.Dims))
		for i := range want {
			want[i] = -1
		}
		for i, dimName := range metric.Dims {
			member, filtered := filter[dimName]
			if !filtered {
				continue
			}
			dim, ok := m.catalog.Get(dimName)
			if !ok {
				continue
			}
			idx, _ := dim.Index(member)
			want[i] = idx
		}

		var cells []ResultCell
		t.NonZero(func(coords []int, month int, value float64) {
			labels := make(map[string]string, len(coords))
			for i, c := range coords {
				if want[i] >= 0 && c != want[i] {
					return
				}
				if dim, ok := m.catalog.Get(metric.Dims[i]); ok {
					labels[metric.Dims[i]] = dim.Members[c]
				} else {
					labels[metric.Dims[i]] = strconv.Itoa(c)
				}
			}
			cells = append(cells, ResultCell{Month: month, Value: value, Coords: labels})
		})
		if len(cells) > 0 {
			sort.SliceStable(cells, func(i, j int) bool { return cells[i].Month < cells[j].Month })
			out[id] = cells
		}
	}
	return out, nil
}

// Trace returns the most recent recompute records, newest first.
func (m *Model) Trace(limit int) []trace.Entry {
	return m.traceLog.Recent(limit)
}

// DependencyChain describes one node's position in the graph.
type DependencyChain struct {
	Node      string   `json:"node"`
	DependsOn []string `json:"depends_on"`
	Impacts   []string `json:"impacts"`
	Formula   string   `json:"formula,omitempty"`
}

// GetDependencyChain returns the metric's direct dependencies, direct
// dependents, and formula text.
func (m *Model) GetDependencyChain(id string) (DependencyChain, error) {
	if _, ok := m.registry.Get(id); !ok {
		return DependencyChain{}, configErrorf("dependency chain: unknown metric %q", id)
	}
	chain := DependencyChain{
		Node:      id,
		DependsOn: m.graph.Dependencies(id),
		Impacts:   m.graph.Dependents(id),
	}
	if compiled, ok := m.formulas[id]; ok {
		chain.Formula = compiled.Source
	}
	return chain, nil
}

// NodeMetadata is one graph node for visualization.
type NodeMetadata struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// EdgeMetadata is one directed edge, dependency to dependent.
type EdgeMetadata struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DAGMetadata is the visualization-ready shape of the whole graph.
type DAGMetadata struct {
	Nodes []NodeMetadata `json:"nodes"`
	Edges []EdgeMetadata `json:"edges"`
}

// GetDAGMetadata returns all nodes and edges, deterministically ordered.
func (m *Model) GetDAGMetadata() DAGMetadata {
	meta := DAGMetadata{}
	for _, id := range m.registry.IDs() {
		metric, _ := m.registry.Get(id)
		nodeType := "input"
		if metric.Calculated {
			nodeType = "calculated"
		}
		meta.Nodes = append(meta.Nodes, NodeMetadata{ID: id, Name: metric.Name, Type: nodeType})
	}
	for _, edge := range m.graph.Edges() {
		meta.Edges = append(meta.Edges, EdgeMetadata{Source: edge[0], Target: edge[1]})
	}
	return meta
}
