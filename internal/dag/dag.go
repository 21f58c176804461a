// Package dag maintains the directed dependency graph over metric ids. An
// edge runs from a dependency to its dependent, fully derived from the
// dependent's formula; reassigning a formula replaces the dependent's
// incoming edge set atomically.
package dag

import (
	"sort"
	"sync"
)

// node is a single vertex keyed by metric id.
type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is a mutable directed graph. Structural mutation and traversal are
// guarded by a mutex; evaluation-time reads take the read lock.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// Ensure adds a node for the given id if it is not present.
func (g *Graph) Ensure(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.ensureLocked(id)
}

func (g *Graph) ensureLocked(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.nodes[id] = n
	return n
}

// ReplaceDependencies drops every incoming edge of the dependent and installs
// edges from each listed dependency instead. Missing nodes are created. The
// previous dependency set is returned so a failed validation can roll back.
func (g *Graph) ReplaceDependencies(dependent string, deps []string) (previous []string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n := g.ensureLocked(dependent)
	previous = make([]string, 0, len(n.deps))
	for id, dep := range n.deps {
		previous = append(previous, id)
		delete(dep.dependents, dependent)
	}
	sort.Strings(previous)
	n.deps = make(map[string]*node, len(deps))

	for _, id := range deps {
		if id == dependent {
			// Self-reference: recorded as-is so cycle validation reports it.
			n.deps[dependent] = n
			n.dependents[dependent] = n
			continue
		}
		dep := g.ensureLocked(id)
		n.deps[id] = dep
		dep.dependents[dependent] = n
	}
	return previous
}

// Dependencies returns the sorted ids the given node depends on.
func (g *Graph) Dependencies(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return sortedKeys(n.deps)
}

// Dependents returns the sorted ids that depend on the given node.
func (g *Graph) Dependents(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return sortedKeys(n.dependents)
}

// Descendants returns every node reachable from id via dependent edges,
// excluding id itself, in no particular order.
func (g *Graph) Descendants(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[id]
	if !ok {
		return nil
	}
	seen := map[string]bool{id: true}
	var out []string
	stack := []*node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range n.dependents {
			if seen[dep.id] {
				continue
			}
			seen[dep.id] = true
			out = append(out, dep.id)
			stack = append(stack, dep)
		}
	}
	return out
}

// Edges returns every (dependency, dependent) pair, sorted for deterministic
// output.
func (g *Graph) Edges() [][2]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var edges [][2]string
	for _, n := range g.nodes {
		for depID := range n.deps {
			edges = append(edges, [2]string{depID, n.id})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
