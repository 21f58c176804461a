package dag

import "sort"

// FindCycle checks the whole graph for a cycle. It returns the first cycle
// found as an ordered node list (each node depends on the previous one, and
// the first depends on the last), or nil when the graph is acyclic.
//
// Classic three-color depth-first search over dependent edges, with the
// recursion stack retained so the full cycle path can be reported rather than
// just one participant.
func (g *Graph) FindCycle() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[string]bool, len(g.nodes))
	temporary := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(n *node) bool
	visit = func(n *node) bool {
		if permanent[n.id] {
			return false
		}
		if temporary[n.id] {
			// Found the back edge; slice the recursion stack from the first
			// occurrence of this node to get the ordered cycle.
			for i, id := range stack {
				if id == n.id {
					cycle = append([]string(nil), stack[i:]...)
					return true
				}
			}
			cycle = []string{n.id}
			return true
		}

		temporary[n.id] = true
		stack = append(stack, n.id)

		for _, id := range sortedKeys(n.dependents) {
			if visit(n.dependents[id]) {
				return true
			}
		}

		stack = stack[:len(stack)-1]
		delete(temporary, n.id)
		permanent[n.id] = true
		return false
	}

	// Deterministic start order so the same graph always reports the same cycle.
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !permanent[id] {
			if visit(g.nodes[id]) {
				return cycle
			}
		}
	}
	return nil
}

// Levels groups the given node set into dependency-free tiers by longest-path
// generation: a node's level is one greater than the maximum level of its
// in-set dependencies. Nodes within one tier share no edges and may evaluate
// concurrently; tiers must run strictly in sequence. Ids within a tier are
// sorted.
//
// The set must induce an acyclic subgraph; callers validate acyclicity on
// every formula assignment so this holds by construction.
func (g *Graph) Levels(set map[string]bool) [][]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	level := make(map[string]int, len(set))
	var depth func(id string) int
	depth = func(id string) int {
		if l, ok := level[id]; ok {
			return l
		}
		// Mark before recursing; an unexpected cycle degrades to level 0
		// instead of recursing forever.
		level[id] = 0
		l := 0
		for depID := range g.nodes[id].deps {
			if !set[depID] {
				continue
			}
			if d := depth(depID) + 1; d > l {
				l = d
			}
		}
		level[id] = l
		return l
	}

	maxLevel := -1
	for id := range set {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		if l := depth(id); l > maxLevel {
			maxLevel = l
		}
	}
	if maxLevel < 0 {
		return nil
	}

	tiers := make([][]string, maxLevel+1)
	for id, l := range level {
		if set[id] {
			tiers[l] = append(tiers[l], id)
		}
	}
	for _, tier := range tiers {
		sort.Strings(tier)
	}
	return tiers
}
