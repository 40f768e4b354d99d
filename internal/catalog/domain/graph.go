package domain

import "slices"

// ExecutionOrder returns the nodes in a deterministic topological order:
// among nodes whose inputs are satisfied, the one added first goes first.
// Edges naming unknown nodes are ignored. When the graph has a cycle, ok is
// false and order holds only the nodes that could be scheduled.
func (b *AdvancedBody) ExecutionOrder() (order []TransformGraphNode, ok bool) {
	index := make(map[string]int, len(b.Nodes))
	for i, n := range b.Nodes {
		index[n.ID] = i
	}

	inDegree := make([]int, len(b.Nodes))
	successors := make([][]int, len(b.Nodes))
	for _, e := range b.Edges {
		from, okFrom := index[e.FromNodeID]
		to, okTo := index[e.ToNodeID]
		if !okFrom || !okTo {
			continue
		}
		successors[from] = append(successors[from], to)
		inDegree[to]++
	}

	var ready []int
	for i, d := range inDegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order = make([]TransformGraphNode, 0, len(b.Nodes))
	for len(ready) > 0 {
		slices.Sort(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, b.Nodes[next])
		for _, s := range successors[next] {
			inDegree[s]--
			if inDegree[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	return order, len(order) == len(b.Nodes)
}

// FindCycle returns the node keys of one cycle, closed by repeating the
// first key, or nil when the graph is acyclic.
func (b *AdvancedBody) FindCycle() []string {
	keys := make(map[string]string, len(b.Nodes))
	adjacency := make(map[string][]string, len(b.Nodes))
	for _, n := range b.Nodes {
		keys[n.ID] = n.Key
	}
	for _, e := range b.Edges {
		if _, ok := keys[e.FromNodeID]; !ok {
			continue
		}
		if _, ok := keys[e.ToNodeID]; !ok {
			continue
		}
		adjacency[e.FromNodeID] = append(adjacency[e.FromNodeID], e.ToNodeID)
	}

	ids := make([]string, 0, len(b.Nodes))
	for _, n := range b.Nodes {
		ids = append(ids, n.ID)
	}
	cycle := findCycle(ids, func(id string) []string { return adjacency[id] })
	for i, id := range cycle {
		cycle[i] = keys[id]
	}
	return cycle
}

// findCycle runs a three-colour DFS from each root in order and returns the
// first cycle found as a closed path of ids.
func findCycle(roots []string, next func(string) []string) []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		path = append(path, id)
		for _, n := range next(id) {
			switch color[n] {
			case grey:
				start := slices.Index(path, n)
				return append(slices.Clone(path[start:]), n)
			case white:
				if c := visit(n); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, id := range roots {
		if color[id] == white {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}

// FindElementCycle walks element-schema edges from rootID and returns one
// cycle as a closed path of schema ids, or nil. elements returns the
// element schema ids of a schema.
func FindElementCycle(rootID string, elements func(schemaID string) []string) []string {
	return findCycle([]string{rootID}, elements)
}
