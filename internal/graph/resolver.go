package graph

import (
	"fmt"
	"slices"
)

// Registry holds the static set of resource nodes in declaration order.
// Declaration order is the tie-break for nodes with no ordering constraint
// between them, so plans are reproducible.
type Registry struct {
	nodes []*Node
	byID  map[string]*Node
}

// Blocking describes a node outside a requested destroy that still depends on
// a node inside it. The teardown guard refuses the affected branch rather
// than force-deleting.
type Blocking struct {
	// Dependent is the node outside the destroy set.
	Dependent string
	// Target is the node inside the destroy set that Dependent depends on.
	Target string
}

// NewRegistry builds a registry from nodes in declaration order. Unknown
// dependency ids, duplicate ids, and cycles are configuration errors and
// fatal at startup.
func NewRegistry(nodes ...*Node) (*Registry, error) {
	r := &Registry{
		nodes: nodes,
		byID:  make(map[string]*Node, len(nodes)),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("resource node with empty id")
		}
		if _, exists := r.byID[n.ID]; exists {
			return nil, fmt.Errorf("duplicate resource node id %q", n.ID)
		}
		r.byID[n.ID] = n
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := r.byID[dep]; !ok {
				return nil, fmt.Errorf("resource node %q depends on unknown node %q", n.ID, dep)
			}
		}
	}

	// A full topological sort must consume every node; leftovers mean a cycle.
	sorted := r.topoSort(r.nodes)
	if len(sorted) != len(nodes) {
		return nil, fmt.Errorf("dependency cycle detected among resource nodes")
	}
	return r, nil
}

// Node returns the node with the given id.
func (r *Registry) Node(id string) (*Node, bool) {
	n, ok := r.byID[id]
	return n, ok
}

// Nodes returns all nodes in declaration order.
func (r *Registry) Nodes() []*Node {
	return slices.Clone(r.nodes)
}

// NodesIn returns the nodes belonging to the given stages, declaration order.
func (r *Registry) NodesIn(stages ...Stage) []*Node {
	var out []*Node
	for _, n := range r.nodes {
		if slices.Contains(stages, n.Stage) {
			out = append(out, n)
		}
	}
	return out
}

// Dependents returns the ids of nodes that declare id as a dependency,
// declaration order.
func (r *Registry) Dependents(id string) []string {
	var out []string
	for _, n := range r.nodes {
		if slices.Contains(n.DependsOn, id) {
			out = append(out, n.ID)
		}
	}
	return out
}

// OrderForApply returns the nodes of the given stages plus all of their
// transitive dependencies, topologically sorted dependencies-first.
func (r *Registry) OrderForApply(stages ...Stage) []*Node {
	include := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if include[id] {
			return
		}
		include[id] = true
		for _, dep := range r.byID[id].DependsOn {
			mark(dep)
		}
	}
	for _, n := range r.NodesIn(stages...) {
		mark(n.ID)
	}

	var subset []*Node
	for _, n := range r.nodes {
		if include[n.ID] {
			subset = append(subset, n)
		}
	}
	return r.topoSort(subset)
}

// OrderForDestroy returns the destroy order for the given stages: the nodes
// of those stages, dependents-first (reverse topological order). It also
// reports every node outside the destroy set that depends on a node inside
// it; such a dependent is a blocking condition the caller must handle, never
// silently ignored.
func (r *Registry) OrderForDestroy(stages ...Stage) ([]*Node, []Blocking) {
	inSet := make(map[string]bool)
	for _, n := range r.NodesIn(stages...) {
		inSet[n.ID] = true
	}

	var blocking []Blocking
	for _, n := range r.nodes {
		if inSet[n.ID] {
			continue
		}
		for _, dep := range n.DependsOn {
			if inSet[dep] {
				blocking = append(blocking, Blocking{Dependent: n.ID, Target: dep})
			}
		}
	}

	var subset []*Node
	for _, n := range r.nodes {
		if inSet[n.ID] {
			subset = append(subset, n)
		}
	}
	order := r.topoSort(subset)
	slices.Reverse(order)
	return order, blocking
}

// topoSort is Kahn's algorithm over the subset, restricted to edges within
// the subset. Among nodes with no remaining dependencies it always picks the
// earliest-declared one, which makes the ordering deterministic.
func (r *Registry) topoSort(subset []*Node) []*Node {
	inSubset := make(map[string]bool, len(subset))
	for _, n := range subset {
		inSubset[n.ID] = true
	}

	remaining := make(map[string]int, len(subset))
	for _, n := range subset {
		count := 0
		for _, dep := range n.DependsOn {
			if inSubset[dep] {
				count++
			}
		}
		remaining[n.ID] = count
	}

	placed := make(map[string]bool, len(subset))
	var order []*Node
	for len(order) < len(subset) {
		progressed := false
		for _, n := range subset {
			if placed[n.ID] || remaining[n.ID] != 0 {
				continue
			}
			placed[n.ID] = true
			order = append(order, n)
			for _, dependent := range subset {
				if !placed[dependent.ID] && slices.Contains(dependent.DependsOn, n.ID) {
					remaining[dependent.ID]--
				}
			}
			progressed = true
			break
		}
		if !progressed {
			// Cycle within the subset; return what was placed so the caller
			// can detect the shortfall.
			return order
		}
	}
	return order
}
