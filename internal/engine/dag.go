package engine

import (
	"fmt"
	"sync"
)

// graph is the dependency topology underlying the engine. Unlike a plain
// adjacency set, each node keeps its dependencies in declaration order:
// link-requirement propagation joins discovered flags in that order, so the
// traversal must be deterministic.
type graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

type node struct {
	id string
	// deps in declaration order, depSet for duplicate suppression.
	deps   []string
	depSet map[string]struct{}
	// dependents is unordered; nothing ordering-sensitive reads it.
	dependents map[string]struct{}
}

func newGraph() *graph {
	return &graph{nodes: make(map[string]*node)}
}

// addNode registers an id. Adding an existing id is a no-op.
func (g *graph) addNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(id)
}

func (g *graph) addNodeLocked(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		depSet:     make(map[string]struct{}),
		dependents: make(map[string]struct{}),
	}
}

// addEdge records that toID depends on fromID. Unknown endpoints are created
// on the fly: a rule may legitimately depend on a rule declared later in the
// same package. Self-edges are rejected.
func (g *graph) addEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("rule %s cannot depend on itself", fromID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(fromID)
	g.addNodeLocked(toID)

	to := g.nodes[toID]
	if _, dup := to.depSet[fromID]; dup {
		return nil
	}
	to.depSet[fromID] = struct{}{}
	to.deps = append(to.deps, fromID)
	g.nodes[fromID].dependents[toID] = struct{}{}
	return nil
}

// dependencies returns the direct dependencies of id in declaration order.
func (g *graph) dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("rule not found: %s", id)
	}
	out := make([]string, len(n.deps))
	copy(out, n.deps)
	return out, nil
}

// detectCycles walks the graph depth-first with the classic three-colour
// marking and reports the first back edge found.
func (g *graph) detectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = iota // unvisited
		grey         // on the current path
		black        // fully explored
	)
	colour := make(map[string]int, len(g.nodes))

	var visit func(id string) error
	visit = func(id string) error {
		colour[id] = grey
		for _, dep := range g.nodes[id].deps {
			switch colour[dep] {
			case grey:
				return fmt.Errorf("dependency cycle through %s and %s", id, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		colour[id] = black
		return nil
	}

	for id := range g.nodes {
		if colour[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
