// Package graph orders workspace projects by their declared dependencies.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	dgraph "github.com/dominikbraun/graph"
)

var (
	// ErrCycle is returned when dependencies form a cycle.
	ErrCycle = errors.New("dependency cycle")

	// ErrUnknown is returned when a node depends on a name that is not a
	// node.
	ErrUnknown = errors.New("unknown dependency")
)

// Node is a project and the names of the projects it depends on.
type Node struct {
	Name      string
	DependsOn []string
}

// Dependency is an edge: Source depends on Target.
type Dependency struct {
	Source string
	Target string
}

// Graph is a validated, acyclic dependency graph.
type Graph struct {
	g     dgraph.Graph[string, string]
	edges []Dependency
}

// Build validates nodes and links them. Edges point from a dependency to
// its dependents.
func Build(nodes []Node) (*Graph, error) {
	g := dgraph.New(dgraph.StringHash, dgraph.Directed(), dgraph.PreventCycles())
	for _, n := range nodes {
		if err := g.AddVertex(n.Name); err != nil {
			return nil, fmt.Errorf("project %q: %w", n.Name, err)
		}
	}

	var edges []Dependency
	for _, n := range nodes {
		deps := slices.Clone(n.DependsOn)
		sort.Strings(deps)
		for _, dep := range slices.Compact(deps) {
			if _, err := g.Vertex(dep); err != nil {
				return nil, fmt.Errorf("%s depends on %q: %w", n.Name, dep, ErrUnknown)
			}
			if dep == n.Name {
				return nil, fmt.Errorf("%s depends on itself: %w", n.Name, ErrCycle)
			}
			if err := g.AddEdge(dep, n.Name); err != nil {
				if errors.Is(err, dgraph.ErrEdgeCreatesCycle) {
					return nil, fmt.Errorf("%s -> %s: %w", n.Name, dep, ErrCycle)
				}
				return nil, err
			}
			edges = append(edges, Dependency{Source: n.Name, Target: dep})
		}
	}

	// Sort for deterministic output
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return &Graph{g: g, edges: edges}, nil
}

// Dependencies returns every edge, sorted.
func (g *Graph) Dependencies() []Dependency {
	return slices.Clone(g.edges)
}

// Order returns every node with dependencies before their dependents.
// Independent nodes are ordered by name.
func (g *Graph) Order() ([]string, error) {
	return dgraph.StableTopologicalSort(g.g, func(a, b string) bool { return a < b })
}

// Dependents returns the names that depend directly on name, sorted.
func (g *Graph) Dependents(name string) []string {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	var out []string
	for target := range adj[name] {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// Order is a shorthand for Build followed by Graph.Order.
func Order(nodes []Node) ([]string, error) {
	g, err := Build(nodes)
	if err != nil {
		return nil, err
	}
	return g.Order()
}
