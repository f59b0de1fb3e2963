package graph

import (
	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/stage"
)

// Node is one stage embedded in the dependency graph.
type Node struct {
	// Def is the stage definition this node wraps.
	Def *stage.Definition

	// TopoIndex is the node's position in the discovery-order topological
	// sort. When several stages are ready at once, lower indexes run first.
	TopoIndex int

	// Parents holds the names of the stages this node depends on,
	// deduplicated, in first-reference order.
	Parents []string

	// Children holds the names of the stages that depend on this node.
	Children []string

	// SeededInputs are declared inputs satisfied by artifacts that were
	// already in the store at build time rather than by another stage.
	SeededInputs []artifact.Ref
}

// Graph is an immutable stage dependency graph with a valid execution order.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// Node returns the named node, reporting whether it exists.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns every node in topological discovery order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, name := range g.order {
		out[i] = g.nodes[name]
	}
	return out
}

// Len returns the number of stages in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}
