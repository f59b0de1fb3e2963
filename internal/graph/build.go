package graph

import (
	"context"
	"fmt"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/stage"
)

// Build resolves stage definitions into an executable dependency graph.
//
// Edges come from two sources. A stage that declares an input another stage
// produces depends on that producer, and every name in After is an explicit
// dependency. An input nobody produces must already exist in store, otherwise
// the build fails with ErrUnresolvedInput. The whole graph is rejected with
// ErrCyclicDependency when the edges admit no topological order.
func Build(ctx context.Context, defs []*stage.Definition, store artifact.Store) (*Graph, error) {
	log := ctxlog.FromContext(ctx)

	nodes := make(map[string]*Node, len(defs))
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := nodes[def.Name]; dup {
			return nil, fmt.Errorf("stage %q: %w", def.Name, ErrDuplicateStage)
		}
		nodes[def.Name] = &Node{Def: def}
		names = append(names, def.Name)
	}

	producers := make(map[string]string, len(names))
	for _, name := range names {
		for _, out := range nodes[name].Def.Outputs {
			fq := out.String()
			if prev, taken := producers[fq]; taken {
				return nil, &DuplicateOutputError{Ref: out, Stages: []string{prev, name}}
			}
			producers[fq] = name
		}
	}

	for _, name := range names {
		n := nodes[name]
		seen := make(map[string]bool)
		addParent := func(parent string) {
			if !seen[parent] {
				seen[parent] = true
				n.Parents = append(n.Parents, parent)
			}
		}

		for _, in := range n.Def.Inputs {
			if producer, ok := producers[in.String()]; ok {
				// A self-produced input becomes a self-edge and fails
				// the cycle check below.
				addParent(producer)
				continue
			}
			ok, err := store.Exists(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("probing store for %q: %w", in, err)
			}
			if !ok {
				return nil, &UnresolvedInputError{Stage: name, Input: in}
			}
			n.SeededInputs = append(n.SeededInputs, in)
		}

		for _, after := range n.Def.After {
			if _, ok := nodes[after]; !ok {
				return nil, &UnknownStageError{Stage: name, After: after}
			}
			addParent(after)
		}
	}

	for _, name := range names {
		for _, parent := range nodes[name].Parents {
			p := nodes[parent]
			p.Children = append(p.Children, name)
		}
	}

	order, err := topoOrder(names, nodes)
	if err != nil {
		return nil, err
	}
	for i, name := range order {
		nodes[name].TopoIndex = i
	}

	log.Debug("Dependency graph built.", "stages", len(order))
	return &Graph{nodes: nodes, order: order}, nil
}

// topoOrder runs Kahn's algorithm. The queue is seeded and drained in
// definition order, so ties resolve the same way on every run.
func topoOrder(names []string, nodes map[string]*Node) ([]string, error) {
	indegree := make(map[string]int, len(names))
	for _, name := range names {
		indegree[name] = len(nodes[name].Parents)
	}

	var queue []string
	for _, name := range names {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(names))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)
		for _, child := range nodes[name].Children {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(names) {
		return nil, &CycleError{Stages: extractCycle(names, nodes, indegree)}
	}
	return order, nil
}

// extractCycle walks parent links among the nodes Kahn's algorithm could not
// place until a name repeats, yielding one concrete cycle for the error.
func extractCycle(names []string, nodes map[string]*Node, indegree map[string]int) []string {
	remaining := make(map[string]bool, len(names))
	start := ""
	for _, name := range names {
		if indegree[name] > 0 {
			remaining[name] = true
			if start == "" {
				start = name
			}
		}
	}

	// Every remaining node keeps at least one remaining parent, so the walk
	// must eventually revisit a node.
	seenAt := make(map[string]int)
	var path []string
	cur := start
	for {
		if at, seen := seenAt[cur]; seen {
			return path[at:]
		}
		seenAt[cur] = len(path)
		path = append(path, cur)
		for _, p := range nodes[cur].Parents {
			if remaining[p] {
				cur = p
				break
			}
		}
	}
}
