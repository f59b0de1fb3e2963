package graph_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/artifact/memory"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/stage"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func ref(t *testing.T, fq string) artifact.Ref {
	t.Helper()
	r, err := artifact.ParseRef(fq)
	require.NoError(t, err)
	return r
}

func refs(t *testing.T, fqs ...string) []artifact.Ref {
	t.Helper()
	out := make([]artifact.Ref, 0, len(fqs))
	for _, fq := range fqs {
		out = append(out, ref(t, fq))
	}
	return out
}

func checkDef(name string, after ...string) *stage.Definition {
	return &stage.Definition{
		Name:  name,
		Kind:  stage.KindCheck,
		After: after,
		Check: &stage.FuncCheck{Fn: func(ctx context.Context, emit stage.EmitFunc) error {
			return nil
		}},
	}
}

func taskDef(t *testing.T, name string, inputs, outputs []string, after ...string) *stage.Definition {
	t.Helper()
	return &stage.Definition{
		Name:    name,
		Kind:    stage.KindDataTask,
		Inputs:  refs(t, inputs...),
		Outputs: refs(t, outputs...),
		After:   after,
		Task: stage.TaskFunc(func(ctx context.Context, tc stage.TaskContext) ([]stage.Output, error) {
			return nil, nil
		}),
	}
}

func TestBuildLinksProducersToConsumers(t *testing.T) {
	t.Parallel()
	store := memory.New()
	defs := []*stage.Definition{
		taskDef(t, "build", nil, []string{"build/bin"}),
		taskDef(t, "test", []string{"build/bin"}, []string{"test/report"}),
		taskDef(t, "summarize", []string{"test/report"}, nil),
	}

	g, err := graph.Build(testCtx(), defs, store)
	require.NoError(t, err)
	require.Equal(t, 3, g.Len())

	testNode, ok := g.Node("test")
	require.True(t, ok)
	assert.Equal(t, []string{"build"}, testNode.Parents)
	assert.Equal(t, []string{"summarize"}, testNode.Children)
	assert.Empty(t, testNode.SeededInputs)

	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.Def.Name)
	}
	assert.Equal(t, []string{"build", "test", "summarize"}, names)

	buildNode, _ := g.Node("build")
	sumNode, _ := g.Node("summarize")
	assert.Equal(t, 0, buildNode.TopoIndex)
	assert.Equal(t, 1, testNode.TopoIndex)
	assert.Equal(t, 2, sumNode.TopoIndex)
}

func TestBuildExplicitOrderingEdges(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		checkDef("lint"),
		checkDef("unit_test", "lint"),
	}

	g, err := graph.Build(testCtx(), defs, memory.New())
	require.NoError(t, err)

	unit, ok := g.Node("unit_test")
	require.True(t, ok)
	assert.Equal(t, []string{"lint"}, unit.Parents)
}

func TestBuildSeededInputsSatisfiedByStore(t *testing.T) {
	t.Parallel()
	ctx := testCtx()
	store := memory.New()
	seeded := ref(t, "raw/data")
	_, err := store.Put(ctx, seeded, []byte(`[1,2,3]`), artifact.EncodingJSON)
	require.NoError(t, err)

	defs := []*stage.Definition{
		taskDef(t, "summarize", []string{"raw/data"}, []string{"summary/stats"}),
	}

	g, err := graph.Build(ctx, defs, store)
	require.NoError(t, err)

	n, ok := g.Node("summarize")
	require.True(t, ok)
	assert.Empty(t, n.Parents)
	assert.Equal(t, []artifact.Ref{seeded}, n.SeededInputs)
}

func TestBuildUnresolvedInput(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		taskDef(t, "summarize", []string{"raw/missing"}, nil),
	}

	_, err := graph.Build(testCtx(), defs, memory.New())
	require.ErrorIs(t, err, graph.ErrUnresolvedInput)
	assert.Contains(t, err.Error(), "summarize")
	assert.Contains(t, err.Error(), "raw/missing")
}

func TestBuildUnknownAfterTarget(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		checkDef("unit_test", "ghost"),
	}

	_, err := graph.Build(testCtx(), defs, memory.New())
	require.ErrorIs(t, err, graph.ErrUnresolvedInput)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuildRejectsDuplicateOutput(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		taskDef(t, "one", nil, []string{"shared/out"}),
		taskDef(t, "two", nil, []string{"shared/out"}),
	}

	_, err := graph.Build(testCtx(), defs, memory.New())
	require.ErrorIs(t, err, graph.ErrDuplicateOutput)
	assert.Contains(t, err.Error(), "shared/out")
	assert.Contains(t, err.Error(), "one")
	assert.Contains(t, err.Error(), "two")
}

func TestBuildRejectsDuplicateStageName(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		checkDef("lint"),
		checkDef("lint"),
	}

	_, err := graph.Build(testCtx(), defs, memory.New())
	require.ErrorIs(t, err, graph.ErrDuplicateStage)
}

func TestBuildRejectsCycle(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		checkDef("a", "c"),
		checkDef("b", "a"),
		checkDef("c", "b"),
	}

	_, err := graph.Build(testCtx(), defs, memory.New())
	require.ErrorIs(t, err, graph.ErrCyclicDependency)

	var cycleErr *graph.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycleErr.Stages)
}

func TestBuildRejectsSelfCycle(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		taskDef(t, "loop", []string{"loop/out"}, []string{"loop/out"}),
	}

	_, err := graph.Build(testCtx(), defs, memory.New())
	require.ErrorIs(t, err, graph.ErrCyclicDependency)
}

func TestBuildTopoOrderBreaksTiesByDefinitionOrder(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		checkDef("zulu"),
		checkDef("alpha"),
		checkDef("mike"),
	}

	g, err := graph.Build(testCtx(), defs, memory.New())
	require.NoError(t, err)

	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.Def.Name)
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, names)
}

func TestBuildDeduplicatesParallelEdges(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		taskDef(t, "produce", nil, []string{"out/a", "out/b"}),
		taskDef(t, "consume", []string{"out/a", "out/b"}, nil, "produce"),
	}

	g, err := graph.Build(testCtx(), defs, memory.New())
	require.NoError(t, err)

	n, ok := g.Node("consume")
	require.True(t, ok)
	assert.Equal(t, []string{"produce"}, n.Parents)

	p, _ := g.Node("produce")
	assert.Equal(t, []string{"consume"}, p.Children)
}

func TestBuildRejectsInvalidDefinition(t *testing.T) {
	t.Parallel()
	defs := []*stage.Definition{
		{Kind: stage.KindCheck},
	}

	_, err := graph.Build(testCtx(), defs, memory.New())
	require.Error(t, err)
}
