package print

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/internal/stage"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func input(t *testing.T, fq, payload string, enc artifact.Encoding) stage.ResolvedInput {
	t.Helper()
	ref, err := artifact.ParseRef(fq)
	require.NoError(t, err)
	return stage.ResolvedInput{Ref: ref, Payload: []byte(payload), Encoding: enc}
}

func TestPrintsInputMetadata(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	task, err := newTask(hcl.EmptyBody(), nil, &buf)
	require.NoError(t, err)

	outs, err := task.Run(testCtx(), stage.TaskContext{
		Inputs: []stage.ResolvedInput{
			input(t, "test/report", `{"passed":12}`, artifact.EncodingJSON),
			input(t, "build/bin", "ELF", artifact.EncodingOpaque),
		},
	})
	require.NoError(t, err)
	assert.Empty(t, outs)

	got := buf.String()
	assert.Contains(t, got, "test/report (json, 13 bytes)")
	assert.Contains(t, got, "build/bin (opaque, 3 bytes)")
	assert.NotContains(t, got, "passed")
}

func TestPrintsPayloadsWhenAsked(t *testing.T) {
	t.Parallel()
	file, diags := hclparse.NewParser().ParseHCL([]byte(`payloads = true`), "args.hcl")
	require.False(t, diags.HasErrors(), diags.Error())

	var buf bytes.Buffer
	task, err := newTask(file.Body, nil, &buf)
	require.NoError(t, err)

	_, err = task.Run(testCtx(), stage.TaskContext{
		Inputs: []stage.ResolvedInput{input(t, "test/report", `{"passed":12}`, artifact.EncodingJSON)},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `{"passed":12}`)
}

func TestPrintsPlaceholderWithoutInputs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	task, err := newTask(hcl.EmptyBody(), nil, &buf)
	require.NoError(t, err)

	_, err = task.Run(testCtx(), stage.TaskContext{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(no inputs)")
}

func TestModuleRegistersKind(t *testing.T) {
	t.Parallel()
	r := registry.New()
	(&Module{}).Register(r)
	_, ok := r.Task("print")
	assert.True(t, ok)
}
