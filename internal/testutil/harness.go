package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/app"
	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/artifact/local"
	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/executor"
	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/internal/stage"
)

// HarnessResult holds the outcomes of a full-application test run.
type HarnessResult struct {
	LogOutput string
	DataDir   string
	Err       error
}

// OpenData reopens the run's local store for post-run inspection.
func (r *HarnessResult) OpenData(t *testing.T) artifact.Store {
	t.Helper()
	return openLocal(t, r.DataDir)
}

// PipelineHarness prepares a full application around a temporary pipeline
// directory and a local store rooted alongside, leaving room to seed
// datasets before the run starts. Definitions load at Run time, so tests may
// drop further files into PipelineDir after construction, e.g. to embed
// DataDir paths into a check command.
type PipelineHarness struct {
	t           *testing.T
	app         *app.App
	buf         *SafeBuffer
	DataDir     string
	PipelineDir string
}

// NewPipelineHarness writes the given HCL files into a fresh directory and
// builds the application over them. The adjust callback, when non-nil,
// tweaks the config before the app is constructed; extra modules replace
// the bundled core set.
func NewPipelineHarness(t *testing.T, files map[string]string, adjust func(*app.Config), modules ...registry.Module) *PipelineHarness {
	t.Helper()

	tmpDir := t.TempDir()
	pipelineDir := filepath.Join(tmpDir, "pipeline")
	dataDir := filepath.Join(tmpDir, "data")
	require.NoError(t, os.Mkdir(pipelineDir, 0755))

	for name, content := range files {
		filePath := filepath.Join(pipelineDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	cfg := app.Config{
		PipelinePath: pipelineDir,
		StoreBackend: app.BackendLocal,
		DataDir:      dataDir,
		LogLevel:     "debug",
		LogFormat:    "text",
		WorkerCount:  4,
	}
	if adjust != nil {
		adjust(&cfg)
	}

	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	buf := &SafeBuffer{}
	return &PipelineHarness{
		t:           t,
		app:         app.NewApp(buf, appConfig, modules...),
		buf:         buf,
		DataDir:     dataDir,
		PipelineDir: pipelineDir,
	}
}

// SeedData writes datasets into the harness store before the run, keyed by
// fully-qualified name.
func (h *PipelineHarness) SeedData(ctx context.Context, payloads map[string]string) {
	h.t.Helper()
	SeedStore(h.t, ctx, h.OpenData(), payloads)
}

// OpenData opens the harness's local store.
func (h *PipelineHarness) OpenData() artifact.Store {
	h.t.Helper()
	return openLocal(h.t, h.DataDir)
}

// Run executes the pipeline through the whole application and captures the
// outcome.
func (h *PipelineHarness) Run(ctx context.Context) *HarnessResult {
	h.t.Helper()

	runErr := h.app.Run(ctx)

	if os.Getenv("PIPEGRID_TEST_LOGS") == "true" {
		h.t.Logf("--- Full Log Output for %s ---\n%s", h.t.Name(), h.buf.String())
	}

	return &HarnessResult{
		LogOutput: h.buf.String(),
		DataDir:   h.DataDir,
		Err:       runErr,
	}
}

// RunPipelineTest is the one-shot harness form: write the files, run the
// application, capture the outcome.
func RunPipelineTest(t *testing.T, files map[string]string, adjust func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()
	return NewPipelineHarness(t, files, adjust, modules...).Run(context.Background())
}

// RunDefs builds a graph over programmatically constructed definitions and
// executes it, returning the run result together with every event the run
// published.
func RunDefs(t *testing.T, ctx context.Context, defs []*stage.Definition, store artifact.Store, opts executor.Options) (*executor.RunResult, []events.Event, error) {
	t.Helper()

	g, err := graph.Build(ctx, defs, store)
	require.NoError(t, err)

	reporter := events.NewReporter()
	feed := reporter.Subscribe(context.Background())

	result, runErr := executor.New(g, store, reporter, opts).Run(ctx)
	return result, CollectEvents(t, feed), runErr
}

func openLocal(t *testing.T, dataDir string) artifact.Store {
	t.Helper()
	store, err := local.New(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}
