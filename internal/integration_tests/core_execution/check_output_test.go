package integration_tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/testutil"
)

// TestCoreExecution_CheckPublishesDatasetForDownstreamTask runs a check
// whose command drops a result dataset into the shared data directory. The
// declared output orders the summarize task behind the check and makes the
// dataset's presence part of the check's success.
func TestCoreExecution_CheckPublishesDatasetForDownstreamTask(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	harness := testutil.NewPipelineHarness(t, nil, nil)

	// The command writes through the store's directory layout, the same
	// surface the data CLI uses.
	resultsDir := filepath.Join(harness.DataDir, "objects", "results")
	script := fmt.Sprintf("mkdir -p %s && printf '[1, 2, 3, 4, 5]' > %s",
		resultsDir, filepath.Join(resultsDir, "test"))

	pipelineHCL := fmt.Sprintf(`
        check "test" {
            command = "sh"
            args    = ["-c", %q]
            outputs = ["results/test"]
        }

        task "stats" "summarize" {
            inputs  = ["results/test"]
            outputs = ["results/summary"]
        }
    `, script)
	require.NoError(t, os.WriteFile(filepath.Join(harness.PipelineDir, "main.hcl"), []byte(pipelineHCL), 0644))

	ctx := context.Background()

	// --- Act ---
	result := harness.Run(ctx)

	// --- Assert ---
	require.NoError(t, result.Err, "run failed unexpectedly")

	store := result.OpenData(t)
	names, err := store.List(ctx, "results")
	require.NoError(t, err)
	assert.Equal(t, []string{"summary", "test"}, names)

	summary := testutil.MustGet(t, ctx, store, "results/summary")
	assert.Contains(t, string(summary), `"count":5`)
	assert.Contains(t, string(summary), `"mean":3`)
}

// TestCoreExecution_CheckMissingDeclaredOutputFailsTheRun passes a check
// that never publishes its declared dataset and expects the stage to fail
// on the broken contract rather than letting a consumer trip over it later.
func TestCoreExecution_CheckMissingDeclaredOutputFailsTheRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pipelineHCL := `
        check "test" {
            command = "true"
            outputs = ["results/test"]
        }
    `

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"main.hcl": pipelineHCL}, nil)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "execution failed for test")
	assert.Contains(t, result.Err.Error(), "output contract violated")
	assert.Contains(t, result.Err.Error(), "results/test")
}
