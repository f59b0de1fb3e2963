package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/app"
	"github.com/vk/pipegridgo/internal/stage"
	"github.com/vk/pipegridgo/internal/testutil"
)

// TestErrorHandling_CancellationYieldsCancelledRun cancels mid-run and
// expects the in-flight check to be interrupted, the queued one to never
// start, and the run to resolve as cancelled rather than failed.
func TestErrorHandling_CancellationYieldsCancelledRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pipelineHCL := `
        pipeline "slow" {
            workers = 1
        }

        check "sleeper" {
            command = "sleep"
            args    = ["5"]
        }

        check "queued" {
            command = "true"
            after   = ["sleeper"]
        }
    `
	harness := testutil.NewPipelineHarness(t, map[string]string{"main.hcl": pipelineHCL}, func(cfg *app.Config) {
		cfg.WorkerCount = 0 // defer to the pipeline block
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	// --- Act ---
	start := time.Now()
	result := harness.Run(ctx)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, stage.ErrCancelled)
	assert.Less(t, time.Since(start), 5*time.Second, "run must not wait out the sleeper")
	assert.Contains(t, result.LogOutput, "status=cancelled")
	assert.NotContains(t, result.LogOutput, `msg="Admitting stage." stage=queued`)
}
