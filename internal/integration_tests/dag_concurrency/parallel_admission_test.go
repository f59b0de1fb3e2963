package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/artifact/memory"
	"github.com/vk/pipegridgo/internal/executor"
	"github.com/vk/pipegridgo/internal/stage"
	"github.com/vk/pipegridgo/internal/testutil"
)

// TestDagConcurrency_LintAndUnitTestRunTogether gates two independent checks
// behind a shared setup stage and requires both to be admitted at the same
// time under a worker bound of two.
func TestDagConcurrency_LintAndUnitTestRunTogether(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := testutil.Context(t)
	store := memory.New()

	// Each check reports in and then blocks until both have; the run can
	// only finish if they were genuinely running together.
	started := make(chan string, 2)
	release := make(chan struct{})
	meet := func(ctx context.Context, emit stage.EmitFunc) error {
		started <- ""
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		<-started
		<-started
		close(release)
	}()

	defs := []*stage.Definition{
		checkDef("setup", passing),
		checkDef("lint", meet, "setup"),
		checkDef("unit_test", meet, "setup"),
	}

	// --- Act ---
	result, evs, err := testutil.RunDefs(t, ctx, defs, store, executor.Options{Workers: 2})

	// --- Assert ---
	require.NoError(t, err)
	for _, name := range []string{"setup", "lint", "unit_test"} {
		assert.Equal(t, stage.StatusSucceeded, result.Stages[name].Status, name)
	}

	// Both checks were started before either finished.
	lastStart := max(startIndex(evs, "lint"), startIndex(evs, "unit_test"))
	firstFinish := min(finishIndex(evs, "lint"), finishIndex(evs, "unit_test"))
	require.GreaterOrEqual(t, lastStart, 0)
	require.GreaterOrEqual(t, firstFinish, 0)
	assert.Less(t, lastStart, firstFinish, "lint and unit_test did not overlap")
}
