package stage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineCollector is a concurrency-safe EmitFunc for tests.
type lineCollector struct {
	mu    sync.Mutex
	lines []string
	byStr map[Stream][]string
}

func newLineCollector() *lineCollector {
	return &lineCollector{byStr: make(map[Stream][]string)}
}

func (c *lineCollector) emit(stream Stream, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	c.byStr[stream] = append(c.byStr[stream], line)
}

func (c *lineCollector) stream(s Stream) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.byStr[s]...)
}

func TestExecCheckPassingSplitsStreams(t *testing.T) {
	check := &ExecCheck{
		Command: "sh",
		Args:    []string{"-c", `echo "building"; echo "progress" >&2; echo "done"`},
	}
	collector := newLineCollector()

	result, err := check.Run(context.Background(), collector.emit)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.ExitCode)

	assert.Equal(t, []string{"building", "done"}, collector.stream(StreamPrimary))
	assert.Equal(t, []string{"progress"}, collector.stream(StreamDiagnostic))
}

func TestExecCheckNonZeroExitFails(t *testing.T) {
	check := &ExecCheck{
		Command: "sh",
		Args:    []string{"-c", `echo "broken" >&2; exit 3`},
	}
	collector := newLineCollector()

	result, err := check.Run(context.Background(), collector.emit)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, []string{"broken"}, collector.stream(StreamDiagnostic))
}

func TestExecCheckMissingBinaryIsAnError(t *testing.T) {
	check := &ExecCheck{Command: "definitely-not-a-real-binary-kqzx"}

	_, err := check.Run(context.Background(), newLineCollector().emit)
	require.Error(t, err)
}

func TestExecCheckTestModeAppendsFlag(t *testing.T) {
	script := `
		for a in "$@"; do
			if [ "$a" = "--test" ]; then
				echo "test 1 [OK]" >&2
				echo "test 2 [OK]" >&2
			fi
		done
		echo "All tests pass!"
	`
	check := &ExecCheck{
		Command:  "sh",
		Args:     []string{"-c", script, "check"},
		TestMode: true,
	}
	collector := newLineCollector()

	result, err := check.Run(context.Background(), collector.emit)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, []string{"test 1 [OK]", "test 2 [OK]"}, collector.stream(StreamDiagnostic))
	assert.Equal(t, []string{"All tests pass!"}, collector.stream(StreamPrimary))
}

func TestExecCheckTestModeDoesNotMutateArgs(t *testing.T) {
	args := []string{"-c", "true", "check"}
	check := &ExecCheck{Command: "sh", Args: args, TestMode: true}

	_, err := check.Run(context.Background(), newLineCollector().emit)
	require.NoError(t, err)
	assert.Equal(t, []string{"-c", "true", "check"}, args)
}

func TestExecCheckHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	check := &ExecCheck{Command: "sh", Args: []string{"-c", "sleep 30"}}
	result, err := check.Run(ctx, newLineCollector().emit)
	if err == nil {
		assert.False(t, result.Passed)
	}
}

func TestFuncCheckPasses(t *testing.T) {
	check := &FuncCheck{Fn: func(ctx context.Context, emit EmitFunc) error {
		emit(StreamPrimary, "hello")
		return nil
	}}
	collector := newLineCollector()

	result, err := check.Run(context.Background(), collector.emit)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, []string{"hello"}, collector.stream(StreamPrimary))
}

func TestFuncCheckFailureSurfacesMessage(t *testing.T) {
	check := &FuncCheck{Fn: func(ctx context.Context, emit EmitFunc) error {
		return errors.New("assertion blew up")
	}}
	collector := newLineCollector()

	result, err := check.Run(context.Background(), collector.emit)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, []string{"assertion blew up"}, collector.stream(StreamDiagnostic))
}

func TestFuncCheckNilFnIsAnError(t *testing.T) {
	check := &FuncCheck{}
	_, err := check.Run(context.Background(), newLineCollector().emit)
	require.Error(t, err)
}
