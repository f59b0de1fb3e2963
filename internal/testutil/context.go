package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/vk/pipegridgo/internal/ctxlog"
)

// Context returns a context carrying a debug-level logger. The log output is
// buffered and only attached to the test log when the test fails.
func Context(t *testing.T) context.Context {
	t.Helper()

	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})

	return ctxlog.WithLogger(context.Background(), logger)
}
