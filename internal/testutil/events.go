package testutil

import (
	"testing"
	"time"

	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/stage"
)

// CollectEvents drains ch until it closes and returns everything received.
// The stream is finite, so a channel that never closes fails the test after
// a generous timeout.
func CollectEvents(t *testing.T, ch <-chan events.Event) []events.Event {
	t.Helper()

	var got []events.Event
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("event stream did not close; received %d events so far", len(got))
		}
	}
}

// StageLogLines extracts the log lines a single stage emitted on one stream,
// in sequence order.
func StageLogLines(evs []events.Event, stageName string, stream stage.Stream) []string {
	var lines []string
	for _, ev := range evs {
		if log, ok := ev.(events.StageLog); ok && log.Stage == stageName && log.Stream == stream {
			lines = append(lines, log.Line)
		}
	}
	return lines
}

// FinishedStatus returns the terminal status a stage reported, or false when
// no StageFinished event for it is present.
func FinishedStatus(evs []events.Event, stageName string) (stage.Status, bool) {
	for _, ev := range evs {
		if fin, ok := ev.(events.StageFinished); ok && fin.Stage == stageName {
			return fin.Status, true
		}
	}
	return 0, false
}
