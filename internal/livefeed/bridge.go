// Package livefeed streams run events to an external visualizer over
// Socket.IO. It is strictly fire-and-forget: a dead or absent visualizer is
// logged and never affects the run.
package livefeed

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/events"
)

// EventName is the Socket.IO event every payload is emitted under.
const EventName = "pipeline_event"

// Config describes where the live feed connects.
type Config struct {
	// URL is the visualizer endpoint, path included (e.g.
	// "http://localhost:3000/socket.io").
	URL string
	// Namespace is the Socket.IO namespace; empty means the root namespace.
	Namespace string
	// RunID tags every forwarded payload.
	RunID string
}

// Bridge forwards reporter events to one Socket.IO endpoint.
type Bridge struct {
	cfg Config
}

// New creates a bridge. Nothing connects until Forward runs.
func New(cfg Config) *Bridge {
	if cfg.Namespace == "" {
		cfg.Namespace = "/"
	}
	return &Bridge{cfg: cfg}
}

// Forward subscribes to the reporter and emits every event until the stream
// ends or ctx is cancelled. Run it on its own goroutine; it returns once the
// stream closes.
func (b *Bridge) Forward(ctx context.Context, reporter *events.Reporter) {
	logger := ctxlog.FromContext(ctx).With("component", "livefeed", "url", b.cfg.URL)

	// Subscribe before dialing so events published while the socket is still
	// connecting are not lost.
	feed := reporter.Subscribe(ctx)

	parsed, err := url.Parse(b.cfg.URL)
	if err != nil {
		logger.Warn("Invalid live feed URL, feed disabled.", "error", err)
		return
	}
	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)

	opts := socket.DefaultOptions()
	opts.SetPath(parsed.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(b.cfg.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting live feed socket.")
		io.Disconnect()
	}()

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Live feed connected.", "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		// The client keeps retrying in the background; events emitted
		// meanwhile are buffered by the library.
		logger.Warn("Live feed connection error.", "error", errs[0])
	})

	io.Connect()

	for ev := range feed {
		io.Emit(EventName, encode(b.cfg.RunID, ev))
	}
	logger.Debug("Event stream drained, closing live feed.")
}

// encode flattens an event into the JSON-friendly wire shape the visualizer
// consumes.
func encode(runID string, ev events.Event) map[string]any {
	m := map[string]any{"run_id": runID}
	switch e := ev.(type) {
	case events.StageStarted:
		m["type"] = "stage_started"
		m["stage"] = e.Stage
		m["kind"] = e.Kind.String()
	case events.StageLog:
		m["type"] = "stage_log"
		m["stage"] = e.Stage
		m["stream"] = string(e.Stream)
		m["seq"] = e.Seq
		m["line"] = e.Line
	case events.StageFinished:
		m["type"] = "stage_finished"
		m["stage"] = e.Stage
		m["status"] = e.Status.String()
		m["duration_ms"] = e.Duration.Milliseconds()
		if e.Error != "" {
			m["error"] = e.Error
			m["error_kind"] = e.ErrorKind
		}
		if e.ExitCode != 0 {
			m["exit_code"] = e.ExitCode
		}
	case events.RunFinished:
		m["type"] = "run_finished"
		m["status"] = string(e.Status)
		m["duration_ms"] = e.Duration.Milliseconds()
	}
	return m
}
