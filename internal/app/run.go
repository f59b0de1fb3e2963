package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/executor"
	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/livefeed"
	"github.com/vk/pipegridgo/internal/pipeline"
)

// Run executes the configured pipeline end to end: load definitions, open
// the artifact store, build the dependency graph, and drive the executor.
// It blocks until every stage is terminal and all event feeds have drained.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer()
	}

	res, err := pipeline.NewLoader(a.registry).Load(ctx, a.config.PipelinePath)
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}
	a.logger.Info("Pipeline loaded successfully.", "name", res.Name, "stages", len(res.Defs))

	if len(res.Defs) == 0 {
		a.logger.Warn("No stages found in pipeline, execution not required.")
		return nil
	}

	base, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}
	defer func() {
		if cerr := base.Close(); cerr != nil {
			a.logger.Warn("Artifact store close failed.", "error", cerr)
		}
	}()

	store := base
	if a.config.StorePrefix != "" {
		store = artifact.Scoped(base, a.config.StorePrefix)
		a.logger.Debug("Store scoped to namespace prefix.", "prefix", a.config.StorePrefix)
	}

	g, err := graph.Build(ctx, res.Defs, store)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	runID := uuid.New()
	reporter := events.NewReporter()

	var feeds sync.WaitGroup

	// The console view subscribes with a background context: the stream is
	// finite, and a cancelled run still ends with RunFinished.
	console := reporter.Subscribe(context.Background())
	feeds.Add(1)
	go func() {
		defer feeds.Done()
		a.consoleFeed(console)
	}()

	if a.config.LiveURL != "" {
		bridge := livefeed.New(livefeed.Config{URL: a.config.LiveURL, RunID: runID.String()})
		feeds.Add(1)
		go func() {
			defer feeds.Done()
			bridge.Forward(ctx, reporter)
		}()
	}

	workers := a.config.WorkerCount
	if workers <= 0 {
		workers = res.Workers
	}

	a.logger.Info("🚀 Starting concurrent execution...", "workers", workers)
	exec := executor.New(g, store, reporter, executor.Options{Workers: workers, RunID: runID})
	result, runErr := exec.Run(ctx)
	feeds.Wait()
	a.logger.Info("🏁 Execution finished.", "status", result.Status)

	a.logger.Debug("App.Run method finished.", "runID", result.ID, "status", result.Status)
	return runErr
}
