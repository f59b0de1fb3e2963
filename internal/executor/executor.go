package executor

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/stage"
)

// DefaultWorkers bounds stage concurrency when Options.Workers is unset.
const DefaultWorkers = 4

// Options tunes a run.
type Options struct {
	// Workers is the maximum number of stages executing at once.
	Workers int

	// RunID identifies the run in the result, logs, and events. A zero value
	// gets a fresh UUID.
	RunID uuid.UUID
}

// Executor runs a built graph against a run-scoped store, publishing every
// state transition to the reporter.
type Executor struct {
	graph    *graph.Graph
	store    artifact.Store
	reporter *events.Reporter
	workers  int
	runID    uuid.UUID
}

// New creates an executor over a built graph.
func New(g *graph.Graph, store artifact.Store, reporter *events.Reporter, opts Options) *Executor {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	return &Executor{graph: g, store: store, reporter: reporter, workers: workers, runID: runID}
}

// stageState is the dispatcher's private bookkeeping for one stage. Only the
// dispatcher goroutine touches it.
type stageState struct {
	node      *graph.Node
	remaining int
	status    stage.Status
}

// stageDone is a worker's completion report.
type stageDone struct {
	name    string
	outcome StageOutcome
}

// Run executes the graph and returns the aggregated result.
//
// A stage failure does not abort the run: only descendants of the failed
// stage are skipped, every unrelated stage keeps executing. Cancelling ctx
// stops admission, lets in-flight stages wind down, and yields a cancelled
// verdict. The returned error states the run-level verdict for failed or
// cancelled runs; per-stage detail is in the result either way.
func (e *Executor) Run(ctx context.Context) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	result := &RunResult{
		ID:     e.runID,
		Stages: make(map[string]StageOutcome, e.graph.Len()),
	}

	states := make(map[string]*stageState, e.graph.Len())
	ready := &readyQueue{}
	for _, n := range e.graph.Nodes() {
		st := &stageState{node: n, remaining: len(n.Parents), status: stage.StatusPending}
		states[n.Def.Name] = st
		if st.remaining == 0 {
			st.status = stage.StatusReady
			heap.Push(ready, n)
		}
	}

	logger.Info("🚀 Starting concurrent execution...", "runID", result.ID, "stages", e.graph.Len(), "workers", e.workers)

	doneCh := make(chan stageDone)
	active := 0
	finishedCount := 0
	cancelled := false

	finish := func(name string, out StageOutcome) {
		states[name].status = out.Status
		result.Stages[name] = out
		finishedCount++
		errMsg := ""
		if out.Err != nil {
			errMsg = out.Err.Error()
		}
		e.reporter.Publish(events.StageFinished{
			Stage:     name,
			Status:    out.Status,
			Error:     errMsg,
			ErrorKind: out.ErrorKind,
			ExitCode:  out.ExitCode,
			Duration:  out.Duration,
		})
	}

	// skipTree resolves a stage that can no longer run, then cascades to its
	// children. The origin is the failed ancestor the skip is attributed to;
	// an empty origin means the run itself was cancelled.
	var skipTree func(name, origin string)
	skipTree = func(name, origin string) {
		st := states[name]
		if st.status.Terminal() || st.status == stage.StatusRunning {
			return
		}
		out := StageOutcome{Status: stage.StatusSkipped}
		if origin == "" {
			out.ErrorKind = KindCancelled
			out.Err = errors.New("run cancelled")
		} else {
			out.Err = fmt.Errorf("skipped because ancestor %q failed", origin)
			logger.Warn("Skipping stage due to upstream failure.", "stage", name, "ancestor", origin)
		}
		finish(name, out)
		for _, child := range st.node.Children {
			skipTree(child, origin)
		}
	}

	admit := func() {
		for active < e.workers && ready.Len() > 0 {
			n := heap.Pop(ready).(*graph.Node)
			st := states[n.Def.Name]
			st.status = stage.StatusRunning
			e.reporter.Publish(events.StageStarted{Stage: n.Def.Name, Kind: n.Def.Kind})
			logger.Debug("Admitting stage.", "stage", n.Def.Name, "topoIndex", n.TopoIndex)
			active++
			go e.runStage(ctx, n, doneCh)
		}
	}

	admit()
	cancelCh := ctx.Done()
	for finishedCount < e.graph.Len() {
		select {
		case d := <-doneCh:
			active--
			node := states[d.name].node
			finish(d.name, d.outcome)

			if d.outcome.Status == stage.StatusSucceeded {
				logger.Debug("Stage succeeded.", "stage", d.name, "attempts", d.outcome.Attempts)
				for _, child := range node.Children {
					cst := states[child]
					cst.remaining--
					if cst.remaining == 0 && cst.status == stage.StatusPending {
						if cancelled {
							skipTree(child, "")
						} else {
							cst.status = stage.StatusReady
							heap.Push(ready, cst.node)
						}
					}
				}
			} else {
				logger.Error("Stage failed.", "stage", d.name, "kind", d.outcome.ErrorKind, "error", d.outcome.Err)
				for _, child := range node.Children {
					skipTree(child, d.name)
				}
			}

			if !cancelled {
				admit()
			}

		case <-cancelCh:
			cancelled = true
			cancelCh = nil
			logger.Warn("Cancellation requested, no further stages will start.", "unfinished", e.graph.Len()-finishedCount)
			for ready.Len() > 0 {
				n := heap.Pop(ready).(*graph.Node)
				skipTree(n.Def.Name, "")
			}
		}
	}

	result.Duration = time.Since(start)

	// The loop can drain on a completion racing the cancel signal, so the
	// flag alone is not authoritative.
	cancelled = cancelled || ctx.Err() != nil

	var failed []string
	var rootCause error
	nonSuccess := 0
	for _, n := range e.graph.Nodes() {
		out := result.Stages[n.Def.Name]
		if out.Status != stage.StatusSucceeded {
			nonSuccess++
		}
		if out.Status == stage.StatusFailed && out.ErrorKind != KindCancelled {
			failed = append(failed, n.Def.Name)
			if rootCause == nil {
				rootCause = out.Err
			}
		}
	}

	switch {
	case cancelled && nonSuccess > 0:
		result.Status = events.RunCancelled
	case nonSuccess > 0:
		result.Status = events.RunFailed
	default:
		result.Status = events.RunSucceeded
	}

	e.reporter.Publish(events.RunFinished{Status: result.Status, Duration: result.Duration})
	logger.Info("🏁 Execution finished.", "runID", result.ID, "status", result.Status, "duration", result.Duration)

	switch {
	case result.Status == events.RunCancelled:
		return result, fmt.Errorf("run cancelled: %w", stage.ErrCancelled)
	case rootCause != nil:
		return result, fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	default:
		return result, nil
	}
}

// readyQueue is a min-heap of ready nodes keyed by topological index, so
// that the oldest-discovered ready stage is always admitted first.
type readyQueue []*graph.Node

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].TopoIndex < q[j].TopoIndex }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(*graph.Node))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
