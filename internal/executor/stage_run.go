package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/graph"
	"github.com/vk/pipegridgo/internal/stage"
)

// runStage is the worker side: execute one stage to its terminal outcome and
// report back to the dispatcher.
func (e *Executor) runStage(ctx context.Context, n *graph.Node, doneCh chan<- stageDone) {
	doneCh <- stageDone{name: n.Def.Name, outcome: e.executeWithRetries(ctx, n)}
}

func (e *Executor) executeWithRetries(ctx context.Context, n *graph.Node) StageOutcome {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	attempts := n.Def.Retries + 1

	var out StageOutcome
	for attempt := 1; attempt <= attempts; attempt++ {
		out = e.executeOnce(ctx, n)
		out.Attempts = attempt
		if out.Status == stage.StatusSucceeded || !retriable(out.ErrorKind) {
			break
		}
		if attempt < attempts {
			logger.Warn("Stage attempt failed, retrying.", "stage", n.Def.Name, "attempt", attempt, "of", attempts, "error", out.Err)
		}
	}
	out.Duration = time.Since(start)
	return out
}

func (e *Executor) executeOnce(ctx context.Context, n *graph.Node) StageOutcome {
	if n.Def.Kind == stage.KindCheck {
		return e.executeCheck(ctx, n)
	}
	return e.executeTask(ctx, n)
}

func (e *Executor) executeCheck(ctx context.Context, n *graph.Node) StageOutcome {
	res, err := n.Def.Check.Run(ctx, e.emitterFor(n.Def.Name))
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Join(stage.ErrCancelled, err)
		}
		return StageOutcome{Status: stage.StatusFailed, Err: err, ErrorKind: errorKind(err), ExitCode: res.ExitCode}
	}
	if !res.Passed {
		// A process killed by cancellation surfaces as a plain non-zero
		// exit; keep that distinct from a genuine check failure.
		if ctx.Err() != nil {
			cancelErr := fmt.Errorf("check interrupted: %w", stage.ErrCancelled)
			return StageOutcome{Status: stage.StatusFailed, Err: cancelErr, ErrorKind: KindCancelled, ExitCode: res.ExitCode}
		}
		exitErr := &stage.ExitError{Code: res.ExitCode}
		return StageOutcome{Status: stage.StatusFailed, Err: exitErr, ErrorKind: KindExecution, ExitCode: res.ExitCode}
	}

	// A check publishes declared outputs out-of-band (its command writes
	// through the shared store), so presence is verified once it passes.
	var missing []artifact.Ref
	for _, ref := range n.Def.Outputs {
		ok, err := e.store.Exists(ctx, ref)
		if err != nil {
			wrapped := fmt.Errorf("verifying output %q: %w", ref, err)
			return StageOutcome{Status: stage.StatusFailed, Err: wrapped, ErrorKind: errorKind(wrapped)}
		}
		if !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		cerr := &stage.ContractError{Stage: n.Def.Name, Missing: missing}
		return StageOutcome{Status: stage.StatusFailed, Err: cerr, ErrorKind: KindContractViolation}
	}
	return StageOutcome{Status: stage.StatusSucceeded}
}

func (e *Executor) executeTask(ctx context.Context, n *graph.Node) StageOutcome {
	fail := func(err error) StageOutcome {
		return StageOutcome{Status: stage.StatusFailed, Err: err, ErrorKind: errorKind(err)}
	}

	inputs := make([]stage.ResolvedInput, 0, len(n.Def.Inputs))
	for _, in := range n.Def.Inputs {
		payload, enc, err := e.store.Get(ctx, in)
		if errors.Is(err, artifact.ErrNotFound) {
			return fail(fmt.Errorf("input %q: %w", in, stage.ErrMissingInput))
		}
		if err != nil {
			return fail(fmt.Errorf("reading input %q: %w", in, err))
		}
		inputs = append(inputs, stage.ResolvedInput{Ref: in, Payload: payload, Encoding: enc})
	}

	tc := stage.TaskContext{
		Store:   e.store,
		Inputs:  inputs,
		Outputs: append([]artifact.Ref(nil), n.Def.Outputs...),
	}
	outs, err := n.Def.Task.Run(ctx, tc)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, context.Canceled) {
			err = errors.Join(stage.ErrCancelled, err)
		}
		return fail(fmt.Errorf("stage %q: %w", n.Def.Name, err))
	}

	if cerr := checkContract(n.Def, outs); cerr != nil {
		return fail(cerr)
	}

	// Outputs reach the store only after the body returned and the contract
	// held, so a failed attempt leaves no partial artifacts behind.
	for _, out := range outs {
		if _, err := e.store.Put(ctx, out.Ref, out.Payload, out.Encoding); err != nil {
			return fail(fmt.Errorf("writing output %q: %w", out.Ref, err))
		}
	}
	return StageOutcome{Status: stage.StatusSucceeded}
}

// checkContract verifies the produced set covers the declared outputs
// exactly, each produced once.
func checkContract(def *stage.Definition, outs []stage.Output) error {
	declared := make(map[string]bool, len(def.Outputs))
	for _, ref := range def.Outputs {
		declared[ref.String()] = true
	}

	produced := make(map[string]int, len(outs))
	var undeclared, duplicated []artifact.Ref
	for _, out := range outs {
		fq := out.Ref.String()
		produced[fq]++
		if !declared[fq] {
			undeclared = append(undeclared, out.Ref)
		} else if produced[fq] == 2 {
			duplicated = append(duplicated, out.Ref)
		}
	}

	var missing []artifact.Ref
	for _, ref := range def.Outputs {
		if produced[ref.String()] == 0 {
			missing = append(missing, ref)
		}
	}

	if len(missing)+len(undeclared)+len(duplicated) > 0 {
		return &stage.ContractError{
			Stage:      def.Name,
			Missing:    missing,
			Undeclared: undeclared,
			Duplicated: duplicated,
		}
	}
	return nil
}

// emitterFor adapts the reporter into a stage's line sink. Both output
// streams may emit concurrently, so the sequence number assignment and the
// publish share one lock to keep the history in per-stage seq order.
func (e *Executor) emitterFor(name string) stage.EmitFunc {
	var mu sync.Mutex
	var seq uint64
	return func(stream stage.Stream, line string) {
		mu.Lock()
		defer mu.Unlock()
		e.reporter.Publish(events.StageLog{Stage: name, Stream: stream, Seq: seq, Line: line})
		seq++
	}
}
