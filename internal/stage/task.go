package stage

import (
	"context"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Task computes a data-task stage's outputs from its resolved inputs. The
// executor resolves declared inputs before invoking Run and writes the
// returned outputs to the store afterwards; the returned set must cover the
// stage's declared outputs exactly, each produced once.
type Task interface {
	Run(ctx context.Context, tc TaskContext) ([]Output, error)
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(ctx context.Context, tc TaskContext) ([]Output, error)

// Run calls f.
func (f TaskFunc) Run(ctx context.Context, tc TaskContext) ([]Output, error) {
	return f(ctx, tc)
}

// TaskContext carries everything a data task may touch: the run-scoped
// store handle (injected, never ambient) and the stage's declared dataset
// contract with inputs already resolved to payloads.
type TaskContext struct {
	// Store is scoped to the current run's prefix.
	Store artifact.Store
	// Inputs holds the declared inputs with their payloads, in declaration
	// order.
	Inputs []ResolvedInput
	// Outputs lists the refs the task must produce.
	Outputs []artifact.Ref
}

// Input returns the resolved input whose fully-qualified name matches fq.
func (tc TaskContext) Input(fq string) (ResolvedInput, bool) {
	for _, in := range tc.Inputs {
		if in.Ref.String() == fq {
			return in, true
		}
	}
	return ResolvedInput{}, false
}

// ResolvedInput is one declared input with its payload read from the store.
// The payload is the task's private copy.
type ResolvedInput struct {
	Ref      artifact.Ref
	Payload  []byte
	Encoding artifact.Encoding
}

// Output is one dataset produced by a data task. Ref must equal one of the
// stage's declared outputs.
type Output struct {
	Ref      artifact.Ref
	Payload  []byte
	Encoding artifact.Encoding
}
