package executor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/stage"
)

// Error kinds label stage failures with the taxonomy class consumers switch
// on without parsing messages.
const (
	KindExecution         = "execution"
	KindContractViolation = "contract_violation"
	KindMissingInput      = "missing_input"
	KindCancelled         = "cancelled"
	KindDuplicateKey      = "duplicate_key"
	KindNotFound          = "not_found"
)

// StageOutcome is one stage's terminal record.
type StageOutcome struct {
	Status stage.Status
	// Err explains a failed or skipped stage; nil on success.
	Err error
	// ErrorKind is the taxonomy label for Err. It is empty on success and
	// on skips attributed to an ancestor failure.
	ErrorKind string
	// ExitCode is the process exit status for checks.
	ExitCode int
	// Attempts counts body executions, retries included.
	Attempts int
	Duration time.Duration
}

// RunResult aggregates a whole run.
type RunResult struct {
	ID       uuid.UUID
	Status   events.RunStatus
	Stages   map[string]StageOutcome
	Duration time.Duration
}

// errorKind classifies err into its taxonomy label.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, stage.ErrContractViolation):
		return KindContractViolation
	case errors.Is(err, stage.ErrMissingInput):
		return KindMissingInput
	case errors.Is(err, stage.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, artifact.ErrDuplicateKey):
		return KindDuplicateKey
	case errors.Is(err, artifact.ErrNotFound):
		return KindNotFound
	default:
		return KindExecution
	}
}

// retriable reports whether a failure class is worth re-running. Contract
// and input failures are deterministic and repeat identically, so only plain
// execution failures qualify.
func retriable(kind string) bool {
	return kind == KindExecution
}
