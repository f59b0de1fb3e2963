package stage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Runtime error kinds. Store and graph construction have their own sentinels
// in their packages; these cover everything that can go wrong while a stage
// executes. Callers classify with errors.Is.
var (
	// ErrExecution marks a body that crashed, could not run, or reported
	// failure (a check exiting non-zero).
	ErrExecution = errors.New("execution error")

	// ErrContractViolation marks a stage whose produced outputs did not
	// match its declared outputs.
	ErrContractViolation = errors.New("contract violation")

	// ErrMissingInput marks a declared input absent from the store at
	// execution time. Graph construction normally catches this earlier as an
	// unresolved input.
	ErrMissingInput = errors.New("missing input")

	// ErrCancelled marks work that stopped because the run was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// ExitError carries a failed check's exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("check failed with exit code %d", e.Code)
}

// Is makes ExitError match ErrExecution under errors.Is.
func (e *ExitError) Is(target error) bool { return target == ErrExecution }

// ContractError details a declared-vs-produced mismatch. The stage is
// failed even though its body finished normally.
type ContractError struct {
	Stage string
	// Missing are declared outputs the body never produced.
	Missing []artifact.Ref
	// Undeclared are produced refs that were never declared.
	Undeclared []artifact.Ref
	// Duplicated are declared outputs the body produced more than once.
	Duplicated []artifact.Ref
}

func (e *ContractError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", joinRefs(e.Missing)))
	}
	if len(e.Undeclared) > 0 {
		parts = append(parts, fmt.Sprintf("undeclared %s", joinRefs(e.Undeclared)))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("duplicated %s", joinRefs(e.Duplicated)))
	}
	return fmt.Sprintf("stage %q output contract violated: %s", e.Stage, strings.Join(parts, "; "))
}

// Is makes ContractError match ErrContractViolation under errors.Is.
func (e *ContractError) Is(target error) bool { return target == ErrContractViolation }

func joinRefs(refs []artifact.Ref) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}
