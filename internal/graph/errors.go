package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Sentinel errors for the graph build failure classes. The typed errors
// below match them through errors.Is while carrying the offending details.
var (
	ErrUnresolvedInput  = errors.New("unresolved input")
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrDuplicateOutput  = errors.New("duplicate output")
	ErrDuplicateStage   = errors.New("duplicate stage name")
)

// UnresolvedInputError reports a declared input that no stage produces and
// that the store does not already hold.
type UnresolvedInputError struct {
	Stage string
	Input artifact.Ref
}

func (e *UnresolvedInputError) Error() string {
	return fmt.Sprintf("stage %q reads %q, but no stage produces it and the store does not hold it", e.Stage, e.Input)
}

func (e *UnresolvedInputError) Is(target error) bool {
	return target == ErrUnresolvedInput
}

// UnknownStageError reports an explicit ordering reference to a stage that
// is not defined.
type UnknownStageError struct {
	Stage string
	After string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("stage %q runs after %q, which is not defined", e.Stage, e.After)
}

func (e *UnknownStageError) Is(target error) bool {
	return target == ErrUnresolvedInput
}

// DuplicateOutputError reports an artifact declared as the output of more
// than one stage.
type DuplicateOutputError struct {
	Ref    artifact.Ref
	Stages []string
}

func (e *DuplicateOutputError) Error() string {
	return fmt.Sprintf("output %q is declared by more than one stage: %s", e.Ref, strings.Join(e.Stages, ", "))
}

func (e *DuplicateOutputError) Is(target error) bool {
	return target == ErrDuplicateOutput
}

// CycleError reports one concrete dependency cycle among the stages.
type CycleError struct {
	Stages []string
}

func (e *CycleError) Error() string {
	if len(e.Stages) == 0 {
		return "dependency cycle"
	}
	loop := append(append([]string{}, e.Stages...), e.Stages[0])
	return "dependency cycle: " + strings.Join(loop, " -> ")
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicDependency
}
