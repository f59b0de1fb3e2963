package stage

import (
	"fmt"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Kind distinguishes the two stage flavors.
type Kind int

const (
	// KindCheck is a stage that runs a pass/fail body streaming line output.
	KindCheck Kind = iota
	// KindDataTask is a stage that reads input datasets and produces output
	// datasets through the artifact store.
	KindDataTask
)

// String returns the kind's wire name.
func (k Kind) String() string {
	switch k {
	case KindCheck:
		return "check"
	case KindDataTask:
		return "data-task"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Definition declares a stage: its identity, its dataset contract, explicit
// ordering hints, and exactly one body matching its kind. Definitions are
// the sole input the graph builder needs; where they come from (code or a
// pipeline file) is not this package's concern.
type Definition struct {
	// Name uniquely identifies the stage within its pipeline.
	Name string
	// Kind selects which body field is active.
	Kind Kind

	// Inputs are the datasets the body reads. Each must be produced by
	// another stage's Outputs or pre-seeded in the store.
	Inputs []artifact.Ref
	// Outputs are the datasets the body must produce, each exactly once.
	Outputs []artifact.Ref
	// After lists stage names this stage must run after, for orderings that
	// are not expressible as a data dependency.
	After []string

	// Retries is the number of extra attempts after a failed run. Zero means
	// a failure is final on the first attempt.
	Retries int

	// Check is the body when Kind == KindCheck.
	Check Checkable
	// Task is the body when Kind == KindDataTask.
	Task Task
}

// Validate checks the structural coherence of a definition before it enters
// graph construction.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("stage definition has no name")
	}
	switch d.Kind {
	case KindCheck:
		if d.Check == nil {
			return fmt.Errorf("check stage %q has no check body", d.Name)
		}
		if d.Task != nil {
			return fmt.Errorf("check stage %q also carries a task body", d.Name)
		}
	case KindDataTask:
		if d.Task == nil {
			return fmt.Errorf("data-task stage %q has no task body", d.Name)
		}
		if d.Check != nil {
			return fmt.Errorf("data-task stage %q also carries a check body", d.Name)
		}
	default:
		return fmt.Errorf("stage %q has unknown kind %d", d.Name, int(d.Kind))
	}
	if d.Retries < 0 {
		return fmt.Errorf("stage %q has negative retries", d.Name)
	}
	for _, ref := range d.Inputs {
		if _, err := ref.Normalize(); err != nil {
			return fmt.Errorf("stage %q input: %w", d.Name, err)
		}
	}
	for _, ref := range d.Outputs {
		if _, err := ref.Normalize(); err != nil {
			return fmt.Errorf("stage %q output: %w", d.Name, err)
		}
	}
	return nil
}
