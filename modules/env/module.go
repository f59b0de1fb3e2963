// Package env is the bundled environment-capture task: it snapshots
// process environment variables into one JSON dataset, so later stages can
// read build metadata without touching the environment themselves.
package env

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	// Names selects which variables to capture. Empty captures the whole
	// environment.
	Names []string `hcl:"names,optional"`
	// Required fails the stage when a selected variable is not set.
	Required bool `hcl:"required,optional"`
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("env", newTask)
}

func newTask(body hcl.Body, evalCtx *hcl.EvalContext) (stage.Task, error) {
	var input Input
	if diags := gohcl.DecodeBody(body, evalCtx, &input); diags.HasErrors() {
		return nil, fmt.Errorf("decoding env arguments: %w", diags)
	}
	return &task{input: input}, nil
}

type task struct {
	input Input
}

// Run writes the captured variables as a JSON object to the single declared
// output. Unset variables are omitted unless required.
func (t *task) Run(ctx context.Context, tc stage.TaskContext) ([]stage.Output, error) {
	if len(tc.Outputs) != 1 {
		return nil, fmt.Errorf("env task needs exactly one declared output, got %d", len(tc.Outputs))
	}

	vars, err := t.capture()
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Captured environment variables.", "count", len(vars))

	payload, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("encoding environment snapshot: %w", err)
	}
	return []stage.Output{{Ref: tc.Outputs[0], Payload: payload, Encoding: artifact.EncodingJSON}}, nil
}

func (t *task) capture() (map[string]string, error) {
	if len(t.input.Names) == 0 {
		vars := make(map[string]string)
		for _, e := range os.Environ() {
			if pair := strings.SplitN(e, "=", 2); len(pair) == 2 {
				vars[pair[0]] = pair[1]
			}
		}
		return vars, nil
	}

	vars := make(map[string]string, len(t.input.Names))
	for _, name := range t.input.Names {
		value, ok := os.LookupEnv(name)
		if !ok {
			if t.input.Required {
				return nil, fmt.Errorf("environment variable %q is not set", name)
			}
			continue
		}
		vars[name] = value
	}
	return vars, nil
}
