// Package print is the bundled debug task: it prints every resolved input
// dataset, so a pipeline author can see what a stage would receive.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out overrides where datasets are printed; defaults to stdout.
	Out io.Writer
}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	// Payloads also prints each dataset's contents, not just its metadata.
	Payloads bool `hcl:"payloads,optional"`
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("print", func(body hcl.Body, evalCtx *hcl.EvalContext) (stage.Task, error) {
		return newTask(body, evalCtx, m.out())
	})
}

func (m *Module) out() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return os.Stdout
}

// printMu serializes output when several print tasks share one writer.
var printMu sync.Mutex

func newTask(body hcl.Body, evalCtx *hcl.EvalContext, out io.Writer) (stage.Task, error) {
	var input Input
	if diags := gohcl.DecodeBody(body, evalCtx, &input); diags.HasErrors() {
		return nil, fmt.Errorf("decoding print arguments: %w", diags)
	}
	return &task{input: input, out: out}, nil
}

type task struct {
	input Input
	out   io.Writer
}

// Run prints the resolved inputs in declaration order and produces nothing.
func (t *task) Run(ctx context.Context, tc stage.TaskContext) ([]stage.Output, error) {
	ctxlog.FromContext(ctx).Info("Printing inputs", "count", len(tc.Inputs))

	printMu.Lock()
	defer printMu.Unlock()

	if len(tc.Inputs) == 0 {
		fmt.Fprintln(t.out, "      (no inputs)")
		return nil, nil
	}
	for _, in := range tc.Inputs {
		fmt.Fprintf(t.out, "      %s (%s, %d bytes)\n", in.Ref, in.Encoding, len(in.Payload))
		if t.input.Payloads {
			fmt.Fprintf(t.out, "        %s\n", in.Payload)
		}
	}
	return nil, nil
}
