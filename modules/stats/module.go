// Package stats is the bundled aggregation task: it reads JSON number
// arrays from its declared inputs and writes one JSON summary dataset with
// count, mean, population standard deviation, min, and max.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

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
	// Ndigits rounds every statistic to this many decimal places. Omitted
	// means full precision.
	Ndigits *int `hcl:"ndigits,optional"`
}

// Summary is the JSON shape written to the declared output.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("stats", newTask)
}

func newTask(body hcl.Body, evalCtx *hcl.EvalContext) (stage.Task, error) {
	var input Input
	if diags := gohcl.DecodeBody(body, evalCtx, &input); diags.HasErrors() {
		return nil, fmt.Errorf("decoding stats arguments: %w", diags)
	}
	return &task{input: input}, nil
}

type task struct {
	input Input
}

// Run aggregates every input dataset into one summary. Each input must be a
// JSON array of numbers; the arrays are concatenated before aggregating.
func (t *task) Run(ctx context.Context, tc stage.TaskContext) ([]stage.Output, error) {
	logger := ctxlog.FromContext(ctx)

	if len(tc.Outputs) != 1 {
		return nil, fmt.Errorf("stats task needs exactly one declared output, got %d", len(tc.Outputs))
	}

	var values []float64
	for _, in := range tc.Inputs {
		var batch []float64
		if err := json.Unmarshal(in.Payload, &batch); err != nil {
			return nil, fmt.Errorf("input %q: expected a JSON array of numbers: %w", in.Ref, err)
		}
		values = append(values, batch...)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to aggregate across %d input(s)", len(tc.Inputs))
	}

	summary := aggregate(values)
	if t.input.Ndigits != nil {
		summary = summary.round(*t.input.Ndigits)
	}
	logger.Debug("Aggregated values.", "count", summary.Count, "mean", summary.Mean)

	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	return []stage.Output{{Ref: tc.Outputs[0], Payload: payload, Encoding: artifact.EncodingJSON}}, nil
}

func aggregate(values []float64) Summary {
	s := Summary{
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
	}
	sum := 0.0
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	varSum := 0.0
	for _, v := range values {
		d := v - s.Mean
		varSum += d * d
	}
	s.Stdev = math.Sqrt(varSum / float64(len(values)))
	return s
}

func (s Summary) round(ndigits int) Summary {
	p := math.Pow(10, float64(ndigits))
	r := func(v float64) float64 { return math.Round(v*p) / p }
	s.Mean, s.Stdev, s.Min, s.Max = r(s.Mean), r(s.Stdev), r(s.Min), r(s.Max)
	return s
}
