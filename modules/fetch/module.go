// Package fetch is the bundled download task: it issues an HTTP request and
// stores the response body as the stage's declared output dataset.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client overrides the default HTTP client, mainly for tests.
	Client *http.Client
}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	URL    string `hcl:"url"`
	Method string `hcl:"method,optional"`
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("fetch", func(body hcl.Body, evalCtx *hcl.EvalContext) (stage.Task, error) {
		return newTask(body, evalCtx, m.client())
	})
}

func (m *Module) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func newTask(body hcl.Body, evalCtx *hcl.EvalContext, client *http.Client) (stage.Task, error) {
	var input Input
	if diags := gohcl.DecodeBody(body, evalCtx, &input); diags.HasErrors() {
		return nil, fmt.Errorf("decoding fetch arguments: %w", diags)
	}
	if input.Method == "" {
		input.Method = http.MethodGet
	}
	return &task{input: input, client: client}, nil
}

type task struct {
	input  Input
	client *http.Client
}

// Run downloads the configured URL and returns the body as the stage's
// single declared output. The response Content-Type decides the encoding.
func (t *task) Run(ctx context.Context, tc stage.TaskContext) ([]stage.Output, error) {
	logger := ctxlog.FromContext(ctx)

	if len(tc.Outputs) != 1 {
		return nil, fmt.Errorf("fetch task needs exactly one declared output, got %d", len(tc.Outputs))
	}

	logger.Info("Making HTTP request", "method", t.input.Method, "url", t.input.URL)
	req, err := http.NewRequestWithContext(ctx, t.input.Method, t.input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: unexpected status %s", t.input.Method, t.input.URL, resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return []stage.Output{{
		Ref:      tc.Outputs[0],
		Payload:  payload,
		Encoding: encodingFor(resp.Header.Get("Content-Type")),
	}}, nil
}

func encodingFor(contentType string) artifact.Encoding {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return artifact.EncodingOpaque
	}
	switch mediaType {
	case "application/json", "text/json":
		return artifact.EncodingJSON
	case "text/csv":
		return artifact.EncodingCSV
	default:
		return artifact.EncodingOpaque
	}
}
