package testutil

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/internal/stage"
)

// TaskModule registers a fixed task body under a kind name, letting tests
// drive HCL pipelines with purpose-built behavior. The arguments block, if
// any, is ignored.
type TaskModule struct {
	Kind string
	Task stage.Task
}

// Register implements registry.Module.
func (m *TaskModule) Register(r *registry.Registry) {
	r.RegisterTask(m.Kind, func(body hcl.Body, evalCtx *hcl.EvalContext) (stage.Task, error) {
		return m.Task, nil
	})
}
