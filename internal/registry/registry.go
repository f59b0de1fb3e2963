// Package registry maps task kind names to the Go factories that build them,
// so pipeline files can reference tasks by name.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/pipegridgo/internal/stage"
)

// Module is the interface all core modules implement to contribute their
// task kinds to an application instance.
type Module interface {
	Register(r *Registry)
}

// TaskFactory builds a task instance from a task block's arguments body.
type TaskFactory func(body hcl.Body, evalCtx *hcl.EvalContext) (stage.Task, error)

// Registry holds the registered task factories for a single application
// instance.
type Registry struct {
	factories map[string]TaskFactory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{factories: make(map[string]TaskFactory)}
}

// RegisterTask makes a task kind available to pipeline files. Registering
// the same name twice is a wiring bug and panics.
func (r *Registry) RegisterTask(name string, factory TaskFactory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("task kind '%s' already registered", name))
	}
	slog.Debug("Registering task kind.", "name", name)
	r.factories[name] = factory
}

// Task returns the factory for a task kind, reporting whether it exists.
func (r *Registry) Task(name string) (TaskFactory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Kinds returns the registered task kind names, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for name := range r.factories {
		kinds = append(kinds, name)
	}
	sort.Strings(kinds)
	return kinds
}
