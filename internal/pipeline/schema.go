package pipeline

import (
	"github.com/hashicorp/hcl/v2"
)

// Settings is the optional top-level `pipeline` block.
type Settings struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
	Workers     int    `hcl:"workers,optional"`
}

// CheckBlock is a `check` block: an executable verification stage. Exit
// code zero passes, anything else fails. A check may declare outputs its
// command publishes out-of-band (through the data CLI against a shared
// backend); the stage fails if any is absent once the command passes.
type CheckBlock struct {
	Name     string   `hcl:"name,label"`
	Command  string   `hcl:"command"`
	Args     []string `hcl:"args,optional"`
	Dir      string   `hcl:"dir,optional"`
	Env      []string `hcl:"env,optional"`
	TestMode bool     `hcl:"test_mode,optional"`
	Outputs  []string `hcl:"outputs,optional"`
	After    []string `hcl:"after,optional"`
	Retries  int      `hcl:"retries,optional"`
}

// TaskArgs is the `arguments` block of a task. It stays undecoded here; the
// module that owns the task kind decodes it against its own schema.
type TaskArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// TaskBlock is a `task` block: a data-task stage backed by a registered
// task kind.
type TaskBlock struct {
	Kind      string    `hcl:"kind,label"`
	Name      string    `hcl:"name,label"`
	Inputs    []string  `hcl:"inputs,optional"`
	Outputs   []string  `hcl:"outputs,optional"`
	After     []string  `hcl:"after,optional"`
	Retries   int       `hcl:"retries,optional"`
	Arguments *TaskArgs `hcl:"arguments,block"`
}

// fileRoot is a struct used to decode all top-level blocks from any file.
type fileRoot struct {
	Pipeline *Settings     `hcl:"pipeline,block"`
	Checks   []*CheckBlock `hcl:"check,block"`
	Tasks    []*TaskBlock  `hcl:"task,block"`
	Remain   hcl.Body      `hcl:",remain"`
}
