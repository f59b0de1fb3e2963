package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/vk/pipegridgo/internal/fsutil"
	"github.com/vk/pipegridgo/internal/registry"
	"github.com/vk/pipegridgo/internal/stage"
)

// Loader turns pipeline HCL files into stage definitions. Task blocks are
// resolved against the registry; check blocks always map to ExecCheck.
type Loader struct {
	registry *registry.Registry
}

// NewLoader creates a new pipeline definition loader.
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{registry: reg}
}

// Result carries the decoded stages plus pipeline-level settings.
type Result struct {
	Name    string
	Workers int
	Defs    []*stage.Definition
}

// Load parses every .hcl file reachable from paths and merges the decoded
// blocks into one result. Definition order follows file order, checks before
// tasks within each file; that order is what breaks scheduling ties later.
// Attributes may reference process environment variables through the `env`
// namespace, e.g. `url = env.SERVICE_URL`.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Pipeline loader started.", "path_count", len(paths))

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no pipeline files found under %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered pipeline files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := envEvalContext()
	res := &Result{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse pipeline file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode pipeline file %s: %w", file, diags)
		}

		if root.Pipeline != nil {
			if res.Name != "" {
				return nil, fmt.Errorf("%s: pipeline settings defined twice (already named %q)", file, res.Name)
			}
			res.Name = root.Pipeline.Name
			res.Workers = root.Pipeline.Workers
		}

		for _, block := range root.Checks {
			def, err := translateCheck(block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			res.Defs = append(res.Defs, def)
		}
		for _, block := range root.Tasks {
			def, err := l.translateTask(block, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			res.Defs = append(res.Defs, def)
		}
	}

	logger.Debug("Pipeline loading complete.", "pipeline", res.Name, "stages", len(res.Defs))
	return res, nil
}

func translateCheck(block *CheckBlock) (*stage.Definition, error) {
	outputs, err := parseRefs(block.Outputs)
	if err != nil {
		return nil, fmt.Errorf("check %q outputs: %w", block.Name, err)
	}

	return &stage.Definition{
		Name:    block.Name,
		Kind:    stage.KindCheck,
		Outputs: outputs,
		After:   block.After,
		Retries: block.Retries,
		Check: &stage.ExecCheck{
			Command:  block.Command,
			Args:     block.Args,
			Dir:      block.Dir,
			Env:      block.Env,
			TestMode: block.TestMode,
		},
	}, nil
}

func (l *Loader) translateTask(block *TaskBlock, evalCtx *hcl.EvalContext) (*stage.Definition, error) {
	factory, ok := l.registry.Task(block.Kind)
	if !ok {
		return nil, fmt.Errorf("task %q: kind %q is not registered (have: %s)",
			block.Name, block.Kind, strings.Join(l.registry.Kinds(), ", "))
	}

	inputs, err := parseRefs(block.Inputs)
	if err != nil {
		return nil, fmt.Errorf("task %q inputs: %w", block.Name, err)
	}
	outputs, err := parseRefs(block.Outputs)
	if err != nil {
		return nil, fmt.Errorf("task %q outputs: %w", block.Name, err)
	}

	var body hcl.Body = hcl.EmptyBody()
	if block.Arguments != nil {
		body = block.Arguments.Body
	}
	task, err := factory(body, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("task %q (%s): %w", block.Name, block.Kind, err)
	}

	return &stage.Definition{
		Name:    block.Name,
		Kind:    stage.KindDataTask,
		Inputs:  inputs,
		Outputs: outputs,
		After:   block.After,
		Retries: block.Retries,
		Task:    task,
	}, nil
}

// envEvalContext exposes the process environment to HCL expressions as the
// `env` object. The snapshot is taken once per load.
func envEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		if pair := strings.SplitN(e, "=", 2); len(pair) == 2 {
			vars[pair[0]] = cty.StringVal(pair[1])
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

func parseRefs(fqs []string) ([]artifact.Ref, error) {
	out := make([]artifact.Ref, 0, len(fqs))
	for _, fq := range fqs {
		ref, err := artifact.ParseRef(fq)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

// findHCLFiles resolves all given paths to a flat list of .hcl files.
// Unlike a search path, every element is user-specified, so a missing one
// is an error.
func findHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, dup := seen[p]; !dup {
			all = append(all, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				add(p)
			}
		} else {
			add(path)
		}
	}
	return all, nil
}
