package stage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Stream identifies which of a check's output streams a line came from.
type Stream string

const (
	// StreamPrimary is the check's main output (stdout for processes).
	StreamPrimary Stream = "primary"
	// StreamDiagnostic is the check's progress/diagnostic output (stderr).
	StreamDiagnostic Stream = "diagnostic"
)

// EmitFunc receives one line of check output as it is produced. It may be
// called concurrently from both streams, so implementations must be safe
// for concurrent use.
type EmitFunc func(stream Stream, line string)

// CheckResult is a check's terminal outcome. A check succeeded iff Passed
// is true; a non-zero ExitCode explains why it did not.
type CheckResult struct {
	Passed   bool
	ExitCode int
}

// Checkable runs a check body, streaming progress lines through emit and
// returning the terminal result. A non-nil error means the body could not
// run at all (spawn failure, lost pipe); a body that ran and failed returns
// a result with Passed=false and a nil error.
//
// Two variants exist: ExecCheck spawns an external process, FuncCheck calls
// an in-process function. Scheduling and reporting are indifferent to which
// variant backs a stage.
type Checkable interface {
	Run(ctx context.Context, emit EmitFunc) (CheckResult, error)
}

// ExecCheck runs an external executable and adapts its output into line
// events: stdout becomes the primary stream, stderr the diagnostic stream.
type ExecCheck struct {
	// Command is the executable to run, resolved via PATH when relative.
	Command string
	// Args are the arguments passed to the executable.
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
	// TestMode appends the conventional --test flag, asking the executable
	// to emit one "test <index> [OK]" diagnostic line per sub-check.
	TestMode bool
}

// Run spawns the process, scans both pipes line by line, and maps the exit
// status: code 0 passes, anything else fails with the code preserved.
func (c *ExecCheck) Run(ctx context.Context, emit EmitFunc) (CheckResult, error) {
	args := c.Args
	if c.TestMode {
		args = append(append([]string{}, c.Args...), "--test")
	}

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return CheckResult{ExitCode: -1}, fmt.Errorf("stdout pipe for %q: %w", c.Command, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return CheckResult{ExitCode: -1}, fmt.Errorf("stderr pipe for %q: %w", c.Command, err)
	}

	if err := cmd.Start(); err != nil {
		return CheckResult{ExitCode: -1}, fmt.Errorf("start %q: %w", c.Command, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdout, StreamPrimary, emit)
	}()
	go func() {
		defer wg.Done()
		scanLines(stderr, StreamDiagnostic, emit)
	}()

	// Pipes must be drained before Wait reclaims them.
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return CheckResult{Passed: false, ExitCode: exitErr.ExitCode()}, nil
		}
		return CheckResult{ExitCode: -1}, fmt.Errorf("wait for %q: %w", c.Command, err)
	}
	return CheckResult{Passed: true, ExitCode: 0}, nil
}

func scanLines(r io.Reader, stream Stream, emit EmitFunc) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(stream, strings.TrimRight(scanner.Text(), "\r"))
	}
}

// FuncCheck adapts an in-process function to the Checkable interface. A nil
// error from the function passes; a non-nil error fails the check with its
// message surfaced on the diagnostic stream.
type FuncCheck struct {
	Fn func(ctx context.Context, emit EmitFunc) error
}

// Run invokes the function with the same emit surface a process check gets.
func (c *FuncCheck) Run(ctx context.Context, emit EmitFunc) (CheckResult, error) {
	if c.Fn == nil {
		return CheckResult{ExitCode: -1}, fmt.Errorf("func check has no function")
	}
	if err := c.Fn(ctx, emit); err != nil {
		emit(StreamDiagnostic, err.Error())
		return CheckResult{Passed: false, ExitCode: 1}, nil
	}
	return CheckResult{Passed: true, ExitCode: 0}, nil
}

// compile-time checks
var (
	_ Checkable = (*ExecCheck)(nil)
	_ Checkable = (*FuncCheck)(nil)
)
