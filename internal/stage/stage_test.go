package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/artifact"
)

func noopCheck() Checkable {
	return &FuncCheck{Fn: func(context.Context, EmitFunc) error { return nil }}
}

func noopTask() Task {
	return TaskFunc(func(context.Context, TaskContext) ([]Output, error) { return nil, nil })
}

func TestDefinitionValidate(t *testing.T) {
	testCases := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{
			name: "valid check",
			def:  Definition{Name: "build", Kind: KindCheck, Check: noopCheck()},
		},
		{
			name: "valid data task",
			def:  Definition{Name: "summarize", Kind: KindDataTask, Task: noopTask()},
		},
		{
			name:    "missing name",
			def:     Definition{Kind: KindCheck, Check: noopCheck()},
			wantErr: true,
		},
		{
			name:    "check without body",
			def:     Definition{Name: "build", Kind: KindCheck},
			wantErr: true,
		},
		{
			name:    "task without body",
			def:     Definition{Name: "summarize", Kind: KindDataTask},
			wantErr: true,
		},
		{
			name:    "check carrying task body",
			def:     Definition{Name: "build", Kind: KindCheck, Check: noopCheck(), Task: noopTask()},
			wantErr: true,
		},
		{
			name:    "negative retries",
			def:     Definition{Name: "build", Kind: KindCheck, Check: noopCheck(), Retries: -1},
			wantErr: true,
		},
		{
			name: "bad output ref",
			def: Definition{
				Name: "summarize", Kind: KindDataTask, Task: noopTask(),
				Outputs: []artifact.Ref{{Prefix: "results", Name: "a/b"}},
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "check", KindCheck.String())
	assert.Equal(t, "data-task", KindDataTask.String())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusSkipped.Terminal())
}

func TestTaskContextInputLookup(t *testing.T) {
	tc := TaskContext{
		Inputs: []ResolvedInput{
			{Ref: artifact.Ref{Prefix: "results", Name: "test"}, Payload: []byte("x")},
			{Ref: artifact.Ref{Prefix: "results", Name: "lint"}, Payload: []byte("y")},
		},
	}

	in, ok := tc.Input("results/lint")
	require.True(t, ok)
	assert.Equal(t, []byte("y"), in.Payload)

	_, ok = tc.Input("results/absent")
	assert.False(t, ok)
}

func TestErrorKindsMatchWithErrorsIs(t *testing.T) {
	exitErr := &ExitError{Code: 2}
	assert.True(t, errors.Is(exitErr, ErrExecution))
	assert.Contains(t, exitErr.Error(), "exit code 2")

	contractErr := &ContractError{
		Stage:      "summarize",
		Missing:    []artifact.Ref{{Prefix: "results", Name: "summary"}},
		Undeclared: []artifact.Ref{{Prefix: "results", Name: "rogue"}},
	}
	assert.True(t, errors.Is(contractErr, ErrContractViolation))
	assert.Contains(t, contractErr.Error(), "results/summary")
	assert.Contains(t, contractErr.Error(), "results/rogue")

	wrapped := errors.Join(contractErr)
	assert.True(t, errors.Is(wrapped, ErrContractViolation))
}
