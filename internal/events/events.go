package events

import (
	"time"

	"github.com/vk/pipegridgo/internal/stage"
)

// RunStatus is the terminal outcome of a whole pipeline run.
type RunStatus string

const (
	// RunSucceeded means every stage succeeded.
	RunSucceeded RunStatus = "succeeded"
	// RunFailed means at least one stage failed or was skipped.
	RunFailed RunStatus = "failed"
	// RunCancelled means the run stopped on an external cancellation signal
	// before reaching a natural verdict.
	RunCancelled RunStatus = "cancelled"
)

// Event is one item in a run's status stream. The concrete types below are
// the only implementations.
type Event interface {
	event()
}

// StageStarted announces a stage transitioned to running.
type StageStarted struct {
	Stage string
	Kind  stage.Kind
}

// StageLog carries one line of stage output. Seq increases monotonically
// per stage, so subscribers can interleave the two streams faithfully.
type StageLog struct {
	Stage  string
	Stream stage.Stream
	Seq    uint64
	Line   string
}

// StageFinished announces a stage's terminal transition. Error and ErrorKind
// are empty when the stage succeeded; ExitCode is meaningful for checks.
type StageFinished struct {
	Stage     string
	Status    stage.Status
	Error     string
	ErrorKind string
	ExitCode  int
	Duration  time.Duration
}

// RunFinished terminates the stream: no event follows it and subscriber
// channels close after delivering it.
type RunFinished struct {
	Status   RunStatus
	Duration time.Duration
}

func (StageStarted) event()  {}
func (StageLog) event()      {}
func (StageFinished) event() {}
func (RunFinished) event()   {}
