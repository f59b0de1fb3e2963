package stage

// Status is a stage's lifecycle state. A stage is created pending, becomes
// ready once every dependency has succeeded, runs, and terminates in
// succeeded, failed, or skipped.
type Status int32

const (
	// StatusPending means one or more dependencies have not finished.
	StatusPending Status = iota
	// StatusReady means every dependency succeeded and the stage awaits a
	// worker slot.
	StatusReady
	// StatusRunning means a worker is executing the stage body.
	StatusRunning
	// StatusSucceeded is terminal: the body completed and, for checks, passed.
	StatusSucceeded
	// StatusFailed is terminal: the body failed, crashed, or violated its
	// output contract.
	StatusFailed
	// StatusSkipped is terminal: the stage never ran because an ancestor
	// failed or the run was cancelled.
	StatusSkipped
)

// String returns the status's wire name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}
