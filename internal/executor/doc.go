// Package executor schedules a built graph onto a bounded worker pool.
// Ready stages are admitted lowest topological index first, a failure skips
// its descendants while unrelated stages keep running, and every transition
// is published to the run's event stream.
package executor
