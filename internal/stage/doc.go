// Package stage defines the unit of work the pipeline schedules: the
// Definition a pipeline author writes, the two body shapes behind it
// (Checkable for pass/fail checks, Task for dataset producers/consumers),
// the status lifecycle, and the runtime error kinds the executor reports.
package stage
