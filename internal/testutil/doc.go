// Package testutil holds shared helpers for the test suites: a thread-safe
// log buffer, context and event-stream plumbing, store fixtures, and the
// integration harnesses that run pipelines from HCL files or from
// programmatically built definitions.
package testutil
