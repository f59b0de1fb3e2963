// Package events defines the run status stream: the event types a pipeline
// run emits and the Reporter that fans them out to subscribers without ever
// blocking the publisher.
package events
