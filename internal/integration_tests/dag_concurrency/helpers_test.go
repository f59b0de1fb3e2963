package integration_tests

import (
	"context"

	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/stage"
)

// checkDef builds an in-process check stage for graph scenarios.
func checkDef(name string, fn func(ctx context.Context, emit stage.EmitFunc) error, after ...string) *stage.Definition {
	return &stage.Definition{
		Name:  name,
		Kind:  stage.KindCheck,
		After: after,
		Check: &stage.FuncCheck{Fn: fn},
	}
}

// passing is a check body that immediately succeeds.
func passing(context.Context, stage.EmitFunc) error { return nil }

// startIndex returns the position of a stage's StageStarted event, or -1.
func startIndex(evs []events.Event, name string) int {
	for i, ev := range evs {
		if s, ok := ev.(events.StageStarted); ok && s.Stage == name {
			return i
		}
	}
	return -1
}

// finishIndex returns the position of a stage's StageFinished event, or -1.
func finishIndex(evs []events.Event, name string) int {
	for i, ev := range evs {
		if f, ok := ev.(events.StageFinished); ok && f.Stage == name {
			return i
		}
	}
	return -1
}
