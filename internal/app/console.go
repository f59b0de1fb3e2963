package app

import (
	"github.com/vk/pipegridgo/internal/events"
	"github.com/vk/pipegridgo/internal/stage"
)

// consoleFeed relays the event stream to the run log. Stage lifecycle is
// already logged by the executor; the feed surfaces what the stages
// themselves emit, plus a completion line per stage.
func (a *App) consoleFeed(ch <-chan events.Event) {
	for ev := range ch {
		switch ev := ev.(type) {
		case events.StageLog:
			a.logger.Info("Stage output.", "stage", ev.Stage, "stream", ev.Stream, "line", ev.Line)
		case events.StageFinished:
			if ev.Status == stage.StatusSucceeded {
				a.logger.Info("Stage finished.", "stage", ev.Stage, "duration", ev.Duration)
			}
		}
	}
	a.logger.Debug("Console feed drained.")
}
