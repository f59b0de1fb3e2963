package events

import (
	"context"
	"sync"
)

// Reporter fans a run's event stream out to any number of subscribers.
//
// Events are kept in an in-run, append-only history. Each subscriber drains
// that history from its own cursor on a dedicated goroutine, so a slow
// subscriber delays nobody: publishers append under a short lock and never
// wait on consumer channels.
type Reporter struct {
	mu      sync.Mutex
	cond    *sync.Cond
	history []Event
	closed  bool
}

func NewReporter() *Reporter {
	r := &Reporter{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Publish appends one event to the stream. Publishing RunFinished seals the
// stream; publishing anything after that is a bug in the caller and panics.
func (r *Reporter) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		panic("events: publish after RunFinished")
	}
	r.history = append(r.history, ev)
	if _, ok := ev.(RunFinished); ok {
		r.closed = true
	}
	r.cond.Broadcast()
}

// Subscribe returns a channel that delivers every event published from this
// moment on, in publication order. The channel closes after RunFinished is
// delivered, or when ctx is cancelled.
func (r *Reporter) Subscribe(ctx context.Context) <-chan Event {
	r.mu.Lock()
	cursor := len(r.history)
	r.mu.Unlock()

	ch := make(chan Event)
	// A cancelled subscriber may be parked in cond.Wait; wake it so it can
	// observe ctx and exit.
	stop := context.AfterFunc(ctx, r.cond.Broadcast)

	go func() {
		defer close(ch)
		defer stop()
		for {
			r.mu.Lock()
			for cursor >= len(r.history) && !r.closed && ctx.Err() == nil {
				r.cond.Wait()
			}
			// History is append-only, so a snapshot of the pending window
			// stays valid outside the lock.
			pending := r.history[cursor:len(r.history):len(r.history)]
			cursor = len(r.history)
			done := r.closed
			r.mu.Unlock()

			for _, ev := range pending {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
			if done && len(pending) == 0 {
				return
			}
		}
	}()
	return ch
}
