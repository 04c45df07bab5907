// Package notify turns an append-only message sequence into a stream of
// change events by polling a length watermark.
package notify

import (
	"context"
	"time"

	"github.com/unisonhq/unison-comms/internal/models"
)

// DefaultInterval is the poll cadence used when none is given.
const DefaultInterval = 2 * time.Second

// Source is an append-only sequence that can be polled for growth. The
// unison store adapter satisfies it.
type Source interface {
	Len() int
	Slice(from, to int) []models.NormalizedMessage
}

// Event carries the messages appended since the previous event.
type Event struct {
	Messages []models.NormalizedMessage
}

// Watcher polls a Source and emits one Event per observed batch of
// appends. Messages present before the watch starts are never replayed.
type Watcher struct {
	source   Source
	interval time.Duration
}

// NewWatcher builds a watcher over source. A non-positive interval
// selects DefaultInterval.
func NewWatcher(source Source, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{source: source, interval: interval}
}

// Watch starts polling and returns the event channel. The watermark is
// taken at call time, so only appends after this call produce events.
// The channel is closed when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) <-chan Event {
	events := make(chan Event, 1)
	mark := w.source.Len()

	go func() {
		defer close(events)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := w.source.Len()
				if n <= mark {
					continue
				}
				appended := w.source.Slice(mark, n)
				mark = n
				select {
				case events <- Event{Messages: appended}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events
}
