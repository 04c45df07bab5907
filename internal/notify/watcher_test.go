package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisonhq/unison-comms/internal/models"
)

// sliceSource is an in-memory Source for driving the watcher directly.
type sliceSource struct {
	mu   sync.Mutex
	msgs []models.NormalizedMessage
}

func (s *sliceSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func (s *sliceSource) Slice(from, to int) []models.NormalizedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NormalizedMessage, to-from)
	copy(out, s.msgs[from:to])
	return out
}

func (s *sliceSource) append(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.msgs = append(s.msgs, models.NormalizedMessage{
			MessageID: fmt.Sprintf("m-%d", len(s.msgs)+1),
		})
	}
}

func TestWatchBatchesAppends(t *testing.T) {
	source := &sliceSource{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := NewWatcher(source, 10*time.Millisecond).Watch(ctx)

	source.append(3)

	select {
	case ev := <-events:
		require.Len(t, ev.Messages, 3)
		assert.Equal(t, "m-1", ev.Messages[0].MessageID)
		assert.Equal(t, "m-3", ev.Messages[2].MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatchAdvancesWatermark(t *testing.T) {
	source := &sliceSource{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := NewWatcher(source, 10*time.Millisecond).Watch(ctx)

	source.append(1)
	select {
	case ev := <-events:
		require.Len(t, ev.Messages, 1)
		assert.Equal(t, "m-1", ev.Messages[0].MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	source.append(2)
	select {
	case ev := <-events:
		// Only the new appends, no replay of m-1.
		require.Len(t, ev.Messages, 2)
		assert.Equal(t, "m-2", ev.Messages[0].MessageID)
		assert.Equal(t, "m-3", ev.Messages[1].MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second event")
	}
}

func TestWatchSkipsPreexistingMessages(t *testing.T) {
	source := &sliceSource{}
	source.append(5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := NewWatcher(source, 10*time.Millisecond).Watch(ctx)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for pre-existing messages: %v", ev.Messages)
	case <-time.After(100 * time.Millisecond):
	}

	source.append(1)
	select {
	case ev := <-events:
		require.Len(t, ev.Messages, 1)
		assert.Equal(t, "m-6", ev.Messages[0].MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	source := &sliceSource{}
	ctx, cancel := context.WithCancel(context.Background())

	events := NewWatcher(source, 10*time.Millisecond).Watch(ctx)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "expected channel to be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestNewWatcherDefaultsInterval(t *testing.T) {
	w := NewWatcher(&sliceSource{}, 0)
	assert.Equal(t, DefaultInterval, w.interval)
}
