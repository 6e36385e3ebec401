package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/internal/transition"
	id "simtrack/pkg/domain"
)

type captureSink struct {
	mu      sync.Mutex
	entries []*transition.Entry
}

func (s *captureSink) Publish(_ context.Context, entry *transition.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func newEntry() *transition.Entry {
	return &transition.Entry{
		CardID:    id.NewCardID(),
		CardCode:  "A1",
		OldStatus: id.CardStatusAssigned,
		NewStatus: id.CardStatusSold,
		Source:    transition.SourceExternalAPI,
	}
}

func TestPublisher_SyncMode(t *testing.T) {
	sink := &captureSink{}
	pub := NewPublisher([]Sink{sink})
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), newEntry()))
	assert.Equal(t, 1, sink.count())
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	sink := &captureSink{}
	pub := NewPublisher([]Sink{sink}, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), newEntry()))
	}
	pub.Close()

	assert.Equal(t, 10, sink.count(), "all entries should be drained on close")
}

func TestPublisher_SetsIDAndTimestamp(t *testing.T) {
	sink := &captureSink{}
	pub := NewPublisher([]Sink{sink})
	defer pub.Close()

	entry := newEntry()
	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), entry))
	after := time.Now()

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.Timestamp.Before(before))
	assert.False(t, entry.Timestamp.After(after))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	sink := &captureSink{}
	pub := NewPublisher([]Sink{sink})
	defer pub.Close()

	ts := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	entry := newEntry()
	entry.Timestamp = ts
	require.NoError(t, pub.Emit(context.Background(), entry))

	assert.Equal(t, ts, sink.entries[0].Timestamp)
}

func TestPublisher_SinkFailureDoesNotPropagate(t *testing.T) {
	failing := SinkFunc(func(context.Context, *transition.Entry) error {
		return errors.New("broker down")
	})
	sink := &captureSink{}
	pub := NewPublisher([]Sink{failing, sink})
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), newEntry()))
	assert.Equal(t, 1, sink.count(), "later sinks still receive the entry")
}

func TestPublisher_BufferFullDropsEntry(t *testing.T) {
	sink := &captureSink{}
	pub := NewPublisher([]Sink{sink}, WithAsyncBuffer(1))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), newEntry())
		}()
	}
	wg.Wait()
	pub.Close()

	// Overflow drops rather than blocking; the publisher must stay usable.
	assert.LessOrEqual(t, sink.count(), 10)
}
