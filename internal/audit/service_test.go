package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryTimeline struct {
	events []Event

	gotLimit  int
	gotOffset int
}

func (m *memoryTimeline) List(_ context.Context, _ uuid.UUID, _ TimelineFilters, limit, offset int) ([]Event, error) {
	m.gotLimit = limit
	m.gotOffset = offset
	if offset >= len(m.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.events) {
		end = len(m.events)
	}
	return m.events[offset:end], nil
}

func makeEvents(n int) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = Event{ID: int64(i + 1), Action: "document.create"}
	}
	return events
}

func TestTimelineNormalizesPaging(t *testing.T) {
	store := &memoryTimeline{events: makeEvents(3)}
	svc := NewService(store)

	result, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{Page: 0, PageSize: 0})
	require.NoError(t, err)
	require.Equal(t, 1, result.Page)
	require.Equal(t, 21, store.gotLimit)
	require.Equal(t, 0, store.gotOffset)
	require.Len(t, result.Events, 3)
	require.False(t, result.HasNext)
}

func TestTimelineClampsOversizedPages(t *testing.T) {
	store := &memoryTimeline{events: makeEvents(120)}
	svc := NewService(store)

	result, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{Page: 1, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 101, store.gotLimit)
	require.Len(t, result.Events, 100)
	require.True(t, result.HasNext)
}

func TestTimelineSecondPageOffset(t *testing.T) {
	store := &memoryTimeline{events: makeEvents(25)}
	svc := NewService(store)

	result, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 10, store.gotOffset)
	require.Equal(t, 2, result.Page)
	require.Len(t, result.Events, 10)
	require.True(t, result.HasNext)
}
