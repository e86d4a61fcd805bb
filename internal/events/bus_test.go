package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FIFO(t *testing.T) {
	bus := NewBus(10)
	for i := 0; i < 3; i++ {
		require.True(t, bus.Publish(Event{Type: Progress, Data: &ProgressData{Evaluated: i}}))
	}

	for i := 0; i < 3; i++ {
		ev, ok := bus.TryReceive()
		require.True(t, ok)
		assert.Equal(t, i, ev.Data.(*ProgressData).Evaluated)
	}
	_, ok := bus.TryReceive()
	assert.False(t, ok)
}

func TestBus_DropsOnlyDroppableEventsWhenFull(t *testing.T) {
	bus := NewBus(2)

	assert.True(t, bus.Publish(Event{Type: Progress}))
	assert.True(t, bus.Publish(Event{Type: LogEmitted}))
	assert.False(t, bus.Publish(Event{Type: Progress}))
	assert.False(t, bus.Publish(Event{Type: StatusChanged}))
	assert.True(t, bus.Publish(Event{Type: BestUpdate}))
	assert.True(t, bus.Publish(Event{Type: Finished}))

	assert.Equal(t, uint64(2), bus.Dropped())

	got := bus.Drain()
	require.Len(t, got, 4)
	assert.Equal(t, Finished, got[3].Type)
	assert.Equal(t, 0, bus.Len())
}

func TestBus_ReceiveWaitsForPublish(t *testing.T) {
	bus := NewBus(4)

	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Publish(Event{Type: Finished, Data: &FinishedData{Reason: "stopped"}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, err := bus.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, Finished, ev.Type)
}

func TestBus_ReceiveHonorsContext(t *testing.T) {
	bus := NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bus.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEventType_Droppable(t *testing.T) {
	assert.True(t, LogEmitted.Droppable())
	assert.True(t, Progress.Droppable())
	assert.True(t, ErrorOccurred.Droppable())
	assert.False(t, BestUpdate.Droppable())
	assert.False(t, Finished.Droppable())
}
