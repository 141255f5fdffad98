package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusEmitFanOut(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	var hits atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe(EventRequestHandled, "test", func(ctx context.Context, e Event) error {
			hits.Add(1)
			return nil
		})
	}
	assert.Equal(t, 3, bus.HandlerCount(EventRequestHandled))

	bus.Emit(context.Background(), Event{Type: EventRequestHandled, Source: "test"})

	require.Eventually(t, func() bool {
		return hits.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBusEmitWrongTypeIgnored(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	var hits atomic.Int32
	bus.Subscribe(EventSessionCreated, "test", func(ctx context.Context, e Event) error {
		hits.Add(1)
		return nil
	})

	bus.Emit(context.Background(), Event{Type: EventSessionExpired})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), hits.Load())
}

func TestBusEmitSyncReturnsFirstError(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	bus.Subscribe(EventConfigChanged, "ok", func(ctx context.Context, e Event) error {
		return nil
	})
	bus.Subscribe(EventConfigChanged, "fail", func(ctx context.Context, e Event) error {
		return errors.New("handler failed")
	})

	err := bus.EmitSync(context.Background(), Event{Type: EventConfigChanged})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler failed")
}

func TestBusPanicIsolation(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	var ran atomic.Bool
	bus.Subscribe(EventShutdown, "panics", func(ctx context.Context, e Event) error {
		panic("boom")
	})
	bus.Subscribe(EventShutdown, "survives", func(ctx context.Context, e Event) error {
		ran.Store(true)
		return nil
	})

	require.NoError(t, bus.EmitSync(context.Background(), Event{Type: EventShutdown}))
	assert.True(t, ran.Load())
}

func TestBusStopRejectsEmit(t *testing.T) {
	bus := NewBus()

	var hits atomic.Int32
	bus.Subscribe(EventShutdown, "test", func(ctx context.Context, e Event) error {
		hits.Add(1)
		return nil
	})

	bus.Stop()

	select {
	case <-bus.StopCh():
	default:
		t.Fatal("StopCh not closed after Stop")
	}

	bus.Emit(context.Background(), Event{Type: EventShutdown})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), hits.Load())

	// Second Stop is a no-op.
	bus.Stop()
}
