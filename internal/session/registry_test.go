package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statrelay-project/statrelay/internal/events"
)

func TestRegistryScopeIsolation(t *testing.T) {
	reg := NewRegistry(time.Hour, time.Hour, nil)

	a := reg.Scope("game-a")
	b := reg.Scope("game-b")
	assert.NotSame(t, a, b)

	// Repeated lookups return the same store.
	assert.Same(t, a, reg.Scope("game-a"))

	sess := a.Create(testSalt, "game-a", 1, "/stats/game-a")
	_, ok := b.Lookup(sess.Token)
	assert.False(t, ok, "token must not resolve in another scope")
}

func TestRegistryCounts(t *testing.T) {
	reg := NewRegistry(time.Hour, time.Hour, nil)

	reg.Scope("a").Create(testSalt, "a", 1, "/stats/a")
	reg.Scope("a").Create(testSalt, "a", 2, "/stats/a")
	reg.Scope("b").Create(testSalt, "b", 3, "/stats/b")

	counts := reg.Counts()
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts)
}

func TestRegistrySweepEmitsExpiry(t *testing.T) {
	bus := events.NewBus()
	defer bus.Stop()

	expiredCh := make(chan events.SessionPayload, 4)
	bus.Subscribe(events.EventSessionExpired, "test", func(ctx context.Context, e events.Event) error {
		expiredCh <- e.Payload.(events.SessionPayload)
		return nil
	})

	reg := NewRegistry(time.Minute, time.Hour, bus)
	sess := reg.Scope("a").Create(testSalt, "a", 7, "/stats/a")

	reg.sweepAll(context.Background(), time.Now().Add(2*time.Minute))

	select {
	case payload := <-expiredCh:
		assert.Equal(t, sess.Token, payload.Token)
		assert.Equal(t, int32(7), payload.PID)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry event not emitted")
	}

	require.Equal(t, 0, reg.Scope("a").Len())
}
