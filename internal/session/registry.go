package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/statrelay-project/statrelay/internal/events"
)

// DefaultSweepInterval is how often the janitor walks the stores.
const DefaultSweepInterval = 5 * time.Minute

// Registry hands out one Store per scope key, created lazily on first
// access, and runs the TTL janitor across all of them.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store

	ttl   time.Duration
	sweep time.Duration
	bus   *events.Bus
}

// NewRegistry creates a registry. bus may be nil; expiry events are then
// dropped. Non-positive durations select the defaults.
func NewRegistry(ttl, sweep time.Duration, bus *events.Bus) *Registry {
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}
	return &Registry{
		stores: make(map[string]*Store),
		ttl:    ttl,
		sweep:  sweep,
		bus:    bus,
	}
}

// Scope returns the store bound to key, creating it on first use.
func (r *Registry) Scope(key string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[key]
	if !ok {
		store = NewStore(r.ttl)
		r.stores[key] = store
		log.Debug().Str("scope", key).Msg("session store created")
	}
	return store
}

// Counts reports live session counts per scope.
func (r *Registry) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, len(r.stores))
	for key, store := range r.stores {
		counts[key] = store.Len()
	}
	return counts
}

// Start runs the janitor until ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	log.Info().Dur("interval", r.sweep).Msg("session janitor started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session janitor stopped")
			return
		case now := <-ticker.C:
			r.sweepAll(ctx, now)
		}
	}
}

func (r *Registry) sweepAll(ctx context.Context, now time.Time) {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.Unlock()

	evicted := 0
	for _, store := range stores {
		for _, sess := range store.Sweep(now) {
			evicted++
			if r.bus != nil {
				r.bus.Emit(ctx, events.Event{
					Type:   events.EventSessionExpired,
					Source: "session.janitor",
					Payload: events.SessionPayload{
						Game:  sess.GameID,
						Token: sess.Token,
						PID:   sess.PID,
						URL:   sess.URL,
					},
				})
			}
		}
	}

	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Msg("session sweep complete")
	}
}
