package dispatch

import (
	"fmt"
	"sync/atomic"

	"github.com/statrelay-project/statrelay/internal/protocol"
)

// Deployment binds one game's protocol constants to its handler under a
// route name. Immutable after registration; the counters are the only
// mutable state.
type Deployment struct {
	Name    string
	Config  *protocol.GameConfig
	Handler Handler

	accepted       atomic.Uint64
	rejected       atomic.Uint64
	sessionsIssued atomic.Uint64
}

// Stats is a point-in-time snapshot of a deployment's counters.
type Stats struct {
	Accepted       uint64 `json:"accepted"`
	Rejected       uint64 `json:"rejected"`
	SessionsIssued uint64 `json:"sessions_issued"`
}

// Stats snapshots the counters.
func (d *Deployment) Stats() Stats {
	return Stats{
		Accepted:       d.accepted.Load(),
		Rejected:       d.rejected.Load(),
		SessionsIssued: d.sessionsIssued.Load(),
	}
}

func newDeployment(name string, cfg *protocol.GameConfig, handler Handler) (*Deployment, error) {
	if name == "" {
		return nil, fmt.Errorf("deployment name must not be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("deployment %s: handler must not be nil", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("deployment %s: %w", name, err)
	}
	return &Deployment{Name: name, Config: cfg, Handler: handler}, nil
}
