package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statrelay-project/statrelay/internal/events"
	"github.com/statrelay-project/statrelay/internal/protocol"
	"github.com/statrelay-project/statrelay/internal/session"
)

// ScopeFunc picks the session-store scope for a request. The default
// scopes stores per game; deployments that need finer scoping (per client
// IP, per shard) inject their own.
type ScopeFunc func(dep *Deployment, p Params) string

// DefaultScope keys session stores by game ID.
func DefaultScope(dep *Deployment, p Params) string {
	return dep.Config.GameID
}

// Result is the fully assembled response for one request.
type Result struct {
	Status int
	Body   []byte
	Fault  *protocol.Fault // nil on success
}

// Dispatcher runs the request state machine:
//
//	VALIDATE_METHOD -> VALIDATE_PID -> {NEW_SESSION | MAIN_REQUEST | REJECT} -> RESPOND
//
// It is safe for concurrent use; per-request state lives on the stack and
// the session registry handles its own locking.
type Dispatcher struct {
	mu          sync.RWMutex
	deployments map[string]*Deployment

	sessions    *session.Registry
	scope       ScopeFunc
	bus         *events.Bus
	debugFaults bool

	logger zerolog.Logger
}

// New creates a dispatcher. bus may be nil. debugFaults selects detailed
// fault messages in responses; production configurations leave it off and
// serve the fixed generic strings.
func New(sessions *session.Registry, bus *events.Bus, debugFaults bool) *Dispatcher {
	return &Dispatcher{
		deployments: make(map[string]*Deployment),
		sessions:    sessions,
		scope:       DefaultScope,
		bus:         bus,
		debugFaults: debugFaults,
		logger:      log.With().Str("component", "dispatch").Logger(),
	}
}

// SetScopeFunc overrides the session scope selection. Must be called
// before serving.
func (d *Dispatcher) SetScopeFunc(fn ScopeFunc) {
	if fn != nil {
		d.scope = fn
	}
}

// Register adds a deployment under its route name.
func (d *Dispatcher) Register(name string, cfg *protocol.GameConfig, handler Handler) error {
	dep, err := newDeployment(name, cfg, handler)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.deployments[name]; exists {
		return fmt.Errorf("deployment %s already registered", name)
	}
	d.deployments[name] = dep

	d.logger.Info().
		Str("deployment", name).
		Str("game_id", cfg.GameID).
		Str("request_version", cfg.RequestVersion.String()).
		Str("response_version", cfg.ResponseVersion.String()).
		Bool("encrypted", cfg.Encrypted).
		Bool("require_session", cfg.RequireSession).
		Msg("deployment registered")
	return nil
}

// Deployment looks up a registered deployment by route name.
func (d *Dispatcher) Deployment(name string) (*Deployment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dep, ok := d.deployments[name]
	return dep, ok
}

// Deployments returns all deployments sorted by name.
func (d *Dispatcher) Deployments() []*Deployment {
	d.mu.RLock()
	defer d.mu.RUnlock()

	deps := make([]*Deployment, 0, len(d.deployments))
	for _, dep := range d.deployments {
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps
}

// Dispatch handles one request against the named deployment and returns
// the response to write. Unknown deployment names map to the 404 fault.
func (d *Dispatcher) Dispatch(ctx context.Context, game string, p Params) Result {
	start := time.Now()

	dep, ok := d.Deployment(game)
	if !ok {
		f := protocol.NotFoundf("no handler for game %q", game)
		d.emitRejected(ctx, game, p, 0, f, start)
		return Result{Status: f.Status, Body: []byte(f.PublicMessage(d.debugFaults)), Fault: f}
	}

	pid, body, newSession, err := d.process(ctx, dep, p)
	if err != nil {
		f := protocol.AsFault(err)
		dep.rejected.Add(1)
		d.emitRejected(ctx, dep.Name, p, pid, f, start)
		d.logger.Debug().
			Str("deployment", dep.Name).
			Str("path", p.Path).
			Int("status", f.Status).
			Str("fault", f.Message).
			Msg("request rejected")
		return Result{Status: f.Status, Body: []byte(f.PublicMessage(d.debugFaults)), Fault: f}
	}

	dep.accepted.Add(1)
	if d.bus != nil {
		d.bus.Emit(ctx, events.Event{
			Type:   events.EventRequestHandled,
			Source: "dispatch",
			Payload: events.RequestPayload{
				Game:       dep.Config.GameID,
				Path:       p.Path,
				PID:        pid,
				NewSession: newSession,
				Status:     http.StatusOK,
				BodyBytes:  len(body),
				Duration:   time.Since(start),
			},
		})
	}
	return Result{Status: http.StatusOK, Body: body}
}

// process runs the state machine proper and returns the response body.
func (d *Dispatcher) process(ctx context.Context, dep *Deployment, p Params) (pid int32, body []byte, newSession bool, err error) {
	// VALIDATE_METHOD
	if p.Method != http.MethodGet && p.Method != http.MethodPost {
		return 0, nil, false, protocol.BadRequestf("unsupported method %s", p.Method)
	}

	// VALIDATE_PID
	if !p.HasPID || p.PID == "" {
		return 0, nil, false, protocol.BadRequestf("missing pid parameter")
	}
	pid64, perr := strconv.ParseInt(p.PID, 10, 32)
	if perr != nil {
		return 0, nil, false, protocol.BadRequestf("malformed pid %q", p.PID)
	}
	pid = int32(pid64)

	// Branch selection on the parameter set.
	switch {
	case !p.HasData && !p.HasHash:
		body, err = d.newSession(ctx, dep, p, pid)
		return pid, body, true, err
	case p.Count < 3:
		return pid, nil, false, protocol.BadRequestf("wrong argument count: %d", p.Count)
	}

	body, err = d.mainRequest(ctx, dep, p, pid)
	return pid, body, false, err
}

// newSession creates and registers a session; the token alone is the
// response body.
func (d *Dispatcher) newSession(ctx context.Context, dep *Deployment, p Params, pid int32) ([]byte, error) {
	cfg := dep.Config
	store := d.sessions.Scope(d.scope(dep, p))
	sess := store.Create(cfg.Salt, cfg.GameID, pid, p.Path)
	dep.sessionsIssued.Add(1)

	if d.bus != nil {
		d.bus.Emit(ctx, events.Event{
			Type:   events.EventSessionCreated,
			Source: "dispatch",
			Payload: events.SessionPayload{
				Game:  cfg.GameID,
				Token: sess.Token,
				PID:   pid,
				URL:   p.Path,
			},
		})
	}

	d.logger.Debug().
		Str("deployment", dep.Name).
		Int32("pid", pid).
		Msg("session created")
	return []byte(sess.Token), nil
}

// mainRequest validates the session gate, decodes the payload, invokes
// the game handler and assembles the response with its version suffix.
func (d *Dispatcher) mainRequest(ctx context.Context, dep *Deployment, p Params, pid int32) ([]byte, error) {
	cfg := dep.Config

	// Cheap length gate before any base64 or cipher work.
	if len(p.Data) < cfg.RequestVersion.MinDataLen() {
		return nil, protocol.BadRequestf("data parameter too short: %d chars", len(p.Data))
	}

	var sess *session.Session
	if p.HasHash && p.Hash != "" {
		store := d.sessions.Scope(d.scope(dep, p))
		found, ok := store.Lookup(p.Hash)
		switch {
		case ok && found.GameID != cfg.GameID:
			return nil, protocol.BadRequestf("wrong game matched: session belongs to %s", found.GameID)
		case ok:
			sess = found
		case cfg.RequireSession:
			return nil, protocol.BadRequestf("session not found")
		}
	} else if cfg.RequireSession {
		return nil, protocol.BadRequestf("missing hash parameter")
	}

	decoded, err := protocol.DecodeRequest(p.Data, pid, cfg)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	req := &Request{
		Payload: decoded.Payload,
		Out:     &out,
		Path:    p.Path,
		PID:     pid,
		Session: sess,
	}
	if err := dep.Handler.Handle(ctx, req); err != nil {
		return nil, err
	}

	// Empty handler output means empty response: no suffix.
	if out.Len() == 0 {
		return nil, nil
	}
	out.WriteString(protocol.ResponseSuffix(out.Bytes(), cfg))
	return out.Bytes(), nil
}

func (d *Dispatcher) emitRejected(ctx context.Context, game string, p Params, pid int32, f *protocol.Fault, start time.Time) {
	if d.bus == nil {
		return
	}
	d.bus.Emit(ctx, events.Event{
		Type:   events.EventRequestRejected,
		Source: "dispatch",
		Payload: events.RequestPayload{
			Game:     game,
			Path:     p.Path,
			PID:      pid,
			Status:   f.Status,
			Fault:    f.Message,
			Duration: time.Since(start),
		},
	})
}
