// Package events defines the event vocabulary and the pub/sub bus that
// connects the request dispatcher to the telemetry and CLI layers.
package events

import "time"

// EventType identifies an event emitted through the Bus.
type EventType string

const (
	// Session lifecycle
	EventSessionCreated EventType = "session_created"
	EventSessionExpired EventType = "session_expired"

	// Request pipeline
	EventRequestHandled  EventType = "request_handled"
	EventRequestRejected EventType = "request_rejected"

	// System
	EventConfigChanged EventType = "config_changed"
	EventShutdown      EventType = "shutdown"
)

// Event is the envelope passed to handlers.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// SessionPayload describes a session creation or expiry.
type SessionPayload struct {
	Game  string `json:"game"`
	Token string `json:"token"`
	PID   int32  `json:"pid"`
	URL   string `json:"url"`
}

// RequestPayload describes a completed or rejected protocol request.
type RequestPayload struct {
	Game       string        `json:"game"`
	Path       string        `json:"path"`
	PID        int32         `json:"pid"`
	NewSession bool          `json:"new_session"`
	Status     int           `json:"status"`
	Fault      string        `json:"fault,omitempty"`
	BodyBytes  int           `json:"body_bytes"`
	Duration   time.Duration `json:"duration"`
}
