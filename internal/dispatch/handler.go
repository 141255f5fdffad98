package dispatch

import (
	"context"
	"io"

	"github.com/statrelay-project/statrelay/internal/session"
)

// Request is what a game handler receives: the verified, header-stripped
// payload plus the request context it may need. Handlers write their
// response bytes to Out; writing nothing produces an empty response with
// no suffix.
type Request struct {
	Payload []byte
	Out     io.Writer
	Path    string
	PID     int32
	Session *session.Session // nil when the request carried no token
}

// Handler is the per-game extension point, selected by game at
// configuration time. A returned *protocol.Fault controls the response
// code and message; any other error becomes a 500.
type Handler interface {
	Handle(ctx context.Context, req *Request) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) error {
	return f(ctx, req)
}

// EchoHandler writes the decoded payload straight back. Useful for wire
// debugging and as the simplest configurable handler.
func EchoHandler() Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) error {
		_, err := req.Out.Write(req.Payload)
		return err
	})
}

// DiscardHandler accepts the payload and writes nothing, producing the
// empty response some submission endpoints expect.
func DiscardHandler() Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) error {
		return nil
	})
}
