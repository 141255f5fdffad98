package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// Fixed fault bodies served to clients outside debug configurations. The
// exact strings are load-bearing: legacy clients pattern-match on them.
const (
	GenericBadRequest  = "Bad request"
	GenericNotFound    = "This handler is not supported. (404)"
	GenericServerError = "Server error"
)

// Fault is a request-scoped failure carrying the HTTP status and the
// detailed message. Faults never terminate the process; the dispatcher
// maps them onto the plain-text error response.
type Fault struct {
	Status  int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%d: %s", f.Status, f.Message)
}

// PublicMessage returns the body to send to the client: the detailed
// message in debug configurations, the fixed generic string otherwise.
func (f *Fault) PublicMessage(debug bool) string {
	if debug {
		return f.Message
	}
	switch f.Status {
	case http.StatusNotFound:
		return GenericNotFound
	case http.StatusInternalServerError:
		return GenericServerError
	default:
		return GenericBadRequest
	}
}

// BadRequestf builds a 400 fault. Used for every validation failure on the
// way into the codec: malformed method, pid, data, checksum and header
// mismatches, session failures.
func BadRequestf(format string, args ...interface{}) *Fault {
	return &Fault{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a 404 fault, reserved for unsupported handler routes.
func NotFoundf(format string, args ...interface{}) *Fault {
	return &Fault{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// ServerErrorf builds a 500 fault for failures not otherwise classified.
func ServerErrorf(format string, args ...interface{}) *Fault {
	return &Fault{Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

// AsFault extracts a *Fault from err, wrapping anything else as a 500 so
// unexpected handler failures still produce a well-formed response.
func AsFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return ServerErrorf("unexpected error: %v", err)
}
