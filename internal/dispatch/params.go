// Package dispatch drives a protocol request from transport-level
// validation through session gating, codec decode, game handler
// invocation and response assembly. It owns the deployment registry
// (one entry per configured game) and maps every failure onto a Fault.
package dispatch

import "net/url"

// Params is the structured view of the transport parameters, built once
// at the HTTP boundary. The protocol core never touches a raw query or
// form bag.
type Params struct {
	Method string
	Path   string

	PID  string
	Data string
	Hash string

	HasPID  bool
	HasData bool
	HasHash bool

	// Count is the total number of distinct parameters the client sent.
	// The legacy branch selection keys off it: a main request always
	// carries at least three.
	Count int
}

// ParamsFromValues builds Params from decoded query or form values.
func ParamsFromValues(method, path string, values url.Values) Params {
	p := Params{
		Method: method,
		Path:   path,
		Count:  len(values),
	}
	if v, ok := values["pid"]; ok {
		p.HasPID = true
		if len(v) > 0 {
			p.PID = v[0]
		}
	}
	if v, ok := values["data"]; ok {
		p.HasData = true
		if len(v) > 0 {
			p.Data = v[0]
		}
	}
	if v, ok := values["hash"]; ok {
		p.HasHash = true
		if len(v) > 0 {
			p.Hash = v[0]
		}
	}
	return p
}
