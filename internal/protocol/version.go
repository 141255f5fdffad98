// Package protocol implements the wire codec for the legacy handheld
// stats protocol: url-safe base64 transport encoding, the per-game LCG
// stream cipher, additive checksum verification, and the versioned
// request/response header layouts.
package protocol

import "fmt"

// RequestVersion selects the inbound payload layout. All version-dependent
// decisions (header width, minimum lengths) hang off this type so adding a
// revision touches one place.
type RequestVersion int

const (
	RequestV1 RequestVersion = iota + 1
	RequestV2
	RequestV3
)

var requestVersionStrings = map[RequestVersion]string{
	RequestV1: "v1",
	RequestV2: "v2",
	RequestV3: "v3",
}

// String returns the string representation of the request version.
func (v RequestVersion) String() string {
	if s, ok := requestVersionStrings[v]; ok {
		return s
	}
	return "unknown"
}

// Valid reports whether v is a known request version.
func (v RequestVersion) Valid() bool {
	_, ok := requestVersionStrings[v]
	return ok
}

// MinDataLen is the minimum length of the raw (still base64-encoded) data
// parameter. Checked before any decode work so garbage fails cheaply:
// 12 chars leave room for the V1/V2 headers, 16 for the V3 length field.
func (v RequestVersion) MinDataLen() int {
	if v == RequestV3 {
		return 16
	}
	return 12
}

// HeaderLen is the number of bytes stripped from the decrypted payload
// before it is handed to the game handler.
func (v RequestVersion) HeaderLen() int {
	if v == RequestV3 {
		return 8
	}
	return 4
}

// MinPayloadLen is the minimum decrypted payload length: room for the
// embedded pid, plus the declared-length field on V3.
func (v RequestVersion) MinPayloadLen() int {
	return v.HeaderLen()
}

// MarshalJSON serializes the version as its string form (e.g. "v2").
func (v RequestVersion) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON accepts "v1"/"v2"/"v3".
func (v *RequestVersion) UnmarshalJSON(data []byte) error {
	for ver, s := range requestVersionStrings {
		if string(data) == `"`+s+`"` {
			*v = ver
			return nil
		}
	}
	return fmt.Errorf("unknown request version %s", data)
}

// ResponseVersion selects the outbound framing: V1 writes the raw handler
// output, V2 appends the salted SHA-1 suffix.
type ResponseVersion int

const (
	ResponseV1 ResponseVersion = iota + 1
	ResponseV2
)

var responseVersionStrings = map[ResponseVersion]string{
	ResponseV1: "v1",
	ResponseV2: "v2",
}

// String returns the string representation of the response version.
func (v ResponseVersion) String() string {
	if s, ok := responseVersionStrings[v]; ok {
		return s
	}
	return "unknown"
}

// Valid reports whether v is a known response version.
func (v ResponseVersion) Valid() bool {
	_, ok := responseVersionStrings[v]
	return ok
}

// MarshalJSON serializes the version as its string form.
func (v ResponseVersion) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON accepts "v1"/"v2".
func (v *ResponseVersion) UnmarshalJSON(data []byte) error {
	for ver, s := range responseVersionStrings {
		if string(data) == `"`+s+`"` {
			*v = ver
			return nil
		}
	}
	return fmt.Errorf("unknown response version %s", data)
}
