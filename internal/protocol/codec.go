package protocol

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// DecodedRequest is the codec output handed to the game handler: the
// header has been verified and stripped, and the payload is plaintext.
type DecodedRequest struct {
	// PID is the player identifier embedded in the payload. For V1, where
	// no pid is embedded, it carries the transport-level value.
	PID int32

	// DeclaredLength is the V3 length field; zero for V1/V2.
	DeclaredLength int32

	// Payload is the decrypted request body with the version header
	// removed.
	Payload []byte
}

var b64Decoder = strings.NewReplacer("-", "+", "_", "/")
var b64Encoder = strings.NewReplacer("+", "-", "/", "_")

// DecodeBase64URL decodes the url-safe variant used on the wire: '-' and
// '_' substitute for '+' and '/', everything else is standard base64.
// Inputs already in standard form decode unchanged.
func DecodeBase64URL(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64Decoder.Replace(s))
}

// EncodeBase64URL is the inverse transform.
func EncodeBase64URL(data []byte) string {
	return b64Encoder.Replace(base64.StdEncoding.EncodeToString(data))
}

// DecodeRequest validates and decrypts the data parameter of a main
// request. pid is the transport-level pid parameter. Every failure is a
// 400 Fault; the ordering is fixed so cheap checks run first and a wrong
// checksum is reported before any header field is trusted.
func DecodeRequest(data string, pid int32, cfg *GameConfig) (*DecodedRequest, error) {
	decoded, err := DecodeBase64URL(data)
	if err != nil {
		// Some V1-era clients put raw ASCII in the data parameter.
		if cfg.RequestVersion == RequestV1 && cfg.LenientV1 {
			decoded = []byte(data)
		} else {
			return nil, BadRequestf("malformed base64 data: %v", err)
		}
	}

	// V1 carries no checksum, no cipher and no embedded pid: the decoded
	// bytes pass through as-is.
	if cfg.RequestVersion == RequestV1 {
		return &DecodedRequest{PID: pid, Payload: decoded}, nil
	}

	if len(decoded) < 4 {
		return nil, BadRequestf("data too short: %d bytes", len(decoded))
	}

	obfChecksum := int32(binary.BigEndian.Uint32(decoded[:4]))
	checksum := obfChecksum ^ int32(cfg.HashMask)

	payload := make([]byte, len(decoded)-4)
	copy(payload, decoded[4:])
	if cfg.Encrypted {
		ks := NewKeystream(cfg.RNGMul, cfg.RNGAdd, cfg.RNGMod, seedFromChecksum(checksum))
		ks.XOR(payload)
	}

	var actual int32
	for _, b := range payload {
		actual += int32(b)
	}
	if actual != checksum {
		return nil, BadRequestf("checksum mismatch: header %d, computed %d", checksum, actual)
	}

	if len(payload) < cfg.RequestVersion.MinPayloadLen() {
		return nil, BadRequestf("payload too short for %s: %d bytes", cfg.RequestVersion, len(payload))
	}

	req := &DecodedRequest{
		PID: int32(binary.LittleEndian.Uint32(payload[:4])),
	}
	if req.PID != pid {
		return nil, BadRequestf("embedded pid %d does not match request pid %d", req.PID, pid)
	}

	if cfg.RequestVersion == RequestV3 {
		req.DeclaredLength = int32(binary.LittleEndian.Uint32(payload[4:8]))
		if req.DeclaredLength+8 != int32(len(payload)) {
			return nil, BadRequestf("declared length %d does not match payload length %d", req.DeclaredLength, len(payload))
		}
	}

	req.Payload = payload[cfg.RequestVersion.HeaderLen():]
	return req, nil
}

// EncodeRequest performs the client-side transform: header construction,
// checksum, encryption and base64url encoding. The server never calls it
// on the request path; it exists for tests and the CLI encode command,
// and its output must round-trip through DecodeRequest bit-exactly.
func EncodeRequest(payload []byte, pid int32, cfg *GameConfig) string {
	if cfg.RequestVersion == RequestV1 {
		return EncodeBase64URL(payload)
	}

	plain := make([]byte, cfg.RequestVersion.HeaderLen()+len(payload))
	binary.LittleEndian.PutUint32(plain[:4], uint32(pid))
	if cfg.RequestVersion == RequestV3 {
		binary.LittleEndian.PutUint32(plain[4:8], uint32(len(plain)-8))
	}
	copy(plain[cfg.RequestVersion.HeaderLen():], payload)

	var checksum int32
	for _, b := range plain {
		checksum += int32(b)
	}

	if cfg.Encrypted {
		ks := NewKeystream(cfg.RNGMul, cfg.RNGAdd, cfg.RNGMod, seedFromChecksum(checksum))
		ks.XOR(plain)
	}

	out := make([]byte, 4+len(plain))
	binary.BigEndian.PutUint32(out[:4], uint32(checksum^int32(cfg.HashMask)))
	copy(out[4:], plain)
	return EncodeBase64URL(out)
}

// ResponseSuffix computes the trailer appended after the response body:
// nothing for V1, the 40-char lowercase hex SHA-1 of salt+base64url(body)+salt
// for V2. An empty body gets no suffix either way; old client libraries
// choke on a bare digest.
func ResponseSuffix(body []byte, cfg *GameConfig) string {
	if cfg.ResponseVersion != ResponseV2 || len(body) == 0 {
		return ""
	}
	sum := sha1.Sum([]byte(cfg.Salt + EncodeBase64URL(body) + cfg.Salt))
	return hex.EncodeToString(sum[:])
}
