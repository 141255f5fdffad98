package protocol

import (
	"fmt"
	"strconv"
)

// SaltLen is the fixed length of the per-game salt string.
const SaltLen = 20

// gameKeyMinLen is the shortest well-formed packed game key: the salt plus
// four 8-hex-digit constants. The game ID follows and must be non-empty.
const gameKeyMinLen = SaltLen + 4*8

// GameConfig holds the per-game deployment constants. It is built once at
// configuration time and never mutated afterwards.
type GameConfig struct {
	Salt     string
	RNGMul   uint32
	RNGAdd   uint32
	RNGMod   uint32
	HashMask uint32
	GameID   string

	RequestVersion  RequestVersion
	ResponseVersion ResponseVersion

	// Encrypted marks games whose V2/V3 payloads are XOR-ciphered; when
	// false the checksum header is still present but the body passes
	// through unchanged.
	Encrypted bool

	// RequireSession rejects main requests that carry no resolvable
	// session token.
	RequireSession bool

	// LenientV1 lets V1 decode fall back to the raw parameter bytes when
	// base64 decoding fails. Some legacy clients send plain ASCII here.
	LenientV1 bool
}

// Validate checks the deployment constants. It is called once when a
// deployment is registered, so the request path can assume a valid config.
func (g *GameConfig) Validate() error {
	if len(g.Salt) != SaltLen {
		return fmt.Errorf("salt must be exactly %d characters, got %d", SaltLen, len(g.Salt))
	}
	if g.RNGMod == 0 {
		return fmt.Errorf("rng modulus must be non-zero")
	}
	if g.GameID == "" {
		return fmt.Errorf("game id must not be empty")
	}
	if !g.RequestVersion.Valid() {
		return fmt.Errorf("invalid request version %d", g.RequestVersion)
	}
	if !g.ResponseVersion.Valid() {
		return fmt.Errorf("invalid response version %d", g.ResponseVersion)
	}
	return nil
}

// ParseGameKey unpacks the opaque deployment string: a 20-character salt,
// four 8-hex-digit unsigned values (rng multiplier, increment, modulus,
// hash mask) and the trailing game ID. Version and behavior flags are not
// part of the key and keep their zero values; callers set them afterwards.
func ParseGameKey(key string) (*GameConfig, error) {
	if len(key) <= gameKeyMinLen {
		return nil, fmt.Errorf("game key too short: need %d characters plus a game id, got %d", gameKeyMinLen, len(key))
	}

	cfg := &GameConfig{
		Salt:   key[:SaltLen],
		GameID: key[gameKeyMinLen:],
	}

	fields := []struct {
		name string
		dst  *uint32
	}{
		{"rng multiplier", &cfg.RNGMul},
		{"rng increment", &cfg.RNGAdd},
		{"rng modulus", &cfg.RNGMod},
		{"hash mask", &cfg.HashMask},
	}
	for i, f := range fields {
		off := SaltLen + i*8
		v, err := strconv.ParseUint(key[off:off+8], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("game key %s is not valid hex: %w", f.name, err)
		}
		*f.dst = uint32(v)
	}

	if cfg.RNGMod == 0 {
		return nil, fmt.Errorf("game key rng modulus must be non-zero")
	}

	return cfg, nil
}
