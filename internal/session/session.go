// Package session implements the token-keyed session registry that gates
// main protocol requests. Stores are scoped: the transport supplies a
// scope key per request and the registry lazily creates one store per
// scope, so sessions never leak across logical clients.
package session

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is issued by the new-session branch of the dispatcher and read
// back on main requests. It is never mutated after creation.
type Session struct {
	Token     string    `json:"token"`
	GameID    string    `json:"game_id"`
	PID       int32     `json:"pid"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewToken derives an unpredictable session token from the deployment
// salt, a random UUID, the requesting pid and the clock. The 40-hex-char
// shape matches what legacy clients echo back unmodified.
func NewToken(salt string, pid int32) string {
	seed := fmt.Sprintf("%s%s%d%d", salt, uuid.NewString(), pid, time.Now().UnixNano())
	sum := sha1.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}
