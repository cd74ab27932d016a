package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SessionRecord is the Postgres audit row mirroring a Redis session. Rows
// outliving their expiry are swept by the background purge task.
type SessionRecord struct {
	SID       string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Fingerprint derives the session binding value from a stored password
// hash. Sessions record it at login; once the hash rotates the recorded
// value stops matching and the session is rejected.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:])
}
