package users

import "time"

// User is an account row. PasswordHash is the PHC-encoded Argon2id hash and
// never leaves the service layer.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
