package model

import "time"

type AdminStatus string

const (
	AdminStatusActive   AdminStatus = "active"
	AdminStatusDisabled AdminStatus = "disabled"
)

// AdminUser is a back-office account. Passwords are stored as bcrypt hashes.
type AdminUser struct {
	ID           string
	Username     string
	PasswordHash string
	Nickname     string
	Email        string
	Status       AdminStatus
	LastLoginAt  *time.Time
	LastLoginIP  string
	CreatedAt    time.Time
}

// AdminSession is an opaque bearer token persisted per login. Deleting the
// row revokes the session immediately, which is why these are DB rows and
// not self-contained signed tokens.
type AdminSession struct {
	ID        string
	AdminID   string
	Token     string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}
