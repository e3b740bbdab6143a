package model

import (
	"regexp"
	"strings"
	"time"
)

// CodeStatus is the lifecycle state of an activation code.
type CodeStatus string

const (
	CodeStatusActive  CodeStatus = "active"
	CodeStatusRevoked CodeStatus = "revoked"
	CodeStatusExpired CodeStatus = "expired"
	CodeStatusUsed    CodeStatus = "used"
)

// Default policy applied when an admin creates a code without overrides.
const (
	DefaultMaxUses      = 21
	DefaultDailyLimit   = 3
	DefaultValidityDays = 7
)

// ActivationCode is a redeemable access token shared by many devices.
// CurrentUses counts distinct device redemptions; the invariant
// CurrentUses <= MaxUses is enforced by the storage layer's conditional
// increment, never by a blind write.
type ActivationCode struct {
	ID           string
	Code         string
	MaxUses      int
	DailyLimit   int
	ValidityDays int
	Status       CodeStatus
	CurrentUses  int
	Notes        string
	CreatedAt    time.Time
}

// HasFreeSeat reports whether a new device may still redeem this code.
func (c *ActivationCode) HasFreeSeat() bool {
	return c.CurrentUses < c.MaxUses
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// NormalizeCode strips separators and noise from user input, uppercases the
// remainder and re-inserts hyphens at positions 4 and 8. It returns false when
// the input does not contain exactly 12 alphanumeric characters.
func NormalizeCode(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) != 12 {
		return "", false
	}
	return s[0:4] + "-" + s[4:8] + "-" + s[8:12], true
}

// ValidCodeFormat reports whether s already has the canonical
// XXXX-XXXX-XXXX shape with uppercase groups.
func ValidCodeFormat(s string) bool {
	return codePattern.MatchString(s)
}
