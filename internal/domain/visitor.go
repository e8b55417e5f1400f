package domain

import (
	"strings"
	"time"
)

// Visitor is an access-code-bearing guest registered against an address.
type Visitor struct {
	ID         string
	AddressID  string
	FirstName  string
	LastName   string
	AccessCode string
	IsActive   bool
	ExpiresAt  time.Time
	LastUsed   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Usable is the single predicate shared by access verification and the
// guard-facing address detail listing: a visitor admits entry only while
// active and unexpired.
func (v *Visitor) Usable(now time.Time) bool {
	return v.IsActive && v.ExpiresAt.After(now)
}

// FullName joins the optional name fields for display.
func (v *Visitor) FullName() string {
	name := strings.TrimSpace(v.FirstName + " " + v.LastName)
	if name == "" {
		return "Unnamed visitor"
	}
	return name
}
