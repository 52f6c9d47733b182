package main

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Page is a gated preview page. Pages are deactivated, never deleted.
type Page struct {
	Key         string
	TemplateRef string
	Active      bool
	CreatedAt   time.Time
}

// AccessCode maps a code fingerprint to the page it unlocks. The plaintext
// code is never stored.
type AccessCode struct {
	Fingerprint string
	PageKey     string
	Active      bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// CodeEntry is the lookup result for a submitted code: active code joined
// with an active page.
type CodeEntry struct {
	PageKey   string
	ExpiresAt *time.Time
}

// IsExpired reports whether the entry has an expiry in the past.
func (e *CodeEntry) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}

// GrantClaims is the signed session grant issued after a successful code
// submission. It authorizes fetching exactly one page.
type GrantClaims struct {
	PageKey string `json:"page_key"`
	jwt.RegisteredClaims
}

// ContactMessage is a contact-form submission.
type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Message   string
	Company   string
	Phone     string
	Service   string
	Page      string
	CreatedAt time.Time
}
