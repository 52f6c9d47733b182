package main

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// Gate is the preview access controller. It owns nothing durable itself:
// directories live behind DB, failure counters behind AttemptStore, and the
// session grant travels with the client as a signed token.
type Gate struct {
	db            DB
	attempts      AttemptStore
	salt          string
	sessionSecret []byte
	grantTTL      time.Duration
	log           *zap.SugaredLogger
	now           func() time.Time
}

func NewGate(db DB, attempts AttemptStore, salt string, sessionSecret []byte, grantTTL time.Duration, log *zap.SugaredLogger) *Gate {
	return &Gate{
		db:            db,
		attempts:      attempts,
		salt:          salt,
		sessionSecret: sessionSecret,
		grantTTL:      grantTTL,
		log:           log,
		now:           time.Now,
	}
}

// SubmitCode validates a plaintext code from clientAddr and, on success,
// returns the granted page key and a signed session grant.
//
// The throttle check runs before any directory lookup so a flooding client
// learns nothing about code validity, and the invalid and expired paths
// share one rejection so the response never reveals which one occurred.
func (g *Gate) SubmitCode(plaintext, clientAddr string) (string, string, error) {
	if !g.attempts.Allow(clientAddr) {
		return "", "", ErrThrottled
	}

	code := strings.TrimSpace(plaintext)
	if code == "" {
		g.attempts.RecordFailure(clientAddr)
		return "", "", ErrEmptyCode
	}

	entry, err := g.db.FindCodeEntry(Fingerprint(code, g.salt))
	if err != nil {
		g.log.Errorw("code lookup failed", "error", err)
		return "", "", ErrUnavailable
	}
	if entry == nil {
		g.attempts.RecordFailure(clientAddr)
		return "", "", ErrInvalidCode
	}
	if entry.IsExpired(g.now()) {
		g.attempts.RecordFailure(clientAddr)
		return "", "", ErrInvalidCode
	}

	token, err := issueGrant(entry.PageKey, g.sessionSecret, g.grantTTL, g.now())
	if err != nil {
		g.log.Errorw("grant signing failed", "error", err)
		return "", "", ErrUnavailable
	}
	return entry.PageKey, token, nil
}

// VerifyGrant decodes a session grant token.
func (g *Gate) VerifyGrant(token string) (*GrantClaims, error) {
	return parseGrant(token, g.sessionSecret)
}

// FetchPage resolves the template for pageKey under an existing grant. The
// page is re-checked against the directory so a deactivation after the grant
// was issued still takes effect.
func (g *Gate) FetchPage(pageKey string, claims *GrantClaims) (string, error) {
	if claims == nil || claims.PageKey != pageKey {
		// Do not reveal whether pageKey exists.
		return "", ErrForbidden
	}
	page, err := g.db.FindPage(pageKey)
	if err != nil {
		g.log.Errorw("page lookup failed", "error", err, "page_key", pageKey)
		return "", ErrUnavailable
	}
	if page == nil {
		return "", ErrNotFound
	}
	return page.TemplateRef, nil
}
