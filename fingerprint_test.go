package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("abc123", "salt")
	b := Fingerprint("abc123", "salt")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded SHA-256
}

func TestFingerprintDistinctInputs(t *testing.T) {
	assert.NotEqual(t, Fingerprint("abc123", "salt"), Fingerprint("abc124", "salt"))
	assert.NotEqual(t, Fingerprint("abc123", "salt"), Fingerprint("abc123", "other-salt"))
	assert.NotEqual(t, Fingerprint("", "salt"), Fingerprint(" ", "salt"))
}

func TestGrantRoundTrip(t *testing.T) {
	secret := []byte("session-secret")
	token, err := issueGrant("demo1", secret, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := parseGrant(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "demo1", claims.PageKey)
}

func TestGrantWrongSecret(t *testing.T) {
	token, err := issueGrant("demo1", []byte("session-secret"), time.Hour, time.Now())
	require.NoError(t, err)

	_, err = parseGrant(token, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGrantExpired(t *testing.T) {
	token, err := issueGrant("demo1", []byte("session-secret"), time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = parseGrant(token, []byte("session-secret"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGrantGarbageToken(t *testing.T) {
	_, err := parseGrant("not-a-token", []byte("session-secret"))
	assert.ErrorIs(t, err, ErrForbidden)
}
