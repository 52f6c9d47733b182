package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Fingerprint computes the storable one-way transform of a plaintext access
// code. HMAC-SHA256 keyed by the server salt: deterministic, so it can be a
// primary key, and useless without the salt.
func Fingerprint(plaintext, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// issueGrant signs a session grant for pageKey.
func issueGrant(pageKey string, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := &GrantClaims{
		PageKey: pageKey,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseGrant validates a session grant token and returns its claims.
func parseGrant(tokenStr string, secret []byte) (*GrantClaims, error) {
	claims := &GrantClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrForbidden
	}
	if claims.PageKey == "" {
		return nil, ErrForbidden
	}
	return claims, nil
}
