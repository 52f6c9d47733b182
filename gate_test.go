package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSalt = "test-salt"

var testSecret = []byte("test-session-secret")

func newTestGate(t *testing.T, db DB) (*Gate, *MemoryAttemptStore) {
	t.Helper()
	attempts := NewMemoryAttemptStore(10, 600*time.Second, nil)
	return NewGate(db, attempts, testSalt, testSecret, time.Hour, zap.NewNop().Sugar()), attempts
}

func seedPageAndCode(t *testing.T, db DB, pageKey, templateRef, code string, expiresAt *time.Time) {
	t.Helper()
	_, err := db.UpsertPage(pageKey, templateRef)
	require.NoError(t, err)
	require.NoError(t, db.UpsertCode(Fingerprint(code, testSalt), pageKey, expiresAt))
}

// countingDB wraps a DB and counts directory lookups.
type countingDB struct {
	DB
	codeLookups int
}

func (c *countingDB) FindCodeEntry(fingerprint string) (*CodeEntry, error) {
	c.codeLookups++
	return c.DB.FindCodeEntry(fingerprint)
}

// failingDB errors on every directory read.
type failingDB struct {
	DB
}

func (f *failingDB) FindCodeEntry(string) (*CodeEntry, error) { return nil, errors.New("boom") }
func (f *failingDB) FindPage(string) (*Page, error)           { return nil, errors.New("boom") }

func TestSubmitCodeGrantsAndFetches(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", nil)

	pageKey, token, err := gate.SubmitCode("abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "demo1", pageKey)
	require.NotEmpty(t, token)

	claims, err := gate.VerifyGrant(token)
	require.NoError(t, err)

	templateRef, err := gate.FetchPage("demo1", claims)
	require.NoError(t, err)
	assert.Equal(t, "demo1.html", templateRef)
}

func TestSubmitCodeTrimsWhitespace(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", nil)

	pageKey, _, err := gate.SubmitCode("  abc123  ", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "demo1", pageKey)
}

func TestSubmitEmptyCode(t *testing.T) {
	db := NewMemoryDB()
	gate, attempts := newTestGate(t, db)

	_, _, err := gate.SubmitCode("   ", "1.2.3.4")
	assert.ErrorIs(t, err, ErrEmptyCode)

	// The empty submission counts against the window.
	for i := 0; i < 9; i++ {
		gate.SubmitCode("", "1.2.3.4")
	}
	assert.False(t, attempts.Allow("1.2.3.4"))
}

func TestSubmitWrongCodeStaysUnderLimiter(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", nil)

	for i := 0; i < 5; i++ {
		_, _, err := gate.SubmitCode("wrong-code", "1.2.3.4")
		assert.ErrorIs(t, err, ErrInvalidCode)
	}

	// Five failures with max 10: still allowed through to the directory.
	pageKey, _, err := gate.SubmitCode("abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "demo1", pageKey)
}

func TestSubmitThrottledWithoutDirectoryLookup(t *testing.T) {
	db := &countingDB{DB: NewMemoryDB()}
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db.DB, "demo1", "demo1.html", "abc123", nil)

	for i := 0; i < 10; i++ {
		_, _, err := gate.SubmitCode("wrong-code", "1.2.3.4")
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
	lookups := db.codeLookups

	// The 11th attempt is rejected before the directory is consulted, even
	// with the correct code.
	_, _, err := gate.SubmitCode("abc123", "1.2.3.4")
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, lookups, db.codeLookups)

	// Other clients are unaffected.
	_, _, err = gate.SubmitCode("abc123", "5.6.7.8")
	assert.NoError(t, err)
}

func TestSubmitExpiredCode(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	past := time.Now().Add(-time.Second)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", &past)

	_, _, err := gate.SubmitCode("abc123", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestExpiredAndInvalidAreIndistinguishable(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	past := time.Now().Add(-time.Second)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", &past)

	_, _, expiredErr := gate.SubmitCode("abc123", "1.2.3.4")
	_, _, invalidErr := gate.SubmitCode("wrong-code", "1.2.3.4")
	require.Error(t, expiredErr)
	require.Error(t, invalidErr)
	assert.Equal(t, invalidErr.Error(), expiredErr.Error())
}

func TestSubmitFutureExpiryStillValid(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	future := time.Now().Add(time.Hour)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", &future)

	pageKey, _, err := gate.SubmitCode("abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "demo1", pageKey)
}

func TestFetchPageWrongGrant(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db, "a", "a.html", "code-a", nil)
	seedPageAndCode(t, db, "b", "b.html", "code-b", nil)

	_, token, err := gate.SubmitCode("code-a", "1.2.3.4")
	require.NoError(t, err)
	claims, err := gate.VerifyGrant(token)
	require.NoError(t, err)

	_, err = gate.FetchPage("b", claims)
	assert.ErrorIs(t, err, ErrForbidden)

	// Nonexistent pages look the same as unauthorized ones.
	_, err = gate.FetchPage("nope", claims)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFetchPageNilClaims(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)

	_, err := gate.FetchPage("demo1", nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeactivatedPageHidesCodes(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", nil)

	require.NoError(t, db.SetPageActive("demo1", false))

	// The code row stays active but the inactive page hides it.
	_, _, err := gate.SubmitCode("abc123", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestDeactivationAfterGrant(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", nil)

	_, token, err := gate.SubmitCode("abc123", "1.2.3.4")
	require.NoError(t, err)
	claims, err := gate.VerifyGrant(token)
	require.NoError(t, err)

	require.NoError(t, db.SetPageActive("demo1", false))

	// The grant survives but the fetch re-checks the directory.
	_, err = gate.FetchPage("demo1", claims)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivatedCodeRejected(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)
	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", nil)

	require.NoError(t, db.SetCodeActive(Fingerprint("abc123", testSalt), false))

	_, _, err := gate.SubmitCode("abc123", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestStorageFailureYieldsUnavailable(t *testing.T) {
	gate, attempts := newTestGate(t, &failingDB{DB: NewMemoryDB()})

	_, token, err := gate.SubmitCode("abc123", "1.2.3.4")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, token)

	// A read failure is not a failed guess.
	assert.True(t, attempts.Allow("1.2.3.4"))

	claims := &GrantClaims{PageKey: "demo1"}
	_, err = gate.FetchPage("demo1", claims)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUpsertsAreIdempotent(t *testing.T) {
	db := NewMemoryDB()
	gate, _ := newTestGate(t, db)

	seedPageAndCode(t, db, "demo1", "demo1.html", "abc123", nil)
	require.NoError(t, db.SetPageActive("demo1", false))

	// Reseeding updates the template and reactivates the page.
	_, err := db.UpsertPage("demo1", "demo1_v2.html")
	require.NoError(t, err)

	// Reseeding the same fingerprint is a no-op.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.UpsertCode(Fingerprint("abc123", testSalt), "demo1", &past))

	pageKey, token, err := gate.SubmitCode("abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "demo1", pageKey)

	claims, err := gate.VerifyGrant(token)
	require.NoError(t, err)
	templateRef, err := gate.FetchPage("demo1", claims)
	require.NoError(t, err)
	assert.Equal(t, "demo1_v2.html", templateRef)
}
