package main

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAttemptStore(t *testing.T) {
	tt := []struct {
		desc     string
		failures int
		advance  time.Duration
		allowed  bool
	}{
		{desc: "fresh client is allowed", failures: 0, allowed: true},
		{desc: "under the limit is allowed", failures: 9, allowed: true},
		{desc: "at the limit is denied", failures: 10, allowed: false},
		{desc: "over the limit is denied", failures: 15, allowed: false},
		{desc: "window elapse resets the counter", failures: 15, advance: 600 * time.Second, allowed: true},
	}

	for _, ts := range tt {
		t.Run(ts.desc, func(t *testing.T) {
			now := time.Date(2024, time.June, 23, 10, 15, 30, 0, time.UTC)
			store := NewMemoryAttemptStore(10, 600*time.Second, func() time.Time { return now })

			for i := 0; i < ts.failures; i++ {
				store.RecordFailure("1.2.3.4")
			}
			now = now.Add(ts.advance)

			assert.Equal(t, ts.allowed, store.Allow("1.2.3.4"))
		})
	}
}

func TestMemoryAttemptStoreIsolatesClients(t *testing.T) {
	store := NewMemoryAttemptStore(10, 600*time.Second, nil)
	for i := 0; i < 10; i++ {
		store.RecordFailure("1.2.3.4")
	}
	assert.False(t, store.Allow("1.2.3.4"))
	assert.True(t, store.Allow("5.6.7.8"))
}

func TestMemoryAttemptStoreRestartsWindowAfterElapse(t *testing.T) {
	now := time.Date(2024, time.June, 23, 10, 15, 30, 0, time.UTC)
	store := NewMemoryAttemptStore(10, 600*time.Second, func() time.Time { return now })

	for i := 0; i < 10; i++ {
		store.RecordFailure("1.2.3.4")
	}
	assert.False(t, store.Allow("1.2.3.4"))

	// A failure after the window elapsed starts a fresh window at count 1.
	now = now.Add(601 * time.Second)
	store.RecordFailure("1.2.3.4")
	assert.True(t, store.Allow("1.2.3.4"))
}

func TestRedisAttemptStore(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	store := NewRedisAttemptStore(client, 10, 600*time.Second)

	assert.True(t, store.Allow("1.2.3.4"))
	for i := 0; i < 10; i++ {
		store.RecordFailure("1.2.3.4")
	}
	assert.False(t, store.Allow("1.2.3.4"))
	assert.True(t, store.Allow("5.6.7.8"))

	server.FastForward(601 * time.Second)
	assert.True(t, store.Allow("1.2.3.4"))
}
