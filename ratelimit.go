package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore counts failed code submissions per client address over a
// fixed window. A successful submission never resets the counter: one lucky
// hit inside a flood must not clear the history.
type AttemptStore interface {
	// Allow reports whether the client may attempt another submission.
	Allow(clientKey string) bool
	// RecordFailure counts one failed submission against the client.
	RecordFailure(clientKey string)
}

type attemptWindow struct {
	count       int
	windowStart time.Time
}

// MemoryAttemptStore is the process-local implementation. Counters are lost
// on restart and not shared across instances; it is a defense-in-depth
// throttle, not a security boundary.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	windows  map[string]*attemptWindow
	maxTries int
	window   time.Duration
	now      func() time.Time
}

func NewMemoryAttemptStore(maxTries int, window time.Duration, now func() time.Time) *MemoryAttemptStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryAttemptStore{
		windows:  make(map[string]*attemptWindow),
		maxTries: maxTries,
		window:   window,
		now:      now,
	}
}

func (s *MemoryAttemptStore) Allow(clientKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[clientKey]
	if !ok {
		return true
	}
	if s.now().Sub(w.windowStart) >= s.window {
		delete(s.windows, clientKey)
		return true
	}
	return w.count < s.maxTries
}

func (s *MemoryAttemptStore) RecordFailure(clientKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[clientKey]
	if !ok || now.Sub(w.windowStart) >= s.window {
		s.windows[clientKey] = &attemptWindow{count: 1, windowStart: now}
		return
	}
	w.count++
}

// RedisAttemptStore shares failure counters across instances through Redis,
// for deployments where the in-process store is not enough.
type RedisAttemptStore struct {
	client   *redis.Client
	maxTries int
	window   time.Duration
}

func NewRedisAttemptStore(client *redis.Client, maxTries int, window time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, maxTries: maxTries, window: window}
}

func attemptKey(clientKey string) string {
	return fmt.Sprintf("preview_attempts:%s", clientKey)
}

func (s *RedisAttemptStore) Allow(clientKey string) bool {
	ctx := context.Background()
	count, err := s.client.Get(ctx, attemptKey(clientKey)).Int()
	if err != nil {
		// Missing key or an unreachable Redis both allow the attempt; the
		// gate still rejects bad codes, the throttle just loses precision.
		return true
	}
	return count < s.maxTries
}

func (s *RedisAttemptStore) RecordFailure(clientKey string) {
	ctx := context.Background()
	key := attemptKey(clientKey)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return
	}
	// First failure in a fresh window starts the window clock.
	if incr.Val() == 1 {
		s.client.Expire(ctx, key, s.window)
	}
}
