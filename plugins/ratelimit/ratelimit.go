// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ratelimit wraps golang.org/x/time/rate for use from a bishop
// resource's ServiceAvailable callback (decision node B13): Allow reports
// whether a request for a given key should proceed, leaving the callback
// free to turn a "no" into a 503 with a Retry-After header.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store holds one rate.Limiter per key. The default Limiter uses an
// in-memory store with LRU eviction; a distributed deployment can supply
// its own (Redis-backed, etc.) implementation.
type Store interface {
	GetLimiter(key string, r rate.Limit, burst int) *rate.Limiter
	Cleanup(expireAfter time.Duration)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type inMemoryStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	maxKeys  int
}

func newInMemoryStore(maxKeys int) *inMemoryStore {
	if maxKeys == 0 {
		maxKeys = 10000
	}
	return &inMemoryStore{limiters: make(map[string]*limiterEntry), maxKeys: maxKeys}
}

func (s *inMemoryStore) GetLimiter(key string, r rate.Limit, burst int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[key]; ok {
		entry.lastAccess = time.Now()
		return entry.limiter
	}

	if s.maxKeys > 0 && len(s.limiters) >= s.maxKeys {
		s.evictOldest()
	}

	limiter := rate.NewLimiter(r, burst)
	s.limiters[key] = &limiterEntry{limiter: limiter, lastAccess: time.Now()}
	return limiter
}

func (s *inMemoryStore) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range s.limiters {
		if oldestKey == "" || entry.lastAccess.Before(oldestTime) {
			oldestKey, oldestTime = key, entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(s.limiters, oldestKey)
	}
}

func (s *inMemoryStore) Cleanup(expireAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for key, entry := range s.limiters {
		if now.Sub(entry.lastAccess) > expireAfter {
			delete(s.limiters, key)
		}
	}
}

// Limiter enforces a token-bucket rate per key.
type Limiter struct {
	// Rate is the number of requests allowed per second.
	Rate float64
	// Burst is the bucket capacity. Default: 2x Rate.
	Burst int
	// Store holds per-key limiters. Default: an in-memory map with LRU eviction.
	Store Store
	// MaxKeys bounds the default in-memory store. Default: 10000.
	MaxKeys int
	// CleanupInterval is how often expired limiters are swept. Default: 1 minute.
	CleanupInterval time.Duration
	// ExpireAfter is how long an idle limiter survives a sweep. Default: 3 minutes.
	ExpireAfter time.Duration

	startOnce sync.Once
	stop      chan struct{}
}

// New returns a Limiter allowing rps requests per second with the given burst.
func New(rps float64, burst int) *Limiter {
	return &Limiter{Rate: rps, Burst: burst}
}

func (l *Limiter) init() {
	l.startOnce.Do(func() {
		if l.Burst == 0 {
			l.Burst = int(l.Rate * 2)
		}
		if l.Store == nil {
			l.Store = newInMemoryStore(l.MaxKeys)
		}
		if l.CleanupInterval == 0 {
			l.CleanupInterval = time.Minute
		}
		if l.ExpireAfter == 0 {
			l.ExpireAfter = 3 * time.Minute
		}
		l.stop = make(chan struct{})
		go l.cleanupLoop()
	})
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Store.Cleanup(l.ExpireAfter)
		case <-l.stop:
			return
		}
	}
}

// Stop ends the background cleanup goroutine. Safe to call at most once.
func (l *Limiter) Stop() {
	if l.stop != nil {
		close(l.stop)
	}
}

// Allow reports whether a request for key may proceed immediately. When it
// returns false, retryAfter is how long the caller should wait before
// trying again.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.init()

	limiter := l.Store.GetLimiter(key, rate.Limit(l.Rate), l.Burst)
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return false, time.Second
	}

	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return false, delay
	}
	return true, 0
}
