// Package cache memoises pricing results keyed by their canonical input.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Cache stores string values with a time to live.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Key hashes the JSON encoding of v under prefix. Equal inputs always encode
// to the same bytes, so they share a key.
func Key(prefix string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

const (
	// DefaultMaxEntries bounds a Memory built by NewMemory.
	DefaultMaxEntries = 10000
	sweepInterval     = time.Minute
)

// Memory is a process-local Cache. Expired entries are swept from Set at most
// once per minute, and when the cache is full the entry closest to expiry is
// evicted.
type Memory struct {
	mu         sync.Mutex
	data       map[string]entry
	now        func() time.Time
	maxEntries int
	nextSweep  time.Time
}

// NewMemory returns an empty in-process cache holding up to DefaultMaxEntries.
func NewMemory() *Memory {
	return &Memory{
		data:       make(map[string]entry),
		now:        time.Now,
		maxEntries: DefaultMaxEntries,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return "", false
	}
	if e.expired(m.now()) {
		delete(m.data, key)
		return "", false
	}
	return e.value, true
}

// Set stores value; a non-positive ttl never expires.
func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(sweepInterval)
	}
	if _, exists := m.data[key]; !exists && m.maxEntries > 0 && len(m.data) >= m.maxEntries {
		m.sweep(now)
		if len(m.data) >= m.maxEntries {
			m.evictSoonest()
		}
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *Memory) sweep(now time.Time) {
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
		}
	}
}

// evictSoonest drops the entry that expires first. Entries without a ttl go
// only when nothing else is left.
func (m *Memory) evictSoonest() {
	var (
		victim string
		soon   time.Time
		found  bool
	)
	for k, e := range m.data {
		if !found {
			victim, soon, found = k, e.expiresAt, true
			continue
		}
		if e.expiresAt.IsZero() {
			continue
		}
		if soon.IsZero() || e.expiresAt.Before(soon) {
			victim, soon = k, e.expiresAt
		}
	}
	if found {
		delete(m.data, victim)
	}
}

// Len reports the number of stored entries, expired ones not yet swept included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
