package adminauth

import (
	"context"
	"math"
	"sync"
	"time"
)

// Lockout policy. These are contract values the dashboard depends on, not
// tuning knobs: the 4th recorded failure blocks the fingerprint on its next
// check, for 30 minutes.
const (
	LockoutThreshold = 4
	LockoutDuration  = 30 * time.Minute
)

// Status is the rate limiter's verdict for a fingerprint.
type Status struct {
	Allowed       bool
	Attempts      int
	IsBlocked     bool
	TimeRemaining int // seconds until an active lockout ends
}

// RateLimiter tracks consecutive failed attempts per caller fingerprint.
//
// Check applies the lockout policy and may mutate state (lazy blocking,
// expired-lockout cleanup). Peek reports the same verdict without writing,
// for the status endpoint. RecordFailure only increments; blocking is always
// decided on the next Check. Clear removes all state for the fingerprint.
type RateLimiter interface {
	Check(ctx context.Context, fingerprint string) (Status, error)
	Peek(ctx context.Context, fingerprint string) (Status, error)
	RecordFailure(ctx context.Context, fingerprint string) error
	Clear(ctx context.Context, fingerprint string) error
}

type rateLimitEntry struct {
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
	IsBlocked   bool      `json:"is_blocked"`
	BlockUntil  time.Time `json:"block_until"`
}

func (e rateLimitEntry) verdict(now time.Time) Status {
	switch {
	case e.IsBlocked && now.After(e.BlockUntil):
		return Status{Allowed: true}
	case e.IsBlocked:
		return Status{
			Attempts:      e.Attempts,
			IsBlocked:     true,
			TimeRemaining: secondsUntil(e.BlockUntil, now),
		}
	case e.Attempts >= LockoutThreshold:
		return Status{
			Attempts:      e.Attempts,
			IsBlocked:     true,
			TimeRemaining: int(LockoutDuration / time.Second),
		}
	default:
		return Status{Allowed: true, Attempts: e.Attempts}
	}
}

func secondsUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Seconds()))
}

// MemoryRateLimiter is the single-instance implementation, a mutex-guarded
// map with background sweeping of stale entries.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter constructs a MemoryRateLimiter and starts its sweeper.
func NewMemoryRateLimiter() *MemoryRateLimiter {
	l := &MemoryRateLimiter{
		entries: make(map[string]*rateLimitEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(time.Minute)
	return l
}

func (l *MemoryRateLimiter) Check(_ context.Context, fingerprint string) (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[fingerprint]
	if !ok {
		return Status{Allowed: true}, nil
	}
	now := l.now()

	if entry.IsBlocked && now.After(entry.BlockUntil) {
		delete(l.entries, fingerprint)
		return Status{Allowed: true}, nil
	}
	if !entry.IsBlocked && entry.Attempts >= LockoutThreshold {
		entry.IsBlocked = true
		entry.BlockUntil = now.Add(LockoutDuration)
	}
	return entry.verdict(now), nil
}

func (l *MemoryRateLimiter) Peek(_ context.Context, fingerprint string) (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[fingerprint]
	if !ok {
		return Status{Allowed: true}, nil
	}
	return entry.verdict(l.now()), nil
}

func (l *MemoryRateLimiter) RecordFailure(_ context.Context, fingerprint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if entry, ok := l.entries[fingerprint]; ok {
		entry.Attempts++
		entry.LastAttempt = now
		return nil
	}
	l.entries[fingerprint] = &rateLimitEntry{Attempts: 1, LastAttempt: now}
	return nil
}

func (l *MemoryRateLimiter) Clear(_ context.Context, fingerprint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, fingerprint)
	return nil
}

// Close stops the background sweeper.
func (l *MemoryRateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *MemoryRateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			for fp, entry := range l.entries {
				if entry.IsBlocked && now.After(entry.BlockUntil) {
					delete(l.entries, fp)
					continue
				}
				if !entry.IsBlocked && now.Sub(entry.LastAttempt) > LockoutDuration {
					delete(l.entries, fp)
				}
			}
			l.mu.Unlock()
		}
	}
}
