// Package ratelimit implements a per-trader token bucket with lazy
// bucket creation and a tomb.v2-supervised eviction sweep, the same
// cooperative-goroutine-lifecycle idiom the teacher uses to supervise
// its worker pool and session handlers.
package ratelimit

import (
	"sync"
	"time"

	"gopkg.in/tomb.v2"
)

// bucket is a single trader's token bucket. capacity and refill rate
// are both the configured orders-per-second, per spec.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
	lastTouch  time.Time
}

func newBucket(ratePerSecond float64) *bucket {
	now := time.Now()
	return &bucket{
		tokens:     ratePerSecond,
		capacity:   ratePerSecond,
		refillRate: ratePerSecond,
		lastRefill: now,
		lastTouch:  now,
	}
}

func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
	b.lastTouch = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *bucket) idleSince() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Since(b.lastTouch)
}

// Limiter is the per-trader token bucket map plus the background
// eviction sweep that keeps it from growing unbounded over a
// long-running process's lifetime of unique trader ids.
type Limiter struct {
	ratePerSecond float64
	bucketTTL     time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	t tomb.Tomb
}

// New returns a Limiter. Call Start to begin the eviction sweep.
func New(ratePerSecond float64, bucketTTL time.Duration) *Limiter {
	return &Limiter{
		ratePerSecond: ratePerSecond,
		bucketTTL:     bucketTTL,
		buckets:       make(map[string]*bucket),
	}
}

// Allow consumes one token for traderID, creating its bucket lazily on
// first use. Returns false if no token is currently available.
func (l *Limiter) Allow(traderID string) bool {
	return l.bucketFor(traderID).take()
}

func (l *Limiter) bucketFor(traderID string) *bucket {
	l.mu.Lock()
	b, ok := l.buckets[traderID]
	if !ok {
		b = newBucket(l.ratePerSecond)
		l.buckets[traderID] = b
	}
	l.mu.Unlock()
	return b
}

// Start launches the eviction sweep under the limiter's tomb. Stop
// with Close.
func (l *Limiter) Start() {
	l.t.Go(l.sweepLoop)
}

// Close signals the sweep loop to stop and waits for it to exit.
func (l *Limiter) Close() error {
	l.t.Kill(nil)
	return l.t.Wait()
}

func (l *Limiter) sweepLoop() error {
	interval := l.bucketTTL / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.t.Dying():
			return nil
		case <-ticker.C:
			l.evictStale()
		}
	}
}

func (l *Limiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for traderID, b := range l.buckets {
		if b.idleSince() > l.bucketTTL {
			delete(l.buckets, traderID)
		}
	}
}

// Len reports the current number of tracked buckets, for tests.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
