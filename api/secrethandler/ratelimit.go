package secrethandler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultLimiterTTL = 10 * time.Minute

// callerLimiter keeps one token bucket per caller identity and forgets buckets
// that have been idle for longer than ttl. Idle buckets are swept at most once
// per ttl, so a bucket lives for less than 2*ttl after its last use.
type callerLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]*limBucket
	lastSweep time.Time
}

type limBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newCallerLimiter(limit rate.Limit, burst int, ttl time.Duration) *callerLimiter {
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = defaultLimiterTTL
	}
	return &callerLimiter{
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*limBucket),
	}
}

func (m *callerLimiter) allow(key string) bool {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.entries[key]
	if b == nil {
		b = &limBucket{lim: rate.NewLimiter(m.limit, m.burst), lastSeen: now}
		m.entries[key] = b
	}
	b.lastSeen = now

	if now.Sub(m.lastSweep) >= m.ttl {
		m.sweepLocked(now)
	}
	return b.lim.AllowN(now, 1)
}

func (m *callerLimiter) sweepLocked(now time.Time) {
	for k, v := range m.entries {
		if now.Sub(v.lastSeen) > m.ttl {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}

func (m *callerLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
