// Package ratelimit implements the per-IP login attempt limiter: a token
// bucket of 10 attempts per IP that refills one attempt every 6 seconds
// (10 per minute), pruned opportunistically. It is not a fixed one-minute
// window: once an IP is blocked, it gets a new attempt after 6 seconds,
// not at the end of the minute.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	window = time.Minute
	burst  = 10
)

// IPLimiter tracks one token bucket per client IP. Entries are pruned
// opportunistically on Allow so the map never grows unbounded under a
// sustained attack from many distinct addresses.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func New() *IPLimiter {
	return &IPLimiter{limiters: make(map[string]*entry)}
}

// Allow reports whether the given IP has a token left for another attempt,
// consuming one if so.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked()

	e, ok := l.limiters[ip]
	if !ok {
		// burst tokens available immediately, refilling at burst/window so
		// sustained abuse settles back to the 10-per-minute cap.
		e = &entry{limiter: rate.NewLimiter(rate.Every(window/burst), burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// pruneLocked drops entries that haven't been touched in over a window;
// must be called with mu held.
func (l *IPLimiter) pruneLocked() {
	cutoff := time.Now().Add(-window)
	for ip, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}
