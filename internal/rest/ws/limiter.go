package ws

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiterEntry tracks a rate limiter and its last use time.
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimit caps connection attempts per client IP.
type IPRateLimit struct {
	limiters map[string]*ipLimiterEntry
	mu       sync.Mutex
}

func NewIPRateLimit() *IPRateLimit {
	return &IPRateLimit{
		limiters: make(map[string]*ipLimiterEntry),
	}
}

// Allow checks whether an IP may open another connection.
func (iprl *IPRateLimit) Allow(ip string) bool {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	entry, exists := iprl.limiters[ip]
	if !exists {
		// New IP: 10 connections per minute, burst of 5
		entry = &ipLimiterEntry{
			limiter: rate.NewLimiter(rate.Every(6*time.Second), 5),
		}
		iprl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// Cleanup removes limiters for IPs not seen recently.
func (iprl *IPRateLimit) Cleanup() {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	now := time.Now()
	threshold := 1 * time.Hour

	for ip, entry := range iprl.limiters {
		if now.Sub(entry.lastSeen) > threshold {
			delete(iprl.limiters, ip)
		}
	}
}
