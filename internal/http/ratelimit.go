package http

import (
	"sync"
	"time"
)

const (
	rateLimitPerMinute = 60
	rateLimitWindow    = time.Minute
	cleanupInterval    = 5 * time.Minute
	staleClientAfter   = 10 * time.Minute
)

// rateLimiter counts requests per client IP in a fixed window. Entries for
// idle clients are dropped by a background sweep.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	stopCh  chan struct{}
}

type clientWindow struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*clientWindow),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.clients[ip]
	if !ok {
		rl.clients[ip] = &clientWindow{count: 1, windowStart: now, lastSeen: now}
		return true
	}

	cw.lastSeen = now
	if now.Sub(cw.windowStart) >= rateLimitWindow {
		cw.count = 1
		cw.windowStart = now
		return true
	}

	cw.count++
	return cw.count <= rateLimitPerMinute
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.removeStale()
		}
	}
}

func (rl *rateLimiter) removeStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleClientAfter)
	for ip, cw := range rl.clients {
		if cw.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	close(rl.stopCh)
}
