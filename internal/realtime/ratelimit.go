package realtime

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimitConfig bounds what a single remote address may do before any session
// logic runs.
type LimitConfig struct {
	// MessagePoints is the number of messages (or connection attempts)
	// allowed per Window.
	MessagePoints int
	// Window is the rate limit window.
	Window time.Duration
	// MaxConnsPerIP caps concurrent connections from one address.
	MaxConnsPerIP int
}

// DefaultLimits mirrors the reference admission policy: 100 points per 60s
// and at most 20 concurrent connections per address.
func DefaultLimits() LimitConfig {
	return LimitConfig{
		MessagePoints: 100,
		Window:        60 * time.Second,
		MaxConnsPerIP: 20,
	}
}

func (c LimitConfig) limit() rate.Limit {
	if c.MessagePoints <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.MessagePoints) / c.Window.Seconds())
}

type ipEntry struct {
	limiter    *rate.Limiter
	conns      int
	lastAccess time.Time
}

// IPGuard is the gateway's per-remote-address admission control: a token
// bucket for connection attempts plus a concurrent connection cap. Rejection
// happens before any session resources are allocated.
type IPGuard struct {
	cfg LimitConfig

	mu      sync.Mutex
	entries map[string]*ipEntry
	stop    chan struct{}
}

// NewIPGuard creates an admission guard and starts its stale-entry cleanup
// loop.
func NewIPGuard(cfg LimitConfig) *IPGuard {
	g := &IPGuard{
		cfg:     cfg,
		entries: make(map[string]*ipEntry),
		stop:    make(chan struct{}),
	}
	go g.cleanupLoop()
	return g
}

// AllowConnect decides whether a new connection from ip may proceed. When
// rejected, retryAfter is a hint for the client.
func (g *IPGuard) AllowConnect(ip string) (ok bool, retryAfter time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.entry(ip)
	if g.cfg.MaxConnsPerIP > 0 && e.conns >= g.cfg.MaxConnsPerIP {
		return false, g.cfg.Window
	}
	if !e.limiter.Allow() {
		return false, retryAfterHint(e.limiter)
	}
	e.conns++
	return true, 0
}

// OnDisconnect releases one concurrent connection slot for ip.
func (g *IPGuard) OnDisconnect(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[ip]; ok {
		if e.conns > 0 {
			e.conns--
		}
		e.lastAccess = time.Now()
	}
}

// MessageLimiter returns a fresh per-connection limiter for inbound frames,
// sized by the same point budget as connection admission.
func (g *IPGuard) MessageLimiter() *rate.Limiter {
	return rate.NewLimiter(g.cfg.limit(), maxInt(g.cfg.MessagePoints, 1))
}

// Close stops the cleanup loop.
func (g *IPGuard) Close() {
	close(g.stop)
}

func (g *IPGuard) entry(ip string) *ipEntry {
	e, ok := g.entries[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(g.cfg.limit(), maxInt(g.cfg.MessagePoints, 1))}
		g.entries[ip] = e
	}
	e.lastAccess = time.Now()
	return e
}

func (g *IPGuard) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.cleanup()
		case <-g.stop:
			return
		}
	}
}

// cleanup drops entries with no live connections that have been idle for at
// least an hour.
func (g *IPGuard) cleanup() {
	cutoff := time.Now().Add(-time.Hour)
	g.mu.Lock()
	defer g.mu.Unlock()
	for ip, e := range g.entries {
		if e.conns == 0 && e.lastAccess.Before(cutoff) {
			delete(g.entries, ip)
		}
	}
}

func retryAfterHint(l *rate.Limiter) time.Duration {
	r := l.Reserve()
	d := r.Delay()
	r.Cancel()
	if d <= 0 || d == time.Duration(math.MaxInt64) {
		return time.Second
	}
	return d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
