package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const visitorIdle = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Visitors hands out one token bucket per client IP.
type Visitors struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewVisitors creates an empty set of per-IP limiters.
func NewVisitors(rps float64, burst int) *Visitors {
	return &Visitors{rps: rate.Limit(rps), burst: burst, visitors: make(map[string]*visitor)}
}

// Get returns the limiter for ip, creating it on first sight.
func (v *Visitors) Get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, ok := v.visitors[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.visitors[ip] = vis
	}
	vis.lastSeen = time.Now()
	return vis.limiter
}

// Sweep forgets visitors idle for longer than idle.
func (v *Visitors) Sweep(idle time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for ip, vis := range v.visitors {
		if time.Since(vis.lastSeen) > idle {
			delete(v.visitors, ip)
		}
	}
}

// Len returns the number of tracked visitors.
func (v *Visitors) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.visitors)
}

// RunCleanup sweeps idle visitors every minute until ctx ends.
func (v *Visitors) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Sweep(visitorIdle)
		}
	}
}

// RateLimit rejects requests from a client IP beyond its token bucket.
func RateLimit(v *Visitors) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !v.Get(c.IP()).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests",
			})
		}
		return c.Next()
	}
}
