package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"threadmail/utils"
)

// visitor tracks one client IP's limiter and last activity.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits each client IP to requests per duration. Threading a
// large folder is expensive enough that an unauthenticated loop hammering
// the API would otherwise turn into IMAP load.
func RateLimiter(requests int, duration time.Duration) fiber.Handler {
	var (
		visitors = make(map[string]*visitor)
		mu       sync.Mutex
	)

	// Drop idle entries so the map doesn't grow with every IP ever seen.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			for ip, v := range visitors {
				if time.Since(v.lastSeen) > 10*time.Minute {
					delete(visitors, ip)
				}
			}
			mu.Unlock()
		}
	}()

	interval := rate.Every(duration / time.Duration(requests))

	return func(c *fiber.Ctx) error {
		ip := c.IP()

		mu.Lock()
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(interval, requests)}
			visitors[ip] = v
		}
		v.lastSeen = time.Now()
		mu.Unlock()

		if !v.limiter.Allow() {
			utils.Log.Debug("rate limit hit for %s", ip)
			return utils.NewAppError(fiber.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
		}
		return c.Next()
	}
}
