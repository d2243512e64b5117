package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	rateWindow   = time.Minute
	sweepEvery   = 5 * time.Minute
	staleEntries = 2 * time.Minute
)

// windowEntry tracks the request count of one client in the current window.
type windowEntry struct {
	count     int
	timestamp time.Time
}

// RateLimiter returns a middleware that allows at most maxRequests per minute
// per client IP. A non-positive maxRequests disables limiting.
func RateLimiter(maxRequests int) gin.HandlerFunc {
	if maxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var mu sync.Mutex
	clients := make(map[string]*windowEntry)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > sweepEvery {
			for k, e := range clients {
				if now.Sub(e.timestamp) > staleEntries {
					delete(clients, k)
				}
			}
			lastSweep = now
		}

		entry, exists := clients[ip]
		if !exists || now.Sub(entry.timestamp) > rateWindow {
			clients[ip] = &windowEntry{count: 1, timestamp: now}
			mu.Unlock()
			c.Next()
			return
		}

		if entry.count >= maxRequests {
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Maximum %d requests per minute.", maxRequests),
			})
			return
		}

		entry.count++
		mu.Unlock()
		c.Next()
	}
}
