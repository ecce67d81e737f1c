package middleware

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter stores rate limiters keyed by route and client IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	mutex    sync.RWMutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

// GetLimiter returns a limiter for a composite key with the given limits
func (rl *RateLimiter) GetLimiter(key string, limit rate.Limit, burst int) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = time.Now()
	return limiter
}

// Cleanup removes old limiters to prevent memory leaks
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, t := range rl.lastSeen {
		if now.Sub(t) > time.Hour {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
		}
	}
}

var globalRateLimiter = NewRateLimiter()

// RateLimitMiddleware implements per-route rate limiting
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		clientIP := c.ClientIP()
		key := path + "|" + clientIP

		// Location pings and worker polling run much hotter than the rest
		// of the API, so they get their own limits
		var lim rate.Limit
		var burst int
		switch {
		case strings.HasPrefix(path, "/api/v1/ws"):
			lim = rate.Every(time.Second)
			burst = 5
		case strings.HasPrefix(path, "/api/v1/location"):
			lim = rate.Every(time.Second)
			burst = 10
		case c.Request.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/worker"):
			lim = rate.Every(time.Second)
			burst = 5
		default:
			lim = rate.Every(time.Minute / 30) // 30 req/min
			burst = 20
		}

		limiter := globalRateLimiter.GetLimiter(key, lim, burst)

		if !limiter.Allow() {
			log.Printf("🚫 Rate limit exceeded for %s %s from %s", c.Request.Method, path, clientIP)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     "Too many requests. Please try again later.",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthRateLimitMiddleware implements stricter rate limiting for auth endpoints
func AuthRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		key := "auth|" + clientIP

		limiter := globalRateLimiter.GetLimiter(key, rate.Every(time.Minute/5), 5)

		if !limiter.Allow() {
			log.Printf("🚫 Auth rate limit exceeded for IP: %s", clientIP)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Authentication rate limit exceeded",
				"message":     "Too many authentication attempts. Please try again later.",
				"retry_after": 300,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Server", "")

		c.Next()
	}
}

// InputValidationMiddleware validates request size and content type
func InputValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > 1*1024*1024 { // 1MB limit
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "Request too large",
				"message": "Request body exceeds maximum size limit",
			})
			c.Abort()
			return
		}

		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			contentType := c.GetHeader("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{
					"error":   "Invalid content type",
					"message": "Content-Type must be application/json",
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// AuditLogMiddleware logs request outcomes
func AuditLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		if status >= 400 {
			log.Printf("⚠️ AUDIT: %s %s returned %d in %v", c.Request.Method, c.Request.URL.Path, status, duration)
		}
	}
}
