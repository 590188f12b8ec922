package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	RequestsPerSecond int           // Number of requests per second allowed
	BurstSize         int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up idle limiters
}

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	config   RateLimitConfig
	logger   *zap.Logger
}

// NewIPRateLimiter creates a limiter whose cleanup loop runs until ctx is done.
func NewIPRateLimiter(ctx context.Context, config RateLimitConfig, logger *zap.Logger) *IPRateLimiter {
	limiter := &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
		logger:   logger,
	}
	if config.CleanupInterval > 0 {
		go limiter.cleanupRoutine(ctx)
	}
	return limiter
}

// GetLimiter returns the rate limiter for a specific IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(i.config.RequestsPerSecond), i.config.BurstSize)
		i.limiters[ip] = limiter
	}
	return limiter
}

// Cleanup drops limiters whose bucket has refilled and returns how many were
// removed.
func (i *IPRateLimiter) Cleanup() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, limiter := range i.limiters {
		if limiter.Tokens() >= float64(i.config.BurstSize) {
			delete(i.limiters, ip)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked addresses.
func (i *IPRateLimiter) Size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

func (i *IPRateLimiter) cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(i.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := i.Cleanup(); n > 0 {
				i.logger.Debug("rate limiters cleaned up", zap.Int("removed", n))
			}
		}
	}
}

// getClientIP extracts the real client IP address from the request
func getClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ip, _, _ := strings.Cut(forwarded, ",")
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if realIP := c.GetHeader("X-Real-IP"); realIP != "" && net.ParseIP(realIP) != nil {
		return realIP
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

// RateLimitMiddleware rejects requests over the per-address limit with 429.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		if !limiter.GetLimiter(clientIP).Allow() {
			limiter.logger.Warn("rate limit exceeded",
				zap.String("ip", clientIP),
				zap.String("path", c.FullPath()))
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please slow down.",
			})
			return
		}
		c.Next()
	}
}

// Predefined rate limit configurations for different endpoint types
var (
	// StrictRateLimit for authentication endpoints
	StrictRateLimit = RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		CleanupInterval:   5 * time.Minute,
	}

	// StandardRateLimit for general API endpoints
	StandardRateLimit = RateLimitConfig{
		RequestsPerSecond: 30,
		BurstSize:         50,
		CleanupInterval:   5 * time.Minute,
	}

	// LenientRateLimit for read-only endpoints
	LenientRateLimit = RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		CleanupInterval:   5 * time.Minute,
	}
)
