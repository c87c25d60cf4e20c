// Package ratelimit throttles dashboard clients with a per-key token
// bucket. The dashboard is read-heavy and memoized, so the bucket is
// generous for section reads; a force refresh costs extra because it
// drops the whole cache and triggers a full backend re-fetch.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rag-monitor/dashboard/pkg/logger"
)

const refreshCost = 10

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  int
	refillRate time.Duration
	stop       chan struct{}
}

// New builds a limiter allowing perMinute requests per client key,
// refilled continuously.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 240
	}

	l := &Limiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  perMinute,
		refillRate: time.Minute / time.Duration(perMinute),
		stop:       make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Middleware keys buckets by client IP. Refresh requests drain more
// tokens than reads.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cost := 1
		if c.Method() == fiber.MethodPost {
			cost = refreshCost
		}

		key := c.IP()
		if !l.allow(key, cost) {
			logger.Warn("Rate limit exceeded",
				zap.String("ip", key),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return c.Next()
	}
}

func (l *Limiter) allow(key string, cost int) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.maxTokens, lastRefill: time.Now()}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	refill := int(now.Sub(b.lastRefill) / l.refillRate)
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.maxTokens {
			b.tokens = l.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens < cost {
		return false
	}
	b.tokens -= cost
	return true
}

// cleanup drops buckets idle for over ten minutes.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for key, b := range l.buckets {
				b.mu.Lock()
				idle := now.Sub(b.lastRefill) > 10*time.Minute
				b.mu.Unlock()
				if idle {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *Limiter) Stop() {
	close(l.stop)
}
