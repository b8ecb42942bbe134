// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides gin middleware for the routing service.
package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig parameterizes a per-client rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per client.
	RequestsPerMinute int

	// Burst is how many requests a client may make at once. Zero defaults
	// to RequestsPerMinute.
	Burst int

	// IdleTTL controls when an inactive client's limiter is dropped.
	IdleTTL time.Duration
}

// clientLimiter pairs a token bucket with its last use, for pruning.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-memory per-client-IP token bucket.
//
// Not suitable for distributed deployment: each replica keeps its own
// buckets, so the effective limit scales with replica count. Good enough for
// a single-node library.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

// NewRateLimiter builds a limiter from config, applying defaults for zero
// fields (10 requests per minute, matching burst, 10 minute idle TTL).
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = rpm
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(rpm) / 60.0),
		burst:   burst,
		idleTTL: idleTTL,
	}
}

// Allow reports whether the client may proceed, creating its bucket on first
// sight. Stale buckets are pruned opportunistically.
func (rl *RateLimiter) Allow(clientKey string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[clientKey]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientKey] = client
	}
	client.lastSeen = now

	if len(rl.clients) > 1024 {
		rl.prune(now)
	}

	return client.limiter.Allow()
}

// prune drops buckets idle past the TTL. Caller holds the lock.
func (rl *RateLimiter) prune(now time.Time) {
	for key, client := range rl.clients {
		if now.Sub(client.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
		}
	}
}

// RateLimit returns gin middleware enforcing the per-client limit. Over-limit
// requests get a 429 with a retry hint.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !rl.Allow(key) {
			slog.Warn("Rate limit exceeded", "client", key, "path", c.Request.URL.Path)
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, try again shortly",
			})
			return
		}
		c.Next()
	}
}
