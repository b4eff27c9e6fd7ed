package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/medguard-inference-server/internal/domain"
)

// clientLimiter tracks the token bucket of one client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client IP. A cron job evicts idle
// clients.
type RateLimiter struct {
	logger     *logrus.Logger
	limit      rate.Limit
	burst      int
	idleExpiry time.Duration
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter

	cron *cron.Cron
}

// NewRateLimiter creates a limiter from the rate_limit configuration and
// registers its cleanup job. Call Start to begin cleanup.
func NewRateLimiter(cfg domain.RateLimitConfig, logger *logrus.Logger) (*RateLimiter, error) {
	idleExpiry := cfg.IdleExpiry
	if idleExpiry <= 0 {
		idleExpiry = 10 * time.Minute
	}

	rl := &RateLimiter{
		logger:     logger,
		limit:      rate.Limit(cfg.RequestsPerSecond),
		burst:      cfg.Burst,
		idleExpiry: idleExpiry,
		now:        time.Now,
		clients:    make(map[string]*clientLimiter),
		cron:       cron.New(),
	}

	schedule := cfg.CleanupSchedule
	if schedule == "" {
		schedule = "@every 5m"
	}
	if _, err := rl.cron.AddFunc(schedule, func() { rl.Cleanup() }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	return rl, nil
}

// Start runs the cleanup scheduler.
func (rl *RateLimiter) Start() {
	rl.cron.Start()
	rl.logger.WithFields(logrus.Fields{
		"requests_per_second": float64(rl.limit),
		"burst":               rl.burst,
	}).Info("Rate limiter started")
}

// Stop halts the cleanup scheduler and waits for a running job.
func (rl *RateLimiter) Stop() {
	<-rl.cron.Stop().Done()
}

// Allow reports whether clientID may make a request now.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, ok := rl.clients[clientID]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientID] = client
	}
	client.lastSeen = now

	return client.limiter.AllowN(now, 1)
}

// Cleanup evicts clients idle for longer than the expiry and returns how
// many were removed.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleExpiry)
	removed := 0
	for id, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, id)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(rl.clients),
		}).Debug("Evicted idle rate limit clients")
	}
	return removed
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()
		if !rl.Allow(clientID) {
			rl.logger.WithFields(logrus.Fields{
				"client_ip":      clientID,
				"correlation_id": GetCorrelationID(c),
			}).Warn("Rate limit exceeded")

			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
				domain.ErrCodeRateLimit, "Too many requests", "", GetCorrelationID(c)))
			return
		}
		c.Next()
	}
}
