package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// RateLimiterConfig configures the per-station token bucket
type RateLimiterConfig struct {
	// requests per second
	Rate  float64
	Burst int
	// KeyGenerator defaults to the authenticated station id
	KeyGenerator func(c *fiber.Ctx) string
	// IdleTTL drops buckets not used for this long
	IdleTTL time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:    20,
		Burst:   40,
		IdleTTL: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			id, ok := c.Locals(LocalStationID).(uuid.UUID)
			if !ok {
				return ""
			}
			return id.String()
		},
	}
}

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type RateLimiter struct {
	config  RateLimiterConfig
	buckets map[string]*bucket
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if config.Rate <= 0 {
		config.Rate = def.Rate
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.IdleTTL == 0 {
		config.IdleTTL = def.IdleTTL
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = def.KeyGenerator
	}

	rl := &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst)}
		rl.buckets[key] = b
	}
	b.lastAccess = now
	return b.limiter
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		if key == "" {
			// unauthenticated requests are rejected by Auth
			return c.Next()
		}

		now := time.Now()
		limiter := rl.limiterFor(key, now)

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))

		r := limiter.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			return domain.ErrRateLimitExceeded
		}

		remaining := int(limiter.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		return c.Next()
	}
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if now.Sub(b.lastAccess) > rl.config.IdleTTL {
			delete(rl.buckets, key)
		}
	}
}
