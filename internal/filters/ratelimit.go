package filters

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/util"
	"github.com/rafaelDom/TestJuridoc/internal/web"
)

// Rate limiter default configuration constants.
const (
	// DefaultClientTTL is the default TTL for client bucket entries.
	DefaultClientTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval for cleanup operations.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval for cleanup operations.
	MaxCleanupInterval = time.Minute
)

// RateLimitSettings configures the rate limit filter.
type RateLimitSettings struct {
	RequestsPerSecond float64
	Burst             int
	// PerClient keeps one bucket per client address instead of a shared one.
	PerClient bool
	ClientTTL time.Duration
	// Redis shares the buckets between instances. The local buckets
	// answer while Redis is unreachable.
	Redis *RedisSettings
}

// clientEntry holds a bucket and its last access time for TTL-based cleanup.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimit is the token bucket filter.
type RateLimit struct {
	settings RateLimitSettings
	limiter  *rate.Limiter
	clients  map[string]*clientEntry
	redis    *redisBucket
	logger   observability.Logger
	metrics  *Metrics
	stopCh   chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// RateLimitType describes a RateLimit filter routed by action. Its
// constructor takes RateLimitSettings followed by options.
func RateLimitType(action application.Action) *application.Type {
	return &application.Type{
		Name: "filters.RateLimit" + action.Path,
		New: func(args ...any) (any, error) {
			settings, opts, err := splitArgs[RateLimitSettings]("filters.rateLimit", args)
			if err != nil {
				return nil, err
			}
			rl, err := NewRateLimit(settings, opts...)
			if err != nil {
				return nil, err
			}
			rl.StartAutoCleanup()
			return rl, nil
		},
		Routes: []application.Declaration{
			application.Filter("Allow", action),
		},
	}
}

// NewRateLimit creates a rate limit filter.
func NewRateLimit(settings RateLimitSettings, opts ...Option) (*RateLimit, error) {
	if settings.RequestsPerSecond <= 0 {
		return nil, util.NewConfigError("filters.rateLimit.requestsPerSecond", "must be positive")
	}
	if settings.Burst <= 0 {
		return nil, util.NewConfigError("filters.rateLimit.burst", "must be positive")
	}
	if settings.ClientTTL <= 0 {
		settings.ClientTTL = DefaultClientTTL
	}

	o := newOptions(opts)

	rl := &RateLimit{
		settings: settings,
		limiter:  rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), settings.Burst),
		clients:  make(map[string]*clientEntry),
		logger:   o.logger,
		metrics:  o.metrics,
		stopCh:   make(chan struct{}),
	}

	if settings.Redis != nil {
		bucket, err := newRedisBucket(*settings.Redis, settings.RequestsPerSecond, settings.Burst, o.logger)
		if err != nil {
			return nil, err
		}
		rl.redis = bucket
	}

	return rl, nil
}

// Allow is the filter method. A denied request is answered with 429 and
// a Retry-After header.
func (rl *RateLimit) Allow(ctx context.Context, m *web.Match) (bool, error) {
	request := m.Detail()
	address := request.Input().Address

	granted := rl.take(ctx, address)
	rl.metrics.observeDecision(filterRateLimit, decisionOf(granted))
	if granted {
		return true, nil
	}

	rl.logger.WithContext(ctx).Warn("rate limit exceeded",
		observability.String("client_ip", address),
		observability.String("path", request.Path()),
	)

	out := request.Output()
	web.SetHeader(out, "Retry-After", strconv.Itoa(rl.retryAfter()))
	if err := web.SetStatusJSON(out, http.StatusTooManyRequests, "rate limit exceeded"); err != nil {
		return false, err
	}
	return false, nil
}

// take takes a token from Redis when configured, or from the local bucket.
func (rl *RateLimit) take(ctx context.Context, address string) bool {
	if rl.redis == nil {
		return rl.AllowClient(address)
	}

	key := sharedBucketKey
	if rl.settings.PerClient {
		key = "client:" + address
	}

	granted, err := rl.redis.take(ctx, key)
	if err == nil {
		return granted
	}

	rl.metrics.incStoreErrors()
	if !isBreakerRejection(err) {
		rl.logger.WithContext(ctx).Warn("redis rate limit failed, using local bucket",
			observability.Error(err),
		)
	}
	return rl.AllowClient(address)
}

// AllowClient takes a token for address from the local buckets.
func (rl *RateLimit) AllowClient(address string) bool {
	if !rl.settings.PerClient {
		return rl.limiter.Allow()
	}

	now := time.Now()

	rl.mu.Lock()
	entry, exists := rl.clients[address]
	if !exists {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.settings.RequestsPerSecond), rl.settings.Burst),
		}
		rl.clients[address] = entry
		rl.metrics.addClients(1)
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// retryAfter returns the seconds until one token is available again.
func (rl *RateLimit) retryAfter() int {
	return max(1, int(math.Ceil(1/rl.settings.RequestsPerSecond)))
}

// Clients returns the number of client buckets.
func (rl *RateLimit) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// CleanupOldClients removes client buckets not used within maxAge.
func (rl *RateLimit) CleanupOldClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0
	for address, entry := range rl.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.clients, address)
			removed++
		}
	}

	if removed > 0 {
		rl.metrics.addClients(-removed)
		rl.logger.Debug("cleaned up expired rate limit entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.clients)),
		)
	}
}

// StartAutoCleanup periodically removes client buckets older than the
// client TTL until Stop is called. It does nothing for a shared bucket.
func (rl *RateLimit) StartAutoCleanup() {
	rl.mu.Lock()
	if rl.stopped || !rl.settings.PerClient {
		rl.mu.Unlock()
		return
	}
	rl.mu.Unlock()

	interval := min(max(rl.settings.ClientTTL/2, MinCleanupInterval), MaxCleanupInterval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(rl.settings.ClientTTL)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup goroutine and closes the Redis client.
func (rl *RateLimit) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.stopped {
		return
	}
	rl.stopped = true
	close(rl.stopCh)

	if rl.redis != nil {
		if err := rl.redis.close(); err != nil {
			rl.logger.Warn("failed to close redis client", observability.Error(err))
		}
	}
}
