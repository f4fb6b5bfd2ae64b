package filters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// Redis bucket default configuration constants.
const (
	// DefaultRedisPrefix is prepended to every bucket key.
	DefaultRedisPrefix = "juridoc:ratelimit:"

	// DefaultRedisTimeout bounds one bucket operation.
	DefaultRedisTimeout = 100 * time.Millisecond

	// DefaultFailureThreshold is the number of consecutive failures that
	// opens the breaker.
	DefaultFailureThreshold = 5

	// DefaultOpenTimeout is how long the breaker stays open.
	DefaultOpenTimeout = 30 * time.Second

	sharedBucketKey = "shared"
)

// RedisSettings configures a bucket shared by several instances through Redis.
type RedisSettings struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration

	FailureThreshold int
	OpenTimeout      time.Duration
}

// tokenBucketScript refills and takes one token atomically.
// Returns: allowed (0 or 1), remaining tokens, reset time in ms
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1])
	local last_update = tonumber(data[2])

	if tokens == nil then
		tokens = burst
		last_update = now
	end

	local elapsed = math.max(0, now - last_update) / 1000.0
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, math.ceil(burst / rate) + 1)

	local reset_ms = math.ceil((burst - tokens) / rate * 1000)

	return {allowed, math.floor(tokens), reset_ms}
`)

// redisBucket is a token bucket stored in Redis and guarded by a circuit
// breaker.
type redisBucket struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	prefix  string
	timeout time.Duration
	rate    float64
	burst   int
	logger  observability.Logger
}

func newRedisBucket(
	settings RedisSettings,
	rate float64,
	burst int,
	logger observability.Logger,
) (*redisBucket, error) {
	if settings.Address == "" {
		return nil, util.NewConfigError("filters.rateLimit.redis.address", "address is required")
	}
	if settings.Prefix == "" {
		settings.Prefix = DefaultRedisPrefix
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultRedisTimeout
	}
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = DefaultFailureThreshold
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultOpenTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         settings.Address,
		Password:     settings.Password,
		DB:           settings.DB,
		DialTimeout:  settings.Timeout,
		ReadTimeout:  settings.Timeout,
		WriteTimeout: settings.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), settings.Timeout*10)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", settings.Address, err)
	}

	threshold := uint32(settings.FailureThreshold) //nolint:gosec // positive, checked above

	b := &redisBucket{
		client:  client,
		prefix:  settings.Prefix,
		timeout: settings.Timeout,
		rate:    rate,
		burst:   burst,
		logger:  logger,
	}

	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis:" + settings.Address,
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})

	return b, nil
}

// take takes one token from the bucket under key. It fails fast while the
// breaker is open.
func (b *redisBucket) take(ctx context.Context, key string) (bool, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()

		return tokenBucketScript.Run(ctx, b.client,
			[]string{b.prefix + key},
			b.rate,
			b.burst,
			time.Now().UnixMilli(),
		).Result()
	})
	if err != nil {
		return false, err
	}

	return parseScriptResult(result)
}

// open reports whether the breaker rejects calls.
func (b *redisBucket) open() bool {
	return b.breaker.State() == gobreaker.StateOpen
}

func (b *redisBucket) close() error {
	return b.client.Close()
}

func parseScriptResult(result interface{}) (bool, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) < 3 {
		return false, fmt.Errorf("unexpected script result format: %v", result)
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result format: %v", result)
	}
	return allowed == 1, nil
}

// isBreakerRejection reports whether err comes from the breaker rather than Redis.
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
