package filters

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelDom/TestJuridoc/internal/application"
	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/util"
	"github.com/rafaelDom/TestJuridoc/internal/web"
)

func TestNewRedisBucket(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	tests := []struct {
		name     string
		settings RedisSettings
		wantErr  bool
		isConfig bool
	}{
		{name: "defaults", settings: RedisSettings{Address: mr.Addr()}},
		{name: "custom prefix", settings: RedisSettings{Address: mr.Addr(), Prefix: "docs:"}},
		{name: "missing address", wantErr: true, isConfig: true},
		{
			name:     "unreachable",
			settings: RedisSettings{Address: "127.0.0.1:1", Timeout: 10 * time.Millisecond},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bucket, err := newRedisBucket(tt.settings, 1, 1, observability.NopLogger())
			if tt.wantErr {
				require.Error(t, err)
				if tt.isConfig {
					assert.ErrorIs(t, err, util.ErrConfigInvalid)
				}
				return
			}
			require.NoError(t, err)
			defer func() { _ = bucket.close() }()

			if tt.settings.Prefix == "" {
				assert.Equal(t, DefaultRedisPrefix, bucket.prefix)
			} else {
				assert.Equal(t, tt.settings.Prefix, bucket.prefix)
			}
			assert.Equal(t, DefaultRedisTimeout, bucket.timeout)
			assert.False(t, bucket.open())
		})
	}
}

func TestRedisBucket_Take(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	bucket, err := newRedisBucket(RedisSettings{Address: mr.Addr()}, 0.001, 2, observability.NopLogger())
	require.NoError(t, err)
	defer func() { _ = bucket.close() }()

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		granted, err := bucket.take(ctx, "a")
		require.NoError(t, err)
		assert.True(t, granted)
	}

	granted, err := bucket.take(ctx, "a")
	require.NoError(t, err)
	assert.False(t, granted)

	granted, err = bucket.take(ctx, "b")
	require.NoError(t, err)
	assert.True(t, granted, "keys have separate buckets")

	assert.True(t, mr.Exists(DefaultRedisPrefix+"a"))
	assert.Positive(t, mr.TTL(DefaultRedisPrefix+"a"))
}

func TestRedisBucket_BreakerOpens(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	bucket, err := newRedisBucket(RedisSettings{
		Address:          mr.Addr(),
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	}, 1, 1, observability.NopLogger())
	require.NoError(t, err)
	defer func() { _ = bucket.close() }()

	mr.Close()

	for i := 0; i < 2; i++ {
		_, err := bucket.take(context.Background(), "a")
		require.Error(t, err)
		assert.False(t, isBreakerRejection(err))
	}

	assert.True(t, bucket.open())
	_, err = bucket.take(context.Background(), "a")
	assert.True(t, isBreakerRejection(err))
}

func TestParseScriptResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		result  interface{}
		want    bool
		wantErr bool
	}{
		{name: "allowed", result: []interface{}{int64(1), int64(0), int64(10)}, want: true},
		{name: "denied", result: []interface{}{int64(0), int64(0), int64(10)}},
		{name: "short", result: []interface{}{int64(1)}, wantErr: true},
		{name: "not a list", result: "OK", wantErr: true},
		{name: "wrong type", result: []interface{}{"1", int64(0), int64(0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseScriptResult(tt.result)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimit_RedisShared(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	settings := RateLimitSettings{
		RequestsPerSecond: 0.001,
		Burst:             2,
		Redis:             &RedisSettings{Address: mr.Addr()},
	}

	// Two instances share one bucket.
	first, err := NewRateLimit(settings)
	require.NoError(t, err)
	defer first.Stop()

	second, err := NewRateLimit(settings)
	require.NoError(t, err)
	defer second.Stop()

	ctx := context.Background()
	assert.True(t, first.take(ctx, "10.0.0.1"))
	assert.True(t, second.take(ctx, "10.0.0.2"))
	assert.False(t, first.take(ctx, "10.0.0.3"))
	assert.False(t, second.take(ctx, "10.0.0.4"))
}

func TestRateLimit_RedisPerClient(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	rl, err := NewRateLimit(RateLimitSettings{
		RequestsPerSecond: 0.001,
		Burst:             1,
		PerClient:         true,
		Redis:             &RedisSettings{Address: mr.Addr()},
	})
	require.NoError(t, err)
	defer rl.Stop()

	ctx := context.Background()
	assert.True(t, rl.take(ctx, "10.0.0.1"))
	assert.False(t, rl.take(ctx, "10.0.0.1"))
	assert.True(t, rl.take(ctx, "10.0.0.2"))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"client:10.0.0.1"))
	assert.Zero(t, rl.Clients(), "local buckets are not used while redis answers")
}

func TestRateLimit_RedisFallback(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	registry := prometheus.NewRegistry()
	metrics := NewMetrics("test", registry)

	app, handler := newFilteredApp(t,
		RateLimitType(application.Action{Path: "/"}),
		RateLimitSettings{
			RequestsPerSecond: 0.5,
			Burst:             1,
			Redis:             &RedisSettings{Address: mr.Addr(), Timeout: 20 * time.Millisecond},
		},
		WithMetrics(metrics),
	)

	mr.Close()

	out := dispatch(t, app, "/docs", &web.Input{Method: http.MethodGet, Address: "10.0.0.1"}, nil)
	assert.Equal(t, http.StatusOK, out.Status)

	out = dispatch(t, app, "/docs", &web.Input{Method: http.MethodGet, Address: "10.0.0.1"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, out.Status)

	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.storeErrors))
}

func TestNewRateLimit_RedisUnreachable(t *testing.T) {
	t.Parallel()

	_, err := NewRateLimit(RateLimitSettings{
		RequestsPerSecond: 1,
		Burst:             1,
		Redis:             &RedisSettings{Address: "127.0.0.1:1", Timeout: 10 * time.Millisecond},
	})
	assert.Error(t, err)
}
