package config

import "time"

// Config is the root configuration of the juridoc back end.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Socket        SocketConfig        `yaml:"socket" json:"socket"`
	Routing       RoutingConfig       `yaml:"routing" json:"routing"`
	Files         FilesConfig         `yaml:"files" json:"files"`
	Filters       FiltersConfig       `yaml:"filters" json:"filters"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Bind               string   `yaml:"bind,omitempty" json:"bind,omitempty"`
	Port               int      `yaml:"port" json:"port"`
	Debug              bool     `yaml:"debug,omitempty" json:"debug,omitempty"`
	ReadTimeout        Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout       Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout        Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout    Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	MaxHeaderBytes     int      `yaml:"maxHeaderBytes,omitempty" json:"maxHeaderBytes,omitempty"`
	MaxRequestBodySize int64    `yaml:"maxRequestBodySize,omitempty" json:"maxRequestBodySize,omitempty"`
}

// SocketConfig configures the WebSocket endpoint mounted on the server.
type SocketConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	Path           string   `yaml:"path,omitempty" json:"path,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty" json:"allowedOrigins,omitempty"`
	ReadLimit      int64    `yaml:"readLimit,omitempty" json:"readLimit,omitempty"`
	WriteTimeout   Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
}

// RoutingConfig configures path tokenization.
type RoutingConfig struct {
	Separator string `yaml:"separator,omitempty" json:"separator,omitempty"`
	Variable  string `yaml:"variable,omitempty" json:"variable,omitempty"`
}

// FilesConfig configures the static file handler. When disabled the
// JSON handler answers instead.
type FilesConfig struct {
	Enabled   bool              `yaml:"enabled" json:"enabled"`
	Directory string            `yaml:"directory,omitempty" json:"directory,omitempty"`
	Index     string            `yaml:"index,omitempty" json:"index,omitempty"`
	Strict    bool              `yaml:"strict,omitempty" json:"strict,omitempty"`
	Types     map[string]string `yaml:"types,omitempty" json:"types,omitempty"`
}

// FiltersConfig configures the request filters.
type FiltersConfig struct {
	RateLimit   *RateLimitConfig   `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	Expressions []ExpressionConfig `yaml:"expressions,omitempty" json:"expressions,omitempty"`
}

// RateLimitConfig configures the token bucket filter.
type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled" json:"enabled"`
	Path              string   `yaml:"path,omitempty" json:"path,omitempty"`
	RequestsPerSecond float64  `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int      `yaml:"burst" json:"burst"`
	PerClient         bool     `yaml:"perClient,omitempty" json:"perClient,omitempty"`
	ClientTTL         Duration `yaml:"clientTTL,omitempty" json:"clientTTL,omitempty"`

	// Redis shares the buckets between instances when set.
	Redis *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisConfig configures the Redis bucket store of the rate limit filter.
type RedisConfig struct {
	Address          string   `yaml:"address" json:"address"`
	Password         string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB               int      `yaml:"db,omitempty" json:"db,omitempty"`
	Prefix           string   `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Timeout          Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	FailureThreshold int      `yaml:"failureThreshold,omitempty" json:"failureThreshold,omitempty"`
	OpenTimeout      Duration `yaml:"openTimeout,omitempty" json:"openTimeout,omitempty"`
}

// ExpressionConfig configures one CEL filter. Variables in Path are
// exposed to the expression; Constraints restricts them with regular
// expressions.
type ExpressionConfig struct {
	Path        string            `yaml:"path" json:"path"`
	Exact       *bool             `yaml:"exact,omitempty" json:"exact,omitempty"`
	Constraints map[string]string `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Expression  string            `yaml:"expression" json:"expression"`
	Message     string            `yaml:"message,omitempty" json:"message,omitempty"`
}

// ObservabilityConfig configures logging, metrics and tracing.
type ObservabilityConfig struct {
	Logging LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing *TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Bind      string `yaml:"bind,omitempty" json:"bind,omitempty"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Endpoint     string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// Default values.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultSocketPath      = "/ws"
	DefaultDirectory       = "./frontend/public/"
	DefaultIndex           = "index.html"
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
)

// DefaultTypes returns the content types served by the file handler.
func DefaultTypes() map[string]string {
	return map[string]string{
		"html":  "text/html; charset=utf-8",
		"css":   "text/css; charset=utf-8",
		"js":    "text/javascript; charset=utf-8",
		"json":  "application/json",
		"jpg":   "image/jpeg",
		"png":   "image/png",
		"svg":   "image/svg+xml",
		"ico":   "image/x-icon",
		"woff":  "font/woff",
		"woff2": "font/woff2",
		"eot":   "application/vnd.ms-fontobject",
		"ttf":   "font/ttf",
	}
}

// DefaultConfig returns a configuration serving ./frontend/public/ on
// port 8080.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               DefaultPort,
			Debug:              true,
			ReadTimeout:        Duration(DefaultReadTimeout),
			WriteTimeout:       Duration(DefaultWriteTimeout),
			IdleTimeout:        Duration(DefaultIdleTimeout),
			ShutdownTimeout:    Duration(DefaultShutdownTimeout),
			MaxHeaderBytes:     1 << 20,
			MaxRequestBodySize: 10 << 20,
		},
		Socket: SocketConfig{
			Path:         DefaultSocketPath,
			ReadLimit:    1 << 20,
			WriteTimeout: Duration(10 * time.Second),
		},
		Routing: RoutingConfig{
			Separator: "/",
			Variable:  `^\{([a-z_0-9]+)\}$`,
		},
		Files: FilesConfig{
			Enabled:   true,
			Directory: DefaultDirectory,
			Index:     DefaultIndex,
			Strict:    true,
			Types:     DefaultTypes(),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
	}
}
