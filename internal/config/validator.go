package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rafaelDom/TestJuridoc/internal/util"
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
)

// Validator validates configuration.
type Validator struct {
	errors *util.ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a configuration.
func ValidateConfig(config *Config) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration. The returned error is a
// *util.ValidationError keyed by field path.
func (v *Validator) Validate(config *Config) error {
	v.errors = util.NewValidationError("invalid configuration")

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&config.Server)
	v.validateSocket(&config.Socket)
	v.validateRouting(&config.Routing)
	v.validateFiles(&config.Files)
	v.validateFilters(&config.Filters)
	v.validateObservability(&config.Observability, config.Server.Port)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(server *ServerConfig) {
	if server.Port < 0 || server.Port > 65535 {
		v.addError("server.port", "port must be between 0 and 65535")
	}

	timeouts := map[string]Duration{
		"server.readTimeout":     server.ReadTimeout,
		"server.writeTimeout":    server.WriteTimeout,
		"server.idleTimeout":     server.IdleTimeout,
		"server.shutdownTimeout": server.ShutdownTimeout,
	}
	for field, timeout := range timeouts {
		if timeout < 0 {
			v.addError(field, "timeout cannot be negative")
		}
	}

	if server.MaxHeaderBytes < 0 {
		v.addError("server.maxHeaderBytes", "maxHeaderBytes cannot be negative")
	}
	if server.MaxRequestBodySize < 0 {
		v.addError("server.maxRequestBodySize", "maxRequestBodySize cannot be negative")
	}
}

func (v *Validator) validateSocket(socket *SocketConfig) {
	if !socket.Enabled {
		return
	}
	if !strings.HasPrefix(socket.Path, "/") {
		v.addError("socket.path", "path must start with '/'")
	}
	if socket.ReadLimit < 0 {
		v.addError("socket.readLimit", "readLimit cannot be negative")
	}
	if socket.WriteTimeout < 0 {
		v.addError("socket.writeTimeout", "timeout cannot be negative")
	}
}

func (v *Validator) validateRouting(routing *RoutingConfig) {
	if routing.Separator == "" {
		v.addError("routing.separator", "separator is required")
	}
	if routing.Variable == "" {
		v.addError("routing.variable", "variable pattern is required")
		return
	}
	if _, err := regexp.Compile(routing.Variable); err != nil {
		v.addError("routing.variable", fmt.Sprintf("invalid pattern: %v", err))
	}
}

func (v *Validator) validateFiles(files *FilesConfig) {
	if !files.Enabled {
		return
	}
	if files.Directory == "" {
		v.addError("files.directory", "directory is required")
	}
	if files.Index == "" {
		v.addError("files.index", "index is required")
	}
	for ext, contentType := range files.Types {
		field := "files.types." + ext
		if ext == "" || strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
			v.addError(field, "extension must be lowercase without a leading dot")
		}
		if contentType == "" {
			v.addError(field, "content type is required")
		}
	}
}

func (v *Validator) validateFilters(filters *FiltersConfig) {
	if rl := filters.RateLimit; rl != nil && rl.Enabled {
		if rl.Path != "" && !strings.HasPrefix(rl.Path, "/") {
			v.addError("filters.rateLimit.path", "path must start with '/'")
		}
		if rl.RequestsPerSecond <= 0 {
			v.addError("filters.rateLimit.requestsPerSecond", "requestsPerSecond must be positive")
		}
		if rl.Burst <= 0 {
			v.addError("filters.rateLimit.burst", "burst must be positive")
		}
		if rl.ClientTTL < 0 {
			v.addError("filters.rateLimit.clientTTL", "clientTTL cannot be negative")
		}
		if rl.Redis != nil {
			v.validateRedis(rl.Redis)
		}
	}

	seen := make(map[string]bool, len(filters.Expressions))
	for i, expr := range filters.Expressions {
		prefix := fmt.Sprintf("filters.expressions[%d]", i)
		if !strings.HasPrefix(expr.Path, "/") {
			v.addError(prefix+".path", "path must start with '/'")
		} else if seen[expr.Path] {
			v.addError(prefix+".path", "path is already filtered by another expression")
		}
		seen[expr.Path] = true
		if strings.TrimSpace(expr.Expression) == "" {
			v.addError(prefix+".expression", "expression is required")
		}
		for name, pattern := range expr.Constraints {
			if _, err := regexp.Compile(pattern); err != nil {
				v.addError(prefix+".constraints."+name, fmt.Sprintf("invalid pattern: %v", err))
			}
		}
	}
}

func (v *Validator) validateRedis(redis *RedisConfig) {
	const prefix = "filters.rateLimit.redis"
	if redis.Address == "" {
		v.addError(prefix+".address", "address is required")
	}
	if redis.DB < 0 {
		v.addError(prefix+".db", "db cannot be negative")
	}
	if redis.Timeout < 0 {
		v.addError(prefix+".timeout", "timeout cannot be negative")
	}
	if redis.FailureThreshold < 0 {
		v.addError(prefix+".failureThreshold", "failureThreshold cannot be negative")
	}
	if redis.OpenTimeout < 0 {
		v.addError(prefix+".openTimeout", "openTimeout cannot be negative")
	}
}

func (v *Validator) validateObservability(obs *ObservabilityConfig, serverPort int) {
	if obs.Logging.Level != "" && !validLogLevels[obs.Logging.Level] {
		v.addError("observability.logging.level", "level must be one of debug, info, warn, error")
	}
	if obs.Logging.Format != "" && !validLogFormats[obs.Logging.Format] {
		v.addError("observability.logging.format", "format must be json or console")
	}

	if m := obs.Metrics; m != nil && m.Enabled {
		if m.Port < 0 || m.Port > 65535 {
			v.addError("observability.metrics.port", "port must be between 0 and 65535")
		} else if m.Port != 0 && m.Port == serverPort {
			v.addError("observability.metrics.port", "port conflicts with server.port")
		}
		if m.Path != "" && !strings.HasPrefix(m.Path, "/") {
			v.addError("observability.metrics.path", "path must start with '/'")
		}
	}

	if tr := obs.Tracing; tr != nil && tr.Enabled {
		if tr.SamplingRate < 0 || tr.SamplingRate > 1 {
			v.addError("observability.tracing.samplingRate", "samplingRate must be between 0 and 1")
		}
	}
}

func (v *Validator) addError(path, message string) {
	if path == "" {
		v.errors.Message = message
		v.errors.AddField("config", message)
		return
	}
	v.errors.AddField(path, message)
}
