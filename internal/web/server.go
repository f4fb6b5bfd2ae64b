package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/observable"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions.
var ginModeOnce sync.Once

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Bind           string
	Port           int
	Debug          bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	// MaxRequestBodySize is the maximum request body size in bytes. Zero
	// disables the limit.
	MaxRequestBodySize int64
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:               8080,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        120 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxRequestBodySize: 10 << 20,
	}
}

// Server is the HTTP service. Every request that matches no mounted
// handler is dispatched through OnReceive.
type Server struct {
	config     ServerConfig
	logger     observability.Logger
	metrics    *Metrics
	engine     *gin.Engine
	httpServer *http.Server
	receiver   *receiver
	receive    *observable.Subject[*Request]
	send       *observable.Subject[*Request]
	addr       string
	running    bool
	mu         sync.Mutex
}

// ServerOption is a functional option for the server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(logger observability.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithServerMetrics sets the server metrics.
func WithServerMetrics(metrics *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// NewServer creates a stopped HTTP server.
func NewServer(config ServerConfig, opts ...ServerOption) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		config:  config,
		logger:  observability.NopLogger(),
		receive: observable.NewSubject[*Request](),
		send:    observable.NewSubject[*Request](),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.receiver = &receiver{
		service: "server",
		subject: s.receive,
		debug:   config.Debug,
		logger:  s.logger,
		metrics: s.metrics,
	}

	s.engine = gin.New()
	s.engine.HandleMethodNotAllowed = false
	s.engine.Use(
		recoveryMiddleware(s.logger, config.Debug),
		requestIDMiddleware(),
		loggingMiddleware(s.logger, s.metrics),
	)
	s.engine.NoRoute(s.handleRequest)

	return s
}

// OnReceive returns the subject notified with every inbound request.
func (s *Server) OnReceive() *observable.Subject[*Request] {
	return s.receive
}

// OnSend returns the subject notified after a response was written.
func (s *Server) OnSend() *observable.Subject[*Request] {
	return s.send
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Mount serves handler for GET requests on path instead of dispatching
// them. It must be called before Start.
func (s *Server) Mount(path string, handler http.Handler) {
	s.engine.GET(path, gin.WrapH(handler))
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
	}
	s.addr = ln.Addr().String()
	s.running = true

	s.logger.Info("HTTP server started",
		observability.String("address", s.addr),
		observability.Duration("read_timeout", s.config.ReadTimeout),
		observability.Duration("write_timeout", s.config.WriteTimeout),
	)

	server := s.httpServer
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", observability.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("stopping HTTP server")

	err := s.httpServer.Shutdown(ctx)
	s.running = false
	if err != nil {
		// Drop the connections still in flight so the port is free for
		// the next Start.
		if closeErr := s.httpServer.Close(); closeErr != nil {
			s.logger.Warn("failed to close HTTP server", observability.Error(closeErr))
		}
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")

	return nil
}

// handleRequest dispatches a request and writes the resulting output.
func (s *Server) handleRequest(c *gin.Context) {
	ctx := c.Request.Context()

	data, err := s.readBody(c)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.WithContext(ctx).Warn("failed to read request body", observability.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	path := c.Request.URL.Path
	if path == "" {
		path = "/"
	}

	request := NewRequest(path, &Input{
		Method:  strings.ToUpper(c.Request.Method),
		Address: c.ClientIP(),
		Headers: c.Request.Header.Clone(),
		Data:    data,
	}, nil)

	request = s.receiver.receive(ctx, request)
	s.write(c, request.Output())

	if err := s.send.NotifyAll(ctx, request); err != nil {
		s.logger.WithContext(ctx).Warn("send notification failed", observability.Error(err))
	}
}

func (s *Server) readBody(c *gin.Context) ([]byte, error) {
	body := c.Request.Body
	if body == nil {
		return nil, nil
	}
	if s.config.MaxRequestBodySize > 0 {
		body = http.MaxBytesReader(c.Writer, body, s.config.MaxRequestBodySize)
	}
	return io.ReadAll(body)
}

func (s *Server) write(c *gin.Context, out *Output) {
	header := c.Writer.Header()
	for name, values := range out.Headers {
		header[name] = append([]string(nil), values...)
	}

	code, _ := status(out)
	c.Status(code)
	if len(out.Data) > 0 {
		if _, err := c.Writer.Write(out.Data); err != nil {
			s.logger.WithContext(c.Request.Context()).Debug("failed to write response", observability.Error(err))
		}
	} else {
		c.Writer.WriteHeaderNow()
	}
}
