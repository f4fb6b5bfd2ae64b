package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
	"github.com/rafaelDom/TestJuridoc/internal/observable"
)

// SocketConfig holds configuration for the WebSocket service.
type SocketConfig struct {
	Path  string
	Debug bool
	// ReadLimit is the maximum frame size in bytes. Zero disables the limit.
	ReadLimit    int64
	WriteTimeout time.Duration
	// AllowedOrigins restricts the Origin header of upgrade requests. An
	// empty list accepts every origin.
	AllowedOrigins []string
}

// DefaultSocketConfig returns a SocketConfig with default values.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		Path:         "/ws",
		ReadLimit:    1 << 20,
		WriteTimeout: 10 * time.Second,
	}
}

// inboundFrame is a request sent by a client.
type inboundFrame struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data,omitempty"`
}

// outboundFrame is the answer to an inbound frame.
type outboundFrame struct {
	Status  int             `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Socket is the WebSocket service. Every text frame of an upgraded
// connection is dispatched through OnReceive as a request with method
// MESSAGE, and its output is written back as a frame. Frames of one
// connection are dispatched in order.
type Socket struct {
	config   SocketConfig
	logger   observability.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader
	receiver *receiver
	receive  *observable.Subject[*Request]
	send     *observable.Subject[*Request]
	conns    map[*websocket.Conn]struct{}
	running  bool
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// SocketOption is a functional option for the socket.
type SocketOption func(*Socket)

// WithSocketLogger sets the socket logger.
func WithSocketLogger(logger observability.Logger) SocketOption {
	return func(s *Socket) {
		s.logger = logger
	}
}

// WithSocketMetrics sets the socket metrics.
func WithSocketMetrics(metrics *Metrics) SocketOption {
	return func(s *Socket) {
		s.metrics = metrics
	}
}

// NewSocket creates a stopped WebSocket service.
func NewSocket(config SocketConfig, opts ...SocketOption) *Socket {
	s := &Socket{
		config:  config,
		logger:  observability.NopLogger(),
		receive: observable.NewSubject[*Request](),
		send:    observable.NewSubject[*Request](),
		conns:   make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.receiver = &receiver{
		service: "socket",
		subject: s.receive,
		debug:   config.Debug,
		logger:  s.logger,
		metrics: s.metrics,
	}

	return s
}

// Path returns the upgrade path.
func (s *Socket) Path() string {
	return s.config.Path
}

// OnReceive returns the subject notified with every inbound frame.
func (s *Socket) OnReceive() *observable.Subject[*Request] {
	return s.receive
}

// OnSend returns the subject notified after an answer was written.
func (s *Socket) OnSend() *observable.Subject[*Request] {
	return s.send
}

// Start accepts upgrades.
func (s *Socket) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
	s.logger.Info("WebSocket service started", observability.String("path", s.config.Path))
	return nil
}

// Stop closes every open connection and waits for their dispatch loops.
func (s *Socket) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	for conn := range s.conns {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("WebSocket service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the connection and runs its dispatch loop.
func (s *Socket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.socketError(socketErrorUpgrade)
		s.logger.Debug("failed to upgrade connection", observability.Error(err))
		return
	}

	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	s.serve(r, conn)
}

func (s *Socket) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.metrics.connectionOpened()
	return true
}

func (s *Socket) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()

	_ = conn.Close()
	s.wg.Done()
}

func (s *Socket) serve(r *http.Request, conn *websocket.Conn) {
	start := time.Now()
	defer func() { s.metrics.connectionClosed(time.Since(start)) }()

	if s.config.ReadLimit > 0 {
		conn.SetReadLimit(s.config.ReadLimit)
	}

	ctx := r.Context()
	address := clientAddress(r)
	headers := r.Header.Clone()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.metrics.socketError(socketErrorFrame)
				s.logger.Debug("WebSocket read failed", observability.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.metrics.messageReceived()

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.metrics.socketError(socketErrorFrame)
			if !s.reply(conn, outboundFrame{Status: http.StatusBadRequest, Message: http.StatusText(http.StatusBadRequest)}) {
				return
			}
			continue
		}

		path := frame.Path
		if path == "" {
			path = "/"
		}

		request := NewRequest(path, &Input{
			Method:  MethodMessage,
			Address: address,
			Headers: headers,
			Data:    frame.Data,
		}, nil)

		request = s.receiver.receive(ctx, request)
		if !s.reply(conn, answer(request.Output())) {
			return
		}

		if err := s.send.NotifyAll(ctx, request); err != nil {
			s.logger.WithContext(ctx).Warn("send notification failed", observability.Error(err))
		}
	}
}

func (s *Socket) reply(conn *websocket.Conn, frame outboundFrame) bool {
	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if err := conn.WriteJSON(frame); err != nil {
		s.metrics.socketError(socketErrorWrite)
		s.logger.Debug("WebSocket write failed", observability.Error(err))
		return false
	}
	s.metrics.messageSent()
	return true
}

func (s *Socket) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.config.AllowedOrigins, r.Header.Get("Origin"))
}

// answer converts out into a frame. A body that is not JSON is sent as a
// JSON string.
func answer(out *Output) outboundFrame {
	code, message := status(out)
	frame := outboundFrame{Status: code, Message: message}

	switch {
	case len(out.Data) == 0:
	case json.Valid(out.Data):
		frame.Data = out.Data
	default:
		encoded, err := json.Marshal(string(out.Data))
		if err == nil {
			frame.Data = encoded
		}
	}

	return frame
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
