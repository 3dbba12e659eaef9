package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

const (
	// DefaultUIAddress keeps the overlay endpoint on loopback.
	DefaultUIAddress = "127.0.0.1:47831"

	uiPath         = "/ws"
	uiWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Only local overlay processes connect; browsers are not expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// uiEvent is the message pushed to overlay clients.
type uiEvent struct {
	Type      string           `json:"type"`
	Detection domain.Detection `json:"detection"`
}

// safeConn serializes writes; gorilla connections allow one concurrent writer.
type safeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *safeConn) writeMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(uiWriteTimeout))
	return c.WriteMessage(websocket.TextMessage, data)
}

// UIHub implements domain.UINotifier by broadcasting detections to the
// blocking overlay over websocket.
type UIHub struct {
	logger *zap.Logger

	mu       sync.Mutex
	clients  map[*safeConn]struct{}
	server   *http.Server
	listener net.Listener
}

// NewUIHub creates a hub with no clients.
func NewUIHub(logger *zap.Logger) *UIHub {
	return &UIHub{
		logger:  logger,
		clients: make(map[*safeConn]struct{}),
	}
}

// Handler returns the websocket endpoint (mounted at /ws by Start).
func (h *UIHub) Handler() http.Handler {
	return http.HandlerFunc(h.handleWebSocket)
}

// Start listens on addr and serves overlay connections until Close.
func (h *UIHub) Start(addr string) error {
	if addr == "" {
		addr = DefaultUIAddress
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(uiPath, h.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	h.mu.Lock()
	h.server = srv
	h.listener = ln
	h.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("ui hub stopped", zap.Error(err))
		}
	}()
	h.logger.Info("ui hub listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (h *UIHub) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Clients returns the number of connected overlays.
func (h *UIHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify broadcasts d to every client. Clients that cannot be written to are dropped.
func (h *UIHub) Notify(ctx context.Context, d domain.Detection) error {
	data, err := json.Marshal(uiEvent{Type: "detection", Detection: d})
	if err != nil {
		return fmt.Errorf("encode ui event: %w", err)
	}

	h.mu.Lock()
	conns := make([]*safeConn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.writeMessage(data); err != nil {
			h.logger.Debug("dropping ui client", zap.Error(err))
			h.remove(c)
		}
	}
	return nil
}

// Close stops the server and disconnects every client.
func (h *UIHub) Close() error {
	h.mu.Lock()
	srv := h.server
	conns := h.clients
	h.clients = make(map[*safeConn]struct{})
	h.server = nil
	h.mu.Unlock()

	for c := range conns {
		_ = c.Close()
	}
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), uiWriteTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (h *UIHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &safeConn{Conn: raw}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Overlays never send; reading only notices the disconnect.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *UIHub) remove(c *safeConn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.Close()
	}
}

// Ensure UIHub implements domain.UINotifier.
var _ domain.UINotifier = (*UIHub)(nil)
