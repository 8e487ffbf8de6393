package viewstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"pricesync/internal/market"
	"pricesync/internal/syncengine"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// Controller is the engine surface the stream needs.
type Controller interface {
	SetSymbol(ctx context.Context, symbol market.Symbol) error
	SetInterval(ctx context.Context, interval market.Interval) error
	View() syncengine.View
}

// Hub fans view changes out to websocket clients and forwards their
// selection commands to the engine.
type Hub struct {
	ctrl     Controller
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(ctrl Controller, logger *zap.Logger) *Hub {
	return &Hub{
		ctrl:   ctrl,
		logger: logger.With(zap.String("component", "viewstream")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Run broadcasts every view received on updates until ctx is done or
// updates is closed, then disconnects all clients.
func (h *Hub) Run(ctx context.Context, updates <-chan syncengine.View) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(v)
		}
	}
}

// Broadcast sends v to every connected client.
func (h *Hub) Broadcast(v syncengine.View) {
	msg, err := json.Marshal(Response{Type: TypeView, Data: v})
	if err != nil {
		h.logger.Error("failed to encode view", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.sendBytes(msg)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and serves one client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn, h)
	h.register(c)
	h.logger.Info("client connected", zap.String("remote", c.id()))

	c.sendJSON(Response{Type: TypeView, Data: h.ctrl.View()})

	go c.writePump()
	c.readPump(r.Context())
}

// HandleCommand applies one client request and returns the reply.
func (h *Hub) HandleCommand(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionSetSymbol:
		if err := h.ctrl.SetSymbol(ctx, market.Symbol(req.Symbol)); err != nil {
			return Response{Type: TypeError, ID: req.ID, Message: err.Error()}
		}
		return Response{Type: TypeAck, ID: req.ID, Message: "symbol set to " + req.Symbol}
	case ActionSetInterval:
		iv, err := market.ParseInterval(req.Interval)
		if err != nil {
			return Response{Type: TypeError, ID: req.ID, Message: err.Error()}
		}
		if err := h.ctrl.SetInterval(ctx, iv); err != nil {
			return Response{Type: TypeError, ID: req.ID, Message: err.Error()}
		}
		return Response{Type: TypeAck, ID: req.ID, Message: "interval set to " + iv.String()}
	default:
		return Response{Type: TypeError, ID: req.ID, Message: fmt.Sprintf("unknown action: %q", req.Action)}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("client disconnected", zap.String("remote", c.id()))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}
