package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNoReceivers is returned when a required notification has no
	// connected receiver to take delivery.
	ErrNoReceivers = errors.New("no notification receivers connected")

	// ErrBufferFull is returned when the broadcast buffer cannot accept
	// a required notification.
	ErrBufferFull = errors.New("notification buffer full")
)

const broadcastBuffer = 64

// Hub pushes notifications to connected bot gateways over websockets.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHub creates a hub with no connected receivers.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, broadcastBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run pumps queued notifications to every connected client until the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// ClientCount returns the number of connected receivers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SendProgress broadcasts the update. With no receiver connected the
// update is dropped without error.
func (h *Hub) SendProgress(ctx context.Context, p Progress) error {
	p.Type = "progress"
	return h.send(p, false)
}

// SendResult broadcasts the finished download. It fails when no
// receiver is connected to take delivery.
func (h *Hub) SendResult(ctx context.Context, r Result) error {
	r.Type = "result"
	return h.send(r, true)
}

// SendFailure broadcasts the terminal failure.
func (h *Hub) SendFailure(ctx context.Context, f Failure) error {
	f.Type = "failure"
	return h.send(f, true)
}

func (h *Hub) send(msg any, required bool) error {
	if required && h.ClientCount() == 0 {
		return ErrNoReceivers
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	select {
	case h.broadcast <- data:
		return nil
	default:
		if required {
			return ErrBufferFull
		}
		h.logger.Warn("notification buffer full, dropping update")
		return nil
	}
}

// Handler upgrades the request to a websocket and keeps the client
// registered until it disconnects.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.logger.Info("receiver connected", "remote_addr", r.RemoteAddr)
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
		h.logger.Info("receiver disconnected", "remote_addr", r.RemoteAddr)
	}()

	waitTimeout := 60 * time.Second
	for {
		conn.SetReadDeadline(time.Now().Add(waitTimeout))
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("websocket read error", "error", err)
			}
			break
		}
	}
}
