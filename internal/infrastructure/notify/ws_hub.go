package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 16
)

// Hub pushes notifications to the websocket connections of their user. A
// notification without a user goes to every connection.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan ports.Notification
	done       chan struct{}
	upgrader   websocket.Upgrader
}

type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan ports.Notification
}

var _ ports.Notifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan ports.Notification, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run serves register, unregister and broadcast until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*wsClient]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.userID][c]; ok {
				delete(h.clients[c.userID], c)
				if len(h.clients[c.userID]) == 0 {
					delete(h.clients, c.userID)
				}
				close(c.send)
			}
			h.mu.Unlock()
		case n := <-h.broadcast:
			h.mu.Lock()
			for userID, set := range h.clients {
				if n.UserID != "" && n.UserID != userID {
					continue
				}
				for c := range set {
					select {
					case c.send <- n:
					default:
						delete(set, c)
						close(c.send)
					}
				}
				if len(set) == 0 {
					delete(h.clients, userID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify queues n for delivery; it never blocks the caller.
func (h *Hub) Notify(ctx context.Context, n ports.Notification) {
	select {
	case h.broadcast <- n:
	default:
		logCtx := logging.WithAttrs(ctx, slog.String("component", "notify.hub"))
		logging.Warn(logCtx, "notification dropped, hub backlog full", slog.String("user_id", n.UserID))
	}
}

// Connections reports how many sockets userID holds.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeWS upgrades the request and streams notifications for userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errs.Wrap(err, "upgrade websocket")
	}

	c := &wsClient{userID: userID, conn: conn, send: make(chan ports.Notification, sendBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return errors.New("notification hub stopped")
	case <-r.Context().Done():
		_ = conn.Close()
		return r.Context().Err()
	}

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
