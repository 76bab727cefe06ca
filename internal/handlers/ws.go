package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/monocle-dev/fleetwatch/internal/health"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// client serializes writes to one connection; gorilla allows a single
// concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteJSON(message)
}

// Hub pushes sweep results to every connected dashboard.
type Hub struct {
	clients  map[*websocket.Conn]*client
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHub(allowedOrigins []string, log zerolog.Logger) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// SweepCompleted broadcasts the summary of a finished sweep.
func (h *Hub) SweepCompleted(summary health.SweepSummary) {
	h.Broadcast(gin.H{
		"type":    "sweep",
		"summary": summary,
	})
}

func (h *Hub) Broadcast(message interface{}) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy so the lock is not held while writing
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			h.log.Warn().Err(err).Msg("failed to broadcast to client")
			h.remove(c.conn)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}

func (h *Hub) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.log.Warn().Err(err).Msg("failed to set initial read deadline")
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cl := &client{conn: conn}

	err = cl.writeJSON(map[string]string{
		"type":    "connected",
		"message": "WebSocket connection established",
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to send welcome message")
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[conn] = cl
	h.mu.Unlock()

	defer h.remove(conn)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}
