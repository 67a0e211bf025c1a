package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fracarlesi/piano-excel-sub003/internal/credit"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the REST routes only
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{} // closed when Run returns
}

// WSClient represents a single WebSocket connection. The hub never closes
// send; it closes quit when the client is dropped.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
	quit chan struct{}
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
	}
}

// NewWSClient creates a client of h with a send queue of size buffer.
func NewWSClient(h *WSHub, buffer int) *WSClient {
	return &WSClient{hub: h, send: make(chan WSMessage, buffer), quit: make(chan struct{})}
}

// drop removes client from the hub. Callers hold h.mu.
func (h *WSHub) drop(client *WSClient) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.quit)
	}
}

// Run starts the hub event loop. It returns when stop is closed.
func (h *WSHub) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			close(h.done)
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients. Messages
// are dropped when the broadcast queue is full.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. It reports false once the hub has
// stopped.
func (h *WSHub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub. It returns immediately once the
// hub has stopped.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// hubObserver streams projection progress to WebSocket clients.
type hubObserver struct {
	hub *WSHub
}

func (o hubObserver) ProjectionStarted(runID string, products int) {
	o.hub.Broadcast(WSMessage{Type: "projection_started", Data: map[string]interface{}{
		"run_id":   runID,
		"products": products,
	}})
}

func (o hubObserver) ProductProjected(runID string, r *credit.ProductResult, elapsed time.Duration) {
	o.hub.Broadcast(WSMessage{Type: "product_projected", Data: map[string]interface{}{
		"run_id":     runID,
		"product":    r.ProductID,
		"vintages":   len(r.Vintages),
		"elapsed_ms": elapsed.Milliseconds(),
	}})
}

func (o hubObserver) ProjectionFinished(runID string, elapsed time.Duration, err error) {
	data := map[string]interface{}{
		"run_id":     runID,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
		o.hub.Broadcast(WSMessage{Type: "projection_failed", Data: data})
		return
	}
	o.hub.Broadcast(WSMessage{Type: "projection_complete", Data: data})
}

// ============================================================
// Connection pumps
// ============================================================

// handleWebSocket upgrades HTTP connections to WebSocket and streams
// projection events to the client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewWSClient(s.wsHub, 256)
	if !s.wsHub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go wsWritePump(conn, client)
	go wsReadPump(conn, client, s)
}

// wsReadPump handles client messages until the connection closes.
func wsReadPump(conn *websocket.Conn, client *WSClient, s *Server) {
	defer func() {
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		var reply WSMessage
		switch msg.Type {
		case "ping":
			reply = WSMessage{Type: "pong"}
		case "status":
			// Latest totals of a cached projection.
			id, _ := msg.Data.(string)
			res, ok := s.results.Get(id)
			if !ok {
				reply = WSMessage{Type: "error", Data: "projection not found"}
				break
			}
			reply = WSMessage{Type: "status", Data: map[string]interface{}{
				"run_id":       res.RunID,
				"generated_at": res.GeneratedAt,
				"total_assets": res.Totals.TotalAssets.YearEnd,
			}}
		default:
			continue
		}
		if !trySend(client, reply) {
			return
		}
	}
}

// trySend queues a reply without blocking the read loop; a full queue drops
// it. It reports false once the hub has dropped the client.
func trySend(client *WSClient, msg WSMessage) bool {
	select {
	case <-client.quit:
		return false
	default:
	}
	select {
	case client.send <- msg:
	case <-client.quit:
		return false
	default:
	}
	return true
}

// wsWritePump pumps messages from the hub to the WebSocket connection.
func wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-client.quit:
			// Hub dropped the client
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
