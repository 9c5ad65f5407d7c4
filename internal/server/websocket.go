package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aceofaces/aoa-server/internal/lobby"
	"github.com/aceofaces/aoa-server/internal/page"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket subscriber of a game, watching as one faction.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	gameID  string
	faction page.Faction
}

// Hub fans lobby events out to the WebSocket clients of each game.
type Hub struct {
	clients    map[*Client]bool
	events     chan lobby.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		events:     make(chan lobby.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Notify queues an event for delivery without blocking. Events are dropped
// when the queue is full.
func (h *Hub) Notify(ev lobby.Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event queue full, dropping event",
			zap.String("game_id", ev.GameID),
			zap.String("kind", string(ev.Kind)),
		)
	}
}

// Run delivers events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("websocket client registered",
				zap.String("client_id", client.id),
				zap.String("game_id", client.gameID),
				zap.String("faction", string(client.faction)),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("websocket client unregistered", zap.String("client_id", client.id))
			}

		case ev := <-h.events:
			message, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to encode event", zap.String("game_id", ev.GameID), zap.Error(err))
				continue
			}
			for client := range h.clients {
				if client.gameID != ev.GameID {
					continue
				}
				if ev.Recipient != "" && client.faction != ev.Recipient {
					continue
				}
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// ServeWS upgrades GET /ws?game_id=&faction= to a WebSocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		writeError(w, h.logger, badRequest("game_id is required"))
		return
	}
	faction, err := page.ParseFaction(r.URL.Query().Get("faction"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	client := &Client{
		id:      uuid.NewString(),
		send:    make(chan []byte, 64),
		gameID:  gameID,
		faction: faction,
	}

	// Registered before the handshake completes so no event published after
	// the client sees the upgrade is missed. Events queue in client.send.
	select {
	case h.register <- client:
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		return
	}
	client.conn = conn

	go client.writePump()
	go client.readPump(h)
}

// readPump discards client messages and unregisters the client once the
// connection closes.
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
