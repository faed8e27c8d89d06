package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/hotseatchess/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// both players share one screen; watchers may come from anywhere
		return true
	},
}

// Hub fans match events out to the WebSocket clients watching each match.
type Hub struct {
	matchClients map[string]map[*Client]bool

	broadcast  chan MatchUpdate
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// Client is one WebSocket connection watching a match.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	matchID string
}

// MatchUpdate is the message written to clients.
type MatchUpdate struct {
	MatchID string      `json:"matchId"`
	Type    string      `json:"type"` // session event type, "snapshot" or "spectator_count"
	Data    interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		matchClients: make(map[string]map[*Client]bool),
		broadcast:    make(chan MatchUpdate, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, clients := range h.matchClients {
				for client := range clients {
					close(client.send)
				}
				delete(h.matchClients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.matchClients[client.matchID] == nil {
				h.matchClients[client.matchID] = make(map[*Client]bool)
			}
			h.matchClients[client.matchID][client] = true
			count := len(h.matchClients[client.matchID])
			h.mu.Unlock()

			log.Info().Str("matchID", client.matchID).Int("watchers", count).Msg("Client connected to match")
			h.deliver(MatchUpdate{MatchID: client.matchID, Type: "spectator_count", Data: count})

		case client := <-h.unregister:
			h.mu.Lock()
			count := 0
			if clients, ok := h.matchClients[client.matchID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
				}
				count = len(clients)
				if count == 0 {
					delete(h.matchClients, client.matchID)
				}
			}
			h.mu.Unlock()

			log.Info().Str("matchID", client.matchID).Int("watchers", count).Msg("Client disconnected from match")
			if count > 0 {
				h.deliver(MatchUpdate{MatchID: client.matchID, Type: "spectator_count", Data: count})
			}

		case update := <-h.broadcast:
			h.deliver(update)
		}
	}
}

// deliver writes update to every client of its match. Clients that cannot keep
// up are dropped. Only called from Run.
func (h *Hub) deliver(update MatchUpdate) {
	message, err := json.Marshal(update)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal match update")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.matchClients[update.MatchID]
	for client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
	if clients != nil && len(clients) == 0 {
		delete(h.matchClients, update.MatchID)
	}
}

// Broadcast queues an update without blocking the caller.
func (h *Hub) Broadcast(update MatchUpdate) {
	select {
	case h.broadcast <- update:
	default:
		log.Warn().Str("matchID", update.MatchID).Msg("Broadcast channel full, dropping update")
	}
}

// HandleEvent forwards a session event. It is meant to be passed to
// session.WithListener.
func (h *Hub) HandleEvent(ev session.Event) {
	h.Broadcast(MatchUpdate{MatchID: ev.MatchID, Type: ev.Type, Data: ev})
}

// SpectatorCount returns how many clients watch a match.
func (h *Hub) SpectatorCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matchClients[matchID])
}

// WebSocketHandler upgrades ?matchId= watchers. The first message a client
// receives is the current snapshot.
func (s *Service) WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("matchId")
		if matchID == "" {
			http.Error(w, "Missing matchId parameter", http.StatusBadRequest)
			return
		}
		snap, err := s.sessions.Snapshot(matchID)
		if err != nil {
			writeError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
			return
		}

		client := &Client{
			hub:     hub,
			conn:    conn,
			send:    make(chan []byte, 256),
			matchID: matchID,
		}
		if first, err := json.Marshal(MatchUpdate{MatchID: matchID, Type: "snapshot", Data: snap}); err == nil {
			client.send <- first
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// watchers only listen; anything they send is discarded
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("WebSocket error")
			}
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
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
