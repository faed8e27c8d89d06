package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/justinabrahms/hotseatchess/internal/chess"
)

const (
	initialReconnectDelay  = 1 * time.Second
	maxReconnectDelay      = 1 * time.Minute
	reconnectBackoffFactor = 2

	pingInterval = 30 * time.Second
	pongTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Update is one message from a watched match. Snapshot is nil for messages
// that only carry the spectator count.
type Update struct {
	MatchID    string
	Type       string
	Snapshot   *chess.Snapshot
	Result     *chess.MoveResult
	Spectators int
	Received   time.Time
}

// Handler is called for every update, in order.
type Handler func(Update) error

// Client follows one match on a hotseat server and reconnects with
// exponential backoff when the connection drops.
type Client struct {
	url            string
	handler        Handler
	logger         zerolog.Logger
	dialer         *websocket.Dialer
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	initialDelay   time.Duration
	reconnectDelay time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

func WithInitialReconnectDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.initialDelay = delay
		c.reconnectDelay = delay
	}
}

// WatchURL turns a server base URL (http, https, ws or wss) into the
// WebSocket URL of a match.
func WatchURL(server, matchID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"matchId": {matchID}}.Encode()
	return u.String(), nil
}

func NewClient(wsURL string, handler Handler, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		url:            wsURL,
		handler:        handler,
		logger:         zerolog.Nop(),
		dialer:         websocket.DefaultDialer,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		initialDelay:   initialReconnectDelay,
		reconnectDelay: initialReconnectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start connects in the background.
func (c *Client) Start() {
	go c.run()
}

// Stop closes the connection and waits for the background loop to end.
func (c *Client) Stop() error {
	c.cancel()

	c.mu.Lock()
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.mu.Unlock()

	<-c.done
	return err
}

// Done is closed once the client has stopped.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) run() {
	defer close(c.done)
	for {
		if c.ctx.Err() != nil {
			return
		}
		conn, err := c.connect()
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to connect to match")
			c.handleReconnect()
			continue
		}
		if err := c.listen(conn); err != nil && c.ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("Lost match connection")
		}
		c.handleReconnect()
	}
}

func (c *Client) connect() (*websocket.Conn, error) {
	c.logger.Info().Str("url", c.url).Msg("Connecting to match")

	headers := http.Header{}
	headers.Set("User-Agent", "hotseat-watch/1.0")

	ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(ctx, c.url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.reconnectDelay = c.initialDelay
	c.mu.Unlock()

	c.logger.Info().Msg("Connected to match")

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	return conn, nil
}

func (c *Client) listen(conn *websocket.Conn) error {
	go c.pingLoop(conn)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				return fmt.Errorf("websocket read error: %w", err)
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		if messageType != websocket.TextMessage {
			continue
		}

		update, err := decodeUpdate(data)
		if err != nil {
			c.logger.Error().Err(err).Msg("Error decoding update")
			continue
		}
		if err := c.handler(update); err != nil {
			c.logger.Error().Err(err).Str("type", update.Type).Msg("Update handler error")
		}
	}
}

// decodeUpdate reads the hub's envelope. Session events carry the snapshot
// inside the event, a "snapshot" message carries it directly.
func decodeUpdate(data []byte) (Update, error) {
	var msg struct {
		MatchID string          `json:"matchId"`
		Type    string          `json:"type"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return Update{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	u := Update{MatchID: msg.MatchID, Type: msg.Type, Received: time.Now()}

	switch msg.Type {
	case "spectator_count":
		if err := json.Unmarshal(msg.Data, &u.Spectators); err != nil {
			return Update{}, fmt.Errorf("failed to parse spectator count: %w", err)
		}
	case "snapshot":
		var snap chess.Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			return Update{}, fmt.Errorf("failed to parse snapshot: %w", err)
		}
		u.Snapshot = &snap
	default:
		var ev struct {
			Result   *chess.MoveResult `json:"result"`
			Snapshot chess.Snapshot    `json:"snapshot"`
		}
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return Update{}, fmt.Errorf("failed to parse %s event: %w", msg.Type, err)
		}
		u.Snapshot = &ev.Snapshot
		u.Result = ev.Result
	}
	return u, nil
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleReconnect() {
	c.mu.Lock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	delay := c.reconnectDelay
	c.reconnectDelay = time.Duration(float64(c.reconnectDelay) * reconnectBackoffFactor)
	if c.reconnectDelay > maxReconnectDelay {
		c.reconnectDelay = maxReconnectDelay
	}
	c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}
	c.logger.Info().Str("delay", delay.String()).Msg("Waiting before reconnect")

	select {
	case <-time.After(delay):
	case <-c.ctx.Done():
	}
}
