package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	DefaultOutboxSize = 256
)

// Client is one connected websocket peer. Everything addressed to it goes
// through its buffered outbox; only the write pump touches the socket.
type Client struct {
	ID string

	mu      sync.Mutex
	send    chan []byte
	closed  bool
	limiter *rate.Limiter
}

func NewClient(id string, outboxSize int, limiter *rate.Limiter) *Client {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &Client{
		ID:      id,
		send:    make(chan []byte, outboxSize),
		limiter: limiter,
	}
}

// Send enqueues msg without blocking. It reports false when the client is
// closed or its outbox is full.
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// Allow reports whether another inbound frame fits the client's rate budget.
func (c *Client) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// ReadPump blocks until the connection fails, passing every frame to handle.
func (c *Client) ReadPump(conn *websocket.Conn, handle func(data []byte)) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("connectionId", c.ID).Msg("Websocket read failed.")
			}
			return
		}
		handle(data)
	}
}

// WritePump drains the outbox into conn and keeps the peer alive with pings.
// It closes conn when the outbox is closed or a write fails.
func (c *Client) WritePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Error().Err(err).Str("connectionId", c.ID).Msg("Websocket write failed.")
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
