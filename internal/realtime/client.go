package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	maxFrameSize = 65536

	// A connection that keeps sending after being told it is rate limited
	// gets this many warnings before being dropped.
	rateLimitStrikes = 10
)

// Identity is the authenticated user behind a connection, as reported by the
// token verifier.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Client is one WebSocket connection. Inbound frames are read on a single
// goroutine and dispatched to the router in receipt order; outbound frames go
// through a buffered channel drained by the write pump.
type Client struct {
	id       string
	identity Identity
	remoteIP string

	mu   sync.Mutex
	room string

	conn    *websocket.Conn
	send    chan WSMessage
	limiter *rate.Limiter
	router  *Router
	logger  *zap.Logger
}

func newClient(conn *websocket.Conn, identity Identity, remoteIP string, limiter *rate.Limiter, router *Router, logger *zap.Logger) *Client {
	return &Client{
		id:       uuid.New().String(),
		identity: identity,
		remoteIP: remoteIP,
		conn:     conn,
		send:     make(chan WSMessage, 256),
		limiter:  limiter,
		router:   router,
		logger:   logger,
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string { return c.id }

// Identity returns the authenticated user behind the connection.
func (c *Client) Identity() Identity { return c.identity }

// Room returns the room code the connection is currently in, or "".
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// SetRoom records the connection's current room.
func (c *Client) SetRoom(code string) {
	c.mu.Lock()
	c.room = code
	c.mu.Unlock()
}

// Send queues an event for delivery, dropping the frame if the outbound
// buffer is full (a stalled reader must not block the room).
func (c *Client) Send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
		c.logger.Warn("outbound buffer full, dropping frame",
			zap.String("conn_id", c.id),
			zap.String("event", event),
		)
	}
}

// readPump reads frames until the connection closes, applying the message
// rate limit before anything is parsed. Transport closure runs the same leave
// path as an explicit leave command.
func (c *Client) readPump(onClose func()) {
	defer func() {
		c.router.HandleDisconnect(c)
		_ = c.conn.Close()
		if onClose != nil {
			onClose()
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	strikes := 0
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !c.limiter.Allow() {
			strikes++
			c.Send(EventError, ErrorPayload{
				Code:       CodeRateLimited,
				Op:         "message",
				Message:    "message rate limit exceeded",
				RetryAfter: 1,
			})
			if strikes >= rateLimitStrikes {
				c.logger.Warn("dropping connection over message rate limit",
					zap.String("conn_id", c.id),
					zap.String("remote_ip", c.remoteIP),
				)
				return
			}
			continue
		}
		strikes = 0

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event == "" {
			// Protocol garbage: close rather than guess.
			return
		}
		c.router.Handle(c, msg)
	}
}

// writePump drains the outbound buffer and keeps the connection alive with
// pings, mirroring the read side's pong deadline.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
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
