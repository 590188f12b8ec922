package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"livechat/pkg/chat"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Time allowed to handle one inbound event.
	handleTimeout = 10 * time.Second
)

// NewUpgrader accepts browser connections from origin only. An empty origin
// or "*" accepts any. Requests without an Origin header are always accepted.
func NewUpgrader(origin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origin == "" || origin == "*" {
				return true
			}
			got := r.Header.Get("Origin")
			return got == "" || got == origin
		},
	}
}

type ClientOptions struct {
	SendBuffer   int
	InboundRate  float64
	InboundBurst int
}

// Client is a Conn backed by a gorilla websocket connection.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn

	// Buffered channel of outbound events.
	send chan chat.Event

	mu     sync.RWMutex
	closed bool
	once   sync.Once

	limiter     *rate.Limiter
	connectedAt time.Time
	logger      *zap.Logger
}

func NewClient(conn *websocket.Conn, userID string, opts ClientOptions, logger *zap.Logger) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	limit := rate.Inf
	if opts.InboundRate > 0 {
		limit = rate.Limit(opts.InboundRate)
	}
	id := uuid.NewString()
	return &Client{
		id:          id,
		userID:      userID,
		conn:        conn,
		send:        make(chan chat.Event, opts.SendBuffer),
		limiter:     rate.NewLimiter(limit, max(opts.InboundBurst, 1)),
		connectedAt: time.Now(),
		logger:      logger.With(zap.String("conn_id", id), zap.String("user_id", userID)),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) Push(ev chat.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Close stops the outbound queue. WritePump sends a close frame and releases
// the connection once the queue drains.
func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

// Serve registers the client with the hub and runs both pumps. It returns
// when the connection is gone.
func (c *Client) Serve(hub *Hub, handler *MessageHandler) {
	if !hub.Connect(c) {
		c.Close()
		_ = c.conn.Close()
		return
	}
	go c.WritePump()
	c.ReadPump(hub, handler)
}

// ReadPump handles inbound events one at a time, in arrival order, until the
// connection fails. It disconnects the client from the hub on exit.
func (c *Client) ReadPump(hub *Hub, handler *MessageHandler) {
	defer func() {
		hub.Disconnect(c)
		c.logger.Info("connection closed", zap.Duration("duration", time.Since(c.connectedAt)))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var ne net.Error
			switch {
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				c.logger.Warn("unexpected close", zap.Error(err))
			case errors.As(err, &ne) && ne.Timeout():
				c.logger.Info("client timed out")
			default:
				c.logger.Debug("read loop ended", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			sendError(c, CodeRateLimited, "too many events, slow down")
			continue
		}

		ctx, cancel := context.WithTimeout(hub.Context(), handleTimeout)
		handler.HandleMessage(ctx, c, data)
		cancel()
	}
}

// WritePump writes queued events and keepalive pings until the queue is
// closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
