package websocket

import (
	"context"
	"sync"

	"livechat/pkg/chat"

	"go.uber.org/zap"
)

// Hub serializes connection lifecycle changes through a single goroutine so
// that registering, announcing presence and sending the snapshot happen as
// one step with respect to other connects and disconnects.
type Hub struct {
	registry *Registry
	presence *Presence
	logger   *zap.Logger
	metrics  *Metrics

	ops     chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

func NewHub(registry *Registry, presence *Presence, logger *zap.Logger, metrics *Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry: registry,
		presence: presence,
		logger:   logger,
		metrics:  metrics,
		ops:      make(chan func(), 64),
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
}

// Run executes lifecycle operations until Stop is called.
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.ctx.Done():
			return
		case op := <-h.ops:
			op()
		}
	}
}

// Stop ends the loop and closes every live connection.
func (h *Hub) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.stopped

		conns := h.registry.All()
		for _, c := range conns {
			h.registry.Unregister(c)
			c.Close()
		}
		h.logger.Info("hub stopped", zap.Int("closed_connections", len(conns)))
	})
}

// Context is cancelled when the hub stops.
func (h *Hub) Context() context.Context {
	return h.ctx
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) Presence() *Presence {
	return h.presence
}

// Connect registers c under its user id, announces the user online to every
// connection and sends c the current online snapshot. A connection without a
// user id stays unregistered and only receives broadcasts.
func (h *Hub) Connect(c Conn) bool {
	return h.do(func() {
		h.metrics.connected(h.ctx, 1)

		userID := c.UserID()
		if userID == "" {
			h.registry.Attach(c)
			h.logger.Warn("user id not provided in handshake, connection proceeds unregistered",
				zap.String("conn_id", c.ID()))
			return
		}

		if prev := h.registry.Register(userID, c); prev != nil {
			h.logger.Info("connection replaced",
				zap.String("user_id", userID),
				zap.String("previous_conn_id", prev.ID()),
				zap.String("conn_id", c.ID()))
		}
		h.presence.SetOnline(userID)

		snapshot, err := chat.NewEvent(chat.EventOnlineUsers, h.presence.Snapshot())
		if err != nil {
			h.logger.Error("failed to encode online snapshot", zap.Error(err))
			return
		}
		if !c.Push(snapshot) {
			h.logger.Debug("dropped online snapshot", zap.String("conn_id", c.ID()))
		}

		h.logger.Info("user connected", zap.String("user_id", userID), zap.String("conn_id", c.ID()))
	})
}

// Disconnect forgets c and closes it. The user is announced offline only if c
// was still their current connection.
func (h *Hub) Disconnect(c Conn) {
	h.do(func() {
		h.metrics.connected(h.ctx, -1)

		userID, ok := h.registry.Unregister(c)
		if !ok {
			h.logger.Debug("connection closed", zap.String("conn_id", c.ID()))
			return
		}
		h.presence.SetOffline(userID)
		h.logger.Info("user disconnected", zap.String("user_id", userID), zap.String("conn_id", c.ID()))
	})
	c.Close()
}

// do runs op on the hub goroutine and waits for it. It reports false when the
// hub stopped before op ran.
func (h *Hub) do(op func()) bool {
	done := make(chan struct{})
	select {
	case h.ops <- func() { op(); close(done) }:
	case <-h.ctx.Done():
		return false
	}

	select {
	case <-done:
		return true
	case <-h.stopped:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}
