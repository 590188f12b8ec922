package websocket

import (
	"context"
	"sort"
	"sync"

	"livechat/pkg/chat"

	"go.uber.org/zap"
)

// Audience supplies the connections that presence changes are broadcast to.
type Audience interface {
	All() []Conn
}

// Presence owns the online set and announces every transition to all live
// connections.
type Presence struct {
	mu       sync.RWMutex
	online   map[string]struct{}
	audience Audience
	logger   *zap.Logger
	metrics  *Metrics
}

func NewPresence(audience Audience, logger *zap.Logger, metrics *Metrics) *Presence {
	return &Presence{
		online:   make(map[string]struct{}),
		audience: audience,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetOnline adds userID to the online set and broadcasts the change. It
// returns the number of connections the event was pushed to.
func (p *Presence) SetOnline(userID string) int {
	p.mu.Lock()
	p.online[userID] = struct{}{}
	p.mu.Unlock()
	return p.broadcast(userID, true)
}

func (p *Presence) SetOffline(userID string) int {
	p.mu.Lock()
	delete(p.online, userID)
	p.mu.Unlock()
	return p.broadcast(userID, false)
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[userID]
	return ok
}

// Snapshot returns the online user ids in sorted order.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	ids := make([]string, 0, len(p.online))
	for id := range p.online {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (p *Presence) broadcast(userID string, isOnline bool) int {
	ev, err := chat.NewEvent(chat.EventUserStatusChanged, chat.UserStatusPayload{UserID: userID, IsOnline: isOnline})
	if err != nil {
		p.logger.Error("failed to encode status event", zap.String("user_id", userID), zap.Error(err))
		return 0
	}

	conns := p.audience.All()
	delivered := 0
	for _, c := range conns {
		if c.Push(ev) {
			delivered++
		}
	}

	p.metrics.presenceChanged(context.Background(), isOnline)
	p.metrics.pushed(context.Background(), chat.EventUserStatusChanged, delivered, len(conns)-delivered)
	p.logger.Debug("presence changed",
		zap.String("user_id", userID),
		zap.Bool("online", isOnline),
		zap.Int("delivered", delivered))
	return delivered
}
