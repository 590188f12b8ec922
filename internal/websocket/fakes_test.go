package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"

	"livechat/internal/channel"
	"livechat/pkg/chat"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

type fakeConn struct {
	id     string
	userID string

	mu     sync.Mutex
	events []chat.Event
	full   bool
	closed bool
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (f *fakeConn) ID() string     { return f.id }
func (f *fakeConn) UserID() string { return f.userID }

func (f *fakeConn) Push(ev chat.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.full {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) received() []chat.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Event(nil), f.events...)
}

func (f *fakeConn) named(name string) []chat.Event {
	var out []chat.Event
	for _, ev := range f.received() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

type memoryStore struct {
	mu       sync.Mutex
	messages []chat.Message
	fail     error
}

func (s *memoryStore) CreateMessage(_ context.Context, m *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if err := m.EnsureID(); err != nil {
		return err
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type memoryChannels struct {
	mu       sync.Mutex
	channels map[string]*chat.Channel
	lists    map[string][]string
}

func newMemoryChannels(channels ...*chat.Channel) *memoryChannels {
	mc := &memoryChannels{channels: map[string]*chat.Channel{}, lists: map[string][]string{}}
	for _, c := range channels {
		mc.channels[c.ID] = c
	}
	return mc
}

func (mc *memoryChannels) GetChannel(_ context.Context, id string) (*chat.Channel, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	c, ok := mc.channels[id]
	if !ok {
		return nil, channel.ErrChannelNotFound
	}
	return c, nil
}

func (mc *memoryChannels) AppendMessage(_ context.Context, channelID, messageID string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.channels[channelID]; !ok {
		return channel.ErrChannelNotFound
	}
	mc.lists[channelID] = append(mc.lists[channelID], messageID)
	return nil
}

func (mc *memoryChannels) list(id string) []string {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return append([]string(nil), mc.lists[id]...)
}

type staticDirectory map[string]chat.UserSnippet

func (d staticDirectory) Snippets(_ context.Context, ids ...string) (map[string]chat.UserSnippet, error) {
	out := map[string]chat.UserSnippet{}
	for _, id := range ids {
		if s, ok := d[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type failingDirectory struct{}

func (failingDirectory) Snippets(context.Context, ...string) (map[string]chat.UserSnippet, error) {
	return nil, errors.New("directory down")
}

func testMetrics(t *testing.T) *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return m
}

func testChannel(id, admin string, members ...string) *chat.Channel {
	c := &chat.Channel{ID: id, Name: id, AdminID: admin}
	for _, m := range append([]string{admin}, members...) {
		c.Members = append(c.Members, chat.ChannelMember{ChannelID: id, UserID: m})
	}
	return c
}

type env struct {
	registry *Registry
	presence *Presence
	store    *memoryStore
	channels *memoryChannels
	router   *Router
}

func newEnv(t *testing.T, channels ...*chat.Channel) *env {
	logger := zap.NewNop()
	metrics := testMetrics(t)
	registry := NewRegistry()
	store := &memoryStore{}
	mc := newMemoryChannels(channels...)
	users := staticDirectory{
		"alice": {ID: "alice", Email: "alice@example.com", FirstName: "Alice"},
		"bob":   {ID: "bob", Email: "bob@example.com", FirstName: "Bob"},
		"carol": {ID: "carol", Email: "carol@example.com", FirstName: "Carol"},
	}
	return &env{
		registry: registry,
		presence: NewPresence(registry, logger, metrics),
		store:    store,
		channels: mc,
		router:   NewRouter(registry, store, mc, users, logger, metrics),
	}
}
