package websocket

import (
	"context"
	"errors"
	"fmt"

	"livechat/pkg/chat"

	"go.uber.org/zap"
)

var (
	ErrPersistence      = errors.New("failed to persist message")
	ErrTypingTarget     = errors.New("typing requires a sender and a recipient")
	ErrNotChannelMember = errors.New("sender is not a member of this channel")
)

type MessageStore interface {
	CreateMessage(ctx context.Context, m *chat.Message) error
}

type ChannelStore interface {
	GetChannel(ctx context.Context, channelID string) (*chat.Channel, error)
	AppendMessage(ctx context.Context, channelID, messageID string) error
}

type UserDirectory interface {
	Snippets(ctx context.Context, ids ...string) (map[string]chat.UserSnippet, error)
}

type DirectMessageInput struct {
	SenderID    string
	RecipientID string
	MessageType chat.MessageType
	Content     string
	FileURL     string
}

type ChannelMessageInput struct {
	SenderID    string
	ChannelID   string
	MessageType chat.MessageType
	Content     string
	FileURL     string
}

// Router persists outbound messages and pushes them to the live connections
// of their audience. Pushes are best effort: offline targets are skipped and
// full or closed queues drop the event.
type Router struct {
	registry *Registry
	messages MessageStore
	channels ChannelStore
	users    UserDirectory
	logger   *zap.Logger
	metrics  *Metrics
}

func NewRouter(registry *Registry, messages MessageStore, channels ChannelStore, users UserDirectory, logger *zap.Logger, metrics *Metrics) *Router {
	return &Router{
		registry: registry,
		messages: messages,
		channels: channels,
		users:    users,
		logger:   logger,
		metrics:  metrics,
	}
}

// SendDirect validates and persists a direct message, then pushes it to the
// recipient and the sender when they are live.
func (r *Router) SendDirect(ctx context.Context, in DirectMessageInput) (*chat.PopulatedMessage, error) {
	m, err := chat.NewDirectMessage(in.SenderID, in.RecipientID, in.MessageType, in.Content, in.FileURL)
	if err != nil {
		return nil, err
	}

	if err := r.messages.CreateMessage(ctx, m); err != nil {
		r.logger.Error("failed to persist direct message",
			zap.String("sender", in.SenderID),
			zap.String("recipient", in.RecipientID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	r.metrics.messageRouted(ctx, "direct")

	pm := chat.Populate(*m, r.snippets(ctx, m.SenderID, in.RecipientID))
	r.push(ctx, chat.EventReceiveMessage, pm, in.RecipientID, m.SenderID)
	return &pm, nil
}

// SendChannel validates and persists a channel message, appends it to the
// channel's message list and pushes it to every live member.
func (r *Router) SendChannel(ctx context.Context, in ChannelMessageInput) (*chat.PopulatedMessage, error) {
	m, err := chat.NewChannelMessage(in.SenderID, in.ChannelID, in.MessageType, in.Content, in.FileURL)
	if err != nil {
		return nil, err
	}

	channel, err := r.channels.GetChannel(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if !channel.HasMember(m.SenderID) {
		return nil, ErrNotChannelMember
	}

	if err := r.messages.CreateMessage(ctx, m); err != nil {
		r.logger.Error("failed to persist channel message",
			zap.String("sender", in.SenderID),
			zap.String("channel_id", in.ChannelID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := r.channels.AppendMessage(ctx, channel.ID, m.ID); err != nil {
		r.logger.Error("failed to append channel message",
			zap.String("channel_id", channel.ID),
			zap.String("message_id", m.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	r.metrics.messageRouted(ctx, "channel")

	pm := chat.Populate(*m, r.snippets(ctx, m.SenderID))
	members := append([]string{channel.AdminID}, channel.MemberIDs()...)
	r.push(ctx, chat.EventReceiveChannelMessage, pm, members...)
	return &pm, nil
}

// Typing forwards a typing signal from fromUserID to the addressed peer only.
// Nothing is persisted. It reports whether the peer's connection accepted it.
func (r *Router) Typing(fromUserID string, p chat.TypingPayload) (bool, error) {
	if fromUserID == "" || p.RecipientID == "" {
		return false, ErrTypingTarget
	}
	payload := chat.UserTypingPayload{UserID: fromUserID, IsTyping: p.IsTyping}
	return r.push(context.Background(), chat.EventUserTyping, payload, p.RecipientID) > 0, nil
}

// push sends one event to the live connection of each distinct user id and
// returns the number of connections that accepted it.
func (r *Router) push(ctx context.Context, name string, payload any, userIDs ...string) int {
	ev, err := chat.NewEvent(name, payload)
	if err != nil {
		r.logger.Error("failed to encode event", zap.String("event", name), zap.Error(err))
		return 0
	}

	seen := make(map[string]struct{}, len(userIDs))
	delivered, dropped := 0, 0
	for _, id := range userIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}

		conn, ok := r.registry.Lookup(id)
		if !ok {
			continue
		}
		if conn.Push(ev) {
			delivered++
			continue
		}
		dropped++
		r.logger.Debug("dropped push",
			zap.String("event", name),
			zap.String("user_id", id),
			zap.String("conn_id", conn.ID()))
	}

	r.metrics.pushed(ctx, name, delivered, dropped)
	return delivered
}

// snippets resolves profiles for population. On failure the message is
// populated with bare ids.
func (r *Router) snippets(ctx context.Context, ids ...string) map[string]chat.UserSnippet {
	snippets, err := r.users.Snippets(ctx, ids...)
	if err != nil {
		r.logger.Warn("failed to load user snippets", zap.Strings("user_ids", ids), zap.Error(err))
		return map[string]chat.UserSnippet{}
	}
	return snippets
}
