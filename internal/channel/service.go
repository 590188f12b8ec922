package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"livechat/internal/storage"
	"livechat/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrNameRequired     = errors.New("channel name cannot be empty")
	ErrInvalidMembers   = errors.New("some members are invalid users")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrNotChannelMember = errors.New("you are not a member of this channel")
)

// Directory answers user existence and profile questions.
type Directory interface {
	Exist(ctx context.Context, ids ...string) (bool, error)
	Snippets(ctx context.Context, ids ...string) (map[string]chat.UserSnippet, error)
}

type ChannelService struct {
	db       *gorm.DB
	messages storage.MessageStore
	users    Directory
}

func NewChannelService(db *gorm.DB, messages storage.MessageStore, users Directory) *ChannelService {
	return &ChannelService{db: db, messages: messages, users: users}
}

// CreateChannel creates a channel administered by adminID. Every member must
// be an existing user; the admin is always added as a member.
func (s *ChannelService) CreateChannel(ctx context.Context, adminID, name string, memberIDs []string) (*chat.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	ok, err := s.users.Exist(ctx, memberIDs...)
	if err != nil {
		return nil, fmt.Errorf("validate members: %w", err)
	}
	if !ok {
		return nil, ErrInvalidMembers
	}

	channel := chat.Channel{Name: name, AdminID: adminID}
	seen := make(map[string]bool)
	candidates := append([]string{adminID}, memberIDs...)
	for _, id := range candidates {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		channel.Members = append(channel.Members, chat.ChannelMember{UserID: id})
	}

	if err := s.db.WithContext(ctx).Create(&channel).Error; err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return &channel, nil
}

// GetUserChannels returns the channels userID administers or belongs to,
// most recently active first.
func (s *ChannelService) GetUserChannels(ctx context.Context, userID string) ([]chat.Channel, error) {
	var channels []chat.Channel
	err := s.db.WithContext(ctx).
		Preload("Members").
		Where("admin_id = ? OR id IN (?)", userID,
			s.db.Model(&chat.ChannelMember{}).Select("channel_id").Where("user_id = ?", userID)).
		Order("updated_at DESC").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("get user channels: %w", err)
	}
	return channels, nil
}

func (s *ChannelService) GetChannel(ctx context.Context, channelID string) (*chat.Channel, error) {
	var channel chat.Channel
	err := s.db.WithContext(ctx).Preload("Members").First(&channel, "id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// AppendMessage adds messageID to the end of the channel's message list and
// bumps the channel's activity time.
func (s *ChannelService) AppendMessage(ctx context.Context, channelID, messageID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&chat.Channel{}).Where("id = ?", channelID).Update("updated_at", tx.NowFunc())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrChannelNotFound
		}
		return tx.Create(&chat.ChannelMessage{ChannelID: channelID, MessageID: messageID}).Error
	})
}

// Messages returns the channel's messages in list order, populated with
// sender profiles. Only members may read them.
func (s *ChannelService) Messages(ctx context.Context, userID, channelID string) ([]chat.PopulatedMessage, error) {
	channel, err := s.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.HasMember(userID) {
		return nil, ErrNotChannelMember
	}

	var entries []chat.ChannelMessage
	if err := s.db.WithContext(ctx).Where("channel_id = ?", channelID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load channel messages: %w", err)
	}
	if len(entries) == 0 {
		return []chat.PopulatedMessage{}, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.MessageID)
	}
	messages, err := s.messages.MessagesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	byID := make(map[string]chat.Message, len(messages))
	senders := make([]string, 0, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
		senders = append(senders, m.SenderID)
	}
	snippets, err := s.users.Snippets(ctx, senders...)
	if err != nil {
		return nil, err
	}

	out := make([]chat.PopulatedMessage, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, chat.Populate(m, snippets))
	}
	return out, nil
}
