package message

import (
	"context"
	"errors"
	"fmt"

	"livechat/internal/storage"
	"livechat/pkg/chat"

	"go.uber.org/zap"
)

var ErrUserIDsRequired = errors.New("both user ids are required")

type SnippetSource interface {
	Snippets(ctx context.Context, ids ...string) (map[string]chat.UserSnippet, error)
}

type MessageService struct {
	store  storage.MessageStore
	users  SnippetSource
	logger *zap.Logger
}

func NewMessageService(store storage.MessageStore, users SnippetSource, logger *zap.Logger) *MessageService {
	return &MessageService{store: store, users: users, logger: logger}
}

// GetMessages returns the direct conversation between userID and otherID in
// chronological order and marks everything otherID sent to userID as seen.
func (s *MessageService) GetMessages(ctx context.Context, userID, otherID string) ([]chat.PopulatedMessage, error) {
	if userID == "" || otherID == "" {
		return nil, ErrUserIDsRequired
	}

	messages, err := s.store.Conversation(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	if _, err := s.store.MarkSeen(ctx, otherID, userID); err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}

	snippets, err := s.users.Snippets(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}

	out := make([]chat.PopulatedMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chat.Populate(m, snippets))
	}
	return out, nil
}

// MarkSeen flags every unseen message from otherID to userID as seen.
func (s *MessageService) MarkSeen(ctx context.Context, userID, otherID string) (int64, error) {
	if userID == "" || otherID == "" {
		return 0, ErrUserIDsRequired
	}
	n, err := s.store.MarkSeen(ctx, otherID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	if n > 0 {
		s.logger.Debug("marked messages seen",
			zap.String("user_id", userID),
			zap.String("from", otherID),
			zap.Int64("count", n))
	}
	return n, nil
}
