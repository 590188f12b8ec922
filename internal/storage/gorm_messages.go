package storage

import (
	"context"

	"livechat/pkg/chat"

	"gorm.io/gorm"
)

type GormMessageStore struct {
	db *gorm.DB
}

func NewGormMessageStore(db *gorm.DB) *GormMessageStore {
	return &GormMessageStore{db: db}
}

func (s *GormMessageStore) CreateMessage(ctx context.Context, m *chat.Message) error {
	if err := prepare(m); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *GormMessageStore) Conversation(ctx context.Context, a, b string) ([]chat.Message, error) {
	var messages []chat.Message
	err := s.db.WithContext(ctx).
		Where("channel_id IS NULL").
		Where("((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))", a, b, b, a).
		Order("timestamp ASC").
		Find(&messages).Error
	return messages, err
}

func (s *GormMessageStore) MarkSeen(ctx context.Context, senderID, recipientID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&chat.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND seen = ?", senderID, recipientID, false).
		Update("seen", true)
	return res.RowsAffected, res.Error
}

func (s *GormMessageStore) MessagesByIDs(ctx context.Context, ids []string) ([]chat.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var messages []chat.Message
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&messages).Error
	return messages, err
}

func (s *GormMessageStore) Correspondents(ctx context.Context, userID string) ([]Correspondent, error) {
	var messages []chat.Message
	err := s.db.WithContext(ctx).
		Where("channel_id IS NULL").
		Where("(sender_id = ? OR recipient_id = ?)", userID, userID).
		Order("timestamp DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return foldCorrespondents(userID, messages), nil
}
