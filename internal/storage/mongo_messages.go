package storage

import (
	"context"
	"fmt"

	"livechat/pkg/chat"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoMessageStore keeps messages in a mongo collection. Field names follow
// the bson tags on chat.Message.
type MongoMessageStore struct {
	repo   *Repository[chat.Message]
	logger *zap.Logger
}

func NewMongoMessageStore(db *mongo.Database, collection string, logger *zap.Logger) *MongoMessageStore {
	return &MongoMessageStore{
		repo:   NewRepository[chat.Message](db, collection),
		logger: logger,
	}
}

func (s *MongoMessageStore) CreateMessage(ctx context.Context, m *chat.Message) error {
	if err := prepare(m); err != nil {
		return err
	}
	now := m.Timestamp
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := s.repo.Create(ctx, *m); err != nil {
		s.logger.Error("failed to insert message", zap.String("message_id", m.ID), zap.Error(err))
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MongoMessageStore) Conversation(ctx context.Context, a, b string) ([]chat.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	messages, err := s.repo.FindAll(ctx, conversationFilter(a, b), opts)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return messages, nil
}

func (s *MongoMessageStore) MarkSeen(ctx context.Context, senderID, recipientID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := NewFilter().
		Eq("sender", senderID).
		Eq("recipient", recipientID).
		Eq("seen", false).
		Build()

	res, err := s.repo.UpdateMany(ctx, filter, bson.M{"seen": true})
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoMessageStore) MessagesByIDs(ctx context.Context, ids []string) ([]chat.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	messages, err := s.repo.FindAll(ctx, NewFilter().In("_id", ids).Build())
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return messages, nil
}

func (s *MongoMessageStore) Correspondents(ctx context.Context, userID string) ([]Correspondent, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	messages, err := s.repo.FindAll(ctx, participantFilter(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("find direct messages: %w", err)
	}
	return foldCorrespondents(userID, messages), nil
}

func conversationFilter(a, b string) bson.M {
	return NewFilter().
		Exists("channel_id", false).
		Or(
			bson.M{"sender": a, "recipient": b},
			bson.M{"sender": b, "recipient": a},
		).
		Build()
}

func participantFilter(userID string) bson.M {
	return NewFilter().
		Exists("channel_id", false).
		Or(
			bson.M{"sender": userID},
			bson.M{"recipient": userID},
		).
		Build()
}
