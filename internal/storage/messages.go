package storage

import (
	"context"
	"errors"
	"time"

	"livechat/pkg/chat"
)

var ErrNilMessage = errors.New("message cannot be nil")

// MessageStore persists direct and channel messages.
type MessageStore interface {
	// CreateMessage assigns an id and timestamp when missing and saves m.
	CreateMessage(ctx context.Context, m *chat.Message) error
	// Conversation returns every direct message between a and b, oldest first.
	Conversation(ctx context.Context, a, b string) ([]chat.Message, error)
	// MarkSeen flags every unseen message from senderID to recipientID as seen.
	MarkSeen(ctx context.Context, senderID, recipientID string) (int64, error)
	// MessagesByIDs loads the messages with the given ids in no particular order.
	MessagesByIDs(ctx context.Context, ids []string) ([]chat.Message, error)
	// Correspondents summarizes userID's direct conversations, most recent first.
	Correspondents(ctx context.Context, userID string) ([]Correspondent, error)
}

type Correspondent struct {
	UserID          string
	LastMessageTime time.Time
	UnseenCount     int
}

func prepare(m *chat.Message) error {
	if m == nil {
		return ErrNilMessage
	}
	if err := m.EnsureID(); err != nil {
		return err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}

// foldCorrespondents reduces userID's direct messages, newest first, to one
// entry per correspondent. Unseen counts only include messages addressed to
// userID by someone else.
func foldCorrespondents(userID string, newestFirst []chat.Message) []Correspondent {
	index := make(map[string]int)
	var out []Correspondent

	for i := range newestFirst {
		m := &newestFirst[i]
		other := m.Correspondent(userID)
		if other == "" {
			continue
		}

		pos, ok := index[other]
		if !ok {
			pos = len(out)
			index[other] = pos
			out = append(out, Correspondent{UserID: other, LastMessageTime: m.Timestamp})
		}

		if !m.Seen && m.SenderID != userID && *m.RecipientID == userID {
			out[pos].UnseenCount++
		}
	}
	return out
}
