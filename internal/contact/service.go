package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"livechat/internal/storage"
	"livechat/pkg/chat"

	"gorm.io/gorm"
)

const searchLimit = 50

var ErrQueryRequired = errors.New("query is required")

// SnippetSource resolves user ids to public profiles.
type SnippetSource interface {
	Snippets(ctx context.Context, ids ...string) (map[string]chat.UserSnippet, error)
}

type ContactService struct {
	db       *gorm.DB
	messages storage.MessageStore
	users    SnippetSource
}

func NewContactService(db *gorm.DB, messages storage.MessageStore, users SnippetSource) *ContactService {
	return &ContactService{db: db, messages: messages, users: users}
}

// Search matches query case-insensitively against first name, last name and
// email, excluding the searcher.
func (s *ContactService) Search(ctx context.Context, searcherID, query string) ([]chat.UserSnippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	like := "%" + escapeLike(strings.ToLower(query)) + "%"

	var users []chat.User
	err := s.db.WithContext(ctx).
		Where("id != ?", searcherID).
		Where(`(LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, like, like, like).
		Order("email ASC").
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	out := make([]chat.UserSnippet, 0, len(users))
	for i := range users {
		out = append(out, users[i].Snippet())
	}
	return out, nil
}

// DMContacts lists everyone userID has exchanged direct messages with, most
// recent conversation first. Correspondents without a user record are skipped.
func (s *ContactService) DMContacts(ctx context.Context, userID string) ([]chat.ContactSummary, error) {
	correspondents, err := s.messages.Correspondents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load correspondents: %w", err)
	}

	ids := make([]string, 0, len(correspondents))
	for _, c := range correspondents {
		ids = append(ids, c.UserID)
	}
	snippets, err := s.users.Snippets(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]chat.ContactSummary, 0, len(correspondents))
	for _, c := range correspondents {
		snippet, ok := snippets[c.UserID]
		if !ok {
			continue
		}
		out = append(out, chat.ContactSummary{
			UserSnippet:     snippet,
			LastMessageTime: c.LastMessageTime,
			UnseenCount:     c.UnseenCount,
		})
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
