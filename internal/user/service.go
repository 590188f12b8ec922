package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"livechat/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileRequired = errors.New("first name, last name, and profile color are required")
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UpdateProfileRequest struct {
	FirstName    string `json:"firstName" example:"Ada"`
	LastName     string `json:"lastName" example:"Lovelace"`
	ProfileColor *int   `json:"profileColor" example:"2"`
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*chat.User, error) {
	var user chat.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// UpdateProfile stores the display fields and marks the profile as set up.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*chat.User, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" || req.ProfileColor == nil {
		return nil, ErrProfileRequired
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"first_name":    firstName,
		"last_name":     lastName,
		"profile_color": *req.ProfileColor,
		"profile_setup": true,
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.GetUser(ctx, userID)
}

// Snippets loads the public profile of every id that exists. Missing ids are
// simply absent from the result.
func (s *UserService) Snippets(ctx context.Context, ids ...string) (map[string]chat.UserSnippet, error) {
	out := make(map[string]chat.UserSnippet, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []chat.User
	if err := s.db.WithContext(ctx).Where("id IN ?", dedupe(ids)).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range users {
		out[users[i].ID] = users[i].Snippet()
	}
	return out, nil
}

// Exist reports whether every id names a user.
func (s *UserService) Exist(ctx context.Context, ids ...string) (bool, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return true, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&chat.User{}).Where("id IN ?", unique).Count(&count).Error; err != nil {
		return false, err
	}
	return count == int64(len(unique)), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
