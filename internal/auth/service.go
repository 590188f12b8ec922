package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"livechat/pkg/chat"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const RefreshTokenTTL = 7 * 24 * time.Hour

var (
	ErrEmailRequired       = errors.New("email and password are required")
	ErrEmailTaken          = errors.New("user with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

type AuthService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuthService(db *gorm.DB, logger *zap.Logger) *AuthService {
	return &AuthService{db: db, logger: logger}
}

func (s *AuthService) Signup(ctx context.Context, email, password string) (*chat.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrEmailRequired
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&chat.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := HashString(password)
	if err != nil {
		return nil, err
	}

	user := chat.User{
		Email:    email,
		Password: hashedPassword,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*chat.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrEmailRequired
	}

	var user chat.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !VerifyHashedString(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (s *AuthService) CreateRefreshToken(ctx context.Context, userID string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)
	hash, err := HashString(token)
	if err != nil {
		return "", err
	}

	refreshToken := chat.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(RefreshTokenTTL).Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&refreshToken).Error; err != nil {
		return "", err
	}

	return token, nil
}

// ValidateRefreshToken resolves token to its user and prunes that user's
// expired tokens.
func (s *AuthService) ValidateRefreshToken(ctx context.Context, token string) (*chat.User, error) {
	rt, err := s.findRefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}

	var user chat.User
	if err := s.db.WithContext(ctx).Where("id = ?", rt.UserID).First(&user).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Delete(&chat.RefreshToken{}, "user_id = ? AND expires_at < ?", rt.UserID, time.Now().Unix()).Error; err != nil {
		s.logger.Warn("failed to prune refresh tokens", zap.String("user_id", rt.UserID), zap.Error(err))
	}

	return &user, nil
}

func (s *AuthService) RevokeRefreshToken(ctx context.Context, token string) error {
	rt, err := s.findRefreshToken(ctx, token)
	if errors.Is(err, ErrInvalidRefreshToken) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(rt).Error
}

func (s *AuthService) findRefreshToken(ctx context.Context, token string) (*chat.RefreshToken, error) {
	var refreshTokens []chat.RefreshToken
	if err := s.db.WithContext(ctx).Where("expires_at > ?", time.Now().Unix()).Find(&refreshTokens).Error; err != nil {
		return nil, err
	}

	for i := range refreshTokens {
		if VerifyHashedString(token, refreshTokens[i].TokenHash) {
			return &refreshTokens[i], nil
		}
	}
	return nil, ErrInvalidRefreshToken
}
