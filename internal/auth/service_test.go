package auth

import (
	"context"
	"testing"

	"livechat/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&chat.User{}, &chat.RefreshToken{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func TestAuthService_Signup(t *testing.T) {
	service := NewAuthService(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid signup", email: "Ada@Example.com ", password: "pw"},
		{name: "empty email", email: "", password: "pw", wantErr: ErrEmailRequired},
		{name: "empty password", email: "bob@example.com", password: "", wantErr: ErrEmailRequired},
		{name: "duplicate email", email: "ada@example.com", password: "other", wantErr: ErrEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := service.Signup(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", user.Email)
			assert.NotEmpty(t, user.ID)
			assert.NotEqual(t, tt.password, user.Password, "password should be hashed")
			assert.False(t, user.ProfileSetup)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	service := NewAuthService(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	created, err := service.Signup(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	user, err := service.Login(ctx, "ADA@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = service.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrEmailRequired)
}

func TestAuthService_RefreshTokens(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuthService(db, zap.NewNop())
	ctx := context.Background()

	user, err := service.Signup(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	token, err := service.CreateRefreshToken(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, err := service.ValidateRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = service.ValidateRefreshToken(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, service.RevokeRefreshToken(ctx, token))
	_, err = service.ValidateRefreshToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.NoError(t, service.RevokeRefreshToken(ctx, "bogus"))

	var count int64
	db.Model(&chat.RefreshToken{}).Count(&count)
	assert.Zero(t, count)
}

func TestHashString(t *testing.T) {
	hash, err := HashString("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)
	assert.True(t, VerifyHashedString("secret", hash))
	assert.False(t, VerifyHashedString("other", hash))
}
