package api

import (
	"errors"
	"net/http"
	"time"

	"livechat/internal/auth"
	"livechat/pkg/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandlers struct {
	authService *auth.AuthService
	tokens      *auth.Tokens
	secure      bool
	logger      *zap.Logger
}

func NewAuthHandlers(authService *auth.AuthService, tokens *auth.Tokens, secure bool, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		tokens:      tokens,
		secure:      secure,
		logger:      logger,
	}
}

type CredentialsInput struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"securePassword123"`
}

type UserResponse struct {
	ID           string `json:"id" example:"a1b2c3d4"`
	Email        string `json:"email" example:"ada@example.com"`
	FirstName    string `json:"firstName,omitempty" example:"Ada"`
	LastName     string `json:"lastName,omitempty" example:"Lovelace"`
	ProfilePic   string `json:"profilePic,omitempty"`
	ProfileColor int    `json:"profileColor" example:"2"`
	ProfileSetup bool   `json:"profileSetup"`
}

func newUserResponse(u *chat.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ProfilePic:   u.ProfilePic,
		ProfileColor: u.ProfileColor,
		ProfileSetup: u.ProfileSetup,
	}
}

// SignupHandler registers a new user
// @Summary Register a new user
// @Description Register a new user with email and password and start a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body CredentialsInput true "Signup request"
// @Success 201 {object} UserResponse "User registered successfully"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/auth/signup [post]
func (h *AuthHandlers) SignupHandler(c *gin.Context) {
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), input.Email, input.Password)
	switch {
	case errors.Is(err, auth.ErrEmailRequired):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrEmailTaken):
		fail(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("signup failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if !h.startSession(c, user) {
		return
	}
	ok(c, http.StatusCreated, "Signup successful", newUserResponse(user))
}

// LoginHandler authenticates a user
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body CredentialsInput true "Login request"
// @Success 200 {object} UserResponse "User logged in successfully"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthHandlers) LoginHandler(c *gin.Context) {
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Login(c.Request.Context(), input.Email, input.Password)
	switch {
	case errors.Is(err, auth.ErrEmailRequired):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	if !h.startSession(c, user) {
		return
	}
	ok(c, http.StatusOK, "Login successful", newUserResponse(user))
}

// LogoutHandler logs out the user
// @Summary Logout user
// @Description Revoke the refresh token and clear authentication cookies
// @Tags Authentication
// @Produce json
// @Security CookieAuth
// @Success 200 {object} MessageResponse "User logged out successfully"
// @Router /api/auth/logout [delete]
func (h *AuthHandlers) LogoutHandler(c *gin.Context) {
	if refreshToken, err := c.Cookie(auth.RefreshTokenCookie); err == nil && refreshToken != "" {
		if err := h.authService.RevokeRefreshToken(c.Request.Context(), refreshToken); err != nil {
			h.logger.Warn("failed to revoke refresh token", zap.Error(err))
		}
	}

	h.setCookie(c, auth.TokenCookie, "", -1)
	h.setCookie(c, auth.RefreshTokenCookie, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// RefreshTokenHandler refreshes the JWT token
// @Summary Refresh JWT token
// @Description Issue a new access token from the refresh token cookie
// @Tags Authentication
// @Produce json
// @Security CookieAuth
// @Success 200 {object} MessageResponse "Token refreshed successfully"
// @Failure 401 {object} ErrorResponse "Invalid or missing refresh token"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/auth/refresh-token [post]
func (h *AuthHandlers) RefreshTokenHandler(c *gin.Context) {
	refreshToken, err := c.Cookie(auth.RefreshTokenCookie)
	if err != nil || refreshToken == "" {
		fail(c, http.StatusUnauthorized, "No refresh token")
		return
	}

	user, err := h.authService.ValidateRefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		h.logger.Error("token generation failed", zap.String("user_id", user.ID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.setCookie(c, auth.TokenCookie, token, h.tokens.TTL())
	c.JSON(http.StatusOK, gin.H{"message": "Token refreshed"})
}

func (h *AuthHandlers) startSession(c *gin.Context, user *chat.User) bool {
	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		h.logger.Error("token generation failed", zap.String("user_id", user.ID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Token generation failed")
		return false
	}
	refreshToken, err := h.authService.CreateRefreshToken(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("refresh token generation failed", zap.String("user_id", user.ID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Refresh token generation failed")
		return false
	}

	h.setCookie(c, auth.TokenCookie, token, h.tokens.TTL())
	h.setCookie(c, auth.RefreshTokenCookie, refreshToken, auth.RefreshTokenTTL)
	return true
}

// setCookie writes an http-only cookie. A negative maxAge deletes it.
func (h *AuthHandlers) setCookie(c *gin.Context, name, value string, maxAge time.Duration) {
	seconds := int(maxAge.Seconds())
	if maxAge < 0 {
		seconds = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, seconds, "/", "", h.secure, true)
}
