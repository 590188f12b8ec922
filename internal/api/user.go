package api

import (
	"errors"
	"net/http"

	"livechat/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandlers struct {
	service *user.UserService
	logger  *zap.Logger
}

func NewUserHandlers(service *user.UserService, logger *zap.Logger) *UserHandlers {
	return &UserHandlers{service: service, logger: logger}
}

// UserInfoHandler returns the authenticated user's profile
// @Summary Get current user
// @Tags User Management
// @Produce json
// @Security CookieAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /api/auth/user-info [get]
func (h *UserHandlers) UserInfoHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to load user")
		return
	}
	ok(c, http.StatusOK, "User found", newUserResponse(u))
}

// UpdateProfileHandler updates the display profile
// @Summary Update profile
// @Description Set first name, last name and profile color and mark the profile as set up
// @Tags User Management
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body user.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} UserResponse "Profile updated successfully"
// @Failure 400 {object} ErrorResponse "Missing profile fields"
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/auth/update-profile [put]
func (h *UserHandlers) UpdateProfileHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, err, "Failed to update profile")
		return
	}
	ok(c, http.StatusOK, "Profile updated successfully", newUserResponse(u))
}

func (h *UserHandlers) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, user.ErrProfileRequired):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrUserNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		fail(c, http.StatusInternalServerError, fallback)
	}
}
