package api

import (
	"errors"
	"net/http"

	"livechat/internal/message"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MessageHandlers struct {
	service *message.MessageService
	logger  *zap.Logger
}

func NewMessageHandlers(service *message.MessageService, logger *zap.Logger) *MessageHandlers {
	return &MessageHandlers{service: service, logger: logger}
}

type UpdateUnseenRequest struct {
	UserID string `json:"userId" binding:"required" example:"a1b2c3d4"`
}

// GetMessagesHandler returns a direct conversation
// @Summary Get direct message history
// @Description Chronological history with one user. Messages from that user are marked seen.
// @Tags Messages
// @Produce json
// @Security CookieAuth
// @Param userId query string true "Other user ID"
// @Success 200 {array} chat.PopulatedMessage
// @Failure 400 {object} ErrorResponse "Missing user id"
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/messages/get-messages [get]
func (h *MessageHandlers) GetMessagesHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	messages, err := h.service.GetMessages(c.Request.Context(), userID, c.Query("userId"))
	switch {
	case errors.Is(err, message.ErrUserIDsRequired):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to load conversation", zap.String("user_id", userID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	ok(c, http.StatusOK, "Messages loaded", messages)
}

// UpdateUnseenMessagesHandler marks a conversation as read
// @Summary Mark messages seen
// @Description Flip the seen flag on every message from userId to the caller
// @Tags Messages
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body UpdateUnseenRequest true "Correspondent"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Missing user id"
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/messages/update-unseen-messages [post]
func (h *MessageHandlers) UpdateUnseenMessagesHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	var req UpdateUnseenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.MarkSeen(c.Request.Context(), userID, req.UserID)
	switch {
	case errors.Is(err, message.ErrUserIDsRequired):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to mark messages seen", zap.String("user_id", userID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to update messages")
		return
	}
	ok(c, http.StatusOK, "Messages marked as seen", gin.H{"updated": updated})
}
