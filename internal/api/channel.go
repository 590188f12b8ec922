package api

import (
	"errors"
	"net/http"

	"livechat/internal/channel"
	"livechat/pkg/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChannelHandlers struct {
	service *channel.ChannelService
	logger  *zap.Logger
}

func NewChannelHandlers(service *channel.ChannelService, logger *zap.Logger) *ChannelHandlers {
	return &ChannelHandlers{service: service, logger: logger}
}

type CreateChannelRequest struct {
	Name    string   `json:"name" binding:"required" example:"general"`
	Members []string `json:"members" example:"a1b2c3d4,e5f6g7h8"`
}

// CreateChannelHandler creates a channel administered by the caller
// @Summary Create channel
// @Description Create a channel with the given members. The creator is admin and always a member.
// @Tags Channels
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body CreateChannelRequest true "Channel"
// @Success 201 {object} chat.ChannelSummary
// @Failure 400 {object} ErrorResponse "Invalid name or members"
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/channels/create [post]
func (h *ChannelHandlers) CreateChannelHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ch, err := h.service.CreateChannel(c.Request.Context(), userID, req.Name, req.Members)
	if err != nil {
		h.respondError(c, err, "Failed to create channel")
		return
	}
	ok(c, http.StatusCreated, "Channel created", ch.Summary())
}

// GetUserChannelsHandler lists the caller's channels
// @Summary List channels
// @Description Channels the caller administers or belongs to, most recently active first
// @Tags Channels
// @Produce json
// @Security CookieAuth
// @Success 200 {array} chat.ChannelSummary
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/channels/get-user-channels [get]
func (h *ChannelHandlers) GetUserChannelsHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	channels, err := h.service.GetUserChannels(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to load channels")
		return
	}

	out := make([]chat.ChannelSummary, 0, len(channels))
	for i := range channels {
		out = append(out, channels[i].Summary())
	}
	ok(c, http.StatusOK, "Channels loaded", out)
}

// GetChannelMessagesHandler returns a channel's history
// @Summary Channel messages
// @Description Messages of a channel in posting order. Members only.
// @Tags Channels
// @Produce json
// @Security CookieAuth
// @Param id path string true "Channel ID"
// @Success 200 {array} chat.PopulatedMessage
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 403 {object} ErrorResponse "Not a member"
// @Failure 404 {object} ErrorResponse "Channel not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/channels/{id}/messages [get]
func (h *ChannelHandlers) GetChannelMessagesHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	messages, err := h.service.Messages(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to load channel messages")
		return
	}
	ok(c, http.StatusOK, "Messages loaded", messages)
}

func (h *ChannelHandlers) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, channel.ErrNameRequired), errors.Is(err, channel.ErrInvalidMembers):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, channel.ErrNotChannelMember):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, channel.ErrChannelNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		fail(c, http.StatusInternalServerError, fallback)
	}
}
