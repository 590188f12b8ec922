package api

import (
	"errors"
	"net/http"

	"livechat/internal/contact"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ContactHandlers struct {
	service *contact.ContactService
	logger  *zap.Logger
}

func NewContactHandlers(service *contact.ContactService, logger *zap.Logger) *ContactHandlers {
	return &ContactHandlers{service: service, logger: logger}
}

type SearchContactsRequest struct {
	Query string `json:"query" example:"ada"`
}

// SearchHandler finds users by name or email
// @Summary Search contacts
// @Description Case-insensitive match on first name, last name and email, excluding the caller
// @Tags Contacts
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body SearchContactsRequest true "Search query"
// @Success 200 {array} chat.UserSnippet
// @Failure 400 {object} ErrorResponse "Query is required"
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/contacts/search [post]
func (h *ContactHandlers) SearchHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	var req SearchContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	contacts, err := h.service.Search(c.Request.Context(), userID, req.Query)
	switch {
	case errors.Is(err, contact.ErrQueryRequired):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("contact search failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Search failed")
		return
	}
	ok(c, http.StatusOK, "Contacts found", contacts)
}

// DMContactsHandler lists direct-message correspondents
// @Summary Direct message contacts
// @Description Everyone the caller exchanged direct messages with, most recent first, with unseen counts
// @Tags Contacts
// @Produce json
// @Security CookieAuth
// @Success 200 {array} chat.ContactSummary
// @Failure 401 {object} ErrorResponse "User not authenticated"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/contacts/get-dm-contacts [get]
func (h *ContactHandlers) DMContactsHandler(c *gin.Context) {
	userID, authenticated := currentUserID(c)
	if !authenticated {
		return
	}

	contacts, err := h.service.DMContacts(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load dm contacts", zap.String("user_id", userID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to load contacts")
		return
	}
	ok(c, http.StatusOK, "Contacts loaded", contacts)
}
