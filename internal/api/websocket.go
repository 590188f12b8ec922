package api

import (
	"net/http"

	"livechat/internal/auth"
	"livechat/internal/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	handler  *websocket.MessageHandler
	auth     *auth.AuthMiddleware
	upgrader gorilla.Upgrader
	opts     websocket.ClientOptions
	logger   *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, handler *websocket.MessageHandler, am *auth.AuthMiddleware, origin string, opts websocket.ClientOptions, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		handler:  handler,
		auth:     am,
		upgrader: websocket.NewUpgrader(origin),
		opts:     opts,
		logger:   logger,
	}
}

type OnlineResponse struct {
	Users       []string `json:"users"`
	Connections int      `json:"connections"`
}

// @Summary WebSocket connection endpoint
// @Description Upgrade to the live channel. The user comes from the token cookie, else the userId query parameter.
// @Tags websocket
// @Param userId query string false "User ID when no token cookie is sent"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} ErrorResponse "Bad Request"
// @Router /ws [get]
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := h.auth.UserIDFromRequest(c.Request)
	if userID == "" {
		userID = c.Query("userId")
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	websocket.NewClient(conn, userID, h.opts, h.logger).Serve(h.hub, h.handler)
}

// @Summary Online users
// @Description Current online snapshot and number of live connections
// @Tags websocket
// @Security CookieAuth
// @Produce json
// @Success 200 {object} OnlineResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/live/online [get]
func (h *WebSocketHandler) GetOnline(c *gin.Context) {
	ok(c, http.StatusOK, "Online users", OnlineResponse{
		Users:       h.hub.Presence().Snapshot(),
		Connections: h.hub.Registry().Connections(),
	})
}
