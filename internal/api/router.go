package api

import (
	"context"
	"net/http"

	"livechat/internal/auth"
	"livechat/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Router struct {
	am       *auth.AuthMiddleware
	ah       *AuthHandlers
	uh       *UserHandlers
	ch       *ContactHandlers
	mh       *MessageHandlers
	chh      *ChannelHandlers
	wsh      *WebSocketHandler
	strict   *middleware.IPRateLimiter
	standard *middleware.IPRateLimiter
	lenient  *middleware.IPRateLimiter
}

func (r *Router) RegisterRoutes(router *gin.Engine) {
	{
		unprotected := router.Group("/")
		unprotected.GET("/health", HealthCheckHandler)
		unprotected.GET("/ws", r.wsh.HandleWebSocket)
	}

	{
		public := router.Group("/api/auth")
		public.Use(middleware.RateLimitMiddleware(r.strict))
		public.POST("/signup", r.ah.SignupHandler)
		public.POST("/login", r.ah.LoginHandler)
	}

	protected := router.Group("/api")
	protected.Use(r.am.RequireAuth())

	// Read-only views that clients refresh often.
	reads := protected.Group("")
	reads.Use(middleware.RateLimitMiddleware(r.lenient))
	{
		reads.GET("/auth/user-info", r.uh.UserInfoHandler)
		reads.GET("/contacts/get-dm-contacts", r.ch.DMContactsHandler)
		reads.GET("/channels/get-user-channels", r.chh.GetUserChannelsHandler)
		reads.GET("/live/online", r.wsh.GetOnline)
	}

	api := protected.Group("")
	api.Use(middleware.RateLimitMiddleware(r.standard))
	{
		a := api.Group("/auth")
		a.PUT("/update-profile", r.uh.UpdateProfileHandler)
		a.DELETE("/logout", r.ah.LogoutHandler)
		a.POST("/refresh-token", r.ah.RefreshTokenHandler)
	}
	{
		contacts := api.Group("/contacts")
		contacts.POST("/search", r.ch.SearchHandler)
	}
	{
		messages := api.Group("/messages")
		messages.GET("/get-messages", r.mh.GetMessagesHandler)
		messages.POST("/update-unseen-messages", r.mh.UpdateUnseenMessagesHandler)
	}
	{
		channels := api.Group("/channels")
		channels.POST("/create", r.chh.CreateChannelHandler)
		channels.GET("/:id/messages", r.chh.GetChannelMessagesHandler)
	}
}

func newRateLimiters(ctx context.Context, logger *zap.Logger) (strict, standard, lenient *middleware.IPRateLimiter) {
	return middleware.NewIPRateLimiter(ctx, middleware.StrictRateLimit, logger),
		middleware.NewIPRateLimiter(ctx, middleware.StandardRateLimit, logger),
		middleware.NewIPRateLimiter(ctx, middleware.LenientRateLimit, logger)
}

func HealthCheckHandler(c *gin.Context) {
	c.String(http.StatusOK, "Running")
}
