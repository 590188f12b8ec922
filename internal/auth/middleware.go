package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	TokenCookie        = "token"
	RefreshTokenCookie = "refresh_token"
)

type AuthMiddleware struct {
	tokens *Tokens
}

func NewAuthMiddleware(tokens *Tokens) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(TokenCookie)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token cookie is missing"})
			c.Abort()
			return
		}

		claims, err := am.tokens.Validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// UserIDFromRequest returns the user id of a valid token cookie on r, or ""
// when the cookie is absent or invalid.
func (am *AuthMiddleware) UserIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	claims, err := am.tokens.Validate(cookie.Value)
	if err != nil {
		return ""
	}
	return claims.UserID
}
