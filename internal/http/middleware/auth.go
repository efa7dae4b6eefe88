package middleware

import (
	"errors"
	"net/http"

	"todo_api/internal/logger"
	"todo_api/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName carries the session token.
	CookieName = "authToken"
	// UserIDKey is where Session stores the authenticated user id.
	UserIDKey = "user_id"
)

// TokenParser verifies a session token and returns its user id.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// Session rejects requests without a valid session cookie and exposes the
// user id to downstream handlers. It never touches the store.
func Session(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}

		userID, err := tokens.Parse(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, service.ErrTokenExpired) {
				msg = "token expired"
			}
			logger.WithContext(c.Request.Context()).Debug("session rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id stored by Session.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}
