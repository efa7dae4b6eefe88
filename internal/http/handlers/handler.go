package handlers

import (
	"context"
	"net/http"

	"todo_api/internal/domain"
	"todo_api/internal/http/middleware"
	"todo_api/internal/logger"
	"todo_api/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskStore persists tasks. Every method is scoped to the owning user.
type TaskStore interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, userID, id int64) (int64, error)
	Update(ctx context.Context, userID, id int64, u domain.TaskUpdate) (int64, error)
}

// CookieConfig holds the environment dependent cookie attributes.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
}

// CookiePolicy mirrors the deployment: cross-site cookies over TLS in
// production, strict same-site everywhere else.
func CookiePolicy(production bool) CookieConfig {
	if production {
		return CookieConfig{Secure: true, SameSite: http.SameSiteNoneMode}
	}
	return CookieConfig{Secure: false, SameSite: http.SameSiteStrictMode}
}

type Handler struct {
	Tasks    TaskStore
	Accounts *service.AccountService
	Tokens   middleware.TokenParser
	Cookie   CookieConfig
}

func NewHandler(tasks TaskStore, accounts *service.AccountService, tokens middleware.TokenParser, cookie CookieConfig) *Handler {
	return &Handler{
		Tasks:    tasks,
		Accounts: accounts,
		Tokens:   tokens,
		Cookie:   cookie,
	}
}

// internalError logs the cause and answers with a generic message.
func internalError(c *gin.Context, msg string, err error) {
	logger.WithContext(c.Request.Context()).Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func currentUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
	}
	return id, ok
}
