package handlers

import (
	"errors"
	"net/http"

	"todo_api/internal/http/middleware"
	"todo_api/internal/logger"
	"todo_api/internal/service"

	"github.com/gin-gonic/gin"
)

type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	u, err := h.Accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already taken"})
		return
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		internalError(c, "sign-up failed", err)
		return
	}

	logger.WithContext(c.Request.Context()).Info("user registered", "user_id", u.ID)
	c.JSON(http.StatusCreated, gin.H{"success": "user created"})
}

func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	token, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
		return
	case errors.Is(err, service.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	case err != nil:
		internalError(c, "sign-in failed", err)
		return
	}

	h.setSessionCookie(c, token, int(service.SessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout always succeeds, with or without a session.
func (h *Handler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CheckAuth never fails: any verification problem is reported as
// authenticated=false.
func (h *Handler) CheckAuth(c *gin.Context) {
	token, err := c.Cookie(middleware.CookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	if _, err := h.Tokens.Parse(token); err != nil {
		logger.WithContext(c.Request.Context()).Debug("check-auth: token rejected", "error", err)
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.Cookie.SameSite)
	c.SetCookie(middleware.CookieName, value, maxAge, "/", "", h.Cookie.Secure, true)
}
