package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (userID int64, err error)
	Login(ctx context.Context, email, password string) (model.AuthToken, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid credentials payload")
		return
	}

	userID, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Created(c, gin.H{"userId": userID})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid credentials payload")
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Ok(c, gin.H{
		"accessToken": token.AccessToken,
		"expiresAt":   token.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	token, ok := middleware.AccessTokenFromCtx(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		ServiceError(c, err)
		return
	}

	Ok(c, nil)
}
