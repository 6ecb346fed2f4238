package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cryptofolio/backend/internal/service/authService"
	"github.com/cryptofolio/backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDKey      = "userID"
	accessTokenKey = "accessToken"
)

type AuthService interface {
	Verify(ctx context.Context, token string) (authService.Claims, error)
}

// Logger assigns a request id, propagates it through the request context and
// logs request duration.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()

		rqID := uuid.NewString()
		c.Request = c.Request.WithContext(utils.CtxWithRqID(c.Request.Context(), rqID))

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", c.Writer.Status()),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		c.Next()
	}
}

// Auth verifies the bearer token and stores the authenticated user id on the
// gin context.
func Auth(auth AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing bearer token"})
			return
		}

		claims, err := auth.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid token"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(accessTokenKey, token)
		c.Next()
	}
}

func UserIDFromCtx(c *gin.Context) (int64, bool) {
	userID, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// AccessTokenFromCtx returns the verified bearer token stored by Auth.
func AccessTokenFromCtx(c *gin.Context) (string, bool) {
	token, ok := c.Get(accessTokenKey)
	if !ok {
		return "", false
	}
	t, ok := token.(string)
	return t, ok
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
