package http

import (
	"net/http"

	"github.com/cryptofolio/backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func NewRouter(
	authMW middleware.AuthService,
	authHandler *AuthHandler,
	balanceHandler *BalanceHandler,
	rateHandler *RateHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/register", authHandler.register)
	auth.POST("/login", authHandler.login)
	auth.POST("/logout", middleware.Auth(authMW), authHandler.logout)

	api := r.Group("/api", middleware.Auth(authMW))
	api.GET("/balance", balanceHandler.getBalance)
	api.GET("/balance/total", balanceHandler.getTotalBalance)
	api.GET("/balance/report", balanceHandler.downloadReport)
	api.POST("/balance/assets", balanceHandler.addAsset)
	api.DELETE("/balance/assets", balanceHandler.removeAsset)
	api.POST("/balance/rebalance", balanceHandler.rebalance)
	api.GET("/rate", rateHandler.getRates)

	return r
}
