package auth

import (
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, loginLimiter *middleware.IPRateLimiter) {
	auth := router.Group("/auth")
	auth.POST("/register", Register)
	auth.POST("/login", middleware.RateLimit(loginLimiter), Login)
	auth.POST("/logout", middleware.RequireAuth(), Logout)
	auth.GET("/me", middleware.RequireAuth(), Me)
}
