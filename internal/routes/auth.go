package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/aidanmarr1/dt-chat-sub000/internal/handlers"
	"github.com/aidanmarr1/dt-chat-sub000/internal/middleware"
)

func RegisterAuthRoutes(r gin.IRouter, limits *middleware.RateLimits) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", middleware.RateLimitByIP(limits.Signup), handlers.Signup)
		auth.POST("/login", middleware.RateLimitByIP(limits.Login), handlers.Login)
		auth.POST("/logout", middleware.AuthMiddleware(), handlers.Logout)
	}
}
