package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/aidanmarr1/dt-chat-sub000/internal/handlers"
	"github.com/aidanmarr1/dt-chat-sub000/internal/middleware"
)

// RegisterChatRoutes wires the feed, mutation and presence endpoints.
// Everything here requires auth; the feed poll itself is deliberately
// unlimited since it fires every 2 seconds per client.
func RegisterChatRoutes(r gin.IRouter, limits *middleware.RateLimits) {
	chat := r.Group("")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("/messages", handlers.GetFeed)
		chat.POST("/messages", middleware.RateLimitByUser(limits.Send), handlers.SendMessage)
		chat.GET("/messages/pinned", handlers.GetPinnedMessages)
		chat.GET("/messages/search", middleware.RateLimitByUser(limits.Search), handlers.SearchMessages)
		chat.PATCH("/messages/:id", middleware.RateLimitByUser(limits.Mutate), handlers.EditMessage)
		chat.DELETE("/messages/:id", middleware.RateLimitByUser(limits.Mutate), handlers.DeleteMessage)
		chat.POST("/messages/:id/reactions", middleware.RateLimitByUser(limits.Mutate), handlers.ToggleReaction)
		chat.POST("/messages/:id/pin", middleware.RateLimitByUser(limits.Mutate), handlers.TogglePin)

		chat.POST("/polls", middleware.RateLimitByUser(limits.Send), handlers.CreatePoll)
		chat.POST("/polls/:id/vote", middleware.RateLimitByUser(limits.Mutate), handlers.VotePoll)

		chat.POST("/read-receipts", middleware.RateLimitByUser(limits.Receipt), handlers.UpsertReadReceipt)
		chat.POST("/typing", middleware.RateLimitByUser(limits.Receipt), handlers.TypingPing)
	}
}
