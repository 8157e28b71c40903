package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Auth   *AuthHandler
	Chat   *ChatHandler
	Upload *UploadHandler
	WS     *WSHandler
}

// Register mounts the API on router. authMW guards everything except the
// sign-in routes; limitMW runs after it so limits are per viewer.
func (h Handlers) Register(router *gin.Engine, authMW, limitMW gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "firechat-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		authGroup.Use(limitMW)
		{
			authGroup.POST("/submit", h.Auth.Submit)
			authGroup.POST("/google", h.Auth.GoogleLogin)
			authGroup.POST("/token", h.Auth.TokenLogin)
		}

		protected := api.Group("")
		protected.Use(authMW, limitMW)
		{
			protected.GET("/auth/me", h.Auth.Me)
			protected.POST("/auth/password", h.Auth.SetPassword)
			protected.POST("/auth/logout", h.Auth.Logout)

			protected.GET("/users/search", h.Chat.SearchUsers)

			// Chats
			protected.POST("/chats/direct", h.Chat.CreateDirect)
			protected.POST("/chats/groups", h.Chat.CreateGroup)
			protected.DELETE("/chats/:id", h.Chat.DeleteGroup)
			protected.POST("/chats/:id/members", h.Chat.AddMember)
			protected.GET("/chats/:id/candidates", h.Chat.Candidates)
			protected.POST("/chats/:id/leave", h.Chat.LeaveGroup)
			protected.POST("/chats/:id/block", h.Chat.SetBlocked)

			// Messages
			protected.POST("/chats/:id/messages", h.Chat.SendMessage)
			protected.POST("/chats/:id/files", h.Chat.SendFile)
			protected.DELETE("/messages/:id", h.Chat.DeleteMessage)
			protected.POST("/messages/:id/reactions", h.Chat.React)
			protected.POST("/messages/:id/forward", h.Chat.Forward)

			// Invitations
			protected.POST("/invitations/:id/accept", h.Chat.AcceptInvitation)
			protected.POST("/invitations/:id/reject", h.Chat.RejectInvitation)

			// Upload relay
			protected.POST("/upload", h.Upload.Upload)
		}
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", h.WS.HandleWebSocket)
}
