package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoodesk/internal/api/handlers"
	"github.com/yoockh/yoodesk/internal/api/middleware"
	"github.com/yoockh/yoodesk/internal/metrics"
)

type Deps struct {
	Auth          middleware.Authenticator
	AuthHandler   *handlers.AuthHandler
	Conversation  *handlers.ConversationHandler
	Message       *handlers.MessageHandler
	Expert        *handlers.ExpertHandler
	Updates       *handlers.UpdatesHandler
	HealthChecker func() error // optional
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		if d.HealthChecker != nil {
			if err := d.HealthChecker(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	r.POST("/auth/register", d.AuthHandler.Register)
	r.POST("/auth/login", d.AuthHandler.Login)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Auth))

	auth.POST("/auth/logout", d.AuthHandler.Logout)
	auth.POST("/auth/refresh", d.AuthHandler.Refresh)
	auth.GET("/auth/me", d.AuthHandler.Me)

	auth.POST("/conversations", d.Conversation.Create)
	auth.GET("/conversations", d.Conversation.List)
	auth.GET("/conversations/:id", d.Conversation.Get)
	auth.GET("/conversations/:id/messages", d.Message.List)

	auth.POST("/messages", d.Message.Create)
	auth.PUT("/messages/:id/read", d.Message.MarkRead)

	auth.GET("/expert/queue", d.Expert.Queue)
	auth.GET("/expert/profile", d.Expert.Profile)
	auth.PUT("/expert/profile", d.Expert.UpdateProfile)
	auth.GET("/expert/assignments/history", d.Expert.History)
	auth.POST("/expert/conversations/:id/claim", d.Expert.Claim)
	auth.POST("/expert/conversations/:id/unclaim", d.Expert.Unclaim)

	auth.GET("/api/conversations/updates", d.Updates.Conversations)
	auth.GET("/api/messages/updates", d.Updates.Messages)
	auth.GET("/api/expert-queue/updates", d.Updates.ExpertQueue)
}
