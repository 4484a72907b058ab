package routes

import (
	"github.com/alumnihub/alumni-backend/internal/handler"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups every HTTP handler the API mounts
type Handlers struct {
	Auth         *handler.AuthHandler
	Message      *handler.MessageHandler
	MessageDB    *handler.MessageDBHandler
	Notification *handler.NotificationHandler
	Resource     *handler.ResourceHandler
	WS           *handler.WSHandler
}

// Limits are per-minute request budgets; zero disables a limiter
type Limits struct {
	LoginPerMinute int
	SendPerMinute  int
}

// Setup configures all API routes
func Setup(router *gin.Engine, h Handlers, auth middleware.AuthProvider, redisClient *redis.Client, limits Limits) {
	api := router.Group("/api")
	requireAuth := middleware.Auth(auth)

	// Authentication endpoints (no auth required)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", middleware.RateLimitByIP(redisClient, limits.LoginPerMinute), h.Auth.Login)
	authGroup.POST("/register", middleware.RateLimitByIP(redisClient, limits.LoginPerMinute), h.Auth.Register)
	authGroup.GET("/me", requireAuth, h.Auth.Me)

	// Chat through the delivery router
	messages := api.Group("/messages", requireAuth)
	messages.POST("/send", middleware.RateLimitPerUser(redisClient, limits.SendPerMinute), h.Message.Send)
	messages.GET("/conversations/:selfId", h.Message.Conversations)
	messages.GET("/:selfId/:peerId", h.Message.Fetch)
	messages.PUT("/mark-read/:peerId/:selfId", h.Message.MarkRead)

	// Primary store facade, the REST backend's upstream
	messagesDB := api.Group("/messages-db", requireAuth)
	messagesDB.POST("/send", middleware.RateLimitPerUser(redisClient, limits.SendPerMinute), h.MessageDB.Send)
	messagesDB.GET("/user/:userId", h.MessageDB.Involving)
	messagesDB.GET("/:selfId/:peerId", h.MessageDB.Conversation)
	messagesDB.PUT("/mark-read/:peerId/:selfId", h.MessageDB.MarkRead)

	api.GET("/directory", requireAuth, h.Message.Directory)

	notifications := api.Group("/notifications", requireAuth)
	notifications.GET("", h.Notification.GetList)
	notifications.DELETE("", h.Notification.DeleteAll)
	notifications.POST("/broadcast", h.Notification.Broadcast)
	notifications.GET("/unread-count", h.Notification.GetUnreadCount)
	notifications.PUT("/mark-all-read", h.Notification.MarkAllAsRead)
	notifications.PUT("/:id/read", h.Notification.MarkAsRead)
	notifications.DELETE("/:id", h.Notification.Delete)

	// Resource creation, each announced to students
	api.POST("/events", requireAuth, h.Resource.CreateEvent)
	api.POST("/jobs", requireAuth, h.Resource.CreateJob)
	api.POST("/courses", requireAuth, h.Resource.CreateCourse)
	api.POST("/mentorships", requireAuth, h.Resource.CreateMentorship)

	if h.WS != nil {
		router.GET("/ws", requireAuth, h.WS.Connect)
	}
}
