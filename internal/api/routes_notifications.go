package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/handlers"
	"github.com/charlesng35/tripmate/internal/middleware"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("/stream", handler.Stream)
		group.GET("/user/:id", middleware.RequireSelf("id"), handler.List)
		group.GET("/user/:id/unread-count", middleware.RequireSelf("id"), handler.UnreadCount)
		group.PATCH("/:id/read", handler.MarkRead)
	}

	api.POST("/debug/ping-notify", handler.Ping)
}
