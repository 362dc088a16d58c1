package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/handlers"
)

func registerPhotoRoutes(api *gin.RouterGroup, handler *handlers.PhotoHandler) {
	photos := api.Group("/photos")
	{
		photos.POST("", handler.Create)
		photos.GET("/trip/:tripId", handler.ListForTrip)
		photos.GET("/trip/:tripId/day/:dayIndex", handler.ListForDay)
		photos.DELETE("/comment/:commentId", handler.DeleteComment)
		photos.DELETE("/:id", handler.Delete)
		photos.POST("/:id/like", handler.Like)
		photos.DELETE("/:id/like", handler.Unlike)
		photos.GET("/:id/likes", handler.Likes)
		photos.POST("/:id/comments", handler.AddComment)
		photos.GET("/:id/comments", handler.Comments)
	}
}
