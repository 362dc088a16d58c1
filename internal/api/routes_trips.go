package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/handlers"
	"github.com/charlesng35/tripmate/internal/middleware"
)

func registerTripRoutes(api *gin.RouterGroup, handler *handlers.TripHandler) {
	trips := api.Group("/trips")
	{
		trips.POST("", handler.Create)
		trips.GET("/user/:userId", middleware.RequireSelf("userId"), handler.ListForUser)
		trips.PUT("/items/:itemId", handler.UpdateItem)
		trips.GET("/:id", handler.Get)
		trips.PUT("/:id", handler.Update)
		trips.DELETE("/:id", handler.Delete)
		trips.GET("/:id/items", handler.ListItems)
		trips.POST("/:id/items", handler.AddItem)
		trips.DELETE("/:id/items", handler.ClearItems)
	}
}

func registerPlanningRoutes(api *gin.RouterGroup, members *handlers.MemberHandler, stays *handlers.AccommodationHandler, expenses *handlers.ExpenseHandler) {
	m := api.Group("/members")
	{
		m.GET("", members.List)
		m.POST("", members.Add)
		m.PUT("/:id", members.UpdateRole)
		m.DELETE("/:id", members.Remove)
	}

	a := api.Group("/accommodations")
	{
		a.GET("", stays.List)
		a.POST("", stays.Create)
		a.PUT("/:id", stays.Update)
		a.PATCH("/:id", stays.Update)
		a.DELETE("/:id", stays.Delete)
	}

	e := api.Group("/expenses")
	{
		e.GET("", expenses.List)
		e.POST("/save", expenses.Save)
		e.DELETE("/trip/:tripId", expenses.DeleteByTrip)
		e.DELETE("/:id", expenses.Delete)
	}
}
