package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/handlers"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler, devLogin bool) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
	}

	if devLogin {
		r.POST("/api/dev/login-as/:id", handler.LoginAs)
	}
}
