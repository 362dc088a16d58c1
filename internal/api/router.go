package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/app"
	iauth "github.com/charlesng35/tripmate/internal/auth"
	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/handlers"
	"github.com/charlesng35/tripmate/internal/middleware"
	"github.com/charlesng35/tripmate/internal/monitoring"
	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/realtime"
	"github.com/charlesng35/tripmate/internal/services"
)

// Dependencies carries everything the HTTP layer needs. Cache, Events, Hub,
// Health and Planner are optional.
type Dependencies struct {
	DB      *gorm.DB
	JWT     *iauth.JWTService
	Config  *app.Config
	Cache   cache.Store
	Events  notifications.EventSink
	Hub     *realtime.Hub
	Health  *monitoring.HealthManager
	Planner *services.PlanService
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))
	if deps.Cache != nil && cfg.Server.RateLimit.Requests > 0 {
		window := cfg.Server.RateLimit.Window
		if window <= 0 {
			window = time.Minute
		}
		r.Use(middleware.RateLimit(deps.Cache, cfg.Server.RateLimit.Requests, window))
	}

	registerHealthRoutes(r, cfg, deps.Health)
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	caches := services.NewCaches(deps.Cache, cfg.Cache.EntryTTL())

	authHandler, err := handlers.NewAuthHandler(deps.DB, deps.JWT)
	if err != nil {
		return nil, err
	}
	registerAuthRoutes(r, authHandler, cfg.Auth.DevLogin)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))
	api.GET("/auth/me", authHandler.Me)
	api.GET("/users/lookup", authHandler.Lookup)

	tripHandler, err := handlers.NewTripHandler(deps.DB, caches, deps.Events)
	if err != nil {
		return nil, err
	}
	registerTripRoutes(api, tripHandler)

	memberHandler, err := handlers.NewMemberHandler(deps.DB, caches)
	if err != nil {
		return nil, err
	}
	accommodationHandler, err := handlers.NewAccommodationHandler(deps.DB, caches, deps.Events)
	if err != nil {
		return nil, err
	}
	expenseHandler, err := handlers.NewExpenseHandler(deps.DB, caches)
	if err != nil {
		return nil, err
	}
	registerPlanningRoutes(api, memberHandler, accommodationHandler, expenseHandler)

	photoHandler, err := handlers.NewPhotoHandler(deps.DB)
	if err != nil {
		return nil, err
	}
	registerPhotoRoutes(api, photoHandler)

	notificationHandler, err := handlers.NewNotificationHandler(deps.DB, caches, deps.Events, deps.Hub)
	if err != nil {
		return nil, err
	}
	registerNotificationRoutes(api, notificationHandler)

	api.POST("/plan", handlers.NewPlanHandler(deps.Planner).Generate)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
