package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/api"
	"github.com/charlesng35/tripmate/internal/app"
	iauth "github.com/charlesng35/tripmate/internal/auth"
	"github.com/charlesng35/tripmate/internal/cache"
	sharedtestutil "github.com/charlesng35/tripmate/internal/database/testutil"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/monitoring"
	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/notifications/notificationstest"
	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/crypto"
	"github.com/charlesng35/tripmate/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Cache  *cache.MemoryStore
	Sink   *notificationstest.RecordingSink
	Config *app.Config
}

type envOptions struct {
	events  notifications.EventSink
	planner *services.PlanService
	health  *monitoring.HealthManager
	mutate  func(*app.Config)
}

// Option customises NewEnv.
type Option func(*envOptions)

// WithEvents routes notification events to sink instead of the recording sink.
func WithEvents(sink notifications.EventSink) Option {
	return func(o *envOptions) { o.events = sink }
}

// WithPlanner mounts the itinerary planner.
func WithPlanner(planner *services.PlanService) Option {
	return func(o *envOptions) { o.planner = planner }
}

// WithHealth mounts the readiness endpoints backed by manager.
func WithHealth(manager *monitoring.HealthManager) Option {
	return func(o *envOptions) { o.health = manager }
}

// WithConfig adjusts the configuration before the router is built.
func WithConfig(fn func(*app.Config)) Option {
	return func(o *envOptions) { o.mutate = fn }
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var options envOptions
	for _, opt := range opts {
		opt(&options)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Server: app.ServerConfig{
			RateLimit: app.RateLimitConfig{Requests: 1000, Window: time.Minute},
		},
		Cache: app.CacheConfig{TTL: time.Minute},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			DevLogin: true,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	if options.mutate != nil {
		options.mutate(cfg)
	}

	store := cache.NewMemoryStore(nil)
	sink := &notificationstest.RecordingSink{}
	events := options.events
	if events == nil {
		events = sink
	}
	health := options.health
	if health == nil {
		health = monitoring.NewHealthManager(time.Second)
	}

	router, err := api.NewRouter(api.Dependencies{
		DB:      db,
		JWT:     jwtSvc,
		Config:  cfg,
		Cache:   store,
		Events:  events,
		Health:  health,
		Planner: options.planner,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Cache:  store,
		Sink:   sink,
		Config: cfg,
	}
}

// CreateUser inserts a user with a random address and returns it with a valid access token.
func (e *Env) CreateUser(name string) (*models.User, string) {
	e.T.Helper()

	hashed, err := crypto.HashPassword("Passw0rd!")
	require.NoError(e.T, err)

	user := &models.User{
		Email:    name + "-" + uuid.NewString()[:8] + "@example.com",
		Password: hashed,
		Name:     name,
	}
	require.NoError(e.T, e.DB.Create(user).Error)

	token, err := e.JWT.GenerateAccessToken(user.ID, user.Email)
	require.NoError(e.T, err)
	return user, token
}

// CreateTrip posts a trip as the token's owner and returns its id.
func (e *Env) CreateTrip(token, destination string) uint {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/trips", map[string]any{
		"fromCity":    "Tokyo",
		"destination": destination,
		"startDate":   "2024-05-01",
		"endDate":     "2024-05-04",
	}, token)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var trip models.Trip
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &trip)
	require.NotZero(e.T, trip.ID)
	return trip.ID
}

// AddMember joins userID to tripID as a plain member.
func (e *Env) AddMember(token string, tripID, userID uint) {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/members", map[string]any{"tripId": tripID, "userId": userID}, token)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
