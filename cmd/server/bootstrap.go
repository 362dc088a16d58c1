package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/api"
	"github.com/charlesng35/tripmate/internal/app"
	"github.com/charlesng35/tripmate/internal/app/maintenance"
	"github.com/charlesng35/tripmate/internal/auth"
	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/database"
	"github.com/charlesng35/tripmate/internal/monitoring"
	"github.com/charlesng35/tripmate/internal/monitoring/checks"
	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/queue"
	"github.com/charlesng35/tripmate/internal/realtime"
	"github.com/charlesng35/tripmate/internal/services"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Queue   *queue.Manager
	Hub     *realtime.Hub
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// bootstrapRuntime initialises the database, cache, broker connection and HTTP router.
// The broker and Redis are optional at startup: the API serves requests while they
// are unreachable and notifications are dropped with a log line.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background())
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" && !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	stack.DB, err = app.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := auth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	stack.cancel = cancel

	health := monitoring.NewHealthManager(0)
	health.Register(checks.Database(stack.DB))

	dbStore := cache.NewDatabaseStore(stack.DB)
	var store cache.Store = dbStore
	if cfg.Cache.Redis.Enabled {
		client, redisErr := cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig())
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database cache", zap.Error(redisErr))
		} else {
			stack.Redis = client
			redisStore := cache.NewRedisStore(client, cfg.Cache.Redis.Prefix)
			store = redisStore
			health.Register(checks.Cache(redisStore))
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	if stack.Redis == nil {
		health.Register(checks.Cache(nil))
	}

	stack.Queue = queue.NewManager(cfg.Queue.ManagerConfig())
	health.Register(checks.Queue(stack.Queue, false))
	stack.goRun(func() {
		if err := stack.Queue.Connect(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("message broker unavailable; notifications will be dropped until it returns", zap.Error(err))
		}
	})
	events := notifications.NewDispatcher(stack.Queue, cfg.Queue.QueueName())

	if cfg.Realtime.Enabled {
		stack.Hub = realtime.NewHub(realtime.WithAllowedOrigins(cfg.Server.CORSOrigins))
		if stack.Redis != nil {
			relay := realtime.NewRelay(stack.Redis, cfg.Realtime.Channel, stack.Hub)
			stack.goRun(func() {
				if err := relay.Run(runCtx); err != nil {
					log.Warn("realtime relay stopped", zap.Error(err))
				}
			})
		} else {
			log.Warn("realtime enabled without redis; live inbox updates are unavailable")
		}
	}

	var sweepers []maintenance.Sweeper
	if stack.Redis == nil {
		sweepers = append(sweepers, dbStore)
	}
	stack.Cleaner = maintenance.NewCleaner(sweepers, maintenance.WithSweepSchedule(cfg.Maintenance.CacheSweepSchedule))
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}
	health.Register(checks.Maintenance(0))

	var planner *services.PlanService
	if strings.TrimSpace(cfg.AI.APIKey) != "" {
		planner, err = services.NewPlanService(services.PlanConfig{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise planner: %w", err)
		}
	} else {
		log.Info("ai api key not configured; trip planning disabled")
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:      stack.DB,
		JWT:     jwtSvc,
		Config:  cfg,
		Cache:   store,
		Events:  events,
		Hub:     stack.Hub,
		Health:  health,
		Planner: planner,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func (s *runtimeStack) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Shutdown stops background work and releases connections, reporting every failure.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.Queue != nil {
		errs = multierr.Append(errs, s.Queue.Close())
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = multierr.Append(errs, fmt.Errorf("background workers: %w", ctx.Err()))
	}

	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = multierr.Append(errs, database.Close(s.DB))
	}
	return errs
}
