package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/app"
	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/database"
	"github.com/charlesng35/tripmate/internal/handlers"
	"github.com/charlesng35/tripmate/internal/middleware"
	"github.com/charlesng35/tripmate/internal/monitoring"
	"github.com/charlesng35/tripmate/internal/monitoring/checks"
	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/queue"
	"github.com/charlesng35/tripmate/internal/realtime"
)

// worker owns everything the notification consumer process needs.
type worker struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Queue    *queue.Manager
	Consumer *notifications.Consumer
	Router   *gin.Engine

	cfg *app.Config
	log *zap.Logger
}

// bootstrapWorker opens the database, optional Redis cache and the broker manager.
// It does not connect to the broker; Run does, and fails when it cannot.
func bootstrapWorker(ctx context.Context, cfg *app.Config, log *zap.Logger, queueOpts ...queue.Option) (*worker, error) {
	w := &worker{cfg: cfg, log: log}
	success := false
	defer func() {
		if !success {
			_ = w.Close()
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" && !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	w.DB, err = app.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	health := monitoring.NewHealthManager(0)
	health.Register(checks.Database(w.DB))

	var store cache.Store = cache.NewDatabaseStore(w.DB)
	opts := []notifications.ConsumerOption{}
	if cfg.Cache.Redis.Enabled {
		client, redisErr := cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig())
		if redisErr != nil {
			log.Warn("redis unavailable; invalidating the database cache instead", zap.Error(redisErr))
		} else {
			w.Redis = client
			redisStore := cache.NewRedisStore(client, cfg.Cache.Redis.Prefix)
			store = redisStore
			health.Register(checks.Cache(redisStore))
			if cfg.Realtime.Enabled {
				opts = append(opts, notifications.WithRealtime(realtime.NewRedisPublisher(client, cfg.Realtime.Channel)))
			}
		}
	}
	if w.Redis == nil {
		health.Register(checks.Cache(nil))
	}
	opts = append(opts, notifications.WithInvalidator(cache.NewInvalidator(store)))

	w.Queue = queue.NewManager(cfg.Queue.ManagerConfig(), queueOpts...)
	health.Register(checks.Queue(w.Queue, true))

	w.Consumer = notifications.NewConsumer(w.Queue, w.DB, cfg.ConsumerSettings(), opts...)

	w.Router = gin.New()
	w.Router.Use(middleware.Recovery())
	w.Router.GET("/health", handlers.Liveness(health))
	w.Router.GET("/health/ready", handlers.Readiness(health))
	w.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	success = true
	return w, nil
}

// Run connects to the broker, serves probes on the metrics address and consumes
// until ctx ends.
func (w *worker) Run(ctx context.Context) error {
	if err := w.Queue.Connect(ctx); err != nil {
		return fmt.Errorf("connect to message broker: %w", err)
	}

	var server *http.Server
	serverErr := make(chan error, 1)
	if addr := w.cfg.Notifications.Consumer.MetricsAddress; addr != "" {
		server = &http.Server{Addr: addr, Handler: w.Router, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			w.log.Info("probe server listening", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumeErr := make(chan error, 1)
	go func() { consumeErr <- w.Consumer.Run(consumeCtx) }()

	var runErr error
	select {
	case runErr = <-consumeErr:
	case err := <-serverErr:
		cancel()
		runErr = multierr.Append(fmt.Errorf("probe server: %w", err), <-consumeErr)
	}

	if server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		runErr = multierr.Append(runErr, ignoreClosed(server.Shutdown(shutdownCtx)))
	}
	return runErr
}

// Close releases the broker, Redis and database connections.
func (w *worker) Close() error {
	var errs error
	if w.Queue != nil {
		errs = multierr.Append(errs, w.Queue.Close())
	}
	if w.Redis != nil {
		errs = multierr.Append(errs, w.Redis.Close())
	}
	if w.DB != nil {
		errs = multierr.Append(errs, database.Close(w.DB))
	}
	return errs
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
