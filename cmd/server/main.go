package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nightbite-be/internal/api"
	"nightbite-be/internal/config"
	"nightbite-be/internal/db"
	"nightbite-be/internal/logger"
	"nightbite-be/internal/menu"
	"nightbite-be/internal/metrics"
	"nightbite-be/internal/middleware"
	"nightbite-be/internal/notification"
	"nightbite-be/internal/order"
	"nightbite-be/internal/throttle"
	"nightbite-be/internal/user"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = listenAndServe
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := newServer(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.L().Info("http server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	return startServerFunc(ctx, ":"+cfg.AppPort, handler)
}

// newServer builds every component and returns the root handler plus a
// cleanup that stops background work and closes broker connections.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, func(), error) {
	log := logger.L()
	reg := metrics.NewRegistry()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Push delivery goes to RabbitMQ when configured, otherwise to the log.
	var sender notification.Sender = notification.LogSender{}
	if cfg.AMQPURL != "" {
		conn, err := notification.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, conn.Close)
		sender = notification.NewAMQPSender(conn.Channel, notification.DeliveryExchange)
		log.Info("push deliveries published to amqp", zap.String("exchange", notification.DeliveryExchange))
	}

	notifyRepo := notification.NewRepository(database)
	notifySvc := notification.NewService(notifyRepo, notification.NewBroadcaster(sender, notifyRepo, reg))

	scheduler, err := notification.NewScheduler(notifySvc, cfg.NotifyInterval, reg)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	scheduler.Start()
	closers = append(closers, func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	})

	orderCfg := order.ServiceConfig{
		DeliveryFee: cfg.DeliveryFee,
		Notifier:    notification.NewStatusNotifier(notifySvc),
		Metrics:     reg,
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, handover throttle fails open", zap.Error(err))
		}
		orderCfg.Limiter = throttle.NewAttemptLimiter(client, cfg.HandoverMaxAttempts, cfg.HandoverAttemptWindow)
	} else {
		log.Warn("REDIS_ADDR not set, handover attempts are not throttled")
	}

	menuRepo := menu.NewRepository(database)

	h := &api.Handler{
		Orders:        order.NewService(order.NewRepository(database), menuRepo, orderCfg),
		Menus:         menuRepo,
		Users:         user.NewService(user.NewRepository(database), []byte(cfg.JWTSecret)),
		Notifications: notifySvc,
		Metrics:       reg,
		SecureCookies: cfg.AppEnv == "production",
	}

	limiter := middleware.NewRateLimiter(cfg.InternalKey)
	go limiter.Cleanup(ctx)

	return setupRouter(h, cfg, limiter), cleanup, nil
}

func setupRouter(h *api.Handler, cfg *config.Config, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)

	var handler http.Handler = mux
	handler = limiter.Middleware(handler)
	handler = middleware.Auth([]byte(cfg.JWTSecret))(handler)
	handler = middleware.CORS(cfg.CORSOrigin)(handler)
	handler = logger.LoggingMiddleware(handler)
	handler = logger.RequestIDMiddleware(handler)
	return handler
}

// listenAndServe blocks until ctx is cancelled, then drains in-flight
// requests.
func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.L().Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
