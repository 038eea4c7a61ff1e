package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/coursechat/internal/api"
	"github.com/lalith-99/coursechat/internal/config"
	"github.com/lalith-99/coursechat/internal/db"
	"github.com/lalith-99/coursechat/internal/observ"
	"github.com/lalith-99/coursechat/internal/realtime"
	"github.com/lalith-99/coursechat/internal/repository/postgres"
	"github.com/lalith-99/coursechat/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 3. Connect to Postgres and bring the schema up to date
	// ---------------------------------------------------------------
	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if cfg.Migrate {
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	// ---------------------------------------------------------------
	// 4. Repositories and services
	//
	// Every store shares the pool; pgxpool is safe for concurrent use.
	// ---------------------------------------------------------------
	pool := database.Pool()
	chatRepo := postgres.NewChatStore(pool)
	membershipRepo := postgres.NewMembershipStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	userRepo := postgres.NewUserStore(pool)
	courseRepo := postgres.NewCourseStore(pool)

	directory := service.NewDirectory(chatRepo, membershipRepo, courseRepo, logger.Named("directory"))
	memberships := service.NewMemberships(chatRepo, membershipRepo)
	messages := service.NewMessages(memberships, messageRepo, userRepo, cfg.HistoryDefault, cfg.HistoryMax, logger.Named("messages"))

	// ---------------------------------------------------------------
	// 5. Realtime gateway
	// ---------------------------------------------------------------
	hub := realtime.NewHub()
	fanout, closeFanout, err := newFanout(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}
	defer closeFanout()

	gateway := realtime.NewGateway(hub, fanout, memberships, messages, realtime.GatewayConfig{
		SendRate:       cfg.WSSendRate,
		SendBurst:      cfg.WSSendBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	// ---------------------------------------------------------------
	// 6. HTTP server
	// ---------------------------------------------------------------
	router := api.NewRouter(api.Handlers{
		Auth:        api.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger),
		Users:       api.NewUserHandler(userRepo, logger),
		Chats:       api.NewChatHandler(directory, memberships, gateway, logger),
		Memberships: api.NewMembershipHandler(memberships, gateway, logger),
		Messages:    api.NewMessageHandler(messages, gateway, logger),
		Realtime:    gateway,
		Health:      database,
	}, cfg.JWTSecret, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting coursechat",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("fanout", cfg.Fanout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// ---------------------------------------------------------------
	// 7. Graceful shutdown
	//
	// Shutdown does not wait for hijacked WebSocket connections; those
	// die with the process and clients reconnect elsewhere.
	// ---------------------------------------------------------------
	logger.Info("shutting down", zap.Int("connections", hub.Connections()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newFanout picks the broadcast path. With redis the subscription must be
// confirmed before serving, or this instance would miss its own frames.
func newFanout(ctx context.Context, cfg *config.Config, hub *realtime.Hub, logger *zap.Logger) (realtime.Fanout, func(), error) {
	if cfg.Fanout != "redis" {
		return realtime.NewLocalFanout(hub), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	fanout := realtime.NewRedisFanout(client, hub, logger)
	runErr := make(chan error, 1)
	go func() {
		if err := fanout.Run(ctx); err != nil {
			logger.Error("redis fanout stopped", zap.Error(err))
			runErr <- err
		}
	}()

	select {
	case <-fanout.Ready():
	case err := <-runErr:
		client.Close()
		return nil, nil, err
	case <-time.After(10 * time.Second):
		client.Close()
		return nil, nil, errors.New("redis subscription not confirmed in time")
	}
	return fanout, func() { client.Close() }, nil
}
