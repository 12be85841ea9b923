package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/repository"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/layer-3/walletauth/internal/config"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
)

func main() {
	app := &cli.App{
		Name:  "walletauth",
		Usage: "wallet signature authentication service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"WALLETAUTH_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create the users schema for the configured SQL backend",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resources owns every connection opened for the configured backends
type resources struct {
	redis     *redis.Client
	users     ports.UserRepository
	nonces    ports.NonceStore
	denylist  ports.Denylist
	publisher message.Publisher
	health    []transport.HealthCheck
	closers   []func() error
}

func (r *resources) Close(logger *slog.Logger) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			logger.Warn("failed to close resource", "error", err)
		}
	}
}

type migrator interface {
	Migrate(ctx context.Context) error
}

func open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*resources, error) {
	res := &resources{}

	if cfg.UsesRedis() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		res.redis = redis.NewClient(opts)
		res.closers = append(res.closers, res.redis.Close)
		if err := res.redis.Ping(ctx).Err(); err != nil {
			res.Close(logger)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		res.health = append(res.health, func(ctx context.Context) error {
			return res.redis.Ping(ctx).Err()
		})
	}

	retention := 2 * cfg.Auth.NonceTTL
	switch cfg.Storage.NonceBackend {
	case "redis":
		res.nonces = store.NewRedisNonceStore(res.redis, retention)
		res.denylist = store.NewRedisDenylist(res.redis)
	default:
		res.nonces = store.NewMemoryNonceStore(retention)
		res.denylist = store.NewMemoryDenylist()
	}

	switch cfg.Storage.UserBackend {
	case "mysql", "sqlite":
		db, err := repository.OpenGorm(cfg.Storage.UserBackend, cfg.Storage.DSN)
		if err != nil {
			res.Close(logger)
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			res.Close(logger)
			return nil, err
		}
		res.closers = append(res.closers, sqlDB.Close)
		res.health = append(res.health, sqlDB.PingContext)
		res.users = repository.NewGormUserRepository(db)
	case "postgres":
		db, err := repository.OpenPostgres(ctx, cfg.Storage.DSN)
		if err != nil {
			res.Close(logger)
			return nil, err
		}
		res.closers = append(res.closers, db.Close)
		res.health = append(res.health, db.PingContext)
		res.users = repository.NewPostgresUserRepository(db)
	default:
		res.users = repository.NewMemoryUserRepository()
	}

	switch cfg.Events.Backend {
	case "redis":
		publisher, err := events.NewRedisStreamPublisher(res.redis, logger)
		if err != nil {
			res.Close(logger)
			return nil, err
		}
		res.publisher = publisher
	case "memory":
		res.publisher = events.NewInProcessPubSub(logger)
	}
	if res.publisher != nil {
		res.closers = append(res.closers, res.publisher.Close)
	}

	return res, nil
}

func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close(logger)

	if m, ok := res.users.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate users schema: %w", err)
		}
	}

	tk, err := tokenizer.NewJWTTokenizer([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create tokenizer: %w", err)
	}

	var eventPub ports.EventPublisher = events.NopPublisher{}
	if res.publisher != nil {
		eventPub = events.NewWatermillPublisher(res.publisher)
	}

	authService := service.NewAuthService(
		res.nonces,
		verifier.Default(),
		tk,
		res.users,
		eventPub,
		service.WithDenylist(res.denylist),
		service.WithLogger(logger),
		service.WithNonceTTL(cfg.Auth.NonceTTL),
	)

	gin.SetMode(cfg.Server.Mode)
	router, err := transport.SetupRouter(authService, logger, transport.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		HealthChecks:   res.health,
	})
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"address", cfg.Server.Address,
			"nonce_backend", cfg.Storage.NonceBackend,
			"user_backend", cfg.Storage.UserBackend,
			"events_backend", cfg.Events.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	res, err := open(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close(logger)

	m, ok := res.users.(migrator)
	if !ok {
		logger.Info("user backend has no schema to migrate", "backend", cfg.Storage.UserBackend)
		return nil
	}
	if err := m.Migrate(c.Context); err != nil {
		return fmt.Errorf("failed to migrate users schema: %w", err)
	}
	logger.Info("users schema migrated", "backend", cfg.Storage.UserBackend)
	return nil
}
