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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/auth"
	"github.com/communitytime/allocation-api/internal/config"
	"github.com/communitytime/allocation-api/internal/db"
	internalhttp "github.com/communitytime/allocation-api/internal/http"
)

const identityAudience = "allocation-ui"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogging(cfg)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := migrateUp(pool); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
	} else {
		log.Warn().Msg("REDIS_URL not set: rate limits and access logs are per process")
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           internalhttp.NewRouter(cfg, pool, redisClient, verifier),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("env", cfg.Env).
			Bool("strict_auth", cfg.StrictAuth).
			Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

func migrateUp(pool *pgxpool.Pool) error {
	migrator, err := db.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

// newVerifier returns nil when strict auth is off; the open gate never
// looks at tokens.
func newVerifier(ctx context.Context, cfg *config.Config) (auth.Verifier, error) {
	if !cfg.StrictAuth {
		return nil, nil
	}
	switch cfg.IdentityProvider {
	case config.IdentityLocal:
		return auth.NewTokenManager(cfg.IdentitySecret, identityAudience, cfg.IdentityTTL), nil
	default:
		return auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	}
}
