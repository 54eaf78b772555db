package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	authjwt "github.com/eraycetin/prepduel/internal/auth/jwt"
	"github.com/eraycetin/prepduel/internal/config"
	"github.com/eraycetin/prepduel/internal/db/repository"
	"github.com/eraycetin/prepduel/internal/duo"
	"github.com/eraycetin/prepduel/internal/logging"
	"github.com/eraycetin/prepduel/internal/question"
	"github.com/eraycetin/prepduel/internal/server"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	roomStore *duo.Store
	bgCancels []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	verifier := authjwt.NewVerifier(authjwt.VerifierConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Name,
	})

	questionRepo := repository.NewQuestionRepository(pool)
	flagRepo := repository.NewFlagRepository(pool)
	bankCache := question.NewCache(redisClient, cfg.Duo.PoolCacheTTL)
	bank := question.NewService(questionRepo, flagRepo, bankCache)

	roomStore := duo.NewStore(cfg.Duo.RoomTTL, cfg.Duo.CodeRetries, logger)
	builder := duo.NewBuilder(bank, cfg.Duo.QuestionsPerCategory)
	duoSvc := duo.NewService(roomStore, builder, bank, logger)
	duoHandlers := duo.NewHTTPHandlers(duoSvc, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, verifier, duoHandlers)

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		roomStore: roomStore,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.roomStore.RunSweeper(bgCtx, a.cfg.Duo.SweepInterval); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("room sweeper stopped")
		}
	}()
}
