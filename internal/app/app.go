package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/config"
	"github.com/gokatarajesh/trivia-api/internal/db"
	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	"github.com/gokatarajesh/trivia-api/internal/events"
	"github.com/gokatarajesh/trivia-api/internal/logging"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
	"github.com/gokatarajesh/trivia-api/internal/question"
	"github.com/gokatarajesh/trivia-api/internal/server"
	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, event bus, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	sqlDB *sql.DB
	redis *redis.Client
	http  *http.Server

	broadcaster *events.Broadcaster
	bgCancels   []context.CancelFunc
}

// New bootstraps logger, Postgres, the optional Redis bus and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, sqlDB, err := db.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}

	gdb, err := repository.Open(sqlDB, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	questionRepo := repository.NewQuestionRepository(gdb)

	wsHub := ws.NewHub(logger)

	var (
		redisClient *redis.Client
		publisher   question.Publisher = events.NewLocalPublisher(wsHub)
		broadcaster *events.Broadcaster
	)
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		publisher = events.NewRedisPublisher(redisClient, cfg.Redis.EventsChannel)
		broadcaster = events.NewBroadcaster(redisClient, wsHub, cfg.Redis.EventsChannel, logger)
		logger.Info().Str("channel", cfg.Redis.EventsChannel).Msg("question events routed through redis")
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; question events stay in-process")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	questionSvc := question.NewService(questionRepo, publisher, logger, question.Options{
		PageSize:     cfg.Runtime.QuestionsPerPage,
		StoreTimeout: cfg.Runtime.StoreTimeout,
		Metrics:      m,
	})

	apiServer := server.NewHTTPServer(cfg, logger, server.Dependencies{
		Pool:      pool,
		Redis:     redisClient,
		Metrics:   m,
		Questions: question.NewHTTPHandler(questionSvc, logger),
		Feed:      events.NewFeedHandler(wsHub, logger),
	})

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		sqlDB:       sqlDB,
		redis:       redisClient,
		http:        apiServer,
		broadcaster: broadcaster,
		bgCancels:   make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if err := a.sqlDB.Close(); err != nil {
		a.logger.Error().Err(err).Msg("sql handle close error")
	}
	a.pool.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.broadcaster == nil {
		return
	}
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.broadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("question broadcaster stopped")
		}
	}()
}
