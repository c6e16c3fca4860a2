package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/config"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
	httperrors "github.com/gokatarajesh/trivia-api/pkg/http/errors"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the handlers and clients the HTTP surface is assembled from.
// Nil members are skipped.
type Dependencies struct {
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Metrics   *metrics.Metrics
	Questions RouteRegistrar
	Feed      http.Handler
	// Gatherer backs /metrics; nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// RouteRegistrar mounts a feature's routes on the mux.
type RouteRegistrar interface {
	Register(mux *http.ServeMux)
}

// NewHTTPServer wires the trivia routes plus health, readiness and metrics.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Dependencies) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, logger, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the full middleware-wrapped handler tree.
func NewHandler(cfg *config.App, logger zerolog.Logger, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	var checks []Pinger
	if deps.Pool != nil {
		checks = append(checks, deps.Pool)
	}
	if deps.Redis != nil {
		checks = append(checks, redisPinger{deps.Redis})
	}
	mux.HandleFunc("GET /readyz", readinessHandler(logger, checks...))

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	if deps.Feed != nil {
		mux.Handle("GET /ws/questions", deps.Feed)
	}
	if deps.Questions != nil {
		deps.Questions.Register(mux)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondNotFound(w, httperrors.MsgNotFound)
	})

	// The recoverer sits inside the metrics and request logger so a panic is
	// logged with the request id and counted as a 500.
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORS)(handler)
	handler = recoverer(handler)
	if deps.Metrics != nil {
		handler = metricsMiddleware(deps.Metrics)(handler)
	}
	handler = requestLogger(logger)(handler)
	return handler
}

func readinessHandler(logger zerolog.Logger, checks ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pingDependencies(ctx, checks...); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondServiceUnavailable(w, httperrors.MsgServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"status":"ready"}`))
	}
}

func pingDependencies(ctx context.Context, checks ...Pinger) error {
	for _, c := range checks {
		if err := c.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
