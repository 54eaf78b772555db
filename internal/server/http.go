package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eraycetin/prepduel/internal/auth"
	authjwt "github.com/eraycetin/prepduel/internal/auth/jwt"
	"github.com/eraycetin/prepduel/internal/config"
	"github.com/eraycetin/prepduel/internal/duo"
	"github.com/eraycetin/prepduel/internal/logging"
)

// NewHTTPServer wires base routes (health, metrics) and the duo match API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, verifier *authjwt.Verifier, duoHandlers *duo.HTTPHandlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Duo match endpoints. Identity is verified here; issuing sessions is the
	// identity service's concern.
	requireIdentity := auth.RequireIdentity(verifier, logger)
	duoRoute := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, requireIdentity(handler))
	}
	duoRoute("POST /v1/duo/rooms", duoHandlers.CreateRoom)
	duoRoute("POST /v1/duo/rooms/{code}/join", duoHandlers.JoinRoom)
	duoRoute("POST /v1/duo/rooms/{code}/start", duoHandlers.StartMatch)
	duoRoute("POST /v1/duo/rooms/{code}/answers", duoHandlers.SubmitAnswer)
	duoRoute("POST /v1/duo/rooms/{code}/advance", duoHandlers.Advance)
	duoRoute("GET /v1/duo/rooms/{code}/results", duoHandlers.Results)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: corsMiddleware(cfg.CORS)(mux),
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
