package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HealthCheck pings one backing dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// NewRouter wires the websocket, the REST API and /healthz.
func NewRouter(log zerolog.Logger, ws *WSHandler, rest *RESTHandler, checks ...HealthCheck) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth(log, checks))
	r.Get("/ws", ws.ServeWS)
	rest.Routes(r)
	return r
}

func handleHealth(log zerolog.Logger, checks []HealthCheck) http.HandlerFunc {
	type result struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		out := map[string]result{"service": {Status: "ok"}}
		status := http.StatusOK
		for _, check := range checks {
			out[check.Name] = result{Status: "ok"}
			if err := check.Ping(ctx); err != nil {
				log.Error().Err(err).Str("name", check.Name).Msg("health check failed")
				out[check.Name] = result{Status: "error"}
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, out)
	}
}

func requestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Int64("duration_ms", time.Since(start).Milliseconds()).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
