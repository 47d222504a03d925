package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RouterConfig wires the handlers into one HTTP tree. Health and Metrics are
// optional.
type RouterConfig struct {
	Requests  *RequestHandler
	Conflicts *ConflictHandler
	Automatic *AutomaticHandler
	Health    func(ctx context.Context) error
	Metrics   http.Handler
	Timeout   time.Duration
	Logger    zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(cfg.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("http request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", healthHandler(cfg.Health))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/asignaciones", func(r chi.Router) {
		r.Route("/solicitudes", cfg.Requests.Routes)
		r.Route("/conflictos", cfg.Conflicts.Routes)
		r.Route("/automatica", cfg.Automatic.Routes)
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"ok":   true,
			"time": time.Now().UTC(),
		}

		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				status["ok"] = false
				status["error"] = err.Error()
				respondJSON(w, http.StatusServiceUnavailable, status)
				return
			}
		}

		respondJSON(w, http.StatusOK, status)
	}
}
