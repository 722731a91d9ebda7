package api

import (
	"log/slog"
	"net/http"
	"time"

	"authflow/internal/auth"
	"authflow/internal/metrics"
	"authflow/internal/middleware"
	"authflow/internal/repository"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Users           repository.UserRepository
	Tokens          *auth.TokenIssuer
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	LoginRatePerMin int
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := NewAuthHandler(cfg.Users, cfg.Tokens, cfg.Metrics, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithMetrics(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.LoginRatePerMin, time.Minute))
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
		})
		r.With(middleware.Authenticate(cfg.Tokens, cfg.Users, cfg.Logger)).Get("/profile", h.Profile)
	})

	return r
}
