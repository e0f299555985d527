package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/ledger/internal/auth"
	"github.com/crucial707/ledger/internal/config"
	"github.com/crucial707/ledger/internal/events"
	"github.com/crucial707/ledger/internal/handlers"
	"github.com/crucial707/ledger/internal/ledger"
	"github.com/crucial707/ledger/internal/logging"
	"github.com/crucial707/ledger/internal/middleware"
	"github.com/crucial707/ledger/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app holds the services shared by the router and the background jobs.
type app struct {
	backend     *repo.Backend
	auth        *auth.Service
	validator   *auth.Validator
	ledger      *ledger.Service
	authLimiter *middleware.IPRateLimiter
	now         func() time.Time
}

func newApp(cfg config.Config, backend *repo.Backend, pub events.Publisher, log *slog.Logger) (*app, error) {
	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	secret := []byte(cfg.JWTSecret)
	issuer, err := auth.NewIssuer(secret, auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	return &app{
		backend:     backend,
		auth:        &auth.Service{Users: backend.Users, Hasher: hasher, Issuer: issuer},
		validator:   auth.NewValidator(secret),
		ledger:      ledger.NewService(backend.Transactions, pub, logging.WithComponent(log, "ledger")),
		authLimiter: middleware.AuthRateLimiter(),
		now:         time.Now,
	}, nil
}

func newRouter(a *app, cfg config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSEnabled()))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	health := &handlers.HealthHandler{Ping: a.backend.Ping}
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	authH := &handlers.AuthHandler{Service: a.auth}
	r.Group(func(r chi.Router) {
		r.Use(a.authLimiter.Middleware)
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
	})

	txH := &handlers.TransactionHandler{Ledger: a.ledger}
	sumH := &handlers.SummaryHandler{Ledger: a.ledger, Now: a.now}
	userH := &handlers.UserHandler{Users: a.backend.Users}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(a.validator))

		r.Get("/me", userH.Me)

		r.Post("/transaction", txH.Create)
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", txH.List)
			r.Get("/{id}", txH.Get)
			r.Patch("/{id}", txH.Update)
			r.Delete("/{id}", txH.Delete)
		})

		r.Get("/summary/categories", sumH.Categories)
		r.Get("/summary/balance", sumH.Balance)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}
