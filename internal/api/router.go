package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"

	"github.com/cheetahbyte/licensor/internal/handlers"
)

type Options struct {
	// RequestLogger logs every request when set.
	RequestLogger  *httplog.Logger
	AllowedOrigins []string
	Timeout        time.Duration
	AdminGate      *AdminGate
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func Register(r chi.Router, h *handlers.Handlers, opts Options) {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.RequestLogger != nil {
		r.Use(httplog.RequestLogger(opts.RequestLogger, []string{"/healthz", "/metrics"}))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", AdminKeyHeader},
		MaxAge:         300,
	}))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Timeout))

		r.Post("/validate", h.ValidateLicense)
		r.Post("/verify", h.VerifyToken)

		r.Route("/admin", func(admin chi.Router) {
			admin.Use(opts.AdminGate.Middleware)
			admin.Post("/create-license", h.CreateLicense)
		})
	})
}

func NewRouter(h *handlers.Handlers, opts Options) *chi.Mux {
	r := chi.NewRouter()
	Register(r, h, opts)
	return r
}
