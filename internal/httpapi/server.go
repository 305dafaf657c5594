package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	goQuiz "github.com/MrEthical07/goQuiz"
	promexport "github.com/MrEthical07/goQuiz/metrics/export/prometheus"
	"github.com/MrEthical07/goQuiz/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server. Engine is required.
type Options struct {
	Engine *goQuiz.Engine
	Store  Pinger
	Logger *slog.Logger

	// Registry receives HTTP and engine metrics. A fresh registry is used
	// when nil.
	Registry *prometheus.Registry

	CORSOrigins    []string
	TrustProxy     bool
	RequestTimeout time.Duration
	Cookie         *middleware.RefreshCookie
}

// Server is the JSON API in front of an Engine.
type Server struct {
	engine   *goQuiz.Engine
	store    Pinger
	logger   *slog.Logger
	validate *validator.Validate
	cookie   middleware.RefreshCookie
	registry *prometheus.Registry
	metrics  *httpMetrics

	corsOrigins []string
	trustProxy  bool
	timeout     time.Duration
}

// New wires metrics and validation. Routes are built by Handler.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("httpapi: engine required")
	}

	s := &Server{
		engine:      opts.Engine,
		store:       opts.Store,
		logger:      opts.Logger,
		validate:    newValidator(),
		cookie:      middleware.DefaultRefreshCookie(),
		registry:    opts.Registry,
		corsOrigins: opts.CORSOrigins,
		trustProxy:  opts.TrustProxy,
		timeout:     opts.RequestTimeout,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "http")
	if opts.Cookie != nil {
		s.cookie = *opts.Cookie
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if err := s.registry.Register(promexport.NewCollector(s.engine)); err != nil {
		return nil, err
	}
	s.metrics = newHTTPMetrics(s.registry)
	return s, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if s.trustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(logging(s.logger))
	r.Use(s.metrics.instrument)
	r.Use(chimiddleware.Recoverer)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(chimiddleware.Timeout(s.timeout))
	r.Use(middleware.ClientInfo)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/session/refresh", s.refresh)
		r.Post("/session/logout", s.logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Require(s.engine, reject))

		r.Get("/me", s.me)
		r.Patch("/me", s.updateProfile)
		r.Patch("/me/password", s.changePassword)
		r.Get("/me/sessions", s.listSessions)

		r.Route("/quiz", func(r chi.Router) {
			r.Get("/categories", s.listCategories)
			r.With(middleware.RequireAdmin(reject)).Post("/categories", s.createCategory)
			r.With(middleware.RequireAdmin(reject)).Post("/quizzes", s.createQuiz)

			r.Post("/sessions", s.startQuizSession)
			r.Get("/sessions/{id}", s.getSession)
			r.Get("/sessions/{id}/question", s.nextQuestion)
			r.Post("/sessions/{id}/answers", s.submitAnswer)
			r.Get("/sessions/{id}/result", s.result)
			r.Get("/stats", s.stats)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "redis": "ok", "database": "ok"}
	healthy := true
	if err := s.engine.Ping(ctx); err != nil {
		status["redis"] = "error"
		healthy = false
	}
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			status["database"] = "error"
			healthy = false
		}
	}
	if !healthy {
		status["status"] = "error"
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	ok(w, status)
}
