// Package http serves the formalization dashboard: the HTML page with its htmx
// partial, a JSON API, chart images and the spreadsheet export.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"formalizacion/internal/core"
	"formalizacion/internal/log"
	"formalizacion/internal/metrics"
	"formalizacion/internal/middleware/ratelimit"
	"formalizacion/internal/middleware/security"
	"formalizacion/internal/middleware/trace"
	"formalizacion/internal/services"
	appweb "formalizacion/web"
)

// ReportService is what the handlers need from the reporting layer.
type ReportService interface {
	Ready() bool
	LastLoadError() error
	Municipality() string
	Bounds(ctx context.Context) (core.DateRange, error)
	Resolve(ctx context.Context, q services.Query) (services.Query, core.DateRange, error)
	TimeSeries(ctx context.Context, r core.DateRange, g core.Granularity) ([]core.Bucket, error)
	Categories(ctx context.Context, r core.DateRange, c core.Category) ([]core.CategoryCount, error)
	Dashboard(ctx context.Context, q services.Query) (services.View, error)
}

// Options configure the server; zero values fall back to defaults.
type Options struct {
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	RateLimit    ratelimit.Config
	// ClientIP keys rate limiting and request logs; defaults to the peer address.
	ClientIP     func(*http.Request) string
	Headers      *security.HeadersConfig
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	http.Server
	svc       ReportService
	templates *template.Template
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc ReportService, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Minute
	}
	if opts.ClientIP == nil {
		opts.ClientIP = ratelimit.ClientIP
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	m := opts.Metrics
	s := &Server{
		svc:       svc,
		templates: t,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		tracer: trace.NewMiddleware(opts.Logger, opts.ClientIP, func(r *http.Request, status int, d time.Duration) {
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(route, r.Method, status, d)
		}),
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(headers))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(opts.ClientIP, s.handleRateLimited))

		r.Get("/", s.handleIndex)
		r.Get("/ui/dashboard", s.handlePanel)
		r.Get("/charts/timeseries.png", s.handleTimeSeriesChart)
		r.Get("/charts/categories.png", s.handleCategoriesChart)
		r.Get("/export.xlsx", s.handleExport)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/bounds", s.handleBounds)
			r.Get("/timeseries", s.handleTimeSeries)
			r.Get("/categories", s.handleCategories)
			r.Get("/dashboard", s.handleDashboard)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// TotalRequests returns how many requests the server has handled.
func (s *Server) TotalRequests() int64 {
	return s.tracer.TotalRequests()
}
