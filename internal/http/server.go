package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boletos/internal/cache"
	"boletos/internal/core"
	"boletos/internal/export"
	applog "boletos/internal/log"
	"boletos/internal/middleware/ratelimit"
	"boletos/internal/middleware/security"
	"boletos/internal/middleware/trace"
	"boletos/internal/storage"
	appweb "boletos/web"
)

type (
	// Dashboard is the application state the handlers render from.
	Dashboard interface {
		State() (core.AggregateState, bool)
		Refresh(ctx context.Context) (core.AggregateState, error)
	}

	// RunHistory lists recent collection runs.
	RunHistory interface {
		RecentRuns(ctx context.Context, limit int) ([]storage.Run, error)
	}

	// Pinger is a backing store /readyz checks.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Options configures NewServer. Only Dashboard is required.
type Options struct {
	Dashboard Dashboard
	History   RunHistory

	// Database, when set, must answer a ping for /readyz to succeed.
	Database Pinger

	// ExportCacheTTL bounds how long a rendered export is reused for the same
	// state generation. Zero or negative disables the cache.
	ExportCacheTTL time.Duration

	// RefreshPerMinute limits POST /refresh per client (default 6).
	RefreshPerMinute int

	// TrustedProxies are CIDRs, besides loopback and private networks, whose
	// forwarding headers identify the client.
	TrustedProxies []string

	Logger *applog.Logger
}

type Server struct {
	http.Server
	templates   *template.Template
	dashboard   Dashboard
	history     RunHistory
	database    Pinger
	exports     *cache.LRUCache[[]byte]
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	logger      *applog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		dashboard:   opts.Dashboard,
		history:     opts.History,
		database:    opts.Database,
		exports:     cache.NewLRUCache[[]byte](8, opts.ExportCacheTTL),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RefreshPerMinute}),
		detector:    security.NewDetector(),
		logger:      logger.WithComponent(applog.ComponentHTTP),
	}

	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	limitRefresh := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)

	mux.Handle("/", allow(http.HandlerFunc(s.handleIndex), http.MethodGet, http.MethodHead))
	mux.Handle("/refresh", allow(limitRefresh(http.HandlerFunc(s.handleRefresh)), http.MethodPost))
	mux.Handle("/export.xlsx", allow(security.NoStore(s.handleExport(export.FormatXLSX)), http.MethodGet))
	mux.Handle("/export.pdf", allow(security.NoStore(s.handleExport(export.FormatPDF)), http.MethodGet))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)
	s.Handler = tracer.Middleware(s.detector.Middleware(headers.Middleware(mux)))

	return s
}

// ExportCache exposes the export cache so it can join the cleanup manager.
func (s *Server) ExportCache() *cache.LRUCache[[]byte] {
	return s.exports
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	http.Error(w, "Muitas atualizações em sequência. Tente novamente em instantes.", http.StatusTooManyRequests)
}
