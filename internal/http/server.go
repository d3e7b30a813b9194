package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"thongke/internal/core"
	applog "thongke/internal/log"
	"thongke/internal/middleware/ratelimit"
	"thongke/internal/middleware/security"
	"thongke/internal/middleware/trace"
	"thongke/internal/report"
	"thongke/internal/services"
	appweb "thongke/web"
)

// Reports produces the dashboard aggregates and exports.
// services.ReportService implements it.
type Reports interface {
	ParseFilter(start, end, status string) (core.Filter, error)
	Stats(ctx context.Context, f core.Filter) (services.Snapshot, error)
	Export(ctx context.Context, f core.Filter, source string) (services.Export, error)
	Formatter() report.Formatter
	Location() *time.Location
}

// ExportSource tags report events triggered by a download.
const ExportSource = "http"

type Options struct {
	Addr    string
	Reports Reports
	// Ready checks the record source for /readyz; nil means always ready.
	Ready       func(ctx context.Context) error
	ExportLimit ratelimit.Config
	Headers     security.HeadersConfig
	Logger      *applog.Logger
	// RequestTimeout bounds every stats load and export.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	templates *template.Template
	reports   Reports
	ready     func(ctx context.Context) error
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	timeout      time.Duration
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if opts.Headers.CSP == "" {
		opts.Headers = security.DefaultHeadersConfig()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	mux := http.NewServeMux()
	detector := security.NewDetector()
	s := &Server{
		reports:  opts.Reports,
		ready:    opts.Ready,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(opts.ExportLimit),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ClientIP),
		timeout:  opts.RequestTimeout,
		started:  time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssets(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", s.metricsHandler())
	mux.HandleFunc("/ui/stats", s.handleStatsPartial)
	mux.HandleFunc("/api/stats", s.handleAPIStats)
	mux.Handle(exportPath, s.limiter.Middleware(detector.ClientIP, s.onRateLimit)(
		security.NoStore(http.HandlerFunc(s.handleExport)),
	))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.tracer.Middleware(detector.Middleware(security.Headers(opts.Headers)(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Export rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Quá nhiều yêu cầu xuất báo cáo. Vui lòng thử lại sau.").
		TriggerErrorNotification("Quá nhiều yêu cầu xuất báo cáo").
		Write(w)
}
