package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
)

const (
	dashboardKey    = "dashboard/all"
	chartKeyPrefix  = "dashboard/chart/"
	dashboardPrefix = "dashboard/"
)

// ExpenseAPI is the expense service consumed by the handlers.
type ExpenseAPI interface {
	List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// DashboardProvider computes the dashboard summary.
type DashboardProvider interface {
	Dashboard(ctx context.Context) (core.Dashboard, error)
}

// TextExtractor runs OCR on an uploaded image.
type TextExtractor interface {
	Configured() bool
	ExtractText(ctx context.Context, filename, contentType string, image io.Reader) (string, error)
}

// Options configures NewServer.
type Options struct {
	Addr            string
	CORSOrigin      string
	RateLimitPerMin int
	CacheTTL        time.Duration
	Logger          *log.Logger
}

type Server struct {
	http.Server
	expenses  ExpenseAPI
	dashboard DashboardProvider
	ocr       TextExtractor
	logger    *log.Logger

	corsOrigin       string
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	dashboardCache *cache.LRUCache[core.Dashboard]
	chartCache     *cache.LRUCache[[]byte]

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// ocr may be nil, in which case the OCR endpoint reports it is not configured.
func NewServer(opts Options, expenses ExpenseAPI, dashboard DashboardProvider, ocr TextExtractor) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	detector := security.NewDetector()
	s := &Server{
		expenses:         expenses,
		dashboard:        dashboard,
		ocr:              ocr,
		logger:           opts.Logger.WithComponent(log.ComponentHTTP),
		corsOrigin:       opts.CORSOrigin,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMin}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		dashboardCache:   cache.NewLRUCache[core.Dashboard](1, opts.CacheTTL),
		chartCache:       cache.NewLRUCache[[]byte](4, opts.CacheTTL),
		startedAt:        time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("PATCH /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /dashboard/chart.png", s.handleDashboardChart)

	mux.HandleFunc("POST /ocr/extract", s.handleOCRExtract)

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.WritesOnly, s.onRateLimit)(h)
	h = s.withCORS(h)
	h = security.NoStore(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	h = log.Middleware(s.logger)(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// RegisterCaches hands the server's response caches to the cleanup manager.
func (s *Server) RegisterCaches(m *cache.Manager) {
	m.Register(s.dashboardCache)
	m.Register(s.chartCache)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidate drops every cached view derived from the expense collection.
func (s *Server) invalidate(ctx context.Context) {
	removed := s.dashboardCache.DeletePrefix(dashboardPrefix) + s.chartCache.DeletePrefix(dashboardPrefix)
	if removed > 0 {
		log.FromContext(ctx).DebugContext(ctx, "Dashboard cache invalidated", "entries_removed", removed)
	}
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// withCORS answers preflight requests and allows the configured origin.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.corsOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+trace.HeaderRequestID)
		h.Set("Access-Control-Expose-Headers", trace.HeaderRequestID)
		if s.corsOrigin != "*" {
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
