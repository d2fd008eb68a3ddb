package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"contas/internal/cache"
	"contas/internal/dashboard"
	applog "contas/internal/log"
	"contas/internal/middleware/ratelimit"
	"contas/internal/middleware/security"
	appweb "contas/web"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Server serves the dashboard: the full page, the HTMX partials, the
// transaction mutations, and the CSV export.
type Server struct {
	http.Server
	templates  *template.Template
	controller *dashboard.Controller
	limiter    *ratelimit.Limiter
	logger     *applog.Logger

	// Rendered dashboard partials keyed by filter state. Purged on every
	// mutation so a hit can never show stale rows.
	viewCache *cache.LRUCache[string]
	caches    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, controller *dashboard.Controller) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		controller: controller,
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:     applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP),
		viewCache:  cache.NewLRUCache[string](128, 30*time.Second),
		caches:     cache.NewManager(),
	}

	s.caches.Register(s.viewCache)
	s.caches.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	// Static assets served from the embedded FS with a small client cache.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.Handle("GET /{$}", s.wrap(s.handleIndex))
	mux.Handle("GET /ui/transactions", s.wrap(s.handleTransactions))
	mux.Handle("POST /filters", s.wrap(s.handleApplyFilter))
	mux.Handle("POST /transactions", s.wrap(s.handleCreateTransaction))
	mux.Handle("DELETE /transactions/{id}", s.wrap(s.handleDeleteTransaction))
	mux.Handle("POST /transactions/{id}/toggle", s.wrap(s.handleToggleTransaction))
	mux.Handle("GET /export.csv", s.wrap(s.handleExportCSV))

	return s
}

// wrap applies security headers, request logging, and rate limiting on
// mutating methods.
func (s *Server) wrap(next http.HandlerFunc) http.Handler {
	secured := security.Middleware(security.DefaultHeadersConfig())
	return secured(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, ip,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		if r.Method != http.MethodGet && !s.limiter.Allow(ip) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, ip,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, ip)
	}))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
