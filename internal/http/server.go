// Package http exposes the expense tracker as a JSON API. Handlers only
// parse input and shape responses; computation happens in core and
// orchestration in services.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
)

// Service is the surface the handlers need from the service layer.
type Service interface {
	Get(ctx context.Context, id string) (core.Expense, error)
	Create(ctx context.Context, form core.FormData) (core.Expense, error)
	Update(ctx context.Context, id string, form core.FormData) (core.Expense, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context) (core.Summary, error)
	Query(ctx context.Context, f core.Filter) ([]core.Expense, core.Money, error)
	ExportCSV(ctx context.Context, f core.Filter) (string, string, error)
}

type Server struct {
	http.Server
	service      Service
	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	summaryCache *summaryCache
	shutdownOnce sync.Once
}

// summaryCache holds the last computed summary for a short window. There is
// a single collection, so one slot is enough; mutations invalidate it.
type summaryCache struct {
	mu         sync.Mutex
	value      core.Summary
	validUntil time.Time
	valid      bool
	ttl        time.Duration
}

func newSummaryCache(ttl time.Duration) *summaryCache {
	return &summaryCache{ttl: ttl}
}

func (c *summaryCache) Get() (core.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || time.Now().After(c.validUntil) {
		return core.Summary{}, false
	}
	return c.value, true
}

func (c *summaryCache) Set(s core.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = s
	c.validUntil = time.Now().Add(c.ttl)
	c.valid = true
}

func (c *summaryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, service Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		service:      service,
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		summaryCache: newSummaryCache(30 * time.Second),
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/expenses", s.limited(s.handleExpenses))
	mux.HandleFunc("/expenses/", s.limited(s.handleExpenseByID))
	mux.HandleFunc("/summary", s.limited(s.handleSummary))
	mux.HandleFunc("/export/csv", s.limited(s.handleExportCSV))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := trace.NewMiddleware(s.clientIP).Middleware(
		headers.Middleware(
			s.detectSuspicious(mux)))

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

// limited wraps a handler with the per-client rate limit.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(s.clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// detectSuspicious logs requests matching known attack patterns. They are
// not blocked; handlers reject anything malformed anyway.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.clientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) clientIP(r *http.Request) string {
	return s.detector.ExtractClientIP(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
