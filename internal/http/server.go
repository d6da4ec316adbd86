package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"villaledger/internal/auth"
	applog "villaledger/internal/log"
	"villaledger/internal/metrics"
	"villaledger/internal/middleware/ratelimit"
	"villaledger/internal/middleware/security"
	"villaledger/internal/middleware/trace"
	"villaledger/internal/report"
	"villaledger/internal/services"
)

// Deps are the collaborators of the HTTP surface. Metrics may be nil.
type Deps struct {
	Facade             *report.Facade
	Ledger             *services.LedgerService
	Tokens             *auth.JWTManager
	Metrics            *metrics.Metrics
	Logger             *applog.Logger
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	facade  *report.Facade
	ledger  *services.LedgerService
	tokens  *auth.JWTManager
	metrics *metrics.Metrics
	logger  *applog.Logger
	limiter *ratelimit.Limiter
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Shutdown must be called to stop the rate limiter.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}

	s := &Server{
		facade:  deps.Facade,
		ledger:  deps.Ledger,
		tokens:  deps.Tokens,
		metrics: deps.Metrics,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		now:     time.Now,
	}

	mux := http.NewServeMux()
	s.handle(mux, "GET /healthz", s.handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	s.handle(mux, "POST /login", s.handleLogin)

	s.handle(mux, "GET /reports/dues", s.authenticated(s.handleDues))
	s.handle(mux, "GET /reports/month", s.authenticated(s.handleMonth))
	s.handle(mux, "GET /reports/summary", s.authenticated(s.handleSummary))

	s.handle(mux, "POST /payments", s.authenticated(s.handleCreatePayment))
	s.handle(mux, "DELETE /payments/{id}", s.authenticated(s.handleDeletePayment))
	s.handle(mux, "POST /expenses", s.authenticated(s.handleCreateExpense))
	s.handle(mux, "DELETE /expenses/{id}", s.authenticated(s.handleDeleteExpense))

	s.handle(mux, "GET /status", s.authenticated(s.handleStatus))
	s.handle(mux, "POST /reload", s.authenticated(s.handleReload))

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	ips := security.NewClientIPResolver()
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, ips.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(ips.ClientIP, onLimit, http.MethodPost, http.MethodDelete)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(logger, ips.ClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// handle registers h and counts its responses under the pattern's path.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	route := pattern[strings.Index(pattern, " ")+1:]
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := trace.NewResponseWriter(w)
		h(rw, r)
		s.metrics.ObserveHTTP(route, rw.Status())
	}))
}

// Shutdown gracefully shuts down the server and the rate limiter
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
