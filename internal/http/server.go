package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"subtrack/internal/log"
	"subtrack/internal/middleware/ratelimit"
	"subtrack/internal/middleware/security"
	"subtrack/internal/middleware/trace"
	"subtrack/internal/services"
)

// Config carries the server's settings and collaborators.
type Config struct {
	Addr           string
	RateLimitRPS   float64
	RateLimitBurst int
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	svc     *services.SubscriptionService
	ready   func(ctx context.Context) error
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain, returning a ready-to-run
// server.
func NewServer(svc *services.SubscriptionService, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		svc:   svc,
		ready: cfg.Ready,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /healthz", handleLiveness)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /subscriptions", s.handleListSubscriptions)
	mux.HandleFunc("POST /subscriptions", s.handleAddSubscription)
	mux.HandleFunc("PATCH /subscriptions/{id}", s.handleUpdateSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.HandleFunc("GET /analysis", s.handleAnalysis)
	mux.HandleFunc("GET /recommendations", s.handleRecommendations)
	mux.HandleFunc("GET /alternatives/{name}", s.handleAlternatives)

	detector := security.NewDetector()
	onLimit := func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(errRateLimited).Write(w)
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, onLimit)(h)
	h = detector.Middleware(h)
	h = security.CORS(security.DefaultCORSConfig())(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
