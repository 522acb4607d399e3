// Package http serves the screening pages, the JSON API and the live
// analytics feed.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"voicescreen/monitoring"
)

const maxRequestBody = 1 << 20

type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	// PredictRate and PredictBurst throttle prediction requests across all
	// clients. A zero rate disables throttling.
	PredictRate  float64
	PredictBurst int
	// Metrics, when set, is fed by every request and served at /metrics.
	Metrics *monitoring.Metrics
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8501,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		PredictRate:    5,
		PredictBurst:   10,
	}
}

// NewHandler builds the routed, middleware-wrapped handler. live, when
// non-nil, is mounted at /api/ws/analytics.
func NewHandler(config ServerConfig, handlers *Handlers, live http.HandlerFunc, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	var limiter *rate.Limiter
	if config.PredictRate > 0 {
		burst := config.PredictBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.PredictRate), burst)
	}
	handlers.RegisterHandlers(mux, limiter)
	if live != nil {
		mux.HandleFunc("GET /api/ws/analytics", live)
	}
	if config.Metrics != nil {
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			w.Write([]byte(config.Metrics.ExportPrometheus()))
		})
	}

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		MetricsMiddleware(config.Metrics),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(maxRequestBody),
		TimeoutMiddleware(config.Timeout),
	)
	return chain(mux)
}

func NewServer(config ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// Write timeout stays unset: the analytics WebSocket is long-lived.
			IdleTimeout: 120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
