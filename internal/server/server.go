package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"netrasarthi-media/internal/api"
	"netrasarthi-media/internal/observability/logging"
	"netrasarthi-media/internal/observability/metrics"
)

// writeTimeout leaves room for the media host's 60s client timeout.
const writeTimeout = 90 * time.Second

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	Addr            string
	TLS             TLSConfig
	CORS            CORSConfig
	Security        SecurityConfig
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
	ShutdownTimeout time.Duration
}

type Server struct {
	httpServer      *http.Server
	logger          *slog.Logger
	metrics         *metrics.Recorder
	tlsCertFile     string
	tlsKeyFile      string
	shutdownTimeout time.Duration

	mu      sync.Mutex
	boundTo string
	serving bool
}

func New(handler *api.Handler, cfg Config) (*Server, error) {
	if handler == nil {
		return nil, errors.New("api handler is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Default()
	}
	policy, err := newCORSPolicy(cfg.CORS)
	if err != nil {
		return nil, fmt.Errorf("configure cors: %w", err)
	}

	router := chi.NewRouter()
	router.Use(
		requestIDMiddleware(logger),
		logging.RequestLogger(logging.WithComponent(logger, "http")),
		metricsMiddleware(recorder),
		securityHeadersMiddleware(cfg.Security),
		corsMiddleware(policy, logger),
		middleware.Recoverer,
	)

	router.HandleFunc("/", handler.Root)
	router.HandleFunc("/api/test", handler.Test)
	router.HandleFunc("/api/cloudinary/videos", handler.ListVideos)
	router.HandleFunc("/api/cloudinary/videos/*", handler.DeleteVideo)
	router.HandleFunc("/healthz", handler.Health)
	router.Handle("/metrics", recorder.Handler())
	router.NotFound(api.NotFound)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	srv := &Server{
		httpServer:      httpServer,
		logger:          logger,
		metrics:         recorder,
		tlsCertFile:     strings.TrimSpace(cfg.TLS.CertFile),
		tlsKeyFile:      strings.TrimSpace(cfg.TLS.KeyFile),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if srv.tlsCertFile != "" && srv.tlsKeyFile != "" {
		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return srv, nil
}

// Handler exposes the fully wrapped router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr reports the bound listen address once Run has started listening, and
// the configured address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundTo != "" {
		return s.boundTo
	}
	return s.httpServer.Addr
}

// metricsMiddleware labels requests with the chi route pattern. It must run
// inside the router so the pattern is resolved once the handler returns.
func metricsMiddleware(recorder *metrics.Recorder) func(http.Handler) http.Handler {
	route := func(r *http.Request) string {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			return rctx.RoutePattern()
		}
		return ""
	}
	return func(next http.Handler) http.Handler {
		return metrics.HTTPMiddleware(recorder, route, next)
	}
}
