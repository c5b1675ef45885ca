package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/ptyd/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

// Server wraps the HTTP server and the session subsystem
type Server struct {
	router   *gin.Engine
	manager  *terminal.Manager
	reaper   *terminal.Reaper
	hub      *ws.Hub
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	config   *config.Config
}

// New wires the session manager, its event hub and the HTTP surface
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
	logger.Info("Initializing ptyd",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("max_sessions", cfg.Terminal.MaxSessions),
	)

	registry := monitoring.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	hub := ws.NewHub(logger.Component("hub"), metrics)
	manager := terminal.NewManager(cfg.Terminal.Options(), hub, logger.Logger).WithMetrics(metrics)
	reaper := terminal.NewReaper(manager, 0, logger.Logger)
	provider := terminal.NewProvider(manager)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(manager, provider, metrics, logger.Logger)
	handlers.Register(router)

	wsHandler := ws.NewHandler(hub, manager, logger.Logger, metrics)
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		manager:  manager,
		reaper:   reaper,
		hub:      hub,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}, nil
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Manager exposes the session manager
func (s *Server) Manager() *terminal.Manager {
	return s.manager
}

// Run listens on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// requests and closes every session.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	reaperCtx, stopReaper := context.WithCancel(ctx)
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		s.reaper.Run(reaperCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	}

	stopReaper()
	<-reaperDone

	shutdownErr := s.shutdown(srv)
	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

func (s *Server) shutdown(srv *http.Server) error {
	s.logger.Info("Shutting down server...")

	timeout := s.config.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.manager.Shutdown(ctx); err != nil {
		s.logger.Error("Session shutdown incomplete", zap.Error(err))
		errs = append(errs, fmt.Errorf("session shutdown: %w", err))
	}
	s.hub.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
