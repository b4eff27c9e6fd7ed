// Package api serves the inference engine over HTTP and websockets.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/cache"
	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/middleware"
)

// HealthCheck probes one dependency for /ready.
type HealthCheck func(ctx context.Context) error

// Options wires optional collaborators into the server.
type Options struct {
	// RateLimiter throttles clients when set.
	RateLimiter *middleware.RateLimiter
	// Readiness lists the dependencies /ready probes, by name.
	Readiness map[string]HealthCheck
	// CacheStats reports result cache counters on /health when set.
	CacheStats func() cache.Stats
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	service       domain.InferenceService
	logger        *logrus.Logger
	opts          Options
	router        *gin.Engine
	server        *http.Server
	upgrader      websocket.Upgrader
	startedAt     time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, service domain.InferenceService, logger *logrus.Logger, opts Options) *Server {
	if configManager.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		configManager: configManager,
		service:       service,
		logger:        logger,
		opts:          opts,
		router:        gin.New(),
		startedAt:     time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	cfg := s.configManager.GetServerConfig()

	s.router.Use(gin.CustomRecovery(s.recoverPanic))
	s.router.Use(middleware.CorrelationID())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.AuditLogger(s.logger))
	s.router.Use(middleware.CORS(cfg.AllowedOrigins))
	if s.opts.RateLimiter != nil {
		s.router.Use(s.opts.RateLimiter.Middleware())
	}
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.logger.WithFields(logrus.Fields{
		"panic":          recovered,
		"path":           c.Request.URL.Path,
		"correlation_id": middleware.GetCorrelationID(c),
	}).Error("Recovered from panic")
	c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewAPIError(
		domain.ErrCodeInternalServer, "Internal server error", "", middleware.GetCorrelationID(c)))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	cfg := s.configManager.GetServerConfig()

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)

	v1 := s.router.Group("/api/v1")

	// The websocket session outlives any single request timeout.
	v1.GET("/ws", s.handleWebSocket)

	rest := v1.Group("", middleware.BodyLimit(cfg.MaxBodyBytes), middleware.RequestTimeout(cfg.RequestTimeout))
	{
		rest.GET("/symptoms", s.handleListSymptoms)
		rest.GET("/symptoms/:id", s.handleGetSymptom)
		rest.GET("/conditions", s.handleListConditions)
		rest.POST("/validate", s.handleValidate)
		rest.POST("/diagnose", s.handleDiagnose)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, domain.NewAPIError(
			domain.ErrCodeNotFound, "Route not found", c.Request.URL.Path, middleware.GetCorrelationID(c)))
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.configManager.GetServerConfig().AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
