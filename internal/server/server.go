// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/chain"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/health"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/history"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/logging"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/metrics"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/realtime"
)

const (
	requestIDHeader = "X-Request-ID"
	version         = "0.1.0"
)

// Analyzer runs one assessment
type Analyzer interface {
	Analyze(ctx context.Context, network, address string) (*history.Record, error)
}

// Options configures a Server
type Options struct {
	Port           string
	DefaultNetwork string
	Analyzer       Analyzer
	History        history.Store
	Health         *health.Registry
	Logger         *slog.Logger

	// Stream serves GET /v1/stream when set. Run starts and stops it.
	Stream *realtime.Hub

	// ShutdownGrace is how long Shutdown waits for in-flight requests
	ShutdownGrace time.Duration
}

// Server is the HTTP API
type Server struct {
	opts    Options
	router  *gin.Engine
	httpSrv *http.Server
	ready   atomic.Bool
}

// AnalyzeRequest is the body of POST /v1/analyze
type AnalyzeRequest struct {
	Address string `json:"address" binding:"required"`
	Network string `json:"network"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

// New builds the router and registers every route
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Health == nil {
		opts.Health = health.NewRegistry(0)
	}
	if opts.History == nil {
		opts.History = history.NewMemoryStore()
	}
	if opts.DefaultNetwork == "" {
		opts.DefaultNetwork = "ethereum"
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 30 * time.Second
	}

	s := &Server{opts: opts, router: gin.New()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	v1 := s.router.Group("/v1")
	v1.POST("/analyze", s.analyzeHandler)
	v1.GET("/tokens/:address/assessments", s.assessmentsHandler)
	if s.opts.Stream != nil {
		v1.GET("/stream", gin.WrapF(s.opts.Stream.HandleWebSocket))
	}
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.opts.Logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}

		logger := logging.L(c.Request.Context())
		switch {
		case status >= 500:
			logger.Error("request completed", append(attrs, "client_ip", c.ClientIP())...)
		case status >= 400:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) analyzeHandler(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "body must be JSON with an address field",
		})
		return
	}
	if req.Network == "" {
		req.Network = s.opts.DefaultNetwork
	}

	record, err := s.opts.Analyzer.Analyze(c.Request.Context(), req.Network, req.Address)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) assessmentsHandler(c *gin.Context) {
	address, err := chain.NormalizeAddress(c.Param("address"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	network := c.Query("network")
	if network != "" {
		n, err := chain.Lookup(network)
		if err != nil {
			s.writeError(c, err)
			return
		}
		network = n.Name
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "limit must be a positive integer",
			})
			return
		}
		limit = v
	}

	records, listErr := s.opts.History.List(c.Request.Context(), history.Query{
		Address: address,
		Network: network,
		Limit:   limit,
	})
	if listErr != nil {
		s.writeError(c, listErr)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"address":     address,
		"assessments": records,
		"count":       len(records),
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chain.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_address", "message": err.Error()})
	case errors.Is(err, chain.ErrUnsupportedNetwork):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_network", "message": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request_cancelled", "message": err.Error()})
	default:
		logging.L(c.Request.Context()).Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, checks := s.opts.Health.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run serves until ctx is cancelled or the listener fails, then shuts down
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// an analysis can wait on the advisory service
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.opts.Stream != nil {
		go s.opts.Stream.Run(runCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("starting server", "port", s.opts.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	s.ready.Store(true)

	select {
	case err := <-errChan:
		s.ready.Store(false)
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.opts.Logger.Info("shutdown requested")
	}

	return s.Shutdown()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	if s.httpSrv == nil {
		return nil
	}
	s.opts.Logger.Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.opts.Logger.Error("shutdown error", "error", err)
		return err
	}

	s.opts.Logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
