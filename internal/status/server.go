// Package status serves the health and metrics endpoints of a running client.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/meshlink/internal/connection"
	"github.com/rickgao/meshlink/internal/metrics"
	"github.com/rickgao/meshlink/internal/version"
)

// Source reports the manager's current view.
type Source interface {
	Stats() connection.Stats
}

// Config controls the status server.
type Config struct {
	Addr        string
	MetricsPath string
}

// Health is the /health response body.
type Health struct {
	Status     string       `json:"status"`
	State      string       `json:"state"`
	Session    bool         `json:"session"`
	QueueDepth int          `json:"queue_depth"`
	Dropped    int64        `json:"queue_dropped"`
	Pending    int          `json:"pending_requests"`
	Expired    int64        `json:"expired_requests"`
	Reconnects int64        `json:"reconnects"`
	Unroutable int64        `json:"unroutable"`
	Malformed  int64        `json:"malformed"`
	Topics     int          `json:"topics"`
	Handlers   int          `json:"handlers"`
	Build      version.Info `json:"build"`
}

// Server is the HTTP status server.
type Server struct {
	cfg    Config
	src    Source
	logger *slog.Logger
	engine *gin.Engine
	srv    *http.Server
}

// New builds the server and its routes. Nothing listens until Start.
func New(cfg Config, src Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	metrics.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	s := &Server{
		cfg:    cfg,
		src:    src,
		logger: logger.With("component", "status"),
		engine: r,
	}
	r.GET("/health", s.health)
	r.GET(cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("status server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	st := s.src.Stats()

	h := Health{
		Status:     "healthy",
		State:      st.State.String(),
		Session:    st.SessionPresent,
		QueueDepth: st.QueueDepth,
		Dropped:    st.QueueDropped,
		Pending:    st.Pending,
		Expired:    st.Expired,
		Reconnects: st.Reconnects,
		Unroutable: st.Unroutable,
		Malformed:  st.Malformed,
		Topics:     st.Topics,
		Handlers:   st.Handlers,
		Build:      version.Get(),
	}

	code := http.StatusOK
	switch st.State {
	case connection.StateOpen:
	case connection.StateConnecting:
		h.Status = "degraded"
	default:
		h.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
