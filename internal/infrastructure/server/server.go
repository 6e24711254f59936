package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// RepoPrefix is the route under which artifacts are served
const RepoPrefix = "/repo"

// Server serves a local artifact directory in repository layout
type Server struct {
	router  *gin.Engine
	cfg     config.MirrorConfig
	dir     string
	catalog *platform.Catalog
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
}

// Option configures a Server
type Option func(*Server)

// WithMetrics records request metrics and exposes them on /metrics
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracer traces every request
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a mirror over dir
func New(cfg config.MirrorConfig, dir string, catalog *platform.Catalog, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		dir:     dir,
		catalog: catalog,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	if s.catalog == nil {
		s.catalog = platform.DefaultCatalog()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if s.tracer != nil {
		router.Use(tracing.HTTPMiddleware(s.tracer))
	}
	if s.metrics != nil {
		router.Use(monitoring.Middleware(s.metrics))
	}
	router.Use(CORS(cfg.Origins))
	if cfg.RPS > 0 {
		s.logger.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.RPS),
			zap.Int("burst", cfg.Burst))
		router.Use(RateLimit(cfg.RPS, cfg.Burst))
	}

	router.GET("/", s.root)
	router.GET("/health", s.health)
	router.GET("/versions", s.versions)
	router.GET(RepoPrefix+"/*path", s.artifact)
	router.HEAD(RepoPrefix+"/*path", s.artifact)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	s.router = router
	return s
}

// Handler returns the mirror's HTTP handler with response compression
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting artifact mirror",
			zap.String("addr", srv.Addr),
			zap.String("dir", s.dir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down artifact mirror...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shut down mirror", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":  "shadowbox-mirror",
		"repo":     RepoPrefix,
		"versions": s.catalog.Len(),
	})
}

func (s *Server) health(c *gin.Context) {
	if _, err := os.Stat(s.dir); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// VersionInfo describes one catalog entry as served by /versions
type VersionInfo struct {
	Version    platform.Version `json:"version"`
	Name       string           `json:"name"`
	Dependency string           `json:"dependency"`
	Path       string           `json:"path"`
	Available  bool             `json:"available"`
}

func (s *Server) versions(c *gin.Context) {
	releases := s.catalog.Releases()
	out := make([]VersionInfo, 0, len(releases))
	for _, r := range releases {
		dep := r.Dependency()
		_, err := os.Stat(s.localPath(dep.RepositoryPath()))
		out = append(out, VersionInfo{
			Version:    r.Version,
			Name:       r.Name,
			Dependency: dep.String(),
			Path:       RepoPrefix + "/" + dep.RepositoryPath(),
			Available:  err == nil,
		})
	}
	c.JSON(http.StatusOK, gin.H{"versions": out, "count": len(out)})
}

func (s *Server) artifact(c *gin.Context) {
	full := s.localPath(c.Param("path"))

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}

	if mtype, err := mimetype.DetectFile(full); err == nil {
		c.Header("Content-Type", mtype.String())
	}
	c.File(full)
}

// localPath maps a request path into dir; a rooted clean never escapes it
func (s *Server) localPath(p string) string {
	return filepath.Join(s.dir, filepath.FromSlash(path.Clean("/"+p)))
}
