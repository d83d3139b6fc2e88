package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	ilustradocs "github.com/ilustra/ilustra-server/docs/swagger"
	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/handlers"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/middlewares"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/requests"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/responses"
	v1 "github.com/ilustra/ilustra-server/internal/interfaces/httpserver/routes/v1"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

const readinessTimeout = 5 * time.Second

// HealthChecker reports whether a dependency is ready to serve traffic.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckers is ready only when every checker is.
type HealthCheckers []HealthChecker

func (h HealthCheckers) Health(ctx context.Context) error {
	var errs []error
	for _, checker := range h {
		if checker == nil {
			continue
		}
		if err := checker.Health(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, handlerProvider *handlers.Provider, health HealthChecker) (*HttpServer, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ilustradocs.SwaggerInfo.BasePath = "/"

	if err := requests.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.MaxUploadBytes
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.CORSMiddleware(cfg.CORSAllowedOrigins),
		middlewares.TracingMiddleware(cfg.ServiceName),
		middlewares.MetricsMiddleware(),
		middlewares.LoggingMiddleware(log),
	)

	registerCoreRoutes(engine, cfg, health)
	v1.NewRoutes(handlerProvider).Register(engine.Group("/"))
	registerLocalFiles(engine, cfg, log)
	registerClient(engine, cfg, log)

	return &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}, nil
}

// Handler exposes the engine for tests and embedding.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("ilustra-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, cfg *config.Config, health HealthChecker) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, responses.HealthResponse{Status: "healthy"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
			defer cancel()
			if err := health.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, responses.HealthResponse{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, responses.HealthResponse{Status: "ready"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// registerLocalFiles serves the local storage directory at the path of LOCAL_STORAGE_BASE_URL
// so signed URLs from the local backend resolve.
func registerLocalFiles(engine *gin.Engine, cfg *config.Config, log zerolog.Logger) {
	if !cfg.IsLocalStorage() || cfg.LocalStorageBaseURL == "" {
		return
	}
	u, err := url.Parse(cfg.LocalStorageBaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid LOCAL_STORAGE_BASE_URL, local files not served")
		return
	}
	mount := strings.TrimSuffix(u.Path, "/")
	if mount == "" || mount == "/api" || strings.HasPrefix(mount, "/api/") {
		log.Warn().Str("path", u.Path).Msg("LOCAL_STORAGE_BASE_URL needs a dedicated path, local files not served")
		return
	}
	engine.Static(mount, cfg.LocalStoragePath)
}

// registerClient serves the built web client. Unknown GET paths outside /api
// fall back to index.html so client-side routing works on reload.
func registerClient(engine *gin.Engine, cfg *config.Config, log zerolog.Logger) {
	dist := strings.TrimSpace(cfg.ClientDistDir)
	index := filepath.Join(dist, "index.html")
	if _, err := os.Stat(index); dist == "" || err != nil {
		log.Info().Str("dir", dist).Msg("client build not found, serving API only")
		engine.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"service": cfg.ServiceName, "status": "ok"})
		})
		engine.NoRoute(notFound)
		return
	}

	engine.NoRoute(func(c *gin.Context) {
		reqPath := c.Request.URL.Path
		if (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) ||
			reqPath == "/api" || strings.HasPrefix(reqPath, "/api/") {
			notFound(c)
			return
		}
		file := filepath.Join(dist, filepath.FromSlash(path.Clean("/"+reqPath)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	})
}

func notFound(c *gin.Context) {
	responses.HandleNewError(c, apperrors.TypeNotFound, "Not found")
}
