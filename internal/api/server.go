package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ksred/schema-registry/internal/bootstrap"
	"github.com/ksred/schema-registry/internal/utils"
	"github.com/rs/zerolog"
)

// Server is the read-only admin API over the schema registry
type Server struct {
	router     *gin.Engine
	core       *bootstrap.Core
	logger     zerolog.Logger
	httpServer *http.Server
}

func NewServer(core *bootstrap.Core) (*Server, error) {
	if core == nil {
		return nil, utils.WrapConfigurationError("api", "core is not initialized")
	}

	if core.Cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := utils.ForComponent(core.Logger, "api")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	corsConfig := cors.DefaultConfig()
	if len(core.Cfg.HTTP.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = core.Cfg.HTTP.AllowOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	server := &Server{
		router: router,
		core:   core,
		logger: logger,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	v1 := s.router.Group("/api/v1")
	v1.Use(s.adminMiddleware())
	{
		schema := v1.Group("/schema")
		{
			schema.GET("", s.listSchemaHandler)
			schema.GET("/:table", s.getSchemaHandler)
		}

		v1.GET("/migrations", s.migrationStatusHandler)

		legacy := v1.Group("/legacy")
		{
			legacy.GET("/ai-models", s.listAIModelsHandler)
			legacy.GET("/ai-models/:id", s.getAIModelHandler)
			legacy.POST("/ai-usage", s.recordAIUsageHandler)
		}
	}
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// LoggerMiddleware logs each request and attaches the logger to the request
// context for handlers to pick up with utils.FromContext
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Request = c.Request.WithContext(utils.WithContext(c.Request.Context(), logger))

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}

		event.
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("error", c.Errors.ByType(gin.ErrorTypePrivate).String()).
			Msg("HTTP request")
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()

	dbHealthy := true
	var dbError string
	if err := s.core.DB.Health(ctx); err != nil {
		dbHealthy = false
		dbError = err.Error()
	}

	status := "healthy"
	if !dbHealthy {
		status = "unhealthy"
	}

	response := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"database": gin.H{
			"healthy": dbHealthy,
			"error":   dbError,
		},
	}

	if !dbHealthy {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}
