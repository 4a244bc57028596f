// Package web exposes a node's file service over HTTP.
package web

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/logviewer/internal/node/files"
	"github.com/Laisky/logviewer/library/log"
	"github.com/Laisky/logviewer/library/metrics"
	models "github.com/Laisky/logviewer/library/models/files"
)

// Server serves the node API surface.
type Server struct {
	svc    *files.Service
	apiKey string
	logger logSDK.Logger
	engine *gin.Engine
}

// NewServer builds the gin engine for svc. An empty apiKey disables the
// shared-secret check.
func NewServer(svc *files.Service, apiKey string, logger logSDK.Logger) *Server {
	if logger == nil {
		logger = log.Logger.Named("node_web")
	}

	s := &Server{
		svc:    svc,
		apiKey: apiKey,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(logger.Named("gin")),
		),
	)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.engine.Group("", requireAPIKey(s.apiKey))
	api.GET("/roots", s.roots)
	api.GET("/browse", s.browse)
	api.GET("/file", s.file)
	api.POST("/search", s.search)
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	if s.apiKey == "" {
		s.logger.Warn("node api key is empty, requests are not authenticated")
	}
	s.logger.Info("listening on http", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthStatus{
		Status:    "healthy",
		Timestamp: gutils.Clock.GetUTCNow(),
	})
}
