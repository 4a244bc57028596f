// Package web exposes the gateway API: node listing and proxied file
// operations.
package web

import (
	"context"
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/logviewer/internal/gateway/registry"
	"github.com/Laisky/logviewer/library/log"
	"github.com/Laisky/logviewer/library/metrics"
	models "github.com/Laisky/logviewer/library/models/files"
)

// Nodes is the registry view the gateway serves.
type Nodes interface {
	Nodes() []registry.NodeDescriptor
	Refresh(ctx context.Context) []registry.NodeDescriptor
}

// Proxy forwards file operations to nodes.
type Proxy interface {
	Roots(ctx context.Context, nodeID string) models.Envelope[[]models.RootDirectory]
	Browse(ctx context.Context, nodeID, rootName, path string) models.Envelope[[]models.FileItem]
	FileContents(ctx context.Context, nodeID, rootName, path string) models.Envelope[models.FileReadResult]
	Search(ctx context.Context, nodeID string, query models.SearchQuery) models.Envelope[[]models.SearchHit]
	InvalidateRoots(ctx context.Context, nodeID string)
}

// Server serves the gateway API surface.
type Server struct {
	nodes  Nodes
	proxy  Proxy
	logger logSDK.Logger
	engine *gin.Engine
}

// NewServer builds the gin engine of the gateway.
func NewServer(nodes Nodes, proxy Proxy, logger logSDK.Logger) *Server {
	if logger == nil {
		logger = log.Logger.Named("gateway_web")
	}

	s := &Server{
		nodes:  nodes,
		proxy:  proxy,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(logger.Named("gin")),
		),
		recoverEnvelope(),
	)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.engine.GET("/servers", s.listServers)
	s.engine.POST("/servers/refresh", s.refreshServers)
	s.engine.GET("/roots/:nodeId", s.roots)
	s.engine.GET("/browse/:nodeId", s.browse)
	s.engine.GET("/file/:nodeId", s.file)
	s.engine.POST("/:nodeId/search", s.search)
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("listening on http", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthStatus{
		Status:    "healthy",
		Timestamp: gutils.Clock.GetUTCNow(),
	})
}

// recoverEnvelope turns a panic into an INTERNAL envelope.
func recoverEnvelope() gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		gmw.GetLogger(ctx).Error("panic while serving request",
			zap.Any("panic", recovered),
			zap.String("path", ctx.Request.URL.Path))
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, models.Envelope[any]{
			Success:      false,
			ErrorMessage: "internal error",
			ErrorCode:    models.CodeInternal,
			NodeID:       ctx.Param("nodeId"),
		})
	})
}
