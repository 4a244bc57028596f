package web

import (
	"context"
	"net/http"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"github.com/Laisky/logviewer/internal/gateway/registry"
	models "github.com/Laisky/logviewer/library/models/files"
)

func (s *Server) listServers(ctx *gin.Context) {
	s.writeNodes(ctx, s.nodes.Nodes())
}

// refreshServers re-probes every node. The probes outlive a client that
// hangs up, each one is still bounded by the health timeout.
func (s *Server) refreshServers(ctx *gin.Context) {
	refreshCtx := context.WithoutCancel(ctx.Request.Context())
	nodes := s.nodes.Refresh(refreshCtx)
	for _, node := range nodes {
		s.proxy.InvalidateRoots(refreshCtx, node.ID)
	}
	s.writeNodes(ctx, nodes)
}

// writeNodes answers with the public projection of nodes, without
// addresses or keys.
func (s *Server) writeNodes(ctx *gin.Context, nodes []registry.NodeDescriptor) {
	views := make([]models.NodeView, 0, len(nodes))
	if err := copier.Copy(&views, &nodes); err != nil {
		gmw.GetLogger(ctx).Error("project nodes", zap.Error(errors.WithStack(err)))
		ctx.JSON(http.StatusInternalServerError, models.ErrorBody{
			Error: "error retrieving servers",
			Code:  models.CodeInternal,
		})
		return
	}
	ctx.JSON(http.StatusOK, views)
}

func (s *Server) roots(ctx *gin.Context) {
	env := s.proxy.Roots(ctx.Request.Context(), ctx.Param("nodeId"))
	s.writeEnvelope(ctx, "roots", env.Success, env.ErrorCode, env)
}

func (s *Server) browse(ctx *gin.Context) {
	env := s.proxy.Browse(ctx.Request.Context(), ctx.Param("nodeId"),
		ctx.Query("rootName"), ctx.Query("path"))
	s.writeEnvelope(ctx, "browse", env.Success, env.ErrorCode, env)
}

func (s *Server) file(ctx *gin.Context) {
	env := s.proxy.FileContents(ctx.Request.Context(), ctx.Param("nodeId"),
		ctx.Query("rootName"), ctx.Query("path"))
	s.writeEnvelope(ctx, "file", env.Success, env.ErrorCode, env)
}

func (s *Server) search(ctx *gin.Context) {
	nodeID := ctx.Param("nodeId")

	var query models.SearchQuery
	if err := ctx.ShouldBindJSON(&query); err != nil {
		env := models.Envelope[[]models.SearchHit]{
			Success:      false,
			ErrorMessage: "invalid search request",
			ErrorCode:    models.CodeInvalidQuery,
			NodeID:       nodeID,
		}
		s.writeEnvelope(ctx, "search", false, env.ErrorCode, env)
		return
	}

	env := s.proxy.Search(ctx.Request.Context(), nodeID, query)
	s.writeEnvelope(ctx, "search", env.Success, env.ErrorCode, env)
}

// writeEnvelope answers 200 with env whatever its outcome; failures are
// described inside the envelope.
func (s *Server) writeEnvelope(ctx *gin.Context, op string, success bool, code string, env any) {
	if !success {
		gmw.GetLogger(ctx).Named(op).Debug("proxied request failed",
			zap.String("node", ctx.Param("nodeId")),
			zap.String("code", code))
	}
	ctx.JSON(http.StatusOK, env)
}
