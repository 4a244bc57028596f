package web

import (
	"context"
	"net/http"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/logviewer/internal/node/files"
	models "github.com/Laisky/logviewer/library/models/files"
)

func (s *Server) roots(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.svc.Roots())
}

func (s *Server) browse(ctx *gin.Context) {
	rootName, path := ctx.Query("rootName"), ctx.Query("path")
	logger := requestLogger(ctx, "browse").With(
		zap.String("root", rootName),
		zap.String("path", path),
	)

	items, err := s.svc.Browse(ctx.Request.Context(), rootName, path)
	if err != nil {
		abortWithError(ctx, logger, err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (s *Server) file(ctx *gin.Context) {
	rootName, path := ctx.Query("rootName"), ctx.Query("path")
	logger := requestLogger(ctx, "file").With(
		zap.String("root", rootName),
		zap.String("path", path),
	)

	result, err := s.svc.Read(ctx.Request.Context(), rootName, path)
	if err != nil {
		abortWithError(ctx, logger, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (s *Server) search(ctx *gin.Context) {
	logger := requestLogger(ctx, "search")

	var query models.SearchQuery
	if err := ctx.ShouldBindJSON(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, models.SearchResponse{
			Success: false,
			Error:   "invalid search request",
			Results: []models.SearchHit{},
		})
		return
	}
	logger = logger.With(
		zap.String("root", query.RootName),
		zap.String("path", query.Path),
		zap.String("mode", string(query.SearchMode)),
	)

	hits, err := s.svc.Search(ctx.Request.Context(), query)
	if err != nil {
		status, msg := describeError(err)
		var code string
		if typed, ok := files.AsError(err); ok {
			code = string(typed.Code)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
			msg = "search aborted before all files were scanned"
		}
		logger.Warn("search files", zap.Error(err), zap.Int("partial_hits", len(hits)))
		if hits == nil {
			hits = []models.SearchHit{}
		}
		ctx.JSON(status, models.SearchResponse{Success: false, Error: msg, Code: code, Results: hits})
		return
	}

	ctx.JSON(http.StatusOK, models.SearchResponse{Success: true, Results: hits})
}

// requestLogger names the request logger and tags it with the caller's
// request id.
func requestLogger(ctx *gin.Context, name string) logSDK.Logger {
	var logger logSDK.Logger = gmw.GetLogger(ctx).Named(name)
	if id := ctx.GetHeader(models.HeaderRequestID); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}
	return logger
}

// describeError maps err to an HTTP status and a caller-facing message.
// Untyped errors are reported as internal without their details.
func describeError(err error) (int, string) {
	if typed, ok := files.AsError(err); ok {
		return typed.Code.HTTPStatus(), typed.Message
	}
	return http.StatusInternalServerError, "internal error"
}

func abortWithError(ctx *gin.Context, logger logSDK.Logger, err error) {
	status, msg := describeError(err)
	code := string(files.ErrCodeInternal)
	if typed, ok := files.AsError(err); ok {
		code = string(typed.Code)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Error(err))
	}
	ctx.AbortWithStatusJSON(status, models.ErrorBody{Error: msg, Code: code})
}
