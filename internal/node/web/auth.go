package web

import (
	"crypto/subtle"
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	models "github.com/Laisky/logviewer/library/models/files"
)

// requireAPIKey rejects requests whose X-API-Key header does not match
// apiKey. It is a no-op when apiKey is empty.
func requireAPIKey(apiKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if apiKey == "" {
			ctx.Next()
			return
		}

		provided := ctx.GetHeader(models.HeaderAPIKey)
		if provided == "" {
			gmw.GetLogger(ctx).Warn("api key was not provided", zap.String("client_ip", ctx.ClientIP()))
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorBody{Error: "API key was not provided"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			gmw.GetLogger(ctx).Warn("invalid api key", zap.String("client_ip", ctx.ClientIP()))
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorBody{Error: "invalid API key"})
			return
		}

		ctx.Next()
	}
}
