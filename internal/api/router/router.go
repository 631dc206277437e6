package router

import (
	"context"
	"errors"

	"resume-parser-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

var errInvalidAPIKey = errors.New("无效的API Key")

// RegisterRoutes 注册 API 路由. apiKeys 非空时 /api/v1 需要 Bearer 认证.
func RegisterRoutes(h *server.Hertz, batchHandler *handler.BatchHandler, apiKeys []string) {
	h.GET("/health", batchHandler.HandleHealth)

	api := h.Group("/api/v1")
	if len(apiKeys) > 0 {
		api.Use(newKeyAuth(apiKeys))
	}
	api.POST("/batches", batchHandler.HandleRunBatch)
	api.POST("/aggregate", batchHandler.HandleAggregate)
}

func newKeyAuth(apiKeys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		allowed[k] = struct{}{}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			if _, ok := allowed[key]; ok {
				return true, nil
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(_ context.Context, c *app.RequestContext, err error) {
			msg := "未授权访问"
			if err != nil {
				msg = err.Error()
			}
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": msg})
		}),
	)
}
