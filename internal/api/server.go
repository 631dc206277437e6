package api

import (
	"context"

	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/api/router"
	"resume-parser-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
)

// NewServer 创建 Hertz 服务器并注册路由. 启用追踪时挂载 OpenTelemetry 中间件.
func NewServer(cfg *config.Config, batchHandler *handler.BatchHandler, logger zerolog.Logger) *server.Hertz {
	hlog.SetLogger(hertzadapter.From(logger))

	opts := []hconfig.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	}
	var tracerCfg *hertztracing.Config
	if cfg.Tracing.Enabled {
		var tracerOpt hconfig.Option
		tracerOpt, tracerCfg = hertztracing.NewServerTracer()
		opts = append(opts, tracerOpt)
	}

	h := server.New(opts...)
	if tracerCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	}
	h.Use(accessLog)

	router.RegisterRoutes(h, batchHandler, cfg.Server.APIKeys)
	return h
}

func accessLog(c context.Context, ctx *app.RequestContext) {
	ctx.Next(c)
	hlog.CtxInfof(c, "%s %s -> %d", string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode())
}
