package main

import (
	"context"
	"time"

	"resume-parser-go/internal/api"
	"resume-parser-go/internal/api/handler"
	"resume-parser-go/internal/config"
)

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// 服务模式没有终端进度条
	proc, err := a.newProcessor(ctx, nil)
	if err != nil {
		return err
	}

	bh := handler.NewBatchHandler(proc, a.aggregator, cfg.Batch.InputDir, cfg.Batch.OutputDir, cfg.Batch.ResultsFile, a.logger)
	h := api.NewServer(cfg, bh, a.logger)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")
		errCh <- h.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("接收到终止信号，正在优雅退出...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.Shutdown(shutdownCtx)
}
