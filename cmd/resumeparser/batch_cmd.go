package main

import (
	"context"
	"errors"
	"os"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/types"

	"github.com/fatih/color"
)

func runBatch(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	proc, err := a.newProcessor(ctx, &barProgress{})
	if err != nil {
		return err
	}

	color.Cyan("批处理目录: %s -> %s", cfg.Batch.InputDir, cfg.Batch.OutputDir)
	result, err := proc.ProcessDirectory(ctx, cfg.Batch.InputDir, cfg.Batch.OutputDir)
	if err != nil {
		return err
	}

	resultsPath, err := saveBatchResults(cfg, result)
	if err != nil {
		return err
	}
	color.Green("✓ 结果已写入 %s", resultsPath)
	if len(result.Files) == 0 {
		color.Yellow("! %s: %s", processor.ErrNoInputFiles, cfg.Batch.InputDir)
		return nil
	}

	if cfg.Aggregate.Source == config.AggregateSourceMarkdown {
		if err := aggregateMarkdown(ctx, a, cfg.Batch.OutputDir); err != nil {
			a.logger.Error().Err(err).Msg("Markdown 汇总失败")
		}
	}

	if a.storage.MinIO != nil {
		for _, path := range []string{resultsPath, cfg.CSVPath()} {
			if _, statErr := os.Stat(path); statErr != nil {
				continue
			}
			if _, err := a.storage.MinIO.ArchiveFile(ctx, result.RunID, path); err != nil {
				a.logger.Warn().Err(err).Str("path", path).Msg("归档输出失败")
			}
		}
	}

	printSummary(result)
	if errors.Is(ctx.Err(), context.Canceled) {
		color.Yellow("! 运行被中断, 未处理的文件已标记为失败")
	}
	return nil
}

// saveBatchResults 写出结果映射. 输入目录为空时同样写出 {}.
func saveBatchResults(cfg *config.Config, result *types.BatchResult) (string, error) {
	path := cfg.ResultsPath()
	if err := processor.SaveResults(path, result); err != nil {
		return "", err
	}
	return path, nil
}
