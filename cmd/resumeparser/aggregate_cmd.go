package main

import (
	"context"
	"fmt"
	"os"

	"resume-parser-go/internal/config"

	"github.com/fatih/color"
)

// runAggregate 把候选人JSON文件写入汇总表; 未指定文件时对输出目录中的Markdown产物做二次抽取
func runAggregate(ctx context.Context, cfg *config.Config, payloadPath string) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if payloadPath == "" {
		return aggregateMarkdown(ctx, a, cfg.Batch.OutputDir)
	}

	data, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("读取候选人JSON失败: %w", err)
	}
	rows, err := a.aggregator.AggregateJSON(ctx, string(data))
	if err != nil {
		return err
	}
	color.Green("✓ 写入 %d 行到 %s", rows, cfg.CSVPath())
	return nil
}

func aggregateMarkdown(ctx context.Context, a *app, dir string) error {
	extractor, err := a.newMarkdownExtractor()
	if err != nil {
		return err
	}
	summary, err := a.aggregator.AggregateMarkdownDir(ctx, dir, extractor)
	if err != nil {
		return err
	}
	color.Green("✓ 汇总 %d 个产物, 写入 %d 行到 %s", summary.Files, summary.Rows, a.cfg.CSVPath())
	for _, f := range summary.Failed {
		color.Yellow("! 跳过 %s", f)
	}
	return nil
}
