package main

import (
	"fmt"
	"path/filepath"
	"time"

	"resume-parser-go/internal/types"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// barProgress 在终端显示逐文件进度
type barProgress struct {
	bar *progressbar.ProgressBar
}

func (p *barProgress) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString("解析简历")),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *barProgress) FileDone(path string, result types.FileResult) {
	if p.bar == nil {
		return
	}
	name := filepath.Base(path)
	if result.Failed() {
		p.bar.Describe(color.RedString("✗ %s", name))
	} else {
		p.bar.Describe(color.BlueString("✓ %s", name))
	}
	_ = p.bar.Add(1)
}

func (p *barProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Println()
}

func printSummary(result *types.BatchResult) {
	records, degraded, failed := result.Stats()
	color.Cyan("\n运行 %s: %d 个文件, 耗时 %s", result.RunID, len(result.Files), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	color.Green("✓ 候选人记录 %d 条", records)
	if degraded > 0 {
		color.Yellow("! 降级记录 %d 条", degraded)
	}
	if failed > 0 {
		color.Red("✗ 失败文件 %d 个", failed)
		for _, f := range result.Files {
			if f.Failed() {
				color.Red("  %s: %s", filepath.Base(f.SourceFile), f.Error)
			}
		}
	}
}
