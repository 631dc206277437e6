package main

import (
	"resume-parser-go/internal/aggregator"
	"resume-parser-go/internal/config"

	"github.com/fatih/color"
)

func runExport(cfg *config.Config) error {
	rows, err := aggregator.ExportXLSX(cfg.CSVPath(), cfg.XLSXPath())
	if err != nil {
		return err
	}
	color.Green("✓ 导出 %d 行到 %s", rows, cfg.XLSXPath())
	return nil
}
