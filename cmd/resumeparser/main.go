package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/tracing"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"         //nolint:gochecknoglobals
	serviceName = "resume-parser" //nolint:gochecknoglobals
)

// 命令行参数
var (
	configPath  = pflag.StringP("config", "c", "", "配置文件路径, 为空时自动查找")
	command     = pflag.String("cmd", "batch", "执行的命令: batch=批处理目录, aggregate=汇总JSON或Markdown, export=导出XLSX, serve=启动HTTP服务")
	inputDir    = pflag.StringP("input", "i", "", "输入目录, 覆盖 batch.input_dir")
	outputDir   = pflag.StringP("output", "o", "", "输出目录, 覆盖 batch.output_dir")
	workers     = pflag.IntP("workers", "w", 0, "并发处理的文件数, 覆盖 batch.workers")
	payloadFile = pflag.String("payload", "", "aggregate: 候选人JSON文件路径; 为空时汇总输出目录中的Markdown产物")
	showVersion = pflag.BoolP("version", "v", false, "显示版本")
)

func main() {
	pflag.Parse()
	if *showVersion {
		fmt.Printf("%s %s\n", serviceName, version)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		color.Red("加载配置失败: %v", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}

	logger.Init(logger.Config(cfg.Logger))
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化追踪失败")
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("关闭追踪失败")
		}
	}()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Str("cmd", *command).Msg("命令执行失败")
		color.Red("✗ %v", err)
		stop()
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if *inputDir != "" {
		cfg.Batch.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Batch.OutputDir = *outputDir
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	switch *command {
	case "batch":
		return runBatch(ctx, cfg)
	case "aggregate":
		return runAggregate(ctx, cfg, *payloadFile)
	case "export":
		return runExport(cfg)
	case "serve":
		return runServe(ctx, cfg)
	default:
		pflag.Usage()
		return fmt.Errorf("未知命令 '%s', 支持: batch, aggregate, export, serve", *command)
	}
}
