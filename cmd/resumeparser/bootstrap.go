package main

import (
	"context"
	"fmt"

	"resume-parser-go/internal/agent"
	"resume-parser-go/internal/aggregator"
	"resume-parser-go/internal/config"
	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"
)

// app 聚合一次命令执行所需的组件
type app struct {
	cfg        *config.Config
	storage    *storage.Storage
	factory    *agent.Factory
	aggregator *aggregator.Aggregator
	logger     zerolog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.Logger.With().Str("service", serviceName).Logger()

	store, err := storage.NewStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		storage:    store,
		factory:    agent.NewFactory(cfg, store.Cache, log),
		aggregator: aggregator.New(aggregator.NewCSVStore(cfg.CSVPath()), log),
		logger:     log,
	}, nil
}

func (a *app) Close() {
	a.storage.Close()
}

func (a *app) model(task string) (model.ToolCallingChatModel, error) {
	m, err := a.factory.ForTask(task)
	if err != nil {
		return nil, fmt.Errorf("初始化模型失败: %w", err)
	}
	return m, nil
}

// newProcessor 按配置组装流水线. 汇总来源为 records 时逐文件写表.
func (a *app) newProcessor(ctx context.Context, progress processor.ProgressReporter) (*processor.BatchProcessor, error) {
	transcriber, err := parser.NewTranscriber(ctx, a.cfg.Transcriber, a.logger)
	if err != nil {
		return nil, fmt.Errorf("初始化转写器失败: %w", err)
	}

	detectModel, err := a.model(config.TaskDetect)
	if err != nil {
		return nil, err
	}
	splitModel, err := a.model(config.TaskSplit)
	if err != nil {
		return nil, err
	}
	extractModel, err := a.model(config.TaskExtract)
	if err != nil {
		return nil, err
	}

	opts := []processor.Option{
		processor.WithWorkers(a.cfg.Batch.Workers),
		processor.WithLogger(a.logger),
	}
	if progress != nil {
		opts = append(opts, processor.WithProgressReporter(progress))
	}
	if a.cfg.Aggregate.Source == config.AggregateSourceRecords {
		opts = append(opts, processor.WithRecordSink(a.aggregator))
	}
	if a.storage.RabbitMQ != nil {
		opts = append(opts, processor.WithEventPublisher(a.storage.RabbitMQ))
	}
	if a.storage.MinIO != nil {
		opts = append(opts, processor.WithArtifactArchiver(a.storage.MinIO))
	}

	return processor.NewBatchProcessor(
		transcriber,
		parser.NewDetector(detectModel, parser.WithDetectorLogger(a.logger)),
		parser.NewSplitter(splitModel, parser.WithSplitterLogger(a.logger)),
		parser.NewExtractor(extractModel, parser.WithExtractorLogger(a.logger)),
		opts...,
	), nil
}

func (a *app) newMarkdownExtractor() (*parser.MarkdownExtractor, error) {
	m, err := a.model(config.TaskMarkdown)
	if err != nil {
		return nil, err
	}
	return parser.NewMarkdownExtractor(m, a.logger), nil
}
