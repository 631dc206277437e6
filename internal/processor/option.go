package processor

import (
	"github.com/rs/zerolog"
)

// maxWorkers 并发文件数上限
const maxWorkers = 16

// Option 批处理器选项
type Option func(*BatchProcessor)

// WithWorkers 设置并发处理的文件数. 1 表示严格顺序处理.
func WithWorkers(n int) Option {
	return func(p *BatchProcessor) {
		switch {
		case n < 1:
			p.workers = 1
		case n > maxWorkers:
			p.workers = maxWorkers
		default:
			p.workers = n
		}
	}
}

// WithRecordSink 每个文件完成后把记录追加到汇总表
func WithRecordSink(sink RecordSink) Option {
	return func(p *BatchProcessor) {
		p.sink = sink
	}
}

// WithEventPublisher 发布文件与批次事件
func WithEventPublisher(pub EventPublisher) Option {
	return func(p *BatchProcessor) {
		p.publisher = pub
	}
}

// WithArtifactArchiver 归档每个文件的转写产物
func WithArtifactArchiver(a ArtifactArchiver) Option {
	return func(p *BatchProcessor) {
		p.archiver = a
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger zerolog.Logger) Option {
	return func(p *BatchProcessor) {
		p.logger = logger
	}
}

// WithProgressReporter 设置进度汇报
func WithProgressReporter(r ProgressReporter) Option {
	return func(p *BatchProcessor) {
		if r != nil {
			p.progress = r
		}
	}
}
