package processor

import (
	"context"

	"resume-parser-go/internal/types"
)

//
// 流水线各阶段接口
//

// Transcriber PDF转写接口, 产物写入 <outputDir>/<stem>.md
type Transcriber interface {
	Transcribe(ctx context.Context, filePath, outputDir string) (string, error)
}

// Detector 多简历检测接口. 只有调用失败才返回错误.
type Detector interface {
	Detect(ctx context.Context, text string) (types.LLMResult[types.DetectionResult], error)
}

// Splitter 简历切分接口, 永不失败
type Splitter interface {
	Split(ctx context.Context, text string, detection types.DetectionResult) types.LLMResult[[]string]
}

// Extractor 字段抽取接口, 为每个片段返回一条记录
type Extractor interface {
	ExtractSegments(ctx context.Context, sourceFile string, segments []string) []types.CandidateRecord
}

//
// 可选的下游组件
//

// RecordSink 接收每个文件产出的记录, 通常是汇总表
type RecordSink interface {
	AppendRecords(ctx context.Context, records []types.CandidateRecord) (int, error)
}

// EventPublisher 发布处理事件
type EventPublisher interface {
	PublishFileProcessed(ctx context.Context, evt types.FileProcessedEvent) error
	PublishBatchCompleted(ctx context.Context, evt types.BatchCompletedEvent) error
}

// ArtifactArchiver 归档转写产物
type ArtifactArchiver interface {
	ArchiveFile(ctx context.Context, runID, localPath string) (string, error)
}

// ProgressReporter 逐文件汇报进度. 并发模式下调用已串行化.
type ProgressReporter interface {
	Start(total int)
	FileDone(path string, result types.FileResult)
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(int)                          {}
func (noopProgress) FileDone(string, types.FileResult) {}
func (noopProgress) Finish()                            {}
