package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/parser"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("processor")

// BatchProcessor 驱动 转写 -> 检测 -> 切分 -> 抽取 的批处理流水线.
// 单个文件内部始终顺序执行; 文件之间默认顺序, 可通过 WithWorkers 并发.
type BatchProcessor struct {
	transcriber Transcriber
	detector    Detector
	splitter    Splitter
	extractor   Extractor

	workers   int
	sink      RecordSink
	publisher EventPublisher
	archiver  ArtifactArchiver
	progress  ProgressReporter
	logger    zerolog.Logger

	// mu 串行化进度汇报、写表与事件发布
	mu    sync.Mutex
	newID func() string
}

// NewBatchProcessor 创建批处理器
func NewBatchProcessor(transcriber Transcriber, detector Detector, splitter Splitter, extractor Extractor, opts ...Option) *BatchProcessor {
	p := &BatchProcessor{
		transcriber: transcriber,
		detector:    detector,
		splitter:    splitter,
		extractor:   extractor,
		workers:     1,
		progress:    noopProgress{},
		logger:      zerolog.Nop(),
		newID:       newUUID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newUUID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return id.String()
}

// ListPDFs 列出目录下的PDF文件, 扩展名不区分大小写, 按文件名字典序
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取输入目录失败 %s: %w", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), constants.PDFExt) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// ProcessDirectory 处理目录下的所有PDF. 只有输入目录不可读或输出目录无法创建时返回错误,
// 单个文件的失败记录在对应的 FileResult 中.
func (p *BatchProcessor) ProcessDirectory(ctx context.Context, inputDir, outputDir string) (*types.BatchResult, error) {
	files, err := ListPDFs(inputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败 %s: %w", outputDir, err)
	}

	runID := p.newID()
	ctx = logger.WithRunID(ctx, runID)
	log := p.logger.With().Str("run_id", runID).Logger()

	ctx, span := tracer.Start(ctx, "BatchProcessor.ProcessDirectory",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("input_dir", inputDir),
			attribute.Int("file_count", len(files)),
			attribute.Int("workers", p.workers),
		))
	defer span.End()

	result := &types.BatchResult{
		RunID:     runID,
		StartedAt: time.Now(),
		Files:     make([]types.FileResult, len(files)),
	}
	if len(files) == 0 {
		log.Warn().Str("input_dir", inputDir).Msg(ErrNoInputFiles.Error())
	}
	log.Info().Int("files", len(files)).Int("workers", p.workers).Msg("开始批处理")

	p.progress.Start(len(files))
	if p.workers <= 1 || len(files) <= 1 {
		for i, path := range files {
			result.Files[i] = p.runOne(ctx, path, outputDir)
		}
	} else {
		p.runPool(ctx, files, outputDir, result.Files)
	}
	p.progress.Finish()
	result.FinishedAt = time.Now()

	records, degraded, failed := result.Stats()
	span.SetAttributes(
		attribute.Int("record_count", records),
		attribute.Int("degraded_count", degraded),
		attribute.Int("failed_files", failed),
	)
	p.publishBatchCompleted(ctx, result, records, failed)

	log.Info().
		Int("files", len(files)).
		Int("records", records).
		Int("degraded", degraded).
		Int("failed_files", failed).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("批处理完成")
	return result, nil
}

// runPool 固定数量的worker按下标写回结果槽, 保持输入顺序
func (p *BatchProcessor) runPool(ctx context.Context, files []string, outputDir string, slots []types.FileResult) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slots[i] = p.runOne(ctx, files[i], outputDir)
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// runOne 处理单个文件并完成写表、事件与进度汇报. 已取消时不再启动新文件.
func (p *BatchProcessor) runOne(ctx context.Context, path, outputDir string) types.FileResult {
	var fr types.FileResult
	if err := ctx.Err(); err != nil {
		fr = failedResult(path, err, 0)
	} else {
		fr = p.ProcessFile(ctx, path, outputDir)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() == nil {
		p.appendRecords(ctx, fr)
		p.publishFileProcessed(ctx, fr)
	}
	p.progress.FileDone(path, fr)
	return fr
}

// ProcessFile 处理单个PDF. 任何阶段失败或panic都只返回一条空的降级记录, 不会中断批处理.
func (p *BatchProcessor) ProcessFile(ctx context.Context, path, outputDir string) (fr types.FileResult) {
	start := time.Now()
	log := p.logger.With().Str("file", path).Logger()

	ctx, span := tracer.Start(ctx, "BatchProcessor.ProcessFile",
		trace.WithAttributes(attribute.String("source_file", path)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrFilePanicked, r)
			log.Error().Err(err).Str("stack", string(debug.Stack())).Msg("文件处理panic, 已降级")
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			fr = failedResult(path, err, time.Since(start))
		}
	}()

	records, err := p.processFile(ctx, span, path, outputDir)
	if err != nil {
		log.Error().Err(err).Msg("文件处理失败, 记录为空结果")
		tracing.RecordError(span, err, errorTypeOf(err))
		return failedResult(path, err, time.Since(start))
	}

	span.SetAttributes(attribute.Int("candidate_count", len(records)))
	log.Info().Int("candidates", len(records)).Dur("elapsed", time.Since(start)).Msg("文件处理完成")
	return types.FileResult{
		SourceFile: path,
		Records:    records,
		Duration:   time.Since(start),
	}
}

func (p *BatchProcessor) processFile(ctx context.Context, span trace.Span, path, outputDir string) ([]types.CandidateRecord, error) {
	text, err := p.transcriber.Transcribe(ctx, path, outputDir)
	if err != nil {
		return nil, newFileError(path, StageTranscribe, err)
	}
	p.archiveArtifact(ctx, parser.ArtifactPath(path, outputDir))

	detection, err := p.detector.Detect(ctx, text)
	if err != nil {
		return nil, newFileError(path, StageDetect, err)
	}
	if !detection.Parsed {
		tracing.RecordDegraded(span, StageDetect, "unparseable detection response")
	}
	span.SetAttributes(
		attribute.Bool("multiple_resumes", detection.Value.MultipleResumes),
		attribute.Int("resume_count", detection.Value.ResumeCount),
	)

	segments := p.splitter.Split(ctx, text, detection.Value)
	if !segments.Parsed {
		tracing.RecordDegraded(span, StageSplit, "split fell back to whole document")
	}

	records := p.extractor.ExtractSegments(ctx, path, segments.Value)
	if len(records) == 0 {
		records = []types.CandidateRecord{types.NewEmptyRecord(path, 1)}
	}
	for _, r := range records {
		if r.Degraded {
			tracing.RecordDegraded(span, StageExtract, fmt.Sprintf("resume %d degraded", r.ResumeIndex))
			continue
		}
		p.logger.Debug().
			Str("file", path).
			Int("resume_index", r.ResumeIndex).
			Str("name", tracing.SafeAttributeValue(types.FieldName, r.Name(), tracing.DefaultMaxLength)).
			Str("email", tracing.SafeAttributeValue(types.FieldEmail, r.Email(), tracing.DefaultMaxLength)).
			Msg("候选人已抽取")
	}
	return records, nil
}

// failedResult 文件级失败的统一结果: 一条 resume_index=1 的空记录
func failedResult(path string, err error, elapsed time.Duration) types.FileResult {
	return types.FileResult{
		SourceFile: path,
		Records:    []types.CandidateRecord{types.NewEmptyRecord(path, 1)},
		Error:      err.Error(),
		Duration:   elapsed,
	}
}

func errorTypeOf(err error) tracing.ErrorType {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return tracing.ErrorTypeTimeout
	case errors.Is(err, ErrTranscriptionFailed):
		return tracing.ErrorTypeTranscription
	case errors.Is(err, ErrDetectionFailed):
		return tracing.ErrorTypeLLM
	default:
		return tracing.ErrorTypeInternal
	}
}

func (p *BatchProcessor) archiveArtifact(ctx context.Context, localPath string) {
	if p.archiver == nil {
		return
	}
	object, err := p.archiver.ArchiveFile(ctx, logger.RunIDFrom(ctx), localPath)
	if err != nil {
		p.logger.Warn().Err(err).Str("artifact", localPath).Msg("归档转写产物失败")
		return
	}
	p.logger.Debug().Str("object", object).Msg("转写产物已归档")
}

func (p *BatchProcessor) appendRecords(ctx context.Context, fr types.FileResult) {
	if p.sink == nil {
		return
	}
	n, err := p.sink.AppendRecords(ctx, fr.Records)
	if err != nil {
		p.logger.Error().Err(err).Str("file", fr.SourceFile).Msg("写入汇总表失败")
		return
	}
	p.logger.Debug().Str("file", fr.SourceFile).Int("rows", n).Msg("已写入汇总表")
}

func (p *BatchProcessor) publishFileProcessed(ctx context.Context, fr types.FileResult) {
	if p.publisher == nil {
		return
	}
	degraded := 0
	for _, r := range fr.Records {
		if r.Degraded {
			degraded++
		}
	}
	evt := types.FileProcessedEvent{
		EventID:        p.newID(),
		RunID:          logger.RunIDFrom(ctx),
		SourceFile:     fr.SourceFile,
		CandidateCount: len(fr.Records),
		DegradedCount:  degraded,
		Failed:         fr.Failed(),
		Error:          fr.Error,
		ProcessedAt:    time.Now(),
	}
	if err := p.publisher.PublishFileProcessed(ctx, evt); err != nil {
		p.logger.Warn().Err(err).Str("file", fr.SourceFile).Msg("发布文件处理事件失败")
	}
}

func (p *BatchProcessor) publishBatchCompleted(ctx context.Context, result *types.BatchResult, records, failed int) {
	if p.publisher == nil {
		return
	}
	evt := types.BatchCompletedEvent{
		EventID:     p.newID(),
		RunID:       result.RunID,
		FileCount:   len(result.Files),
		RecordCount: records,
		FailedFiles: failed,
		CompletedAt: result.FinishedAt,
	}
	if err := p.publisher.PublishBatchCompleted(ctx, evt); err != nil {
		p.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("发布批处理完成事件失败")
	}
}
