package aggregator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("aggregator")

// AggregateError 一次汇总调用的失败, Payload 保留完整原始输入
type AggregateError struct {
	Op      string
	Payload string
	Err     error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("汇总失败 (操作:%s): %v", e.Op, e.Err)
}

func (e *AggregateError) Unwrap() error {
	return e.Err
}

// CandidateExtractor 对Markdown产物做二次抽取, 返回候选人JSON数组文本
type CandidateExtractor interface {
	ExtractCandidates(ctx context.Context, markdown string) (string, error)
}

// MarkdownSummary 二次抽取的统计
type MarkdownSummary struct {
	Files  int
	Rows   int
	Failed []string
}

// Aggregator 把候选人数据规范化后写入汇总表
type Aggregator struct {
	sink   RowSink
	logger zerolog.Logger
}

// New 创建汇总器
func New(sink RowSink, logger zerolog.Logger) *Aggregator {
	return &Aggregator{sink: sink, logger: logger}
}

// AggregateJSON 解析并写入一段候选人JSON. 先构造全部行再追加, 失败时本次调用不写入任何行.
func (a *Aggregator) AggregateJSON(ctx context.Context, payload string) (int, error) {
	_, span := tracer.Start(ctx, "Aggregator.AggregateJSON")
	defer span.End()

	items, err := ParseCandidates(payload)
	if err != nil {
		return 0, a.fail(span, "parse", payload, err)
	}

	rows := make([]types.TableRow, 0, len(items))
	for i, item := range items {
		row, err := NormalizeCandidate(item)
		if err != nil {
			return 0, a.fail(span, "normalize", payload, fmt.Errorf("第%d个候选人: %w", i+1, err))
		}
		rows = append(rows, row)
	}

	if err := a.sink.AppendRows(rows); err != nil {
		return 0, a.fail(span, "append", payload, err)
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	a.logger.Info().Int("rows", len(rows)).Msg("候选人已写入汇总表")
	return len(rows), nil
}

// AppendRecords 写入流水线产出的记录. 降级记录写为空行, 文件不会从表中消失.
func (a *Aggregator) AppendRecords(ctx context.Context, records []types.CandidateRecord) (int, error) {
	_, span := tracer.Start(ctx, "Aggregator.AppendRecords")
	defer span.End()

	rows := make([]types.TableRow, 0, len(records))
	for _, r := range records {
		row, err := RecordRow(r)
		if err != nil {
			return 0, a.fail(span, "normalize", fmt.Sprintf("%s#%d", r.SourceFile, r.ResumeIndex), err)
		}
		rows = append(rows, row)
	}
	if err := a.sink.AppendRows(rows); err != nil {
		return 0, a.fail(span, "append", "", err)
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return len(rows), nil
}

// AggregateMarkdownDir 对目录下每个 .md 产物独立做二次抽取并写表, 单个文件失败不影响其余文件.
// 只有目录不可读时返回错误.
func (a *Aggregator) AggregateMarkdownDir(ctx context.Context, dir string, extractor CandidateExtractor) (MarkdownSummary, error) {
	var summary MarkdownSummary

	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary, fmt.Errorf("读取产物目录失败 %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), constants.MarkdownExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Files++
		path := filepath.Join(dir, entry.Name())
		log := a.logger.With().Str("artifact", path).Logger()

		content, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Msg("读取产物失败")
			summary.Failed = append(summary.Failed, path)
			continue
		}

		payload, err := extractor.ExtractCandidates(ctx, string(content))
		if err != nil {
			log.Error().Err(err).Msg("二次抽取失败")
			summary.Failed = append(summary.Failed, path)
			continue
		}

		n, err := a.AggregateJSON(ctx, payload)
		if err != nil {
			summary.Failed = append(summary.Failed, path)
			continue
		}
		summary.Rows += n
		log.Info().Int("rows", n).Msg("产物汇总完成")
	}
	return summary, nil
}

// fail 记录完整原始负载后返回 AggregateError, 链路上只保留截断后的负载
func (a *Aggregator) fail(span trace.Span, op, payload string, err error) error {
	a.logger.Error().Err(err).Str("op", op).Str("payload", payload).Msg("汇总失败")
	tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeAggregate,
		attribute.String("op", op),
		attribute.String("payload", tracing.SafePayload(payload)),
	)
	return &AggregateError{Op: op, Payload: payload, Err: err}
}
