package parser

import (
	"context"
	"encoding/json"
	"strings"

	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"
)

// Extractor 从单份简历文本中抽取结构化字段
type Extractor struct {
	model  model.ToolCallingChatModel
	logger zerolog.Logger
}

// ExtractorOption 抽取器配置选项
type ExtractorOption func(*Extractor)

// WithExtractorLogger 配置日志记录器
func WithExtractorLogger(logger zerolog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor 创建字段抽取器
func NewExtractor(m model.ToolCallingChatModel, opts ...ExtractorOption) *Extractor {
	e := &Extractor{model: m, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 调用失败或输出不是JSON对象时返回空映射, Parsed=false
func (e *Extractor) Extract(ctx context.Context, segment string) types.LLMResult[map[string]interface{}] {
	raw, err := callModel(ctx, e.model, "extract", extractPrompt, strings.TrimSpace(segment))
	if err != nil {
		e.logger.Warn().Err(err).Msg("字段抽取调用失败")
		return types.Unparsed(map[string]interface{}{}, "")
	}

	fields, ok := parseFields(raw)
	if !ok {
		e.logger.Warn().Str("raw", tracing.TruncateString(raw, logPreviewLength)).Msg("字段抽取结果不是有效JSON")
		return types.Unparsed(map[string]interface{}{}, raw)
	}
	return types.Parsed(fields, raw)
}

// ExtractSegments 依次抽取每个片段. ResumeIndex 从1开始按片段顺序编号, 与抽取成败无关.
func (e *Extractor) ExtractSegments(ctx context.Context, sourceFile string, segments []string) []types.CandidateRecord {
	records := make([]types.CandidateRecord, 0, len(segments))
	for i, seg := range segments {
		res := e.Extract(ctx, seg)
		records = append(records, types.CandidateRecord{
			Fields:      res.Value,
			ResumeIndex: i + 1,
			SourceFile:  sourceFile,
			Degraded:    !res.Parsed,
		})
	}
	return records
}

func parseFields(raw string) (map[string]interface{}, bool) {
	obj := ExtractJSONObject(raw)
	if obj == "" {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return nil, false
	}
	return types.CanonicalizeFields(m), true
}
