package parser

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"resume-parser-go/internal/tracing"
	"resume-parser-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"
)

// Detector 判断一份文本中是否包含多份简历
type Detector struct {
	model  model.ToolCallingChatModel
	logger zerolog.Logger
}

// DetectorOption 检测器配置选项
type DetectorOption func(*Detector)

// WithDetectorLogger 配置日志记录器
func WithDetectorLogger(logger zerolog.Logger) DetectorOption {
	return func(d *Detector) {
		d.logger = logger
	}
}

// NewDetector 创建多简历检测器
func NewDetector(m model.ToolCallingChatModel, opts ...DetectorOption) *Detector {
	d := &Detector{model: m, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect 调用模型做检测. 输出无法解析时返回 {false, 1} 且 Parsed=false;
// 只有调用本身失败才返回错误.
func (d *Detector) Detect(ctx context.Context, text string) (types.LLMResult[types.DetectionResult], error) {
	raw, err := callModel(ctx, d.model, "detect", detectPrompt, text)
	if err != nil {
		return types.Unparsed(types.DefaultDetection(), ""), err
	}

	result, ok := parseDetection(raw)
	if !ok {
		d.logger.Warn().Str("raw", tracing.TruncateString(raw, logPreviewLength)).Msg("检测结果无法解析, 按单份简历处理")
		return types.Unparsed(types.DefaultDetection(), raw), nil
	}

	d.logger.Debug().
		Bool("multiple_resumes", result.MultipleResumes).
		Int("resume_count", result.ResumeCount).
		Msg("多简历检测完成")
	return types.Parsed(result, raw), nil
}

// parseDetection 宽松解析检测结果并做归一化
func parseDetection(raw string) (types.DetectionResult, bool) {
	obj := ExtractJSONObject(raw)
	if obj == "" {
		return types.DetectionResult{}, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return types.DetectionResult{}, false
	}

	multiple, hasMultiple := coerceBool(m["multiple_resumes"])
	count, hasCount := coerceInt(m["resume_count"])
	if !hasMultiple && !hasCount {
		return types.DetectionResult{}, false
	}
	if !hasMultiple {
		multiple = count > 1
	}
	return normalizeDetection(types.DetectionResult{MultipleResumes: multiple, ResumeCount: count}), true
}

// normalizeDetection count<1 视为1; 非多份时count固定为1; 多份但count<2时按单份处理
func normalizeDetection(d types.DetectionResult) types.DetectionResult {
	if d.ResumeCount < 1 {
		d.ResumeCount = 1
	}
	if !d.MultipleResumes {
		d.ResumeCount = 1
	}
	if d.MultipleResumes && d.ResumeCount < 2 {
		d.MultipleResumes = false
		d.ResumeCount = 1
	}
	return d
}

func coerceBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func coerceInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
