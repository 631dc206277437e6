package parser

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"
)

// MarkdownExtractor 对转写产物做二次抽取, 一次返回文档中所有候选人的JSON数组
type MarkdownExtractor struct {
	model  model.ToolCallingChatModel
	logger zerolog.Logger
}

// NewMarkdownExtractor 创建二次抽取器
func NewMarkdownExtractor(m model.ToolCallingChatModel, logger zerolog.Logger) *MarkdownExtractor {
	return &MarkdownExtractor{model: m, logger: logger}
}

// ExtractCandidates 返回模型的原始输出, 由汇总器负责解析
func (e *MarkdownExtractor) ExtractCandidates(ctx context.Context, markdown string) (string, error) {
	raw, err := callModel(ctx, e.model, "markdown", markdownPrompt, "Here's the Markdown content to parse:\n"+markdown)
	if err != nil {
		return "", err
	}
	e.logger.Debug().Int("length", len(raw)).Msg("二次抽取完成")
	return raw, nil
}
