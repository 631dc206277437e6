package parser

import (
	"context"
	"errors"
	"fmt"

	"resume-parser-go/internal/tracing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("resume-parser/parser")

// logPreviewLength 日志中模型原始输出的截断长度
const logPreviewLength = 300

// ErrEmptyResponse 模型返回了空消息
var ErrEmptyResponse = errors.New("LLM返回空响应")

// callModel 发送一轮 system+user 消息并返回文本.
// 重试、限流与超时由上层包装的模型负责, 这里只调用一次.
func callModel(ctx context.Context, m model.ToolCallingChatModel, stage, system, user string) (string, error) {
	ctx, span := tracer.Start(ctx, "parser."+stage)
	defer span.End()
	span.SetAttributes(
		attribute.String("stage", stage),
		attribute.Int("input.length", len(user)),
		attribute.String("input.preview", tracing.SafeResumeContent(user)),
	)

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	resp, err := m.Generate(ctx, messages, model.WithTemperature(0))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", fmt.Errorf("%s: LLM调用失败: %w", stage, err)
	}
	if resp == nil {
		tracing.RecordError(span, ErrEmptyResponse, tracing.ErrorTypeLLM)
		return "", fmt.Errorf("%s: %w", stage, ErrEmptyResponse)
	}

	span.SetAttributes(attribute.String("llm.response", tracing.SafePayload(resp.Content)))
	return resp.Content, nil
}
