package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 定义错误类型，便于分类和过滤
type ErrorType string

const (
	// ErrorTypeTranscription PDF转写错误
	ErrorTypeTranscription ErrorType = "transcription"
	// ErrorTypeLLM 语言模型调用错误
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeParse 模型输出解析错误
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeAggregate 汇总写表错误
	ErrorTypeAggregate ErrorType = "aggregate"
	// ErrorTypeRedis Redis错误
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeRabbitMQ RabbitMQ错误
	ErrorTypeRabbitMQ ErrorType = "rabbitmq"
	// ErrorTypeStorage 对象存储错误
	ErrorTypeStorage ErrorType = "object_storage"
	// ErrorTypeValidation 验证错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
)

// RecordError 记录错误，添加统一的错误类型和详情
func RecordError(span trace.Span, err error, errorType ErrorType) {
	RecordErrorWithInfo(span, err, errorType)
}

// RecordErrorWithInfo 记录错误并添加额外信息
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordDegraded 标记阶段输出为降级结果. 降级不是错误, span 状态保持不变.
func RecordDegraded(span trace.Span, stage string, reason string) {
	if span == nil {
		return
	}
	span.AddEvent("degraded", trace.WithAttributes(
		attribute.String("pipeline.stage", stage),
		attribute.String("degraded.reason", TruncateString(reason, DefaultMaxLength)),
	))
}
