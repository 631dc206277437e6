package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaChatModel 通过 langchaingo 调用本地 Ollama 模型, 适配为 eino 模型接口
type OllamaChatModel struct {
	llm         llms.Model
	modelName   string
	temperature float64
	maxTokens   int
}

var _ model.ToolCallingChatModel = (*OllamaChatModel)(nil)

// NewOllamaChatModel 创建本地模型客户端. jsonMode 为 true 时要求 Ollama 以 JSON 格式输出.
func NewOllamaChatModel(modelName, serverURL string, temperature float64, maxTokens int, jsonMode bool) (*OllamaChatModel, error) {
	if modelName == "" {
		modelName = "llama3.1"
	}
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}
	opts := []ollama.Option{ollama.WithModel(modelName), ollama.WithServerURL(serverURL)}
	if jsonMode {
		opts = append(opts, ollama.WithFormat("json"))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化 Ollama 客户端失败: %w", err)
	}
	return newOllamaChatModel(llm, modelName, temperature, maxTokens), nil
}

func newOllamaChatModel(llm llms.Model, modelName string, temperature float64, maxTokens int) *OllamaChatModel {
	return &OllamaChatModel{llm: llm, modelName: modelName, temperature: temperature, maxTokens: maxTokens}
}

func toLangchainRole(role schema.RoleType) llms.ChatMessageType {
	switch role {
	case schema.System:
		return llms.ChatMessageTypeSystem
	case schema.Assistant:
		return llms.ChatMessageTypeAI
	case schema.Tool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

// Generate 实现 model.BaseChatModel 接口
func (o *OllamaChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	temp := float32(o.temperature)
	maxTokens := o.maxTokens
	common := model.GetCommonOptions(&model.Options{Temperature: &temp, MaxTokens: &maxTokens}, options...)

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		content = append(content, llms.TextParts(toLangchainRole(msg.Role), msg.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(float64(*common.Temperature))}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(*common.MaxTokens))
	}

	resp, err := o.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("Ollama 调用失败: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, fmt.Errorf("Ollama 返回空结果")
	}
	return schema.AssistantMessage(resp.Choices[0].Content, nil), nil
}

// Stream 未实现
func (o *OllamaChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OllamaChatModel 不支持 Stream")
}

// WithTools 不支持工具调用
func (o *OllamaChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) == 0 {
		return o, nil
	}
	return nil, fmt.Errorf("OllamaChatModel 不支持工具调用")
}
