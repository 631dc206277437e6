package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义了 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatModel 测试用的 model.ToolCallingChatModel 实现, 不访问网络.
// 设置了 Responder 时按输入动态生成响应, 否则按顺序返回 Responses,
// 用尽后重复最后一个.
type MockChatModel struct {
	mu        sync.Mutex
	Responses []MockResponse
	Responder func(messages []*schema.Message) (string, error)

	calls    int
	received [][]*schema.Message
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)

// NewMockChatModel 创建按顺序返回固定内容的模拟模型
func NewMockChatModel(contents ...string) *MockChatModel {
	m := &MockChatModel{}
	for _, c := range contents {
		m.Responses = append(m.Responses, MockResponse{Content: c})
	}
	return m
}

// NewMockChatModelSequential 创建按顺序返回响应(含错误)的模拟模型
func NewMockChatModelSequential(responses ...MockResponse) *MockChatModel {
	return &MockChatModel{Responses: responses}
}

// NewMockChatModelFunc 创建按输入动态响应的模拟模型
func NewMockChatModelFunc(fn func(messages []*schema.Message) (string, error)) *MockChatModel {
	return &MockChatModel{Responder: fn}
}

// Generate 模拟 LLM 的 Generate 方法
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	copied := make([]*schema.Message, len(input))
	copy(copied, input)
	m.received = append(m.received, copied)
	idx := m.calls
	m.calls++
	responder := m.Responder
	var resp MockResponse
	if responder == nil {
		if len(m.Responses) == 0 {
			m.mu.Unlock()
			return nil, errors.New("mock model has no responses configured")
		}
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		resp = m.Responses[idx]
	}
	m.mu.Unlock()

	if responder != nil {
		content, err := responder(copied)
		if err != nil {
			return nil, err
		}
		return schema.AssistantMessage(content, nil), nil
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 模拟 Stream 方法, 将 Generate 的结果包装为单元素流
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 模拟模型忽略工具
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls 返回 Generate 被调用的次数
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Received 返回每次调用收到的消息
func (m *MockChatModel) Received() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.received))
	copy(out, m.received)
	return out
}

// LastUserContent 返回最后一次调用中最后一条用户消息的内容
func (m *MockChatModel) LastUserContent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.received) == 0 {
		return ""
	}
	last := m.received[len(m.received)-1]
	for i := len(last) - 1; i >= 0; i-- {
		if last[i] != nil && last[i].Role == schema.User {
			return last[i].Content
		}
	}
	return ""
}
