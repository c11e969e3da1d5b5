// MockProvider 的生成后端测试模拟实现。
//
// 支持脚本化响应序列、函数调用、错误注入与调用记录。
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/types"
)

// --- MockProvider 结构 ---

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	// 响应配置
	response string
	script   []ScriptStep
	err      error

	// Token 使用统计
	promptTokens     int
	completionTokens int

	// 调用记录
	calls    []MockProviderCall
	chatFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// 行为控制
	failAfter int // 在第 N 次调用后失败
}

// ScriptStep 是脚本中的一步：文本、函数调用或错误三选一
type ScriptStep struct {
	Content      string
	FunctionCall *types.FunctionCall
	Err          error
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		response:         "Mock response",
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse 设置脚本耗尽后的固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithScript 追加按顺序返回的响应步骤
func (m *MockProvider) WithScript(steps ...ScriptStep) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, steps...)
	return m
}

// WithFunctionCall 追加一次函数调用响应（参数为序列化 JSON）
func (m *MockProvider) WithFunctionCall(name, rawArgs string) *MockProvider {
	return m.WithScript(ScriptStep{FunctionCall: &types.FunctionCall{Name: name, RawArguments: rawArgs}})
}

// WithText 追加一次文本响应
func (m *MockProvider) WithText(content string) *MockProvider {
	return m.WithScript(ScriptStep{Content: content})
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockProvider) WithFailAfter(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithChatFunc 设置自定义 Chat 函数
func (m *MockProvider) WithChatFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatFunc = fn
	return m
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return "mock"
}

// Chat 按脚本返回响应
func (m *MockProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 记录请求快照，循环会在后续轮次追加消息
	snapshot := *req
	snapshot.Messages = append([]types.Message(nil), req.Messages...)

	if err := ctx.Err(); err != nil {
		m.calls = append(m.calls, MockProviderCall{Request: &snapshot, Error: err})
		return nil, err
	}

	if m.failAfter > 0 && len(m.calls) >= m.failAfter {
		err := errors.New("mock provider: configured to fail after N calls")
		m.calls = append(m.calls, MockProviderCall{Request: &snapshot, Error: err})
		return nil, err
	}

	if m.err != nil {
		m.calls = append(m.calls, MockProviderCall{Request: &snapshot, Error: m.err})
		return nil, m.err
	}

	if m.chatFunc != nil {
		resp, err := m.chatFunc(ctx, req)
		m.calls = append(m.calls, MockProviderCall{Request: &snapshot, Response: resp, Error: err})
		return resp, err
	}

	resp := &llm.ChatResponse{
		Content: m.response,
		Usage: &types.TokenUsage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
	}
	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]
		if step.Err != nil {
			m.calls = append(m.calls, MockProviderCall{Request: &snapshot, Error: step.Err})
			return nil, step.Err
		}
		resp.Content = step.Content
		if step.FunctionCall != nil {
			call := *step.FunctionCall
			resp.Content = ""
			resp.FunctionCall = &call
		}
	}

	m.calls = append(m.calls, MockProviderCall{Request: &snapshot, Response: resp})
	return resp, nil
}

// --- 调用记录查询 ---

// Calls 返回所有调用记录
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastRequest 返回最后一次请求
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1].Request
}

// Reset 清空脚本与调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.script = nil
	m.err = nil
}
