package llm

import (
	"context"
	"errors"

	"github.com/BaSui01/agentdesk/types"
)

// ChatRequest is the narrow request contract consumed by the execution loop.
type ChatRequest struct {
	Model       string                     `json:"model"`
	Messages    []types.Message            `json:"messages"`
	Functions   []types.FunctionDefinition `json:"functions,omitempty"`
	Temperature float32                    `json:"temperature,omitempty"`
	MaxTokens   int                        `json:"max_tokens,omitempty"`
}

// ChatResponse carries either final text or a function call, never both.
type ChatResponse struct {
	Content      string              `json:"content,omitempty"`
	FunctionCall *types.FunctionCall `json:"function_call,omitempty"`
	Usage        *types.TokenUsage   `json:"usage,omitempty"`
}

// IsFunctionCall reports whether the backend asked for a function call.
func (r *ChatResponse) IsFunctionCall() bool {
	return r != nil && r.FunctionCall != nil
}

// Provider 定义了生成后端的统一适配接口。
// 函数通过 ChatRequest.Functions 传递，后端以 FunctionCall 响应，
// 具体执行由 agent.FunctionExecutor 负责。
type Provider interface {
	// Chat 发起同步聊天请求
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

// Chat calls f.
func (f ProviderFunc) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}

// Name implements Provider.
func (f ProviderFunc) Name() string { return "func" }

// UpstreamError wraps a backend failure into the shared error taxonomy.
func UpstreamError(provider string, err error) *types.Error {
	if err == nil {
		return nil
	}
	code := types.ErrUpstreamError
	if errors.Is(err, context.DeadlineExceeded) {
		code = types.ErrUpstreamTimeout
	}
	return types.NewError(code, provider+" request failed").WithCause(err).WithRetryable(true)
}
