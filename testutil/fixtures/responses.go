// =============================================================================
// 📦 测试数据工厂 - 生成后端响应
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/types"
)

// TextResponse 返回纯文本响应
func TextResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Content: content,
		Usage:   &types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// FunctionCallResponse 返回函数调用响应（序列化参数）
func FunctionCallResponse(id, name, rawArgs string) *llm.ChatResponse {
	return &llm.ChatResponse{
		FunctionCall: &types.FunctionCall{ID: id, Name: name, RawArguments: rawArgs},
		Usage:        &types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// MalformedArguments 是无法解析为 JSON 对象的参数串
const MalformedArguments = `{"reason": "unterminated`
