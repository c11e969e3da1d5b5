// MockExecutor 的函数执行器测试模拟实现。
//
// 支持按名称注册处理函数、固定结果、错误注入与调用记录。
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/agentdesk/agent"
)

// FunctionFunc 函数执行类型
type FunctionFunc func(ctx context.Context, args map[string]any, c *agent.Context) (any, error)

// FunctionCall 记录单次函数调用
type FunctionCall struct {
	Name   string
	Args   map[string]any
	Result any
	Error  error
}

// MockExecutor 是 agent.FunctionExecutor 的模拟实现
type MockExecutor struct {
	mu sync.Mutex

	funcs   map[string]FunctionFunc
	results map[string]any
	errs    map[string]error

	calls []FunctionCall

	// 未注册函数的默认行为
	defaultResult any
	strict        bool
}

// NewMockExecutor 创建新的 MockExecutor；未注册的函数返回 {"status":"ok"}
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		funcs:         make(map[string]FunctionFunc),
		results:       make(map[string]any),
		errs:          make(map[string]error),
		defaultResult: map[string]any{"status": "ok"},
	}
}

// WithFunction 注册函数处理器
func (m *MockExecutor) WithFunction(name string, fn FunctionFunc) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs[name] = fn
	return m
}

// WithResult 设置函数固定结果
func (m *MockExecutor) WithResult(name string, result any) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[name] = result
	return m
}

// WithError 设置函数返回错误
func (m *MockExecutor) WithError(name string, err error) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[name] = err
	return m
}

// Strict 使未注册的函数返回错误
func (m *MockExecutor) Strict() *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strict = true
	return m
}

// Execute implements agent.FunctionExecutor.
func (m *MockExecutor) Execute(ctx context.Context, name string, args map[string]any, c *agent.Context) (any, error) {
	m.mu.Lock()
	fn := m.funcs[name]
	result, hasResult := m.results[name]
	err := m.errs[name]
	strict := m.strict
	def := m.defaultResult
	m.mu.Unlock()

	switch {
	case err != nil:
		result = nil
	case fn != nil:
		result, err = fn(ctx, args, c)
	case hasResult:
	case strict:
		err = fmt.Errorf("mock executor: function %s not registered", name)
	default:
		result = def
	}

	m.mu.Lock()
	m.calls = append(m.calls, FunctionCall{Name: name, Args: args, Result: result, Error: err})
	m.mu.Unlock()
	return result, err
}

// Calls 返回所有调用记录
func (m *MockExecutor) Calls() []FunctionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FunctionCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallNames 返回按顺序调用的函数名
func (m *MockExecutor) CallNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.calls))
	for i, c := range m.calls {
		names[i] = c.Name
	}
	return names
}
