package agent

import (
	"context"
	"sort"

	"github.com/BaSui01/agentdesk/types"
)

// Agent 定义所有专职 Agent 的能力契约
type Agent interface {
	// Config 返回配置副本
	Config() Config
	// SystemPrompt 为本回合构建系统提示词
	SystemPrompt(c *Context) string
	// Functions 返回暴露给生成后端的函数目录
	Functions() []types.FunctionDefinition
	// Execute 执行一个回合
	Execute(ctx context.Context, c *Context) (*Result, error)
}

// FunctionExecutor resolves a function call requested by the backend.
// The result is serialized to JSON before it is fed back.
type FunctionExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any, c *Context) (any, error)
}

// FunctionExecutorFunc adapts a plain function to FunctionExecutor.
type FunctionExecutorFunc func(ctx context.Context, name string, args map[string]any, c *Context) (any, error)

// Execute calls f.
func (f FunctionExecutorFunc) Execute(ctx context.Context, name string, args map[string]any, c *Context) (any, error) {
	return f(ctx, name, args, c)
}

// FunctionHandler handles a single named function.
type FunctionHandler func(ctx context.Context, args map[string]any, c *Context) (any, error)

// FunctionMap is a FunctionExecutor dispatching by name.
type FunctionMap map[string]FunctionHandler

// Execute implements FunctionExecutor.
func (m FunctionMap) Execute(ctx context.Context, name string, args map[string]any, c *Context) (any, error) {
	h, ok := m[name]
	if !ok {
		return nil, types.NewError(types.ErrFunctionNotFound, "function "+name+" not found").WithCause(ErrFunctionNotFound)
	}
	return h(ctx, args, c)
}

// Names returns the registered names, sorted.
func (m FunctionMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
