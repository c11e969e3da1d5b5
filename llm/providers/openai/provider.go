package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/types"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// Config configures the OpenAI provider.
type Config struct {
	APIKey     string        `yaml:"api_key" json:"api_key"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Model      string        `yaml:"model" json:"model"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
}

// OpenAIProvider 基于 openai-go 的 Chat Completions 适配实现。
type OpenAIProvider struct {
	client *openai.Client
	cfg    Config
	logger *zap.Logger
}

// NewOpenAIProvider 创建新的 OpenAI 提供者实例.
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))

	client := openai.NewClient(opts...)
	return NewFromClient(&client, cfg, logger)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *openai.Client, cfg Config, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("provider", "openai")),
	}
}

// Name implements llm.Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Chat implements llm.Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	params := p.buildParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, llm.UpstreamError(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.UpstreamError(p.Name(), fmt.Errorf("no choices returned"))
	}

	msg := resp.Choices[0].Message
	out := &llm.ChatResponse{
		Usage: &types.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	// The loop resolves one call per round trip; extra parallel calls are dropped.
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		if len(msg.ToolCalls) > 1 {
			p.logger.Debug("dropping parallel tool calls", zap.Int("count", len(msg.ToolCalls)-1))
		}
		out.FunctionCall = &types.FunctionCall{
			ID:           tc.ID,
			Name:         tc.Function.Name,
			RawArguments: tc.Function.Arguments,
		}
		return out, nil
	}

	out.Content = msg.Content
	return out, nil
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (p *OpenAIProvider) buildParams(req *llm.ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	params := openai.ChatCompletionNewParams{
		Messages:    buildMessages(req.Messages),
		Model:       model,
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Functions) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Functions))
	for i, fn := range req.Functions {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        fn.Name,
				Description: openai.String(fn.Description),
				Parameters:  fn.ParametersMap(),
			},
		}
	}
	params.Tools = tools
	return params
}

// callArguments serializes a call's arguments, preferring the original text.
func callArguments(call *types.FunctionCall) string {
	if call.RawArguments != "" {
		return call.RawArguments
	}
	if len(call.Args) > 0 {
		if b, err := json.Marshal(call.Args); err == nil {
			return string(b)
		}
	}
	return "{}"
}

// buildMessages converts loop messages into OpenAI chat messages. Function
// call records become assistant tool_calls and function results become tool
// messages linked by call ID.
func buildMessages(msgs []types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.FunctionCall != nil:
			call := m.FunctionCall
			id := call.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := callArguments(call)
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role: "assistant",
				ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
					ID:   id,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: args,
					},
				}},
			}})
		case m.IsFunctionResult():
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case m.Role == types.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case m.Role == types.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
