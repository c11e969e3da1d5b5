package anthropic

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/types"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"go.uber.org/zap"
)

const defaultMaxTokens = 1024

// Config configures the Claude provider.
type Config struct {
	APIKey     string        `yaml:"api_key" json:"api_key"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Model      string        `yaml:"model" json:"model"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
}

// ClaudeProvider 基于 anthropic-sdk-go 的 Messages API 适配实现。
type ClaudeProvider struct {
	client *anthropic.Client
	cfg    Config
	logger *zap.Logger
}

// NewClaudeProvider 创建新的 Claude 提供者实例.
func NewClaudeProvider(cfg Config, logger *zap.Logger) *ClaudeProvider {
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

	client := anthropic.NewClient(opts...)
	return NewFromClient(&client, cfg, logger)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *anthropic.Client, cfg Config, logger *zap.Logger) *ClaudeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaude3_5Sonnet20241022)
	}
	return &ClaudeProvider{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("provider", "anthropic")),
	}
}

// Name implements llm.Provider.
func (p *ClaudeProvider) Name() string { return "anthropic" }

// Chat implements llm.Provider.
func (p *ClaudeProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	params := p.buildParams(req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, llm.UpstreamError(p.Name(), err)
	}

	out := &llm.ChatResponse{
		Usage: &types.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			if out.FunctionCall != nil {
				p.logger.Debug("dropping extra tool_use block")
				continue
			}
			toolBlock := block.AsToolUse()
			args := "{}"
			if toolBlock.Input != nil {
				if raw, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(raw)
				}
			}
			out.FunctionCall = &types.FunctionCall{
				ID:           toolBlock.ID,
				Name:         toolBlock.Name,
				RawArguments: args,
			}
		}
	}

	if out.FunctionCall == nil {
		out.Content = text.String()
	}
	return out, nil
}

func (p *ClaudeProvider) buildParams(req *llm.ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    buildMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if system := systemBlocks(req.Messages); len(system) > 0 {
		params.System = system
	}
	if len(req.Functions) > 0 {
		params.Tools = buildTools(req.Functions)
	}
	return params
}

// systemBlocks extracts system messages; the Messages API carries them out of band.
func systemBlocks(msgs []types.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range msgs {
		if m.Role == types.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// buildMessages converts loop messages to Anthropic messages. Function results
// travel as user-side tool_result blocks.
func buildMessages(msgs []types.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range msgs {
		switch {
		case m.Role == types.RoleSystem:
			continue
		case m.FunctionCall != nil:
			out = append(out, anthropic.NewAssistantMessage(
				anthropic.NewToolUseBlock(m.FunctionCall.ID, toolInput(*m.FunctionCall), m.FunctionCall.Name),
			))
		case m.IsFunctionResult():
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		case m.Role == types.RoleAssistant:
			if m.Content != "" {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			}
		default:
			if m.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
	}
	return out
}

func toolInput(call types.FunctionCall) any {
	args, err := call.ParseArguments()
	if err != nil {
		return map[string]any{}
	}
	return args
}

func buildTools(fns []types.FunctionDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(fns))
	for i, fn := range fns {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		params := fn.ParametersMap()
		if props, ok := params["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = fn.RequiredParameters()

		tools[i] = anthropic.ToolUnionParamOfTool(schema, fn.Name)
		if fn.Description != "" && tools[i].OfTool != nil {
			tools[i].OfTool.Description = anthropic.String(fn.Description)
		}
	}
	return tools
}
