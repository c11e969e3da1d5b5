package agent

import (
	"fmt"
	"strings"
)

// Config 定义 Agent 配置。Agent 构造后不可变，Config() 返回副本。
type Config struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Type         AgentType `json:"type" yaml:"type"`
	Model        string    `json:"model,omitempty" yaml:"model"`
	Temperature  float32   `json:"temperature" yaml:"temperature"`
	MaxTokens    int       `json:"max_tokens" yaml:"max_tokens"`
	SystemPrompt string    `json:"system_prompt,omitempty" yaml:"system_prompt"`
}

// Validate checks the identity fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrConfigInvalid)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: agent %s has unknown type %q", ErrConfigInvalid, c.ID, c.Type)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: agent %s temperature %.2f out of range [0,2]", ErrConfigInvalid, c.ID, c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: agent %s max_tokens must not be negative", ErrConfigInvalid, c.ID)
	}
	return nil
}

// DisplayName returns Name, falling back to ID.
func (c Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
