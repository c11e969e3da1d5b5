// =============================================================================
// 📦 AgentDesk 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/agentdesk/agent"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Dispatch:  DefaultDispatchConfig(),
		Agents:    DefaultAgentCatalog(),
		Session:   DefaultSessionConfig(),
		Redis:     DefaultRedisConfig(),
		LLM:       DefaultLLMConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    0,
		RateLimitBurst:  20,
	}
}

// DefaultDispatchConfig 返回默认调度配置
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxHandoffDepth:       3,
		MaxFunctionIterations: 5,
		DefaultModel:          "gpt-4o-mini",
		Temperature:           0.7,
		MaxTokens:             1024,
		HandoffTimeout:        time.Minute,
		IdempotencyTTL:        24 * time.Hour,
	}
}

// DefaultAgentCatalog 每个类别一个 Agent，ID 与类别同名
func DefaultAgentCatalog() []AgentEntry {
	types := agent.AllAgentTypes()
	out := make([]AgentEntry, 0, len(types))
	for _, t := range types {
		out = append(out, AgentEntry{ID: string(t), Type: string(t)})
	}
	return out
}

// DefaultSessionConfig 返回默认会话存储配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Backend:   "memory",
		KeyPrefix: "agentdesk:",
		TTL:       24 * time.Hour,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultLLMConfig 返回默认生成后端配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:   "openai",
		Timeout:    2 * time.Minute,
		MaxRetries: 2,
		Breaker: BreakerConfig{
			Threshold:        5,
			ResetTimeout:     30 * time.Second,
			HalfOpenMaxCalls: 1,
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentdesk",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "agentdesk",
	}
}
