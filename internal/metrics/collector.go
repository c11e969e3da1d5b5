// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有 Record* 方法对 nil 接收者安全，
// 未配置指标的组件可以直接传入 nil。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 生成后端指标
	backendCallsTotal   *prometheus.CounterVec
	backendCallDuration *prometheus.HistogramVec
	backendTokensUsed   *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec

	// Agent 回合指标
	turnsTotal        *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	functionCalls     *prometheus.CounterVec
	iterationsPerTurn *prometheus.HistogramVec

	// 交接指标
	handoffsTotal    *prometheus.CounterVec
	handoffDuration  *prometheus.HistogramVec
	depthRejections  *prometheus.CounterVec
	activeHandoffs   prometheus.Gauge
	humanEscalations *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认 Registry。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 生成后端指标
	c.backendCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Total number of generation backend round trips",
		},
		[]string{"provider", "agent_id", "status"},
	)

	c.backendCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Generation backend round trip duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.backendTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_tokens_used_total",
			Help:      "Total number of tokens reported by the generation backend",
		},
		[]string{"provider", "type"}, // type: prompt, completion
	)

	// Agent 回合指标
	c.turnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_turns_total",
			Help:      "Total number of agent turns",
		},
		[]string{"agent_id", "agent_type", "outcome"},
	)

	c.turnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_turn_duration_seconds",
			Help:      "Agent turn duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent_id", "agent_type"},
	)

	c.functionCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_calls_total",
			Help:      "Total number of function calls resolved by the execution loop",
		},
		[]string{"function", "status"},
	)

	c.iterationsPerTurn = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_turn_backend_calls",
			Help:      "Backend round trips per agent turn",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
		[]string{"agent_id"},
	)

	// 交接指标
	c.handoffsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Total number of handoff attempts",
		},
		[]string{"source", "target", "outcome"},
	)

	c.handoffDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handoff_duration_seconds",
			Help:      "Handoff duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"source", "target"},
	)

	c.depthRejections = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoff_depth_rejections_total",
			Help:      "Total number of handoffs rejected by the depth limit",
		},
		[]string{"source"},
	)

	c.activeHandoffs = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handoffs_active",
			Help:      "Number of handoffs currently in progress",
		},
	)

	c.breakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_circuit_state",
			Help:      "Circuit breaker state per backend (0=closed, 1=half_open, 2=open)",
		},
		[]string{"provider"},
	)

	c.humanEscalations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "human_escalations_total",
			Help:      "Total number of escalations to a human operator",
		},
		[]string{"priority"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🤖 生成后端指标记录
// =============================================================================

// RecordBackendCall 记录一次生成后端往返
func (c *Collector) RecordBackendCall(provider, agentID, status string, duration time.Duration, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.backendCallsTotal.WithLabelValues(provider, agentID, status).Inc()
	c.backendCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
	c.backendTokensUsed.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	c.backendTokensUsed.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}

// SetBreakerState 记录熔断器状态，state 为 closed、half_open 或 open
func (c *Collector) SetBreakerState(provider, state string) {
	if c == nil {
		return
	}
	v := 0.0
	switch state {
	case "half_open":
		v = 1
	case "open":
		v = 2
	}
	c.breakerState.WithLabelValues(provider).Set(v)
}

// =============================================================================
// 🎭 Agent 回合指标记录
// =============================================================================

// RecordTurn 记录 Agent 回合
func (c *Collector) RecordTurn(agentID, agentType, outcome string, backendCalls int, duration time.Duration) {
	if c == nil {
		return
	}
	c.turnsTotal.WithLabelValues(agentID, agentType, outcome).Inc()
	c.turnDuration.WithLabelValues(agentID, agentType).Observe(duration.Seconds())
	c.iterationsPerTurn.WithLabelValues(agentID).Observe(float64(backendCalls))
}

// RecordFunctionCall 记录函数调用
func (c *Collector) RecordFunctionCall(function, status string) {
	if c == nil {
		return
	}
	c.functionCalls.WithLabelValues(function, status).Inc()
}

// =============================================================================
// 🔀 交接指标记录
// =============================================================================

// RecordHandoff 记录交接结果
func (c *Collector) RecordHandoff(source, target, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.handoffsTotal.WithLabelValues(source, target, outcome).Inc()
	c.handoffDuration.WithLabelValues(source, target).Observe(duration.Seconds())
}

// RecordDepthRejection 记录深度超限拒绝
func (c *Collector) RecordDepthRejection(source string) {
	if c == nil {
		return
	}
	c.depthRejections.WithLabelValues(source).Inc()
}

// RecordHumanEscalation 记录人工升级
func (c *Collector) RecordHumanEscalation(priority string) {
	if c == nil {
		return
	}
	c.humanEscalations.WithLabelValues(priority).Inc()
}

// HandoffStarted 活跃交接数 +1
func (c *Collector) HandoffStarted() {
	if c == nil {
		return
	}
	c.activeHandoffs.Inc()
}

// HandoffFinished 活跃交接数 -1
func (c *Collector) HandoffFinished() {
	if c == nil {
		return
	}
	c.activeHandoffs.Dec()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
