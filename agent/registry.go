package agent

import (
	"sync"

	"github.com/BaSui01/agentdesk/types"
	"go.uber.org/zap"
)

// Registry 按 ID 与类别索引 Agent 实例，并发安全。
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]Agent
	byType map[AgentType][]Agent
	order  []Agent
	logger *zap.Logger
}

// NewRegistry 创建 Agent 注册表
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byID:   make(map[string]Agent),
		byType: make(map[AgentType][]Agent),
		logger: logger.With(zap.String("component", "agent_registry")),
	}
}

// Register stores a under its configured ID. Duplicate IDs are rejected.
func (r *Registry) Register(a Agent) error {
	cfg := a.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[cfg.ID]; exists {
		return types.NewError(types.ErrAgentAlreadyRegistered, "agent "+cfg.ID+" already registered")
	}
	r.byID[cfg.ID] = a
	r.byType[cfg.Type] = append(r.byType[cfg.Type], a)
	r.order = append(r.order, a)

	r.logger.Info("agent registered",
		zap.String("agent_id", cfg.ID),
		zap.String("agent_type", string(cfg.Type)))
	return nil
}

// GetAgent returns the agent registered under id.
func (r *Registry) GetAgent(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetAgentsByType returns the agents of category t in registration order.
func (r *Registry) GetAgentsByType(t AgentType) []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, len(r.byType[t]))
	copy(out, r.byType[t])
	return out
}

// GetAllAgents returns every agent in registration order.
func (r *Registry) GetAllAgents() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, len(r.order))
	copy(out, r.order)
	return out
}

// GetAllConfigs returns the configuration of every agent in registration order.
func (r *Registry) GetAllConfigs() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, 0, len(r.order))
	for _, a := range r.order {
		out = append(out, a.Config())
	}
	return out
}

// Resolve looks target up as an agent ID, then as a category.
func (r *Registry) Resolve(target string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.byID[target]; ok {
		return a, true
	}
	if agents := r.byType[AgentType(target)]; len(agents) > 0 {
		return agents[0], true
	}
	return nil, false
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
