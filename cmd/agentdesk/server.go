package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/agentdesk/agent"
	"github.com/BaSui01/agentdesk/agent/handoff"
	"github.com/BaSui01/agentdesk/agent/persistence"
	"github.com/BaSui01/agentdesk/api/handlers"
	"github.com/BaSui01/agentdesk/config"
	"github.com/BaSui01/agentdesk/internal/idempotency"
	"github.com/BaSui01/agentdesk/internal/metrics"
	"github.com/BaSui01/agentdesk/internal/server"
	"github.com/BaSui01/agentdesk/internal/telemetry"
	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/llm/circuitbreaker"
	"github.com/BaSui01/agentdesk/llm/providers/anthropic"
	"github.com/BaSui01/agentdesk/llm/providers/openai"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const sessionCleanupInterval = time.Minute

// probePaths bypass authentication.
var probePaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 组装调度核心并承载 API 与 metrics 两个监听器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// provider 为 nil 时按 cfg.LLM 构建
	provider llm.Provider

	promRegistry *prometheus.Registry
	collector    *metrics.Collector
	otel         *telemetry.Providers

	redis    redis.UniversalClient
	idem     idempotency.Store
	sessions persistence.ManagedSessionStore
	agents   *agent.Registry
	protocol *handoff.Protocol

	healthHandler  *handlers.HealthHandler
	agentHandler   *handlers.AgentHandler
	handoffHandler *handlers.HandoffHandler

	httpManager    *server.Manager
	metricsManager *server.Manager
}

// NewServer 创建服务器，组件在 Init 中构建
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// =============================================================================
// 🔧 初始化
// =============================================================================

// Init 按依赖顺序构建所有组件
func (s *Server) Init(ctx context.Context) error {
	s.initMetrics()

	otelProviders, err := telemetry.Init(ctx, s.cfg.Telemetry, Version, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry, tracing disabled", zap.Error(err))
	}
	s.otel = otelProviders

	if err := s.initStores(); err != nil {
		return fmt.Errorf("init stores: %w", err)
	}
	if s.provider == nil {
		p, err := newProvider(s.cfg.LLM, s.logger)
		if err != nil {
			return fmt.Errorf("init provider: %w", err)
		}
		s.provider = p
	}
	if bc := s.cfg.LLM.Breaker; bc.Threshold > 0 {
		name := s.provider.Name()
		s.collector.SetBreakerState(name, circuitbreaker.StateClosed.String())
		s.provider = circuitbreaker.Wrap(s.provider, circuitbreaker.New(circuitbreaker.Config{
			Threshold:        bc.Threshold,
			ResetTimeout:     bc.ResetTimeout,
			HalfOpenMaxCalls: bc.HalfOpenMaxCalls,
			OnStateChange: func(_, to circuitbreaker.State) {
				s.collector.SetBreakerState(name, to.String())
			},
		}, s.logger))
	}
	if err := s.initAgents(); err != nil {
		return fmt.Errorf("init agents: %w", err)
	}
	s.initHandlers()
	return nil
}

func (s *Server) initMetrics() {
	if !s.cfg.Metrics.Enabled {
		return
	}
	s.promRegistry = prometheus.NewRegistry()
	s.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollector(s.cfg.Metrics.Namespace, s.promRegistry, s.logger)
}

// initStores builds the session store and, on the redis backend, shares one
// client between sessions and handoff statistics.
func (s *Server) initStores() error {
	storeCfg := persistence.StoreConfig{
		Type:      persistence.StoreType(s.cfg.Session.Backend),
		KeyPrefix: s.cfg.Session.KeyPrefix,
		TTL:       s.cfg.Session.TTL,
	}

	if !s.cfg.RedisEnabled() {
		store, err := persistence.NewSessionStore(storeCfg)
		if err != nil {
			return err
		}
		s.sessions = store
		return nil
	}

	s.redis = redis.NewClient(&redis.Options{
		Addr:         s.cfg.Redis.Addr,
		Password:     s.cfg.Redis.Password,
		DB:           s.cfg.Redis.DB,
		PoolSize:     s.cfg.Redis.PoolSize,
		MinIdleConns: s.cfg.Redis.MinIdleConns,
	})
	s.sessions = persistence.NewRedisSessionStoreFromClient(s.redis, storeCfg)
	s.logger.Info("redis session backend configured", zap.String("addr", s.cfg.Redis.Addr))
	return nil
}

func newProvider(cfg config.LLMConfig, logger *zap.Logger) (llm.Provider, error) {
	if cfg.APIKey == "" {
		logger.Warn("llm api key not configured, backend calls will fail", zap.String("provider", cfg.Provider))
	}
	switch cfg.Provider {
	case "openai", "":
		return openai.NewOpenAIProvider(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger), nil
	case "anthropic":
		return anthropic.NewClaudeProvider(anthropic.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// initAgents wires registry, protocol, trigger executor and one loop-backed
// BaseAgent per catalog entry.
func (s *Server) initAgents() error {
	cfgs, err := s.cfg.AgentConfigs()
	if err != nil {
		return err
	}

	s.agents = agent.NewRegistry(s.logger)

	var stats handoff.StatsStore
	if s.redis != nil {
		stats = handoff.NewRedisStatsStore(s.redis, s.cfg.Session.KeyPrefix)
	}
	s.protocol = handoff.NewProtocol(s.agents, s.sessions, handoff.Config{
		MaxDepth: s.cfg.Dispatch.MaxHandoffDepth,
		Stats:    stats,
		Metrics:  s.collector,
		Tracer:   s.otel.Tracer("github.com/BaSui01/agentdesk/agent/handoff"),
	}, s.logger)

	exec := handoff.NewTriggerExecutor(s.protocol, agent.FunctionMap{})
	loop := agent.NewLoop(s.provider, exec, agent.LoopConfig{
		MaxIterations: s.cfg.Dispatch.MaxFunctionIterations,
		Metrics:       s.collector,
		Tracer:        s.otel.Tracer("github.com/BaSui01/agentdesk/agent"),
	}, s.logger)

	for _, c := range cfgs {
		if err := s.agents.Register(agent.NewBaseAgent(c, handoff.TriggerDefinitionsFor(c.Type), loop)); err != nil {
			return err
		}
	}
	s.logger.Info("agents registered",
		zap.Int("count", s.agents.Len()),
		zap.Int("max_handoff_depth", s.protocol.MaxDepth()),
		zap.Int("max_function_iterations", loop.MaxIterations()))
	return nil
}

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(Version, s.logger)
	s.healthHandler.RegisterCheck(handlers.NewPingCheck("session_store", s.sessions.Ping))
	if s.redis != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("handoff_stats", func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}))
	}

	s.agentHandler = handlers.NewAgentHandler(s.agents, s.sessions, s.logger)
	s.handoffHandler = handlers.NewHandoffHandler(s.protocol, s.sessions, s.cfg.Dispatch.HandoffTimeout, s.logger)

	if ttl := s.cfg.Dispatch.IdempotencyTTL; ttl > 0 {
		if s.redis != nil {
			s.idem = idempotency.NewRedisStore(s.redis, s.cfg.Session.KeyPrefix)
		} else {
			s.idem = idempotency.NewMemoryStore()
		}
		s.handoffHandler.WithIdempotency(s.idem, ttl)
	}
}

// =============================================================================
// 🌐 路由与中间件
// =============================================================================

// routes 注册 API 路由
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", handleVersion)

	mux.HandleFunc("GET /v1/agents", s.agentHandler.HandleListAgents)
	mux.HandleFunc("POST /v1/agents/{id}/turns", s.agentHandler.HandleTurn)

	mux.HandleFunc("POST /v1/handoffs", s.handoffHandler.HandleHandoff)
	mux.HandleFunc("GET /v1/handoffs/stats", s.handoffHandler.HandleStats)
	mux.HandleFunc("GET /v1/handoffs/active", s.handoffHandler.HandleActive)
	mux.HandleFunc("POST /v1/sessions/{id}/ack", s.handoffHandler.HandleAcknowledge)

	return mux
}

// Handler 返回带完整中间件链的 API handler。ctx 控制限流器的后台清理。
func (s *Server) Handler(ctx context.Context) http.Handler {
	return Chain(s.routes(),
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, probePaths, s.logger),
		JWTAuth(s.cfg.Server.JWTSecret, probePaths, s.logger),
	)
}

func handleVersion(w http.ResponseWriter, _ *http.Request) {
	handlers.WriteSuccess(w, map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动 API、metrics 监听器与会话清理，直到 ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	s.httpManager = server.NewManager(s.Handler(gctx), server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	g.Go(func() error { return s.httpManager.Run(gctx) })

	if s.promRegistry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{Registry: s.promRegistry}))
		s.metricsManager = server.NewManager(mux, server.Config{
			Name:            "metrics",
			Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
			ReadTimeout:     s.cfg.Server.ReadTimeout,
			WriteTimeout:    s.cfg.Server.ReadTimeout,
			ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		}, s.logger)
		g.Go(func() error { return s.metricsManager.Run(gctx) })
	}

	if mem, ok := s.sessions.(*persistence.MemorySessionStore); ok {
		g.Go(func() error {
			s.cleanupSessions(gctx, mem)
			return nil
		})
	}
	if mem, ok := s.idem.(*idempotency.MemoryStore); ok {
		g.Go(func() error {
			s.cleanupIdempotency(gctx, mem)
			return nil
		})
	}

	s.logger.Info("agentdesk serving",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("metrics_enabled", s.promRegistry != nil),
		zap.Bool("tracing_enabled", s.otel.Enabled()))

	err := g.Wait()
	s.Close()
	return err
}

func (s *Server) cleanupSessions(ctx context.Context, store *persistence.MemorySessionStore) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if err != nil {
				s.logger.Warn("session cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) cleanupIdempotency(ctx context.Context, store *idempotency.MemoryStore) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Cleanup(); n > 0 {
				s.logger.Debug("expired idempotency keys removed", zap.Int("count", n))
			}
		}
	}
}

// Close 释放会话存储与遥测 provider。Redis 客户端由会话存储持有并关闭。
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if s.sessions != nil {
		errs = append(errs, s.sessions.Close())
	}
	errs = append(errs, s.otel.Shutdown(ctx))

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("shutdown cleanup failed", zap.Error(err))
		return
	}
	s.logger.Info("graceful shutdown completed")
}
