// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
agentdesk 是多 Agent 对话调度服务的可执行入口。

# 子命令

  - serve   — 加载 YAML 配置与 AGENTDESK_ 环境变量，启动 API 与 metrics 监听器
  - version — 打印构建注入的版本信息
  - health  — 探测运行中服务的 /health 或 /ready

# 组装顺序

Server.Init 依次构建 Prometheus 注册表、OpenTelemetry provider、
会话存储（memory 或 redis，redis 后端与交接统计共享一个客户端）、
生成后端、Agent 注册表、交接协议与 TriggerExecutor，
并为配置中的每个 Agent 创建共享执行循环的 BaseAgent。

# 中间件

Recovery → RequestID → SecurityHeaders → RequestLogger → Metrics →
OTelTracing → RateLimiter → APIKeyAuth → JWTAuth。探针路径跳过认证。
*/
package main
