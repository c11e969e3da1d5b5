// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handlers 实现 AgentDesk HTTP API 的请求处理器。

# 核心类型

  - AgentHandler   — Agent 目录与对话回合（/v1/agents, /v1/agents/{id}/turns）
  - HandoffHandler — 交接、统计、进行中交接与确认
  - HealthHandler  — 存活与就绪探针，就绪检查并行执行
  - Response       — 统一 JSON 响应（success + data + error + timestamp）

# 约定

回合请求中的 session 字段覆盖会话存储中的同名键，只对本回合生效。
失败的交接仍在 data 中返回完整的 handoff.Result，状态码由错误码决定；
超时由 options.timeout 或默认交接超时施加在请求上下文上，超时返回 504。
*/
package handlers
