// Copyright (c) AgentDesk Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentdesk 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、handoff、llm、
api 等上层模块提供统一的类型契约，避免循环依赖。

# 核心类型

  - Message / Role       — 对话消息，支持函数调用记录与函数结果消息
  - FunctionCall         — 生成后端发出的函数调用（结构化或序列化参数）
  - FunctionDefinition   — 暴露给生成后端的函数定义（名称、描述、参数 Schema）
  - JSONSchema           — 函数参数 Schema 构建器
  - TokenUsage           — Token 用量统计
  - Error / ErrorCode    — 结构化错误体系（参数解析、Agent 未找到、交接深度超限等）

# 主要能力

  - Context 传播：WithTraceID / WithAgentID / WithSessionID / WithHandoffID
  - 错误工具链：AsError / GetErrorCode / IsErrorCode / IsRetryable
*/
package types
