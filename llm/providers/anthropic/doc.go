// Copyright 2026 AgentDesk Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 anthropic 提供基于 anthropic-sdk-go 的 Claude 模型 llm.Provider 适配
实现，使用 Messages API。

# 核心结构体

  - ClaudeProvider — 将 ChatRequest 转换为 MessageNewParams，
    将首个 tool_use 块映射为 types.FunctionCall

# 消息映射

  - system 消息 → MessageNewParams.System（独立于对话列表）
  - 携带 FunctionCall 的消息 → assistant tool_use 块
  - 函数结果 → user 侧 tool_result 块（以 ToolCallID 关联）
*/
package anthropic
