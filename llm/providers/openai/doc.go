// Copyright 2026 AgentDesk Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 openai 提供基于 openai-go SDK 的 llm.Provider 适配实现，走标准
Chat Completions 接口（/v1/chat/completions）。

# 核心结构体

  - OpenAIProvider — 将 ChatRequest 转换为 ChatCompletionNewParams，
    将首个 tool call 映射为 types.FunctionCall
  - Config — API Key、BaseURL、默认模型、超时与重试次数

# 消息映射

  - 携带 FunctionCall 的消息 → assistant tool_calls
  - 携带 ToolCallID 的函数结果 → tool 消息
  - 其余按角色映射为 system / user / assistant 消息
*/
package openai
