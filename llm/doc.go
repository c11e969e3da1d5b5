// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义执行循环所消费的生成后端契约。

# 概述

执行循环只依赖一个很窄的请求/响应契约：消息列表、函数目录与生成参数
进入，最终文本或单个函数调用返回（二者互斥）。具体服务商的协议差异
由 llm/providers 下的适配器屏蔽。

# 核心类型

  - Provider：生成后端接口（Chat + Name）
  - ChatRequest：模型、消息、函数定义、温度与最大输出长度
  - ChatResponse：最终文本或 FunctionCall，以及可选的 Token 用量
  - ProviderFunc：函数到 Provider 的适配器，便于测试与组合

# 适配器

  - llm/providers/openai：基于 openai-go 的 Chat Completions 适配
  - llm/providers/anthropic：基于 anthropic-sdk-go 的 Messages 适配
*/
package llm
