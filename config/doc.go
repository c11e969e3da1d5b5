// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package config 提供 AgentDesk 的配置加载功能。
//
// 配置按 默认值 → YAML 文件 → AGENTDESK_ 前缀环境变量 的顺序叠加，
// 覆盖 HTTP 服务、调度核心、Agent 目录、会话存储、Redis、生成后端、
// 日志、遥测与指标。Agent 目录只能通过 YAML 配置。
package config
