// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package idempotency 缓存带 Idempotency-Key 的请求结果，重试时回放而不重复执行。
// 键由会话 ID 与客户端键共同派生，提供内存与 Redis 两种存储。
package idempotency
