// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 提供调度核心使用的会话键值存储抽象及多后端实现。

# 概述

交接协议只依赖一个很窄的会话契约：按会话读取整份键值载荷，按键写入
单个值。深度计数、最近一次交接标记、人工升级标记与待确认标记都存放
在这里。

# 核心接口

  - Store: 所有存储的基础接口，提供 Close 和 Ping 健康检查。
  - SessionStore: GetData / SetData 会话契约。
  - ManagedSessionStore: 带生命周期的 SessionStore。

# 后端实现

  - MemorySessionStore: 内存实现，读写锁保护，支持惰性 TTL 过期与 Cleanup。
  - RedisSessionStore: 每个会话一个 Hash，字段值为 JSON 编码，
    写入时通过事务流水线刷新 TTL。

# 辅助函数

  - IntValue / HandoffDepth: 将经过 JSON 往返的数值（float64、
    json.Number、字符串）统一转换为 int。
  - Key* 常量: 交接协议写入的会话键名。
*/
package persistence
