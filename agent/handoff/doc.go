// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 handoff 提供专职 Agent 之间以及 Agent 到人工坐席的对话交接协议。

# 概述

当前 Agent 的生成后端调用 transfer_to_<category> 或 escalate_to_human
触发函数时，TriggerExecutor 将其转换为 Request 并交给 Protocol。
Protocol 负责深度限制、会话标记、目标解析、上下文增强、执行目标 Agent
以及统计记录。所有失败都以结构化 Result 返回，不会以 Go error 抛出。

# 交接流程

  - 读取会话中的 handoff_depth，超过 MaxDepth（默认 3）时直接拒绝
  - 写入新深度与 last_handoff 标记
  - 目标为 human 时写入升级标记并返回确定性回复
  - 按 ID 或类别解析目标 Agent，未找到时记录失败统计
  - 复制来源上下文并附加交接元数据，按需发送过渡消息
  - 执行目标 Agent，成功后将深度重置为 0

调用链以 Event 列表记录：handed_off、received、processed，允许回弹时
失败会追加 bounced_back。

# 统计

StatsStore 按 (source, target) 维护尝试次数、成功率与平均耗时的在线
均值。MemoryStatsStore 适用于单实例，RedisStatsStore 通过 Lua 脚本在
Redis 端原子更新，适用于多实例部署。

# 并发说明

深度的读取与写入是两次独立的存储调用，同一会话上的并发交接可能同时
通过深度检查。统计更新在每个键上是原子的。
*/
package handoff
