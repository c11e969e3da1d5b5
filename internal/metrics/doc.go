// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的调度链路指标采集能力，覆盖
HTTP、生成后端、Agent 回合与交接四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用
promauto.With(reg) 注册到调用方提供的 Registry，测试可使用独立
Registry 互不干扰。所有 Record* 方法对 nil Collector 安全。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - HTTP 指标：请求总数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - 生成后端指标：往返次数、耗时、Token 用量（prompt/completion）。
  - Agent 回合指标：回合总数与耗时、每回合后端往返次数、函数调用计数。
  - 交接指标：交接尝试（按 source/target/outcome）、耗时、
    深度超限拒绝、人工升级、进行中的交接数。
*/
package metrics
