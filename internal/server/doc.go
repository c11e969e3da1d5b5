// 版权所有 2024 AgentDesk Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动与优雅关闭。

# 概述

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误传播。
agentdesk 进程运行两个 Manager：API 监听器与 /metrics 监听器，
两者在同一个 errgroup 中由 Run 驱动，任一退出都会关闭另一个。

# 主要能力

  - Start：后台 goroutine 中运行服务，不阻塞调用方
  - Run：阻塞直到 ctx 结束或服务异常，然后优雅关闭
  - Shutdown：在配置的超时内完成请求排空与连接释放
  - Errors：异步错误通道
  - ListenAddr：实际监听地址，便于 ":0" 端口测试
*/
package server
