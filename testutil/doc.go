// Copyright 2026 AgentDesk Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 AgentDesk 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现相似的
测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertMessageRoles / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockProvider（脚本化生成后端）、MockExecutor
    （函数执行器）、MockSessionStore（可注入错误的会话存储）、
    MockNotifier（过渡消息记录）
  - testutil/fixtures: Agent 配置、回合上下文与后端响应样例

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().
		WithFunctionCall("transfer_to_booking", `{"reason":"wants to book"}`).
		WithText("done")
*/
package testutil
