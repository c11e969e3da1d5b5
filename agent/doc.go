// Copyright 2024 AgentDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent provides the dispatch core of AgentDesk: the agent capability
contract, the agent registry and the bounded function-calling execution loop.

# Overview

A conversational turn is routed to one specialized agent. The agent builds a
system prompt, exposes a function catalog to the generation backend and lets
the execution loop resolve function calls one at a time until the backend
produces final text or the round-trip bound is reached.

# Core Types

  - Agent: capability contract (Config, SystemPrompt, Functions, Execute)
  - BaseAgent: configurable agent used for every category
  - Registry: lookup by ID and by category, duplicate IDs rejected
  - Loop: bounded execution loop (at most MaxIterations backend calls)
  - FunctionExecutor / FunctionMap: resolution of backend function calls
  - Context / Result: per-turn input and outcome

# Failure Semantics

The loop never fails a turn. Backend errors, malformed function-call
arguments, executor errors and panics raised by collaborators all become a
Result carrying ErrorApology, the functions invoked so far and a diagnostic
Error string.

# Usage

	loop := agent.NewLoop(provider, executor, agent.LoopConfig{}, logger)
	registry := agent.NewRegistry(logger)
	_ = registry.Register(agent.NewBaseAgent(cfg, functions, loop))

	a, _ := registry.Resolve("booking")
	result, err := a.Execute(ctx, &agent.Context{Message: "table for two", SessionID: sid})
*/
package agent
