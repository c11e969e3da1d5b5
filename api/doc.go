// Package api defines the wire types of the AgentDesk HTTP API.
//
// # API Overview
//
// AgentDesk exposes the dispatch core over a small RESTful surface:
//
//	POST /v1/agents/{id}/turns      run one conversational turn
//	GET  /v1/agents                 list the agent catalog
//	POST /v1/handoffs               delegate a conversation
//	GET  /v1/handoffs/stats         per-pair handoff statistics
//	GET  /v1/handoffs/active        delegations in progress
//	POST /v1/sessions/{id}/ack      acknowledge a pending handoff
//	GET  /health, /healthz, /ready  health probes
//
// Prometheus metrics are served on a separate port at /metrics.
//
// # Authentication
//
// When API keys are configured, requests carry the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// When a JWT secret is configured, requests carry an HS256 bearer token:
//
//	Authorization: Bearer <token>
//
// Health probes are never authenticated.
package api
