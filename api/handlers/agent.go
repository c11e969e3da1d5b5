package handlers

import (
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/BaSui01/agentdesk/agent"
	"github.com/BaSui01/agentdesk/agent/persistence"
	"github.com/BaSui01/agentdesk/api"
	"github.com/BaSui01/agentdesk/types"
	"go.uber.org/zap"
)

// =============================================================================
// Agent Handler
// =============================================================================

// AgentHandler serves the agent catalog and runs turns.
type AgentHandler struct {
	registry *agent.Registry
	sessions persistence.SessionStore
	logger   *zap.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(registry *agent.Registry, sessions persistence.SessionStore, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{
		registry: registry,
		sessions: sessions,
		logger:   logger.With(zap.String("handler", "agent")),
	}
}

// HandleListAgents lists the registered agents in registration order.
// @Summary List agents
// @Tags agent
// @Produce json
// @Success 200 {object} Response{data=[]api.AgentInfo} "Agent list"
// @Security ApiKeyAuth
// @Router /v1/agents [get]
func (h *AgentHandler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.registry.GetAllAgents()
	out := make([]api.AgentInfo, 0, len(agents))
	for _, a := range agents {
		out = append(out, toAgentInfo(a))
	}
	WriteSuccess(w, out)
}

// HandleTurn runs one conversational turn on the agent named in the path.
// @Summary Run a turn
// @Tags agent
// @Accept json
// @Produce json
// @Param id path string true "Agent ID"
// @Param request body api.TurnRequest true "Turn"
// @Success 200 {object} Response{data=api.TurnResponse} "Turn result"
// @Failure 400 {object} Response "Invalid request"
// @Failure 404 {object} Response "Agent not found"
// @Security ApiKeyAuth
// @Router /v1/agents/{id}/turns [post]
func (h *AgentHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	a, ok := h.registry.GetAgent(agentID)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrAgentNotFound, fmt.Sprintf("Agent %s not found", agentID), h.logger)
		return
	}

	var req api.TurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := validateTurn(req.SessionID, req.Message); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	c, terr := loadTurnContext(r, h.sessions, req.SessionID, req.Message, req.History, req.Session)
	if terr != nil {
		WriteError(w, terr, h.logger)
		return
	}

	res, err := a.Execute(r.Context(), c)
	if err != nil {
		terr, ok := types.AsError(err)
		if !ok {
			terr = types.NewError(types.ErrInternalError, "turn failed").WithCause(err)
		}
		WriteError(w, terr, h.logger)
		return
	}

	WriteSuccess(w, api.TurnResponse{
		AgentID:         a.Config().ID,
		SessionID:       req.SessionID,
		Content:         res.Content,
		FunctionsCalled: res.FunctionsCalled,
		DurationMS:      res.Duration.Milliseconds(),
		Usage:           res.Usage,
		Error:           res.Error,
	})
}

func validateTurn(sessionID, message string) *types.Error {
	if strings.TrimSpace(sessionID) == "" {
		return types.NewError(types.ErrInvalidRequest, "session_id is required")
	}
	if strings.TrimSpace(message) == "" {
		return types.NewError(types.ErrInvalidRequest, "message is required")
	}
	return nil
}

// loadTurnContext builds the turn context from the stored session payload,
// with request-supplied keys layered on top.
func loadTurnContext(r *http.Request, sessions persistence.SessionStore, sessionID, message string, history []types.Message, overrides map[string]any) (*agent.Context, *types.Error) {
	data, err := sessions.GetData(r.Context(), sessionID)
	if err != nil {
		return nil, types.NewError(types.ErrSessionStore, "failed to read session").WithCause(err)
	}
	session := maps.Clone(data)
	if session == nil {
		session = make(map[string]any, len(overrides))
	}
	maps.Copy(session, overrides)

	return &agent.Context{
		Message:   message,
		SessionID: sessionID,
		History:   history,
		Session:   session,
	}, nil
}

func toAgentInfo(a agent.Agent) api.AgentInfo {
	cfg := a.Config()
	defs := a.Functions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return api.AgentInfo{
		ID:          cfg.ID,
		Name:        cfg.DisplayName(),
		Type:        string(cfg.Type),
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Functions:   names,
	}
}
