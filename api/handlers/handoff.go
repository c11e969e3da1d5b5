package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentdesk/agent/handoff"
	"github.com/BaSui01/agentdesk/agent/persistence"
	"github.com/BaSui01/agentdesk/api"
	"github.com/BaSui01/agentdesk/internal/idempotency"
	"github.com/BaSui01/agentdesk/types"
	"go.uber.org/zap"
)

// =============================================================================
// Handoff Handler
// =============================================================================

// HandoffHandler exposes the handoff protocol over HTTP.
type HandoffHandler struct {
	protocol       *handoff.Protocol
	sessions       persistence.SessionStore
	defaultTimeout time.Duration
	logger         *zap.Logger

	idem    idempotency.Store
	idemTTL time.Duration
}

// IdempotencyKeyHeader lets a client retry POST /v1/handoffs safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses served from the idempotency store.
const ReplayedHeader = "Idempotent-Replayed"

// NewHandoffHandler creates a handoff handler. defaultTimeout applies when a
// request carries no options.timeout; zero means no deadline.
func NewHandoffHandler(protocol *handoff.Protocol, sessions persistence.SessionStore, defaultTimeout time.Duration, logger *zap.Logger) *HandoffHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandoffHandler{
		protocol:       protocol,
		sessions:       sessions,
		defaultTimeout: defaultTimeout,
		logger:         logger.With(zap.String("handler", "handoff")),
	}
}

// WithIdempotency enables Idempotency-Key replay. A nil store disables it.
func (h *HandoffHandler) WithIdempotency(store idempotency.Store, ttl time.Duration) *HandoffHandler {
	h.idem = store
	h.idemTTL = ttl
	return h
}

// HandleHandoff runs one delegation. Failed delegations still carry the
// full handoff.Result in data; the status code reflects the error code.
// @Summary Delegate a conversation
// @Tags handoff
// @Accept json
// @Produce json
// @Param request body api.HandoffRequest true "Handoff"
// @Success 200 {object} Response{data=handoff.Result} "Delegation succeeded"
// @Failure 404 {object} Response{data=handoff.Result} "Target not found"
// @Failure 409 {object} Response{data=handoff.Result} "Depth exceeded"
// @Security ApiKeyAuth
// @Router /v1/handoffs [post]
func (h *HandoffHandler) HandleHandoff(w http.ResponseWriter, r *http.Request) {
	var req api.HandoffRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	hreq, timeout, terr := h.toRequest(req)
	if terr != nil {
		WriteError(w, terr, h.logger)
		return
	}

	var idemKey string
	if h.idem != nil {
		if k := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); k != "" {
			idemKey = idempotency.Key(req.SessionID, k)
			if h.replay(w, r, idemKey) {
				return
			}
		}
	}

	c, terr := loadTurnContext(r, h.sessions, req.SessionID, req.Message, req.History, nil)
	if terr != nil {
		WriteError(w, terr, h.logger)
		return
	}

	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := h.protocol.Handoff(ctx, hreq, c)
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)

	if idemKey != "" {
		stored := storedHandoff{Result: *res, TimedOut: timedOut}
		if err := h.idem.Set(r.Context(), idemKey, stored, h.idemTTL); err != nil {
			h.logger.Warn("failed to store idempotent handoff result",
				zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}
	h.writeResult(w, *res, timedOut)
}

// storedHandoff is what the idempotency store keeps per key.
type storedHandoff struct {
	Result   handoff.Result `json:"result"`
	TimedOut bool           `json:"timed_out,omitempty"`
}

// replay writes a stored result and reports whether it did. Store failures
// fall through to a fresh execution.
func (h *HandoffHandler) replay(w http.ResponseWriter, r *http.Request, key string) bool {
	raw, ok, err := h.idem.Get(r.Context(), key)
	if err != nil {
		h.logger.Warn("idempotency lookup failed", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	var stored storedHandoff
	if err := json.Unmarshal(raw, &stored); err != nil {
		h.logger.Warn("discarding corrupt idempotent result", zap.Error(err))
		return false
	}
	w.Header().Set(ReplayedHeader, "true")
	h.writeResult(w, stored.Result, stored.TimedOut)
	return true
}

func (h *HandoffHandler) writeResult(w http.ResponseWriter, res handoff.Result, timedOut bool) {
	if res.Success {
		WriteSuccess(w, res)
		return
	}

	status := mapErrorCodeToHTTPStatus(res.ErrorCode)
	if timedOut {
		status = http.StatusGatewayTimeout
	}
	WriteJSON(w, status, Response{
		Success: false,
		Data:    res,
		Error: &ErrorInfo{
			Code:       string(res.ErrorCode),
			Message:    res.Error,
			HTTPStatus: status,
		},
		Timestamp: time.Now(),
	})
}

func (h *HandoffHandler) toRequest(req api.HandoffRequest) (handoff.Request, time.Duration, *types.Error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return handoff.Request{}, 0, types.NewError(types.ErrInvalidRequest, "session_id is required")
	}
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Target) == "" {
		return handoff.Request{}, 0, types.NewError(types.ErrInvalidRequest, "source and target are required")
	}

	timeout := h.defaultTimeout
	if req.Options.Timeout != "" {
		d, err := time.ParseDuration(req.Options.Timeout)
		if err != nil || d <= 0 {
			return handoff.Request{}, 0, types.NewError(types.ErrInvalidRequest, "options.timeout must be a positive duration").WithCause(err)
		}
		timeout = d
	}

	return handoff.Request{
		Source:  req.Source,
		Target:  req.Target,
		Reason:  req.Reason,
		Context: req.Context,
		Options: handoff.Options{
			TransitionMessage:     req.Options.TransitionMessage,
			CustomMessage:         req.Options.CustomMessage,
			RequireAcknowledgment: req.Options.RequireAcknowledgment,
			Timeout:               timeout,
			AllowBounceBack:       req.Options.AllowBounceBack,
		},
	}, timeout, nil
}

// HandleStats returns handoff statistics: one pair when both source and
// target query parameters are set, every pair otherwise.
// @Summary Handoff statistics
// @Tags handoff
// @Produce json
// @Param source query string false "Source agent"
// @Param target query string false "Target agent"
// @Success 200 {object} Response{data=[]handoff.Stats} "Statistics"
// @Security ApiKeyAuth
// @Router /v1/handoffs/stats [get]
func (h *HandoffHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")

	if source != "" && target != "" {
		s, found, err := h.protocol.Stats(r.Context(), source, target)
		if err != nil {
			WriteError(w, types.NewError(types.ErrSessionStore, "failed to load handoff stats").WithCause(err), h.logger)
			return
		}
		if !found {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest, "no handoffs recorded for "+source+" -> "+target, h.logger)
			return
		}
		WriteSuccess(w, s)
		return
	}

	all, err := h.protocol.AllStats(r.Context())
	if err != nil {
		WriteError(w, types.NewError(types.ErrSessionStore, "failed to load handoff stats").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, all)
}

// HandleActive lists the delegations in progress.
// @Summary Active handoffs
// @Tags handoff
// @Produce json
// @Success 200 {object} Response{data=[]handoff.ActiveHandoff} "Active handoffs"
// @Security ApiKeyAuth
// @Router /v1/handoffs/active [get]
func (h *HandoffHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.protocol.ActiveHandoffs())
}

// HandleAcknowledge clears the pending acknowledgment of a session.
// @Summary Acknowledge a handoff
// @Tags handoff
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=api.AckResponse} "Acknowledged"
// @Failure 409 {object} Response "Nothing to acknowledge"
// @Security ApiKeyAuth
// @Router /v1/sessions/{id}/ack [post]
func (h *HandoffHandler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	handoffID, err := h.protocol.Acknowledge(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, handoff.ErrNoPendingAck) {
			WriteErrorMessage(w, http.StatusConflict, types.ErrInvalidRequest, err.Error(), h.logger)
			return
		}
		terr, ok := types.AsError(err)
		if !ok {
			terr = types.NewError(types.ErrInternalError, "acknowledge failed").WithCause(err)
		}
		WriteError(w, terr, h.logger)
		return
	}
	WriteSuccess(w, api.AckResponse{SessionID: sessionID, HandoffID: handoffID})
}

