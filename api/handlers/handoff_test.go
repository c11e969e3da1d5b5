package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/agentdesk/agent"
	"github.com/BaSui01/agentdesk/agent/handoff"
	"github.com/BaSui01/agentdesk/agent/persistence"
	"github.com/BaSui01/agentdesk/api"
	"github.com/BaSui01/agentdesk/internal/idempotency"
	"github.com/BaSui01/agentdesk/testutil/fixtures"
	"github.com/BaSui01/agentdesk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingAgent waits for its context to end.
type blockingAgent struct{ cfg agent.Config }

func (a *blockingAgent) Config() agent.Config                  { return a.cfg }
func (a *blockingAgent) SystemPrompt(*agent.Context) string    { return "" }
func (a *blockingAgent) Functions() []types.FunctionDefinition { return nil }

func (a *blockingAgent) Execute(ctx context.Context, _ *agent.Context) (*agent.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type handoffFixture struct {
	sessions *persistence.MemorySessionStore
	protocol *handoff.Protocol
	booking  *recordingAgent
	handler  *HandoffHandler
	mux      *http.ServeMux
}

func newHandoffFixture(t *testing.T, extra ...agent.Agent) *handoffFixture {
	t.Helper()
	sessions := persistence.NewMemorySessionStore(persistence.DefaultStoreConfig())
	t.Cleanup(func() { _ = sessions.Close() })

	booking := &recordingAgent{cfg: fixtures.AgentConfig(agent.TypeBooking)}
	search := &recordingAgent{cfg: fixtures.AgentConfig(agent.TypeSearch)}
	reg := newTestRegistry(t, append([]agent.Agent{search, booking}, extra...)...)

	protocol := handoff.NewProtocol(reg, sessions, handoff.Config{}, zap.NewNop())
	h := NewHandoffHandler(protocol, sessions, 0, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/handoffs", h.HandleHandoff)
	mux.HandleFunc("GET /v1/handoffs/stats", h.HandleStats)
	mux.HandleFunc("GET /v1/handoffs/active", h.HandleActive)
	mux.HandleFunc("POST /v1/sessions/{id}/ack", h.HandleAcknowledge)

	return &handoffFixture{sessions: sessions, protocol: protocol, booking: booking, handler: h, mux: mux}
}

func (f *handoffFixture) do(method, path, body string) *httptest.ResponseRecorder {
	return f.doWithHeader(method, path, body, nil)
}

func (f *handoffFixture) doWithHeader(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) (Response, handoff.Result) {
	t.Helper()
	resp := decodeResponse(t, w)
	var res handoff.Result
	decodeData(t, resp, &res)
	return resp, res
}

func TestHandoffHandler_HandleHandoff(t *testing.T) {
	f := newHandoffFixture(t)

	w := f.do(http.MethodPost, "/v1/handoffs", `{
		"session_id": "s-1",
		"message": "book the second one",
		"source": "search",
		"target": "booking",
		"reason": "user wants to book",
		"context": {"summary": "Hotel Avenida, 2 nights", "priority": "urgent"}
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp, res := decodeResult(t, w)
	assert.True(t, resp.Success)
	assert.True(t, res.Success)
	assert.Equal(t, "booking", res.Target)
	assert.True(t, strings.HasPrefix(res.HandoffID, "hoff_"))
	require.Len(t, res.Chain, 3)
	assert.Equal(t, handoff.ActionProcessed, res.Chain[2].Action)

	c := f.booking.lastContext()
	require.NotNil(t, c)
	meta, ok := c.Session[agent.SessionKeyHandoff].(handoff.Metadata)
	require.True(t, ok)
	assert.Equal(t, "search", meta.From)
	assert.Equal(t, handoff.PriorityCritical, meta.Priority)
}

func TestHandoffHandler_HandleHandoff_Failures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, f *handoffFixture)
		body       string
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{
			name:       "unknown target",
			body:       `{"session_id":"s","source":"search","target":"ghost"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   types.ErrAgentNotFound,
		},
		{
			name: "depth exceeded",
			setup: func(t *testing.T, f *handoffFixture) {
				require.NoError(t, f.sessions.SetData(context.Background(), "s", persistence.KeyHandoffDepth, 3))
			},
			body:       `{"session_id":"s","source":"search","target":"booking"}`,
			wantStatus: http.StatusConflict,
			wantCode:   types.ErrHandoffDepthExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandoffFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			w := f.do(http.MethodPost, "/v1/handoffs", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp, res := decodeResult(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
			assert.Equal(t, tt.wantCode, res.ErrorCode)
			assert.NotEmpty(t, res.HandoffID)
		})
	}
}

func TestHandoffHandler_HandleHandoff_Validation(t *testing.T) {
	f := newHandoffFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing session", `{"source":"search","target":"booking"}`},
		{"missing target", `{"session_id":"s","source":"search"}`},
		{"bad timeout", `{"session_id":"s","source":"search","target":"booking","options":{"timeout":"soon"}}`},
		{"negative timeout", `{"session_id":"s","source":"search","target":"booking","options":{"timeout":"-1s"}}`},
		{"empty body", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/v1/handoffs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, string(types.ErrInvalidRequest), resp.Error.Code)
		})
	}
	assert.Empty(t, f.protocol.ActiveHandoffs())
}

func TestHandoffHandler_HandleHandoff_Timeout(t *testing.T) {
	slow := &blockingAgent{cfg: fixtures.AgentConfig(agent.TypeReview)}
	f := newHandoffFixture(t, slow)

	w := f.do(http.MethodPost, "/v1/handoffs",
		`{"session_id":"s","source":"search","target":"review","options":{"timeout":"20ms","allow_bounce_back":true}}`)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	_, res := decodeResult(t, w)
	assert.False(t, res.Success)
	assert.Equal(t, handoff.ActionBouncedBack, res.Chain[len(res.Chain)-1].Action)
}

func TestHandoffHandler_HandleHandoff_Human(t *testing.T) {
	f := newHandoffFixture(t)

	w := f.do(http.MethodPost, "/v1/handoffs",
		`{"session_id":"session-7f3a","source":"complaint","target":"human","reason":"refund dispute","context":{"priority":"high"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	_, res := decodeResult(t, w)
	assert.True(t, res.Success)
	assert.Contains(t, res.Response, "****7f3a")

	data, err := f.sessions.GetData(context.Background(), "session-7f3a")
	require.NoError(t, err)
	assert.Equal(t, "high", data[persistence.KeyEscalationPriority])
	assert.Equal(t, true, data[persistence.KeyHumanHandoff])
}

func TestHandoffHandler_HandleStats(t *testing.T) {
	f := newHandoffFixture(t)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/handoffs", `{"session_id":"a","source":"search","target":"booking"}`).Code)
	require.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/handoffs", `{"session_id":"b","source":"search","target":"ghost"}`).Code)

	w := f.do(http.MethodGet, "/v1/handoffs/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []handoff.Stats
	decodeData(t, decodeResponse(t, w), &all)
	require.Len(t, all, 2)
	assert.Equal(t, "booking", all[0].Target)
	assert.Equal(t, "ghost", all[1].Target)

	w = f.do(http.MethodGet, "/v1/handoffs/stats?source=search&target=booking", "")
	require.Equal(t, http.StatusOK, w.Code)
	var one handoff.Stats
	decodeData(t, decodeResponse(t, w), &one)
	assert.Equal(t, int64(1), one.Attempts)
	assert.InDelta(t, 1.0, one.SuccessRate, 1e-9)

	w = f.do(http.MethodGet, "/v1/handoffs/stats?source=faq&target=booking", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandoffHandler_HandleActive(t *testing.T) {
	f := newHandoffFixture(t)

	w := f.do(http.MethodGet, "/v1/handoffs/active", "")

	require.Equal(t, http.StatusOK, w.Code)
	var active []handoff.ActiveHandoff
	decodeData(t, decodeResponse(t, w), &active)
	assert.Empty(t, active)
}

func TestHandoffHandler_HandleAcknowledge(t *testing.T) {
	f := newHandoffFixture(t)

	w := f.do(http.MethodPost, "/v1/sessions/s-9/ack", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/v1/handoffs",
		`{"session_id":"s-9","source":"search","target":"booking","options":{"require_acknowledgment":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, res := decodeResult(t, w)

	w = f.do(http.MethodPost, "/v1/sessions/s-9/ack", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ack api.AckResponse
	decodeData(t, decodeResponse(t, w), &ack)
	assert.Equal(t, "s-9", ack.SessionID)
	assert.Equal(t, res.HandoffID, ack.HandoffID)

	w = f.do(http.MethodPost, "/v1/sessions/s-9/ack", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandoffHandler_IdempotentReplay(t *testing.T) {
	f := newHandoffFixture(t)
	f.handler.WithIdempotency(idempotency.NewMemoryStore(), time.Hour)

	body := `{"session_id":"s-idem","message":"book","source":"search","target":"booking"}`
	header := http.Header{IdempotencyKeyHeader: {"retry-1"}}

	first := f.doWithHeader(http.MethodPost, "/v1/handoffs", body, header)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))
	_, res1 := decodeResult(t, first)

	second := f.doWithHeader(http.MethodPost, "/v1/handoffs", body, header)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	_, res2 := decodeResult(t, second)

	assert.Equal(t, res1.HandoffID, res2.HandoffID)
	assert.Equal(t, 1, f.booking.callCount())

	// a different session does not share the key
	other := f.doWithHeader(http.MethodPost, "/v1/handoffs",
		`{"session_id":"s-other","message":"book","source":"search","target":"booking"}`, header)
	require.Equal(t, http.StatusOK, other.Code)
	assert.Empty(t, other.Header().Get(ReplayedHeader))
	assert.Equal(t, 2, f.booking.callCount())

	// no header, no replay
	f.do(http.MethodPost, "/v1/handoffs", body)
	assert.Equal(t, 3, f.booking.callCount())
}

func TestHandoffHandler_IdempotentReplayKeepsFailureStatus(t *testing.T) {
	f := newHandoffFixture(t)
	f.handler.WithIdempotency(idempotency.NewMemoryStore(), time.Hour)
	header := http.Header{IdempotencyKeyHeader: {"k"}}
	body := `{"session_id":"s-1","message":"hi","source":"search","target":"ghost"}`

	first := f.doWithHeader(http.MethodPost, "/v1/handoffs", body, header)
	require.Equal(t, http.StatusNotFound, first.Code)

	second := f.doWithHeader(http.MethodPost, "/v1/handoffs", body, header)
	assert.Equal(t, http.StatusNotFound, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	resp, res := decodeResult(t, second)
	assert.False(t, resp.Success)
	assert.Equal(t, types.ErrAgentNotFound, res.ErrorCode)
}
