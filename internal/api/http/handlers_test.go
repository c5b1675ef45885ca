package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/shared/types"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Create(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockSessions) Write(sessionID string, data []byte) error {
	return m.Called(sessionID, data).Error(0)
}

func (m *mockSessions) Resize(sessionID string, rows, cols uint16) error {
	return m.Called(sessionID, rows, cols).Error(0)
}

func (m *mockSessions) Close(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *mockSessions) Stats() terminal.Snapshot {
	return m.Called().Get(0).(terminal.Snapshot)
}

type mockTools struct {
	mock.Mock
}

func (m *mockTools) Definition() types.Service {
	return m.Called().Get(0).(types.Service)
}

func (m *mockTools) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	args := m.Called(ctx, toolID, params)
	result, _ := args.Get(0).(*types.Result)
	return result, args.Error(1)
}

func setup(t *testing.T) (*gin.Engine, *mockSessions, *mockTools) {
	gin.SetMode(gin.TestMode)
	sessions := &mockSessions{}
	tools := &mockTools{}

	router := gin.New()
	NewHandlers(sessions, tools, nil, zaptest.NewLogger(t)).Register(router)

	t.Cleanup(func() {
		sessions.AssertExpectations(t)
		tools.AssertExpectations(t)
	})
	return router, sessions, tools
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateSession(t *testing.T) {
	router, sessions, _ := setup(t)
	sessions.On("Create", mock.Anything).Return("sess_01", nil).Once()

	w := do(router, http.MethodPost, "/sessions", "")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"sess_01"}`, w.Body.String())
}

func TestCreateSessionAtCapacity(t *testing.T) {
	router, sessions, _ := setup(t)
	err := &terminal.Error{
		Kind:       terminal.ErrCapacityExceeded,
		Err:        errors.New("limit of 10 sessions reached"),
		Suggestion: "Close some terminal sessions and try again",
	}
	sessions.On("Create", mock.Anything).Return("", err).Once()

	w := do(router, http.MethodPost, "/sessions", "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "capacity_exceeded", resp.Kind)
	assert.Equal(t, "Close some terminal sessions and try again", resp.Suggestion)
}

func TestWriteSession(t *testing.T) {
	router, sessions, _ := setup(t)
	sessions.On("Write", "sess_01", []byte("ls\n")).Return(nil).Once()

	w := do(router, http.MethodPost, "/sessions/sess_01/input", `{"data":"ls\n"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWriteSessionMalformedBody(t *testing.T) {
	router, _, _ := setup(t)

	w := do(router, http.MethodPost, "/sessions/sess_01/input", `{"data":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", decodeError(t, w).Kind)
}

func TestResizeSession(t *testing.T) {
	router, sessions, _ := setup(t)
	sessions.On("Resize", "sess_01", uint16(40), uint16(120)).Return(nil).Once()

	w := do(router, http.MethodPost, "/sessions/sess_01/resize", `{"rows":40,"cols":120}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/sessions/sess_01/resize", `{"rows":0,"cols":120}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCloseSessionErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"not found", &terminal.Error{Kind: terminal.ErrSessionNotFound, SessionID: "sess_01"}, http.StatusNotFound, "session_not_found"},
		{"io", &terminal.Error{Kind: terminal.ErrIO, Err: errors.New("bad fd")}, http.StatusBadGateway, "io_error"},
		{"spawn", &terminal.Error{Kind: terminal.ErrSpawnFailure}, http.StatusInternalServerError, "spawn_failure"},
		{"exhausted", &terminal.Error{Kind: terminal.ErrResourceExhausted}, http.StatusServiceUnavailable, "resource_exhausted"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, sessions, _ := setup(t)
			sessions.On("Close", "sess_01").Return(tt.err).Once()

			w := do(router, http.MethodDelete, "/sessions/sess_01", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantKind, decodeError(t, w).Kind)
		})
	}
}

func TestStats(t *testing.T) {
	router, sessions, _ := setup(t)
	sessions.On("Stats").Return(terminal.Snapshot{
		ActiveSessions: 1,
		MaxSessions:    10,
		Sessions:       []terminal.SessionStats{{ID: "sess_01", AgeSeconds: 5, Rows: 24, Cols: 80}},
		Platform:       "linux",
		Shell:          "/bin/sh",
	}).Once()

	w := do(router, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap terminal.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.ActiveSessions)
	assert.Equal(t, "sess_01", snap.Sessions[0].ID)
	assert.Equal(t, "/bin/sh", snap.Shell)
}

func TestInvoke(t *testing.T) {
	router, _, tools := setup(t)
	params := map[string]interface{}{"session_id": "sess_01"}
	tools.On("Execute", mock.Anything, "terminal.close", params).
		Return(&types.Result{Success: true, Data: map[string]interface{}{"success": true}}, nil).Once()

	w := do(router, http.MethodPost, "/invoke", `{"tool_id":"terminal.close","params":{"session_id":"sess_01"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"success":true}}`, w.Body.String())
}

func TestInvokeRequiresToolID(t *testing.T) {
	router, _, _ := setup(t)

	w := do(router, http.MethodPost, "/invoke", `{"params":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvokeRejectsMalformedToolID(t *testing.T) {
	router, _, tools := setup(t)

	w := do(router, http.MethodPost, "/invoke", `{"tool_id":"terminal/close","params":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"invalid_argument"`)
	tools.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestHealth(t *testing.T) {
	router, sessions, _ := setup(t)
	sessions.On("Stats").Return(terminal.Snapshot{ActiveSessions: 2, MaxSessions: 10}).Once()

	w := do(router, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_sessions":2`)
}
