package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/pkg/adapters/memory"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	manager := session.NewManager(memory.NewStore())
	srv, err := NewServer(manager, tally.New(), opts...)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSpec_IsValid(t *testing.T) {
	doc, err := Spec()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/sessions/{id}/commands"))
	assert.Contains(t, doc.Components.Schemas, "Command")
}

func TestHealthAndInfo(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, srv, "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decodeJSON[map[string]string](t, w)
	assert.Equal(t, "tally-http", info["app"])
	assert.Equal(t, tally.Version, info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = do(t, srv, "GET", "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = do(t, srv, "OPTIONS", "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEvaluate(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, "POST", "/evaluate", `{"expression":"12+3"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[evaluateResponse](t, w)
	assert.Equal(t, "15", resp.Outcome.Text)
	assert.Nil(t, resp.Outcome.Err)

	w = do(t, srv, "POST", "/evaluate", `{"expression":"5/0"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeJSON[evaluateResponse](t, w)
	require.NotNil(t, resp.Outcome.Err)
	assert.Equal(t, domain.NonFiniteResult, resp.Outcome.Err.Kind)

	w = do(t, srv, "POST", "/evaluate", `{"expression":"2;3"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeJSON[evaluateResponse](t, w)
	require.NotNil(t, resp.Outcome.Err)
	assert.Equal(t, domain.InvalidCharacter, resp.Outcome.Err.Kind)
}

func TestEvaluate_RejectsMalformedBodies(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing expression", `{}`},
		{"unknown field", `{"expression":"1","extra":true}`},
		{"wrong type", `{"expression":12}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/evaluate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, "POST", "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeJSON[domain.State](t, w)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, domain.InitialDisplay(), created.Display)
	base := "/sessions/" + created.SessionID

	w = do(t, srv, "GET", "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{created.SessionID}, decodeJSON[map[string][]string](t, w)["sessions"])

	for _, tok := range []string{"1", "2", "+", "3"} {
		w = do(t, srv, "POST", base+"/commands", `{"kind":"append","token":"`+tok+`"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = do(t, srv, "POST", base+"/commands", `{"kind":"evaluate"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[commandResponse](t, w)
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, "15", resp.Outcome.Text)
	assert.Equal(t, "15", resp.State.Expression)
	assert.Equal(t, domain.Display{Kind: domain.DisplayValue, Text: "15"}, resp.State.Display)

	w = do(t, srv, "GET", base, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "15", decodeJSON[domain.State](t, w).Expression)

	w = do(t, srv, "GET", base+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeJSON[map[string][]domain.HistoryEntry](t, w)["history"]
	assert.Equal(t, []domain.HistoryEntry{{Expression: "12+3", Result: "15"}}, history)

	w = do(t, srv, "DELETE", base+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeJSON[domain.State](t, w).History)

	w = do(t, srv, "DELETE", base, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, "GET", base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommands_KeysAndGlyphs(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"key":"6"}`,
		`{"kind":"append","token":"×"}`,
		`{"key":"7"}`,
		`{"key":"Enter"}`,
	} {
		w := do(t, srv, "POST", "/sessions/k/commands", body)
		require.Equal(t, http.StatusOK, w.Code, body)
	}

	w := do(t, srv, "GET", "/sessions/k/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeJSON[map[string][]domain.HistoryEntry](t, w)["history"]
	assert.Equal(t, []domain.HistoryEntry{{Expression: "6*7", Result: "42"}}, history)
}

func TestCommands_FailedEvaluationKeepsExpression(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, "POST", "/sessions/f/lines", `{"line":"5/0"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[commandResponse](t, w)
	require.NotNil(t, resp.Outcome)
	require.NotNil(t, resp.Outcome.Err)
	assert.Equal(t, domain.NonFiniteResult, resp.Outcome.Err.Kind)
	assert.Equal(t, "5/0", resp.State.Expression)
	assert.Equal(t, domain.Display{Kind: domain.DisplayError, Text: domain.ErrorDisplayText}, resp.State.Display)
}

func TestCommands_Rejected(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown kind", `{"kind":"launch"}`},
		{"empty token", `{"kind":"append","token":""}`},
		{"token outside alphabet", `{"kind":"append","token":"x"}`},
		{"unmapped key", `{"key":"F1"}`},
		{"neither kind nor key", `{}`},
		{"unknown field", `{"kind":"clear","force":true}`},
		{"oversized token", `{"kind":"append","token":"` + strings.Repeat("1", 5000) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/sessions/r/commands", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	// Rejected commands never create or touch the session.
	w := do(t, srv, "GET", "/sessions/r", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLines(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, "POST", "/sessions/l/lines", `{"line":"(2+3)*4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[commandResponse](t, w)
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, "20", resp.Outcome.Text)

	w = do(t, srv, "POST", "/sessions/l/lines", `{"line":"*2a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeJSON[commandResponse](t, w)
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, "40", resp.Outcome.Text)
	assert.Equal(t, "a", resp.Ignored)

	w = do(t, srv, "POST", "/sessions/l/lines", `{"line":"clear"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeJSON[commandResponse](t, w)
	assert.Nil(t, resp.Outcome)
	assert.Equal(t, "", resp.State.Expression)
	assert.Len(t, resp.State.History, 2)
}

func TestMissingSession(t *testing.T) {
	srv := newTestServer(t)

	for _, req := range []struct{ method, path string }{
		{"GET", "/sessions/nope"},
		{"GET", "/sessions/nope/history"},
		{"DELETE", "/sessions/nope/history"},
		{"GET", "/sessions/nope/events"},
	} {
		w := do(t, srv, req.method, req.path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, req.method+" "+req.path)
	}
}

func TestMetricsHandler(t *testing.T) {
	w := do(t, newTestServer(t), "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "tally_commands_total 0\n")
	})
	w = do(t, newTestServer(t, WithMetricsHandler(metrics)), "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tally_commands_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrSessionNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidCommand))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}

func TestBodyTooLarge(t *testing.T) {
	srv := newTestServer(t)
	body := bytes.Repeat([]byte("1"), maxBodySize+1)
	req := httptest.NewRequest("POST", "/evaluate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
