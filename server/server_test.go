package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dugongyete-ui/agent-manus/agent"
	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/internal/testutil"
	"github.com/dugongyete-ui/agent-manus/model"
	"github.com/dugongyete-ui/agent-manus/parser"
	"github.com/dugongyete-ui/agent-manus/runner"
	"github.com/dugongyete-ui/agent-manus/session"
	"github.com/dugongyete-ui/agent-manus/tool"
)

func newTestServer(t *testing.T, mock *model.MockModel, tools ...tool.Tool) (*Server, *runner.Runner, *session.InMemoryStore) {
	t.Helper()
	return newMultiModelServer(t, []*model.MockModel{mock}, tools...)
}

func newMultiModelServer(t *testing.T, mocks []*model.MockModel, tools ...tool.Tool) (*Server, *runner.Runner, *session.InMemoryStore) {
	t.Helper()

	models := model.NewRegistry()
	for _, m := range mocks {
		require.NoError(t, models.Register(m))
	}
	router := model.NewRouter(models, model.NewState(mocks[0].Info().ID), func(o *model.RouterOptions) {
		o.Policy = model.RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Factor: 2}
	})

	registry := tool.NewRegistry()
	registry.MustRegister(tools...)

	ag := agent.New(router, parser.New(), tool.NewDispatcher(registry), func(o *agent.Options) {
		o.ChunkDelay = 0
	})
	store := session.NewInMemoryStore()
	run := runner.New(ag, store)
	return New(run), run, store
}

// gateTool blocks until the gate closes, so tests can hold a run open.
func gateTool(name string, gate <-chan struct{}) *tool.FunctionTool {
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	return tool.NewFunctionTool(name, "blocks until released", schema, func(ctx context.Context, _ map[string]any) (string, error) {
		select {
		case <-gate:
			return "released", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// parseSSE decodes every "data:" frame of an SSE body into events.
func parseSSE(t *testing.T, body string) []core.Event {
	t.Helper()
	var events []core.Event
	for _, line := range strings.Split(body, "\n") {
		raw, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev core.Event
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		events = append(events, ev)
	}
	return events
}

func directMock(answer string) *model.MockModel {
	return model.NewMockModel("mock-1", "Mock").Script(
		model.Outcome{Text: `{"direct_response":"` + answer + `"}`},
	)
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, directMock("ok"))

	w := doRequest(t, s.Handler(), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["active_runs"])
}

func TestCreateAndListSessions(t *testing.T) {
	s, _, _ := newTestServer(t, directMock("ok"))
	h := s.Handler()

	w := doRequest(t, h, http.MethodPost, "/api/sessions", map[string]any{"title": "Riset pasar"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)["session"].(map[string]any)
	assert.Equal(t, "Riset pasar", created["title"])
	assert.NotEmpty(t, created["id"])

	// Body is optional; the title then defaults.
	w = doRequest(t, h, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "New Chat", decodeBody(t, w)["session"].(map[string]any)["title"])

	w = doRequest(t, h, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decodeBody(t, w)["sessions"].([]any)
	require.Len(t, sessions, 2)

	titles := make([]string, 0, len(sessions))
	for _, raw := range sessions {
		entry := raw.(map[string]any)
		titles = append(titles, entry["title"].(string))
		assert.Equal(t, float64(0), entry["message_count"])
	}
	assert.ElementsMatch(t, []string{"Riset pasar", "New Chat"}, titles)
}

func TestCreateSessionRejectsMalformedBody(t *testing.T) {
	s, _, _ := newTestServer(t, directMock("ok"))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decodeBody(t, w)["error"])
}

func TestDeleteSession(t *testing.T) {
	s, _, _ := newTestServer(t, directMock("ok"))
	h := s.Handler()

	w := doRequest(t, h, http.MethodPost, "/api/sessions", map[string]any{"title": "Sementara"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["session"].(map[string]any)["id"].(string)

	w = doRequest(t, h, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["ok"])

	// Already gone.
	w = doRequest(t, h, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/sessions", nil)
	assert.Empty(t, decodeBody(t, w)["sessions"])
}

func TestRenameSession(t *testing.T) {
	s, _, store := newTestServer(t, directMock("ok"))
	h := s.Handler()

	w := doRequest(t, h, http.MethodPost, "/api/sessions", map[string]any{"title": "Lama"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["session"].(map[string]any)["id"].(string)

	w = doRequest(t, h, http.MethodPatch, "/api/sessions/"+id, map[string]any{"title": "Baru"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["ok"])

	sess, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Baru", sess.Title)

	// Blank rename is a no-op, not an error.
	w = doRequest(t, h, http.MethodPatch, "/api/sessions/"+id, map[string]any{"title": ""})
	require.Equal(t, http.StatusOK, w.Code)
	sess, err = store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Baru", sess.Title)

	w = doRequest(t, h, http.MethodPatch, "/api/sessions/ghost", map[string]any{"title": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessagesAndToolsUnknownSession(t *testing.T) {
	s, _, _ := newTestServer(t, directMock("ok"))
	h := s.Handler()

	w := doRequest(t, h, http.MethodGet, "/api/sessions/ghost/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "session not found")

	w = doRequest(t, h, http.MethodGet, "/api/sessions/ghost/tools", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatStreamDirectAnswer(t *testing.T) {
	s, _, store := newTestServer(t, directMock("Halo dari mock."))

	w := doRequest(t, s.Handler(), http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Halo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	events := parseSSE(t, w.Body.String())
	require.GreaterOrEqual(t, len(events), 4, "want phase, planning, chunks, done")
	assert.Equal(t, core.EventPhase, events[0].Type)
	assert.Equal(t, core.PhasePlanning, events[0].Phase)
	assert.Equal(t, core.EventPlanning, events[1].Type)
	assert.Equal(t, "Halo dari mock.", testutil.ChunkText(events))

	done := testutil.RequireTerminal(t, events)
	assert.Equal(t, core.EventDone, done.Type)
	assert.Equal(t, "Halo dari mock.", done.Content)

	// The run auto-created the session and persisted the exchange.
	msgs, err := store.Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)

	sess, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Halo", sess.Title)
}

func TestChatStreamValidation(t *testing.T) {
	s, _, _ := newTestServer(t, directMock("ok"))
	h := s.Handler()

	w := doRequest(t, h, http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message is required", decodeBody(t, w)["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/chat/stream",
		strings.NewReader("not json at all"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decodeBody(t, w)["error"])

	// Unknown fields are rejected rather than silently dropped.
	w = doRequest(t, h, http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Halo", "bogus": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatStreamReportsModelError(t *testing.T) {
	mock := model.NewMockModel("mock-1", "Mock").Script(
		model.Outcome{Err: assert.AnError},
	)
	s, _, store := newTestServer(t, mock)

	w := doRequest(t, s.Handler(), http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Halo"})
	require.Equal(t, http.StatusOK, w.Code)

	events := parseSSE(t, w.Body.String())
	terminal := testutil.RequireTerminal(t, events)
	assert.Equal(t, core.EventError, terminal.Type)
	assert.Contains(t, terminal.Content, "Terjadi kesalahan")

	msgs, err := store.Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Terjadi kesalahan")
}

func TestChatStreamBusySession(t *testing.T) {
	gate := make(chan struct{})
	mock := model.NewMockModel("mock-1", "Mock").Script(
		model.Outcome{Text: `{"immediate_action":{"action":"use_tool","tool":"gate_tool","params":{}}}`},
		model.Outcome{Text: "Selesai menunggu."},
	)
	s, run, _ := newTestServer(t, mock, gateTool("gate_tool", gate))

	active, err := run.Start(context.Background(), "s1", "Tahan dulu")
	require.NoError(t, err)
	require.True(t, run.Busy("s1"))

	w := doRequest(t, s.Handler(), http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Coba lagi"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "already in flight")

	// The status endpoint sees the held run too.
	w = doRequest(t, s.Handler(), http.MethodGet, "/api/agent/status", nil)
	assert.Equal(t, "running", decodeBody(t, w)["state"])

	close(gate)
	testutil.CollectEvents(t, active.Events, 0)
}

func TestChatStreamSwitchesModel(t *testing.T) {
	mock1 := model.NewMockModel("mock-1", "Mock Satu").Script(
		model.Outcome{Text: `{"direct_response":"dari satu"}`},
	)
	mock2 := model.NewMockModel("mock-2", "Mock Dua").Script(
		model.Outcome{Text: `{"direct_response":"dari dua"}`},
	)
	s, run, _ := newMultiModelServer(t, []*model.MockModel{mock1, mock2})
	h := s.Handler()

	// Unknown model: rejected before any run starts, selection untouched.
	w := doRequest(t, h, http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Halo", "model": "ghost"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errMsg := decodeBody(t, w)["error"].(string)
	assert.Contains(t, errMsg, "tidak tersedia")
	assert.Contains(t, errMsg, "mock-1")
	assert.Contains(t, errMsg, "mock-2")
	assert.Equal(t, "mock-1", run.Agent().Router().Current().ID)

	w = doRequest(t, h, http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Halo", "model": "mock-2"})
	require.Equal(t, http.StatusOK, w.Code)

	events := parseSSE(t, w.Body.String())
	done := testutil.RequireTerminal(t, events)
	assert.Equal(t, "dari dua", done.Content)
	assert.Equal(t, "mock-2", run.Agent().Router().Current().ID)
}

func TestChatStreamToolRun(t *testing.T) {
	mock := model.NewMockModel("mock-1", "Mock").Script(
		model.Outcome{Text: `{"immediate_action":{"action":"use_tool","tool":"probe_tool","params":{"key":"v"}}}`},
		model.Outcome{Text: "Hasil sudah didapat."},
	)
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	probe := tool.NewFunctionTool("probe_tool", "test fixture", schema, func(context.Context, map[string]any) (string, error) {
		return "hasil probe", nil
	})
	s, _, _ := newTestServer(t, mock, probe)
	h := s.Handler()

	w := doRequest(t, h, http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Jalankan probe"})
	require.Equal(t, http.StatusOK, w.Code)

	events := parseSSE(t, w.Body.String())
	testutil.RequireTerminal(t, events)
	assert.Equal(t, 1, testutil.Count(events, core.EventToolStart))
	assert.Equal(t, 1, testutil.Count(events, core.EventToolResult))

	start, ok := testutil.First(events, core.EventToolStart)
	require.True(t, ok)
	assert.Equal(t, "probe_tool", start.Tool)

	// The execution log is served once the stream has ended.
	w = doRequest(t, h, http.MethodGet, "/api/sessions/s1/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	execs := decodeBody(t, w)["executions"].([]any)
	require.Len(t, execs, 1)
	entry := execs[0].(map[string]any)
	assert.Equal(t, "probe_tool", entry["tool"])
	assert.Equal(t, "hasil probe", entry["result"])
	assert.Equal(t, "success", entry["status"])
}

func TestListModels(t *testing.T) {
	mock1 := model.NewMockModel("mock-1", "Mock Satu").WithCategory(model.CategoryThinking)
	mock2 := model.NewMockModel("mock-2", "Mock Dua")
	s, _, _ := newMultiModelServer(t, []*model.MockModel{mock1, mock2})
	h := s.Handler()

	w := doRequest(t, h, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["models"], 2)
	assert.Equal(t, "mock-1", body["current"].(map[string]any)["id"])
	assert.Len(t, body["categories"], 5)

	w = doRequest(t, h, http.MethodGet, "/api/models?category=thinking", nil)
	require.Equal(t, http.StatusOK, w.Code)
	filtered := decodeBody(t, w)["models"].([]any)
	require.Len(t, filtered, 1)
	assert.Equal(t, "mock-1", filtered[0].(map[string]any)["id"])
}

func TestSelectModel(t *testing.T) {
	mock1 := model.NewMockModel("mock-1", "Mock Satu")
	mock2 := model.NewMockModel("mock-2", "Mock Dua")
	s, run, _ := newMultiModelServer(t, []*model.MockModel{mock1, mock2})
	h := s.Handler()

	w := doRequest(t, h, http.MethodPost, "/api/models/select", map[string]any{"model": "mock-2"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "mock-2", body["current"].(map[string]any)["id"])
	assert.Equal(t, "mock-2", run.Agent().Router().Current().ID)

	w = doRequest(t, h, http.MethodPost, "/api/models/select", map[string]any{"model": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Model ID is required", decodeBody(t, w)["error"])

	w = doRequest(t, h, http.MethodPost, "/api/models/select", map[string]any{"model": "ghost"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "tidak tersedia")
}

func TestModelStats(t *testing.T) {
	mock := model.NewMockModel("mock-1", "Mock").Script(
		model.Outcome{Err: assert.AnError},
	)
	s, _, _ := newTestServer(t, mock)
	h := s.Handler()

	// One failed generation leaves a failure mark against the model.
	w := doRequest(t, h, http.MethodPost, "/api/sessions/s1/chat/stream",
		map[string]any{"message": "Halo"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/models/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "mock-1", body["current_model"].(map[string]any)["id"])
	stats := body["retry_stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["mock-1"])
}

func TestAgentStatus(t *testing.T) {
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	probe := tool.NewFunctionTool("probe_tool", "test fixture", schema, func(context.Context, map[string]any) (string, error) {
		return "ok", nil
	})
	s, _, _ := newTestServer(t, directMock("ok"), probe)

	w := doRequest(t, s.Handler(), http.MethodGet, "/api/agent/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, []any{"probe_tool"}, body["tools"])
	assert.Equal(t, float64(agent.DefaultMaxIterations), body["max_iterations"])
}

func TestRateLimit(t *testing.T) {
	_, run, _ := newTestServer(t, directMock("ok"))
	s := New(run, func(o *Options) {
		o.RateLimit = 2
		o.RateWindow = time.Minute
	})
	h := s.Handler()

	for i := 0; i < 2; i++ {
		w := doRequest(t, h, http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", decodeBody(t, w)["error"])
}

func dialWS(t *testing.T, ctx context.Context, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn
}

// readWSEvents drains event frames until the peer closes, asserting a
// normal closure.
func readWSEvents(t *testing.T, ctx context.Context, conn *websocket.Conn) []core.Event {
	t.Helper()
	var events []core.Event
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
			return events
		}
		require.Equal(t, websocket.MessageText, typ)
		var ev core.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		events = append(events, ev)
	}
}

func TestChatWS(t *testing.T) {
	s, _, store := newTestServer(t, directMock("Halo lewat soket."))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, srv, "/api/sessions/ws1/ws")
	defer conn.Close(websocket.StatusNormalClosure, "")

	payload, err := json.Marshal(map[string]any{"message": "Halo"})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	events := readWSEvents(t, ctx, conn)
	require.NotEmpty(t, events)
	done := testutil.RequireTerminal(t, events)
	assert.Equal(t, core.EventDone, done.Type)
	assert.Equal(t, "Halo lewat soket.", testutil.ChunkText(events))

	msgs, err := store.Messages(context.Background(), "ws1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Halo", msgs[0].Content)
}

func TestChatWSRequiresMessage(t *testing.T) {
	s, _, _ := newTestServer(t, directMock("ok"))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, srv, "/api/sessions/ws1/ws")
	defer conn.Close(websocket.StatusNormalClosure, "")

	payload, err := json.Marshal(map[string]any{"message": "   "})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	events := readWSEvents(t, ctx, conn)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventError, events[0].Type)
	assert.Equal(t, "Message is required", events[0].Content)
}
