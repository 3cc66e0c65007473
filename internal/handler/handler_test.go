package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"docqa-go/internal/model"
	"docqa-go/pkg/tasks"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChatService 以函数字段注入行为。
type mockChatService struct {
	mu            sync.Mutex
	SubmitQueryFn func(query, sessionID string) (*model.ChatResponse, error)
	ReloadFn      func() error
	sessions      map[string]bool
	size          int
	registry      int64
	registryOn    bool
	registryErr   error
	queries       []string
}

func (m *mockChatService) SubmitQuery(_ context.Context, query, sessionID string) (*model.ChatResponse, error) {
	m.mu.Lock()
	m.queries = append(m.queries, sessionID+":"+query)
	m.mu.Unlock()
	return m.SubmitQueryFn(query, sessionID)
}
func (m *mockChatService) StartSession(id string)                   { m.sessions[id] = true }
func (m *mockChatService) ClearSession(id string) bool              { return m.sessions[id] }
func (m *mockChatService) EnsureCorpus(context.Context, bool) error { return nil }
func (m *mockChatService) ReloadCorpus(context.Context) error {
	if m.ReloadFn != nil {
		return m.ReloadFn()
	}
	return nil
}
func (m *mockChatService) CorpusSize(context.Context) (int, error) { return m.size, nil }
func (m *mockChatService) SessionCount() int                       { return len(m.sessions) }
func (m *mockChatService) RegistrySize(context.Context) (int64, bool, error) {
	return m.registry, m.registryOn, m.registryErr
}

type mockQueue struct {
	tasks []tasks.CorpusReloadTask
	err   error
}

func (q *mockQueue) EnqueueReload(_ context.Context, task tasks.CorpusReloadTask) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func echoService() *mockChatService {
	return &mockChatService{
		sessions: map[string]bool{"known": true},
		size:     42,
		SubmitQueryFn: func(query, sessionID string) (*model.ChatResponse, error) {
			if strings.TrimSpace(query) == "" {
				return nil, model.ValidationError("submit query", errors.New("query must not be empty"))
			}
			if sessionID == "" {
				sessionID = "generated"
			}
			n := 3
			return &model.ChatResponse{
				Response:  "answer to " + query,
				Sources:   []model.Source{{Title: "Doc", ArticleNumber: &n, RelevanceScore: 0.8}},
				SessionID: sessionID,
			}, nil
		},
	}
}

func newRouter(svc *mockChatService, queue ReloadQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewChatHandler(svc), NewCorpusHandler(svc, queue))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat(t *testing.T) {
	r := newRouter(echoService(), nil)
	w := do(r, http.MethodPost, "/api/chat", `{"query":"how long?","session_id":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"response": "answer to how long?",
		"sources": [{"title":"Doc","article_number":3,"relevance_score":0.8}],
		"session_id": "s1"
	}`, w.Body.String())
}

func TestChat_Errors(t *testing.T) {
	svc := echoService()
	r := newRouter(svc, nil)

	w := do(r, http.MethodPost, "/api/chat", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for kind, status := range map[error]int{
		model.ErrGeneration: http.StatusBadGateway,
		model.ErrIndex:      http.StatusServiceUnavailable,
		model.ErrParse:      http.StatusInternalServerError,
	} {
		kind := kind
		svc.SubmitQueryFn = func(string, string) (*model.ChatResponse, error) {
			return nil, model.NewError(kind, "op", errors.New("boom"))
		}
		w = do(r, http.MethodPost, "/api/chat", `{"query":"q"}`)
		assert.Equal(t, status, w.Code, kind.Error())
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(status), body["code"])
	}
}

func TestClearSession(t *testing.T) {
	r := newRouter(echoService(), nil)

	w := do(r, http.MethodPost, "/api/session/clear", `{"session_id":"known"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Conversation cleared"}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/session/clear", `{"session_id":"unknown"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/session/clear", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReload_Sync(t *testing.T) {
	svc := echoService()
	r := newRouter(svc, nil)

	w := do(r, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Corpus reloaded","chunks":42}`, w.Body.String())

	svc.ReloadFn = func() error { return model.IndexError("clear", errors.New("es down")) }
	w = do(r, http.MethodPost, "/api/reload", `{"async":false}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReload_Async(t *testing.T) {
	queue := &mockQueue{}
	r := newRouter(echoService(), queue)

	w := do(r, http.MethodPost, "/api/reload", `{"async":true}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, queue.tasks, 1)
	assert.NotEmpty(t, queue.tasks[0].RequestID)
	assert.Contains(t, w.Body.String(), queue.tasks[0].RequestID)

	w = do(newRouter(echoService(), nil), http.MethodPost, "/api/reload", `{"async":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	w := do(newRouter(echoService(), nil), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","chunks":42,"sessions":1}`, w.Body.String())
}

func TestHealth_Registry(t *testing.T) {
	svc := echoService()
	svc.registry, svc.registryOn = 42, true
	w := do(newRouter(svc, nil), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","chunks":42,"sessions":1,"registry_chunks":42}`, w.Body.String())

	svc.registryErr = errors.New("mysql down")
	w = do(newRouter(svc, nil), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","chunks":42,"sessions":1}`, w.Body.String())
}

func TestWebsocket(t *testing.T) {
	svc := echoService()
	srv := httptest.NewServer(newRouter(svc, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var resp model.ChatResponse
	require.NoError(t, conn.WriteJSON(ChatRequest{Query: "first"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "answer to first", resp.Response)
	assert.Equal(t, "generated", resp.SessionID)

	// 未带 session_id 的后续帧沿用连接上的会话
	require.NoError(t, conn.WriteJSON(ChatRequest{Query: "second"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "generated", resp.SessionID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var errFrame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&errFrame))
	assert.Equal(t, float64(http.StatusBadRequest), errFrame["code"])

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, []string{":first", "generated:second"}, svc.queries)
}
