package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RichardoC/padchat/internal/chat"
	"github.com/RichardoC/padchat/internal/db"
	"github.com/RichardoC/padchat/internal/llm"
	"github.com/RichardoC/padchat/internal/models"
)

type stubQuerier struct {
	mu     sync.Mutex
	result llm.Result
	block  chan struct{}
	seen   chan struct{}
}

func (q *stubQuerier) Query(ctx context.Context, req llm.Request) llm.Result {
	if q.block != nil {
		q.seen <- struct{}{}
		<-q.block
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.result.Success && q.result.Error == "" {
		return llm.Result{Success: true, Response: "Hi!"}
	}
	return q.result
}

type testServer struct {
	e     *echo.Echo
	store *chat.Store
}

func newTestServer(t *testing.T, q llm.Querier, limiter *RateLimiter) *testServer {
	t.Helper()
	database, err := db.New("sqlite3", ":memory:")
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	store := chat.New(q, db.NewGateway(database, logger), chat.WithLogger(logger))
	t.Cleanup(func() {
		store.Close()
		database.Close()
	})
	require.NoError(t, store.Load(context.Background()))

	if limiter == nil {
		limiter = NewRateLimiter(1000, 1000)
	}
	h := NewHandler(store, llm.NewHeuristicCounter(), limiter, logger)
	return &testServer{e: NewServer(h, logger), store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSendMessage(t *testing.T) {
	s := newTestServer(t, &stubQuerier{}, nil)

	rec := s.do(t, http.MethodPost, "/api/messages", `{"text":"Hello","mode":"thinking"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SendMessageResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Hello", resp.Conversation.Title)
	require.Len(t, resp.Conversation.Messages, 2)
	assert.Equal(t, "Hi!", resp.Conversation.Messages[1].Content)

	state := decode[chat.Snapshot](t, s.do(t, http.MethodGet, "/api/state", ""))
	assert.Len(t, state.Conversations, 1)
	require.NotNil(t, state.Current)
	assert.Equal(t, resp.Conversation.ID, state.Current.ID)
	assert.Equal(t, chat.StateIdle, state.State)
}

func TestSendMessage_Failure(t *testing.T) {
	s := newTestServer(t, &stubQuerier{result: llm.Result{Error: "HTTP 500: boom"}}, nil)

	rec := s.do(t, http.MethodPost, "/api/messages", `{"text":"Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SendMessageResponse](t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "HTTP 500: boom", resp.Error)
	assert.Equal(t, chat.ErrorReply("HTTP 500: boom"), resp.Conversation.Messages[1].Content)
}

func TestSendMessage_BadRequests(t *testing.T) {
	s := newTestServer(t, &stubQuerier{}, nil)

	tests := map[string]string{
		"empty":        `{"text":"  "}`,
		"unknown mode": `{"text":"hi","mode":"turbo"}`,
		"bad json":     `{"text":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/messages", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec), "error")
		})
	}
	assert.Empty(t, s.store.Conversations())
}

func TestSendMessage_InFlightConflict(t *testing.T) {
	q := &stubQuerier{block: make(chan struct{}), seen: make(chan struct{}, 1)}
	s := newTestServer(t, q, nil)

	done := make(chan int, 1)
	go func() {
		done <- s.do(t, http.MethodPost, "/api/messages", `{"text":"first"}`).Code
	}()
	<-q.seen

	rec := s.do(t, http.MethodPost, "/api/messages", `{"text":"second"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(q.block)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestSendMessage_RateLimited(t *testing.T) {
	s := newTestServer(t, &stubQuerier{}, NewRateLimiter(0.001, 1))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/messages", `{"text":"one"}`).Code)
	rec := s.do(t, http.MethodPost, "/api/messages", `{"text":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decode[map[string]string](t, rec)["error"])
}

func TestConversationRoutes(t *testing.T) {
	s := newTestServer(t, &stubQuerier{}, nil)
	conv, _, err := s.store.SendMessage(context.Background(), "Hello there", chat.SendOptions{})
	require.NoError(t, err)
	path := "/api/conversations/" + conv.ID

	views := decode[[]ConversationView](t, s.do(t, http.MethodGet, "/api/conversations", ""))
	require.Len(t, views, 1)
	assert.Equal(t, conv.ID, views[0].ID)
	assert.Equal(t, llm.EstimateTokens(conv.Transcript()), views[0].Tokens)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, path, `{"title":"Renamed"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, path, `{"title":""}`).Code)
	assert.Equal(t, "Renamed", s.store.Conversations()[0].Title)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/chat/new", "").Code)
	_, ok := s.store.Current()
	assert.False(t, ok)

	rec := s.do(t, http.MethodPost, path+"/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, conv.ID, decode[models.Conversation](t, rec).ID)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, path+"/select", "").Code)
	assert.Empty(t, s.store.Conversations())
}

func TestProjectRoutes(t *testing.T) {
	s := newTestServer(t, &stubQuerier{}, nil)
	conv, _, err := s.store.SendMessage(context.Background(), "Hello", chat.SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/projects", `{"name":"  "}`).Code)

	rec := s.do(t, http.MethodPost, "/api/projects", `{"name":"Work","color":"#00ff00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[models.Project](t, rec)
	assert.Equal(t, "Work", project.Name)
	assert.Equal(t, "#00ff00", project.Color)

	rec = s.do(t, http.MethodPut, "/api/conversations/"+conv.ID+"/project", `{"projectId":"`+project.ID+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	views := decode[[]ConversationView](t, s.do(t, http.MethodGet, "/api/conversations?project="+project.ID, ""))
	assert.Len(t, views, 1)
	views = decode[[]ConversationView](t, s.do(t, http.MethodGet, "/api/conversations?project=", ""))
	assert.Empty(t, views)

	rec = s.do(t, http.MethodPatch, "/api/projects/"+project.ID, `{"name":"Office","icon":"briefcase"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Project](t, rec)
	assert.Equal(t, "Office", updated.Name)
	assert.Equal(t, "briefcase", updated.Icon)
	assert.Equal(t, "#00ff00", updated.Color)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/projects/missing", `{"name":"x"}`).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/projects/"+project.ID, "").Code)
	assert.Empty(t, decode[[]models.Project](t, s.do(t, http.MethodGet, "/api/projects", "")))
	assert.Empty(t, s.store.Conversations()[0].ProjectID)
}
