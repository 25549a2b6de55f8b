package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithLogger(quietLogger())), srv
}

func TestClient_Health(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, c.Health(context.Background()))
}

func TestClient_HealthRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	})

	err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	assert.Contains(t, err.Error(), "down for maintenance")
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL, WithLogger(quietLogger()))
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.False(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "failed to send request")
}

func TestClient_CreateSession(t *testing.T) {
	var bodies []map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		json.NewEncoder(w).Encode(map[string]string{"session_id": "s-1"})
	})

	id, err := c.CreateSession(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)

	_, err = c.CreateSession(context.Background(), "Be brief.")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.NotContains(t, bodies[0], "system_prompt", "empty prompt is omitted")
	assert.Equal(t, "Be brief.", bodies[1]["system_prompt"])
}

func TestClient_CreateSessionEmptyID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := c.CreateSession(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_Chat(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "s-1", req.SessionID)

		json.NewEncoder(w).Encode(ChatResponse{Response: "echo: " + req.Message})
	})

	reply, err := c.Chat(context.Background(), "s-1", "ping")
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", reply)
}

func TestClient_ChatBadJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})

	_, err := c.Chat(context.Background(), "s-1", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal response")
}

func TestClient_HistoryAndSessionInfo(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/history/a%2Fb":
			w.Write([]byte(`{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`))
		case "/session/a%2Fb":
			w.Write([]byte(`{"session_id":"a/b","messages_count":2}`))
		case "/session/bare":
			w.Write([]byte(`{"session_id":"bare"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	msgs, err := c.History(ctx, "a/b")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, HistoryMessage{Role: "assistant", Content: "hello"}, msgs[1])

	info, err := c.SessionInfo(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", info.SessionID)
	assert.Equal(t, 2, info.Count())

	info, err = c.SessionInfo(ctx, "bare")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Count())

	_, err = c.History(ctx, "unknown")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_SetBaseURL(t *testing.T) {
	c := NewClient(" http://one:8001/ ")
	assert.Equal(t, "http://one:8001", c.BaseURL())

	c.SetBaseURL("http://two:9000//")
	assert.Equal(t, "http://two:9000", c.BaseURL())
}
