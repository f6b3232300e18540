package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadlens/threadlens/internal/rag"
)

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reddit/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	var gotPostID, gotQuestion string
	var gotHistory []rag.Turn
	pipeline := &fakePipeline{
		answerFn: func(_ context.Context, postID, question string, history []rag.Turn) (string, error) {
			gotPostID, gotQuestion, gotHistory = postID, question, history
			return "people are upset about the loss", nil
		},
	}
	srv := newTestServer(t, nil, pipeline, nil)

	rec := postChat(t, srv, `{
		"post_id": "abc123",
		"message": "what is the sentiment?",
		"chat_history": [
			{"role": "user", "content": "what happened?"},
			{"role": "assistant", "content": "a big loss."}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"people are upset about the loss"}`, rec.Body.String())
	assert.Equal(t, "abc123", gotPostID)
	assert.Equal(t, "what is the sentiment?", gotQuestion)
	require.Len(t, gotHistory, 2)
	assert.Equal(t, rag.RoleAssistant, gotHistory[1].Role)
}

func TestChatWithoutHistory(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := postChat(t, srv, `{"post_id": "abc123", "message": "hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"an answer"}`, rec.Body.String())
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed json", `{"post_id": `, "invalid request body"},
		{"unknown field", `{"post_id": "x", "message": "m", "extra": true}`, "invalid request body"},
		{"missing post_id", `{"message": "hello"}`, "post_id is required"},
		{"missing message", `{"post_id": "abc123"}`, "message is required"},
		{"blank message", `{"post_id": "abc123", "message": "   "}`, "message is required"},
		{
			"bad history role",
			`{"post_id": "abc123", "message": "m", "chat_history": [{"role": "system", "content": "x"}]}`,
			`chat_history[0].role`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, nil, nil)

			rec := postChat(t, srv, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
		})
	}
}

func TestChatPipelineFailure(t *testing.T) {
	pipeline := &fakePipeline{
		answerFn: func(context.Context, string, string, []rag.Turn) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	srv := newTestServer(t, nil, pipeline, nil)

	rec := postChat(t, srv, `{"post_id": "abc123", "message": "hello"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream_error")
}

func TestChatMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reddit/chat", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
