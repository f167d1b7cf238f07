package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/config"
	"github.com/gemchat/gemchat-go/internal/llm"
	"github.com/gemchat/gemchat-go/internal/reconcile"
	"github.com/gemchat/gemchat-go/internal/store"
	"github.com/gemchat/gemchat-go/internal/stream"
	"github.com/gemchat/gemchat-go/internal/turn"
)

type fakeStream struct {
	chunks []llm.Chunk
	idx    int
}

func (s *fakeStream) Recv() (llm.Chunk, error) {
	if s.idx < len(s.chunks) {
		c := s.chunks[s.idx]
		s.idx++
		return c, nil
	}
	return llm.Chunk{}, io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakeClient struct {
	chunks []llm.Chunk
}

func (c *fakeClient) StreamChat(ctx context.Context, req llm.Request) (llm.Stream, error) {
	return &fakeStream{chunks: c.chunks}, nil
}

func newTestServer(t *testing.T, chunks []llm.Chunk) http.Handler {
	t.Helper()
	st := store.Open(filepath.Join(t.TempDir(), "sessions.db"))
	t.Cleanup(st.Close)

	cfg := config.ChatConfig{
		TitleMaxLen:  25,
		ErrorText:    "error",
		Greeting:     "hello",
		NewChatTitle: "new chat",
	}
	rec := reconcile.New(st, cfg.TitleMaxLen)
	agg := stream.New(&fakeClient{chunks: chunks}, "persona")
	runner := turn.NewRunner(st, rec, agg, cfg)
	return New(st, runner).Handler()
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t, []llm.Chunk{{Text: "Hel"}, {Text: "lo!"}})

	// Create.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	var sess chat.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))
	require.Equal(t, "new chat", sess.Title)

	// Send a turn.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/messages",
		strings.NewReader(`{"text":"Hi"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var reply chat.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reply))
	require.Equal(t, "Hello!", reply.Text())
	require.Equal(t, chat.StatusSent, reply.Status)

	// List reflects the reconciled state.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var sessions []chat.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, "Hi", sessions[0].Title)
	require.Len(t, sessions[0].Messages, 3)

	// Delete.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sessions/"+sess.ID, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	var after []chat.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &after))
	require.Empty(t, after)
}

func TestSendTurn_EmptyInputIsBadRequest(t *testing.T) {
	h := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	var sess chat.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/messages",
		strings.NewReader(`{"text":""}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendTurn_UnknownSessionIsNotFound(t *testing.T) {
	h := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/missing/messages",
		strings.NewReader(`{"text":"hi"}`)))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
