package handler

import (
	"context"
	"docqa-go/internal/model"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubSessions struct {
	turns map[string][]model.SessionTurn
	err   error
}

func (s *stubSessions) History(context.Context, string) (model.ChatHistory, error) { return nil, nil }

func (s *stubSessions) Turns(_ context.Context, id string) ([]model.SessionTurn, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.turns[id], nil
}

func (s *stubSessions) Append(context.Context, string, model.ChatTurn) error { return nil }

func (s *stubSessions) Clear(_ context.Context, id string) error {
	delete(s.turns, id)
	return nil
}

func newSessionRouter(s *stubSessions) *gin.Engine {
	r := gin.New()
	h := NewSessionHandler(s)
	r.GET("/api/v1/sessions/:id", h.GetSession)
	r.DELETE("/api/v1/sessions/:id", h.DeleteSession)
	return r
}

func TestGetSession(t *testing.T) {
	s := &stubSessions{turns: map[string][]model.SessionTurn{"s1": {{User: "q", Assistant: "a"}}}}
	w := doRequest(newSessionRouter(s), http.MethodGet, "/api/v1/sessions/s1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user":"q"`) {
		t.Errorf("unexpected response: %d %s", w.Code, w.Body.String())
	}
}

func TestGetSession_Error(t *testing.T) {
	w := doRequest(newSessionRouter(&stubSessions{err: errors.New("redis down")}), http.MethodGet, "/api/v1/sessions/s1", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	s := &stubSessions{turns: map[string][]model.SessionTurn{"s1": {{User: "q"}}}}
	w := doRequest(newSessionRouter(s), http.MethodDelete, "/api/v1/sessions/s1", "")
	if w.Code != http.StatusOK || len(s.turns) != 0 {
		t.Errorf("session not cleared: %d %v", w.Code, s.turns)
	}
}
