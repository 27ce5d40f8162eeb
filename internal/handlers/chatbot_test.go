package handlers_test

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"pharmacist/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) postMessage(path, token, content string) *httptest.ResponseRecorder {
	h.t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(h.t, form.WriteField("content", content))
	require.NoError(h.t, form.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestChatEndpoints(t *testing.T) {
	h := newHarness(t, false)
	_, token := h.user("09120000001")
	_, otherToken := h.user("09120000002")

	w := h.do(http.MethodPost, "/api/chatbot/sessions/", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[models.ChatSession](t, w)
	assert.Equal(t, models.DefaultSessionTitle, session.Title)

	messagesPath := fmt.Sprintf("/api/chatbot/sessions/%d/messages/", session.ID)

	w = h.postMessage(messagesPath, token, "  ")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.postMessage(messagesPath, token, "آموکسی‌سیلین را با چه فاصله‌ای بخورم؟")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	exchange := decode[struct {
		User models.ChatMessage `json:"user_message"`
		AI   models.ChatMessage `json:"ai_message"`
	}](t, w)
	assert.Equal(t, models.RoleUser, exchange.User.Role)
	assert.Equal(t, models.RoleAssistant, exchange.AI.Role)
	assert.Equal(t, h.provider.reply, exchange.AI.Content)

	w = h.do(http.MethodGet, messagesPath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ChatMessage](t, w), 2)

	// sessions of other users are invisible
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, messagesPath, otherToken, nil).Code)

	w = h.do(http.MethodGet, "/api/chatbot/sessions/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[[]models.ChatSession](t, w)
	require.Len(t, sessions, 1)
	assert.NotEqual(t, models.DefaultSessionTitle, sessions[0].Title)

	h.provider.err = errors.New("upstream timeout")
	w = h.postMessage(messagesPath, token, "سوال دوم")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Len(t, decode[[]models.ChatMessage](t, h.do(http.MethodGet, messagesPath, token, nil)), 2)

	sessionPath := fmt.Sprintf("/api/chatbot/sessions/%d/", session.ID)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, sessionPath, otherToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, sessionPath, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, messagesPath, token, nil).Code)
}
