package services

import (
	"context"
	"errors"
	"io"
	"pharmacist/internal/assistant"
	"pharmacist/internal/database/testdb"
	"pharmacist/internal/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply    string
	err      error
	requests []assistant.MessageRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) SendMessage(_ context.Context, req assistant.MessageRequest) (*assistant.MessageResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &assistant.MessageResponse{
		Content: p.reply,
		Model:   "fake-model",
		Usage:   assistant.Usage{InputTokens: 12, OutputTokens: 5},
	}, nil
}

type fakeUploader struct {
	uploaded []string
	deleted  []string
}

func (u *fakeUploader) UploadChatImage(_ context.Context, r io.Reader, filename string, _ uint) (string, string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", "", err
	}
	id := "chat/" + filename
	u.uploaded = append(u.uploaded, id)
	return "https://cdn.example.com/" + id, id, nil
}

func (u *fakeUploader) DeleteImage(_ context.Context, publicID string) error {
	u.deleted = append(u.deleted, publicID)
	return nil
}

func TestChatSendMessage(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	provider := &fakeProvider{reply: "این دارو را بعد از غذا مصرف کنید."}
	s := NewChatService(testConfig(), provider, &fakeUploader{})

	session, err := s.CreateSession(user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSessionTitle, session.Title)

	userMsg, aiMsg, err := s.SendMessage(context.Background(), user.ID, session.ID, "  متفورمین را کی بخورم؟ ", nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, userMsg.Role)
	assert.Equal(t, "متفورمین را کی بخورم؟", userMsg.Content)
	assert.Equal(t, models.RoleAssistant, aiMsg.Role)
	assert.Equal(t, provider.reply, aiMsg.Content)
	assert.True(t, aiMsg.CreatedAt.After(userMsg.CreatedAt))
	assert.NotNil(t, userMsg.Images)

	require.Len(t, provider.requests, 1)
	assert.Equal(t, "system", provider.requests[0].System)
	require.Len(t, provider.requests[0].Messages, 1)

	sessions, err := s.ListSessions(user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "متفورمین را کی بخورم؟", sessions[0].Title)

	// history is sent and the title stays after the first exchange
	_, _, err = s.SendMessage(context.Background(), user.ID, session.ID, "ممنون", nil)
	require.NoError(t, err)
	require.Len(t, provider.requests, 2)
	assert.Len(t, provider.requests[1].Messages, 3)
	assert.Equal(t, assistant.RoleAssistant, provider.requests[1].Messages[1].Role)

	messages, err := s.ListMessages(user.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[3].Role)

	sessions, err = s.ListSessions(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "متفورمین را کی بخورم؟", sessions[0].Title)
}

func TestChatSendMessageProviderFailureStoresNothing(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	uploader := &fakeUploader{}
	s := NewChatService(testConfig(), &fakeProvider{err: errors.New("timeout")}, uploader)

	session, err := s.CreateSession(user.ID, "سوال")
	require.NoError(t, err)

	_, _, err = s.SendMessage(context.Background(), user.ID, session.ID, "سلام",
		&ImageUpload{Reader: strings.NewReader("png"), Filename: "pill.png"})
	assert.ErrorIs(t, err, ErrAssistantUnavailable)

	messages, err := s.ListMessages(user.ID, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, uploader.uploaded, uploader.deleted)
}

func TestChatSendMessageWithImage(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	provider := &fakeProvider{reply: "قرص مسکن است."}
	uploader := &fakeUploader{}
	s := NewChatService(testConfig(), provider, uploader)

	session, err := s.CreateSession(user.ID, "")
	require.NoError(t, err)

	userMsg, _, err := s.SendMessage(context.Background(), user.ID, session.ID, "",
		&ImageUpload{Reader: strings.NewReader("png"), Filename: "pill.png"})
	require.NoError(t, err)
	require.Len(t, userMsg.Images, 1)
	assert.Equal(t, "https://cdn.example.com/chat/pill.png", userMsg.Images[0].Image)

	prompt := provider.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "https://cdn.example.com/chat/pill.png")

	// an image-only first message does not rename the session
	sessions, err := s.ListSessions(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSessionTitle, sessions[0].Title)

	messages, err := s.ListMessages(user.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, messages[0].Images, 1)

	require.NoError(t, s.DeleteSession(context.Background(), user.ID, session.ID))
	assert.Equal(t, []string{"chat/pill.png"}, uploader.deleted)
	_, err = s.ListMessages(user.ID, session.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var images int64
	require.NoError(t, db.Model(&models.ChatImage{}).Count(&images).Error)
	assert.Zero(t, images)
}

func TestChatValidation(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	other := createUser(t, db, "09120000002")
	s := NewChatService(testConfig(), &fakeProvider{reply: "ok"}, nil)

	session, err := s.CreateSession(user.ID, "")
	require.NoError(t, err)

	_, _, err = s.SendMessage(context.Background(), user.ID, session.ID, "   ", nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, _, err = s.SendMessage(context.Background(), other.ID, session.ID, "hi", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.SendMessage(context.Background(), user.ID, session.ID, "hi",
		&ImageUpload{Reader: strings.NewReader("png"), Filename: "a.png"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, _, err = NewChatService(testConfig(), nil, nil).SendMessage(context.Background(), user.ID, session.ID, "hi", nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSessionTitleFrom(t *testing.T) {
	assert.Equal(t, "سلام دکتر", SessionTitleFrom("  سلام \n دکتر "))

	long := strings.Repeat("ب", 60)
	title := SessionTitleFrom(long)
	assert.Equal(t, strings.Repeat("ب", 50)+"…", title)
}
