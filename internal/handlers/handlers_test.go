package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"pharmacist/internal/assistant"
	"pharmacist/internal/auth"
	"pharmacist/internal/config"
	"pharmacist/internal/database/testdb"
	"pharmacist/internal/handlers"
	"pharmacist/internal/models"
	"pharmacist/internal/reports"
	"pharmacist/internal/server"
	"pharmacist/internal/services"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			Issuer:     "pharmacist",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		Frontend: config.FrontendConfig{URL: "http://localhost:3000"},
		Reminder: config.ReminderConfig{
			Timezone:           "Asia/Tehran",
			DefaultDays:        7,
			MaxDays:            30,
			GenerateWindowDays: 2,
			WorkerInterval:     time.Minute,
			SnoozeMinutes:      15,
			StaleAfter:         2 * time.Hour,
		},
		Assistant: config.AssistantConfig{
			Model:        "deepseek-chat",
			MaxTokens:    256,
			HistoryLimit: 10,
			SystemPrompt: "system",
		},
	}
}

type fakeProvider struct {
	reply string
	err   error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) SendMessage(_ context.Context, _ assistant.MessageRequest) (*assistant.MessageResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &assistant.MessageResponse{Content: p.reply, Model: "fake-model"}, nil
}

type fakePush struct {
	mu       sync.Mutex
	payloads []models.PushPayload
}

func (f *fakePush) PublicKey() string { return "public-key" }

func (f *fakePush) Send(_ context.Context, _ *models.PushSubscription, payload models.PushPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

// harness is a full API over an in-memory database with faked integrations
type harness struct {
	t        *testing.T
	db       *gorm.DB
	router   http.Handler
	provider *fakeProvider
	push     *fakePush
}

func newHarness(t *testing.T, withPush bool, opts ...func(*handlers.Dependencies)) *harness {
	t.Helper()
	cfg := testConfig()
	db := testdb.New(t)
	auth.Configure(cfg.Auth)

	h := &harness{t: t, db: db, provider: &fakeProvider{reply: "بعد از غذا مصرف کنید."}}

	var push services.PushSender
	if withPush {
		h.push = &fakePush{}
		push = h.push
	}

	reporter, err := reports.FromGorm(db)
	require.NoError(t, err)

	d := handlers.Dependencies{
		Config:        cfg,
		Medications:   services.NewMedicationService(),
		Reminders:     services.NewReminderService(cfg),
		Chat:          services.NewChatService(cfg, h.provider, nil),
		Notifications: services.NewNotificationService(push, nil),
		Reports:       reporter,
	}
	for _, opt := range opts {
		opt(&d)
	}
	handlers.Init(d)
	t.Cleanup(func() { handlers.Init(handlers.Dependencies{}) })

	h.router = server.NewRouter(cfg)
	return h
}

// user creates an account directly and returns its access token
func (h *harness) user(phone string) (*models.User, string) {
	h.t.Helper()
	hash, err := auth.HashPassword("secret-pass1")
	require.NoError(h.t, err)
	user := models.User{PhoneNumber: &phone, HashedPass: hash}
	require.NoError(h.t, h.db.Create(&user).Error)

	pair, err := auth.GenerateTokenPair(&user)
	require.NoError(h.t, err)
	return &user, pair.Access
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
