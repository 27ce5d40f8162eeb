package services

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browserSubscription(t *testing.T, endpoint string) *models.PushSubscription {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return &models.PushSubscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newTestPushService(t *testing.T) *PushService {
	t.Helper()

	private, public, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	svc, err := NewPushService(config.PushConfig{
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		Subscriber:      "mailto:support@example.com",
		Icon:            "/icons/icon-192.png",
	})
	require.NoError(t, err)
	return svc
}

func TestNewPushServiceRequiresKeys(t *testing.T) {
	_, err := NewPushService(config.PushConfig{VAPIDPublicKey: "pub"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPushServiceSend(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
		fails   bool
	}{
		{"created", http.StatusCreated, nil, false},
		{"gone", http.StatusGone, ErrSubscriptionGone, true},
		{"not found", http.StatusNotFound, ErrSubscriptionGone, true},
		{"server error", http.StatusInternalServerError, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotTTL, gotEncoding string
			var bodyLen int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotTTL = r.Header.Get("TTL")
				gotEncoding = r.Header.Get("Content-Encoding")
				body, _ := io.ReadAll(r.Body)
				bodyLen = len(body)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			svc := newTestPushService(t)
			err := svc.Send(context.Background(), browserSubscription(t, server.URL+"/push/abc"), models.PushPayload{
				Title: "یادآوری دارو",
				Body:  "زمان مصرف آموکسی‌سیلین",
				Data:  models.PushPayloadData{URL: "/reminder", MedicationID: 3, LogID: 9},
			})

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.fails:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
			}

			assert.True(t, strings.HasPrefix(gotAuth, "vapid t="), gotAuth)
			assert.Equal(t, "3600", gotTTL)
			assert.Equal(t, "aes128gcm", gotEncoding)
			assert.Greater(t, bodyLen, 0)
		})
	}
}
