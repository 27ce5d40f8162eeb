package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone means the browser endpoint no longer exists and should be forgotten
var ErrSubscriptionGone = errors.New("push subscription expired or unsubscribed")

// PushSender delivers a payload to one browser subscription
type PushSender interface {
	PublicKey() string
	Send(ctx context.Context, sub *models.PushSubscription, payload models.PushPayload) error
}

type PushService struct {
	cfg        config.PushConfig
	subscriber string
	httpClient webpush.HTTPClient
}

// NewPushService returns ErrDisabled when no VAPID key pair is configured
func NewPushService(cfg config.PushConfig) (*PushService, error) {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil, ErrDisabled
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 3600
	}
	cfg.TTL = ttl

	return &PushService{
		cfg: cfg,
		// webpush adds the mailto: scheme itself
		subscriber: strings.TrimPrefix(cfg.Subscriber, "mailto:"),
		httpClient: http.DefaultClient,
	}, nil
}

func (s *PushService) PublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Send encrypts and posts the payload to the subscription's push service
func (s *PushService) Send(ctx context.Context, sub *models.PushSubscription, payload models.PushPayload) error {
	if payload.Icon == "" {
		payload.Icon = s.cfg.Icon
	}
	if payload.Badge == "" {
		payload.Badge = s.cfg.Badge
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// GenerateVAPIDKeys creates a new application server key pair
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
