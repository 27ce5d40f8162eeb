package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"pharmacist/internal/utils"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// NotificationService manages push subscriptions and delivery preferences
type NotificationService struct {
	db     *gorm.DB
	push   PushSender
	mailer DoseMailer
}

// NewNotificationService wires delivery channels. push and mailer may be nil when not configured.
func NewNotificationService(push PushSender, mailer DoseMailer) *NotificationService {
	return &NotificationService{
		db:     database.GetDB(),
		push:   push,
		mailer: mailer,
	}
}

func (s *NotificationService) PushEnabled() bool {
	return s.push != nil
}

func (s *NotificationService) PublicKey() (string, error) {
	if s.push == nil {
		return "", ErrDisabled
	}
	return s.push.PublicKey(), nil
}

// Subscribe stores a browser subscription, moving an existing endpoint to this user
func (s *NotificationService) Subscribe(userID uint, info models.SubscriptionInfo, userAgent string) (*models.PushSubscription, error) {
	userAgent = utils.Truncate(userAgent, 255)

	now := time.Now().UTC()
	sub := models.PushSubscription{
		UserID:    userID,
		Endpoint:  info.Endpoint,
		P256dh:    info.Keys.P256dh,
		Auth:      info.Keys.Auth,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "user_agent", "updated_at"}),
	}).Create(&sub).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	if err := s.db.Where("endpoint = ?", info.Endpoint).First(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

func (s *NotificationService) Unsubscribe(userID uint, endpoint string) error {
	result := s.db.Where("user_id = ? AND endpoint = ?", userID, endpoint).Delete(&models.PushSubscription{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Settings returns the user's preferences, defaults when never saved
func (s *NotificationService) Settings(userID uint) (models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := s.db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultNotificationSettings(userID), nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to load notification settings: %w", err)
	}
	return settings, nil
}

func (s *NotificationService) UpdateSettings(userID uint, req models.NotificationSettingsRequest) (models.NotificationSettings, error) {
	settings, err := s.Settings(userID)
	if err != nil {
		return settings, err
	}

	if req.PushEnabled != nil {
		settings.PushEnabled = *req.PushEnabled
	}
	if req.EmailEnabled != nil {
		settings.EmailEnabled = *req.EmailEnabled
	}
	if req.LeadMinutes != nil {
		if *req.LeadMinutes < 0 || *req.LeadMinutes > 120 {
			return settings, invalidField("lead_minutes", "lead_minutes must be between 0 and 120")
		}
		settings.LeadMinutes = *req.LeadMinutes
	}
	settings.UpdatedAt = time.Now().UTC()

	// Save upserts on the primary key; booleans are written even when false
	if err := s.db.Save(&settings).Error; err != nil {
		return settings, fmt.Errorf("failed to save notification settings: %w", err)
	}
	return settings, nil
}

// SendTest pushes a sample notification. Unless force is set, a user who disabled push gets nothing.
func (s *NotificationService) SendTest(ctx context.Context, userID uint, force bool) (int, error) {
	if s.push == nil {
		return 0, ErrDisabled
	}

	if !force {
		settings, err := s.Settings(userID)
		if err != nil {
			return 0, err
		}
		if !settings.PushEnabled {
			return 0, nil
		}
	}

	return s.PushToUser(ctx, userID, models.PushPayload{
		Title: "اعلان آزمایشی",
		Body:  "اعلان‌های یادآوری دارو برای شما فعال است.",
		Data:  models.PushPayloadData{URL: "/reminder"},
	})
}

// PushToUser sends payload to every subscription of the user and forgets gone endpoints.
// It returns how many deliveries succeeded; the error is the last failure, if nothing succeeded.
func (s *NotificationService) PushToUser(ctx context.Context, userID uint, payload models.PushPayload) (int, error) {
	if s.push == nil {
		return 0, ErrDisabled
	}

	var subs []models.PushSubscription
	if err := s.db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return 0, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	sent := 0
	var lastErr error
	for i := range subs {
		err := s.push.Send(ctx, &subs[i], payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrSubscriptionGone):
			log.Printf("Removing expired push subscription %d of user %d", subs[i].ID, userID)
			if err := s.db.Delete(&subs[i]).Error; err != nil {
				log.Printf("Warning: failed to delete push subscription %d: %v", subs[i].ID, err)
			}
			lastErr = err
		default:
			log.Printf("Warning: push to subscription %d failed: %v", subs[i].ID, err)
			lastErr = err
		}
	}

	if sent == 0 && lastErr != nil {
		return 0, lastErr
	}
	return sent, nil
}

// NotifyDose delivers a due dose through every channel the user enabled and reports each attempt
func (s *NotificationService) NotifyDose(ctx context.Context, user *models.User, settings models.NotificationSettings, dose models.Dose, loc *time.Location) []models.NotificationLog {
	var attempts []models.NotificationLog
	record := func(channel string, err error) {
		entry := models.NotificationLog{
			LogID:   dose.ID,
			UserID:  user.ID,
			Channel: channel,
			Success: err == nil,
			SentAt:  time.Now().UTC(),
		}
		if err != nil {
			entry.Error = utils.Truncate(err.Error(), 512)
		}
		attempts = append(attempts, entry)
	}

	if settings.PushEnabled && s.push != nil {
		sent, err := s.PushToUser(ctx, user.ID, DosePayload(dose, loc))
		// users without any subscription have nothing to attempt
		if sent > 0 || err != nil {
			record(ChannelPush, err)
		}
	}

	if settings.EmailEnabled && s.mailer != nil && user.Email != nil && *user.Email != "" {
		record(ChannelEmail, s.mailer.SendDoseReminder(ctx, user, dose))
	}

	return attempts
}

// DosePayload is the push notification shown for a due dose
func DosePayload(dose models.Dose, loc *time.Location) models.PushPayload {
	what := dose.MedicationName
	if dose.Dosage != "" {
		what += " (" + dose.Dosage + ")"
	}
	return models.PushPayload{
		Title: "یادآوری مصرف دارو",
		Body:  fmt.Sprintf("زمان مصرف %s - ساعت %s", what, dose.ScheduledTime.In(loc).Format("15:04")),
		Data: models.PushPayloadData{
			URL:          "/reminder",
			MedicationID: dose.MedicationID,
			LogID:        dose.ID,
		},
	}
}
