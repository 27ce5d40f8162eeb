package services

import (
	"context"
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
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

// tehranTime is a wall clock time in Asia/Tehran
func tehranTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tehran")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

// newReminderService returns a service whose clock is frozen at now
func newReminderService(now time.Time) *ReminderService {
	s := NewReminderService(testConfig())
	s.now = func() time.Time { return now }
	return s
}

func createUser(t *testing.T, db *gorm.DB, phone string) *models.User {
	t.Helper()
	user := models.User{PhoneNumber: &phone}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createMedication(t *testing.T, db *gorm.DB, userID uint, name string) *models.Medication {
	t.Helper()
	medication := models.Medication{UserID: userID, Name: name, Dosage: "500mg"}
	require.NoError(t, db.Create(&medication).Error)
	return &medication
}

func dailyRequest(start string, times ...string) models.ReminderRequest {
	freq := models.FrequencyDaily
	return models.ReminderRequest{Frequency: &freq, StartDate: &start, Times: times}
}

func countLogs(t *testing.T, db *gorm.DB, reminderID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ReminderLog{}).Where("reminder_id = ?", reminderID).Count(&n).Error)
	return n
}

type sentPush struct {
	Endpoint string
	Payload  models.PushPayload
}

// fakePush records deliveries and fails for endpoints listed in errs
type fakePush struct {
	mu   sync.Mutex
	sent []sentPush
	errs map[string]error
}

func (f *fakePush) PublicKey() string { return "public-key" }

func (f *fakePush) Send(_ context.Context, sub *models.PushSubscription, payload models.PushPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[sub.Endpoint]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentPush{Endpoint: sub.Endpoint, Payload: payload})
	return nil
}

func (f *fakePush) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeMailer struct {
	doses []models.Dose
	err   error
}

func (f *fakeMailer) SendDoseReminder(_ context.Context, _ *models.User, dose models.Dose) error {
	f.doses = append(f.doses, dose)
	return f.err
}

func subscribe(t *testing.T, s *NotificationService, userID uint, endpoint string) {
	t.Helper()
	_, err := s.Subscribe(userID, models.SubscriptionInfo{
		Endpoint: endpoint,
		Keys:     models.SubscriptionKeys{P256dh: "p256dh", Auth: "auth"},
	}, "test-agent")
	require.NoError(t, err)
}
