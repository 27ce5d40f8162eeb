package services

import (
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDoseReminderEmail(t *testing.T) {
	email := "sara@example.com"
	user := &models.User{ID: 1, FirstName: "سارا", LastName: "<script>", Email: &email}
	dose := models.Dose{
		MedicationName: "متفورمین",
		Dosage:         "500mg",
		ScheduledTime:  time.Date(2026, 3, 7, 4, 30, 0, 0, time.UTC),
	}

	msg := buildDoseReminderEmail("داروخانه", "noreply@example.com", user, dose, time.FixedZone("IRST", 3*3600+1800))

	assert.Equal(t, "یادآوری مصرف متفورمین", msg.Subject)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, email, msg.Personalizations[0].To[0].Address)
	require.Len(t, msg.Content, 2)
	assert.Contains(t, msg.Content[0].Value, "08:00")
	assert.Contains(t, msg.Content[0].Value, "متفورمین (500mg)")
	assert.Contains(t, msg.Content[1].Value, "&lt;script&gt;")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "کاربر گرامی", displayName(&models.User{}))
	assert.Equal(t, "علی", displayName(&models.User{FirstName: "علی"}))
	assert.Equal(t, "علی رضایی", displayName(&models.User{FirstName: "علی", LastName: "رضایی"}))
}

func TestNewEmailServiceDisabledWithoutKey(t *testing.T) {
	_, err := NewEmailService(&config.Config{})
	assert.ErrorIs(t, err, ErrDisabled)
}
