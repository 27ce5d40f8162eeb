package services

import (
	"pharmacist/internal/database/testdb"
	"pharmacist/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReminderDefaults(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	medication := createMedication(t, db, user.ID, "Metformin")
	s := newReminderService(tehranTime(t, 2026, 3, 8, 1, 0))

	freq := models.FrequencyDaily
	reminder, err := s.CreateReminder(user.ID, medication.ID, models.ReminderRequest{
		Frequency: &freq,
		Times:     []string{"20:00", "08:00", "08:00"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReminderActive, reminder.Status)
	// today in the reminder timezone, not in UTC
	assert.Equal(t, "2026-03-08", reminder.StartDate)
	assert.Nil(t, reminder.EndDate)
	assert.Equal(t, []string{"08:00", "20:00"}, reminder.TimeStrings())

	got, err := s.GetReminder(user.ID, medication.ID, reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "20:00"}, got.TimeStrings())
}

func TestCreateReminderValidation(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	medication := createMedication(t, db, user.ID, "Metformin")
	s := newReminderService(tehranTime(t, 2026, 3, 7, 10, 0))

	weekly := models.FrequencyWeekly
	end := "2026-02-01"
	start := "2026-03-01"

	tests := []struct {
		name  string
		req   models.ReminderRequest
		field string
	}{
		{"missing frequency", models.ReminderRequest{Times: []string{"08:00"}}, "frequency"},
		{"missing times", dailyRequest("2026-03-01"), "times"},
		{"invalid time", dailyRequest("2026-03-01", "8:00pm"), "times"},
		{"weekly without days", models.ReminderRequest{Frequency: &weekly, Times: []string{"08:00"}}, "days_of_week"},
		{"end before start", func() models.ReminderRequest {
			r := dailyRequest(start, "08:00")
			r.EndDate = &end
			return r
		}(), "end_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateReminder(user.ID, medication.ID, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("foreign medication", func(t *testing.T) {
		other := createUser(t, db, "09120000002")
		_, err := s.CreateReminder(other.ID, medication.ID, dailyRequest("2026-03-01", "08:00"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateReminderPatchAndPut(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	medication := createMedication(t, db, user.ID, "Metformin")
	s := newReminderService(tehranTime(t, 2026, 3, 7, 10, 0))

	req := dailyRequest("2026-03-01", "08:00")
	end := "2026-04-01"
	req.EndDate = &end
	reminder, err := s.CreateReminder(user.ID, medication.ID, req)
	require.NoError(t, err)

	t.Run("patch changes only given fields", func(t *testing.T) {
		paused := models.ReminderPaused
		updated, err := s.UpdateReminder(user.ID, medication.ID, reminder.ID, models.ReminderRequest{Status: &paused}, true)
		require.NoError(t, err)
		assert.Equal(t, models.ReminderPaused, updated.Status)
		assert.Equal(t, "2026-03-01", updated.StartDate)
		require.NotNil(t, updated.EndDate)
		assert.Equal(t, []string{"08:00"}, updated.TimeStrings())
	})

	t.Run("patch with empty end_date clears it", func(t *testing.T) {
		empty := ""
		updated, err := s.UpdateReminder(user.ID, medication.ID, reminder.ID, models.ReminderRequest{EndDate: &empty}, true)
		require.NoError(t, err)
		assert.Nil(t, updated.EndDate)
	})

	t.Run("put resets omitted fields", func(t *testing.T) {
		updated, err := s.UpdateReminder(user.ID, medication.ID, reminder.ID, dailyRequest("2026-03-05", "09:00", "21:00"), false)
		require.NoError(t, err)
		assert.Equal(t, models.ReminderActive, updated.Status)
		assert.Equal(t, "2026-03-05", updated.StartDate)

		stored, err := s.GetReminder(user.ID, medication.ID, reminder.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00", "21:00"}, stored.TimeStrings())

		var times int64
		require.NoError(t, db.Model(&models.ReminderTime{}).Where("reminder_id = ?", reminder.ID).Count(&times).Error)
		assert.Equal(t, int64(2), times)
	})
}

func TestUpdateReminderScheduleChangeDropsFuturePendingLogs(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	medication := createMedication(t, db, user.ID, "Metformin")
	s := newReminderService(tehranTime(t, 2026, 3, 7, 10, 0))

	reminder, err := s.CreateReminder(user.ID, medication.ID, dailyRequest("2026-03-01", "08:00", "20:00"))
	require.NoError(t, err)

	created, err := s.GenerateLogs(user.ID, medication.ID, reminder.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 6, created)

	// take tonight's dose ahead of time so a handled future log is kept too
	logs, err := s.ListLogs(user.ID, medication.ID, reminder.ID, "", SortScheduledAsc)
	require.NoError(t, err)
	taken := models.LogTaken
	_, err = s.UpdateLog(user.ID, medication.ID, reminder.ID, logs[1].ID, models.UpdateLogRequest{Status: &taken})
	require.NoError(t, err)

	t.Run("status-only change keeps logs", func(t *testing.T) {
		paused := models.ReminderPaused
		_, err := s.UpdateReminder(user.ID, medication.ID, reminder.ID, models.ReminderRequest{Status: &paused}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(6), countLogs(t, db, reminder.ID))
	})

	t.Run("new times drop future pending logs", func(t *testing.T) {
		_, err := s.UpdateReminder(user.ID, medication.ID, reminder.ID, models.ReminderRequest{Times: []string{"09:00"}}, true)
		require.NoError(t, err)

		remaining, err := s.ListLogs(user.ID, medication.ID, reminder.ID, "", SortScheduledAsc)
		require.NoError(t, err)
		require.Len(t, remaining, 2)
		assert.Equal(t, logs[0].ID, remaining[0].ID) // this morning's past dose
		assert.Equal(t, logs[1].ID, remaining[1].ID) // tonight's dose, already taken
	})
}

func TestRegenerateAfterEditSkipsEarlierToday(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	medication := createMedication(t, db, user.ID, "Metformin")
	s := newReminderService(tehranTime(t, 2026, 3, 7, 10, 0))

	reminder, err := s.CreateReminder(user.ID, medication.ID, dailyRequest("2026-03-01", "08:00"))
	require.NoError(t, err)
	created, err := s.GenerateLogs(user.ID, medication.ID, reminder.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, created)

	_, err = s.UpdateReminder(user.ID, medication.ID, reminder.ID, models.ReminderRequest{Times: []string{"09:00"}}, true)
	require.NoError(t, err)

	created, err = s.GenerateLogs(user.ID, medication.ID, reminder.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// this morning keeps its single 08:00 dose, tomorrow moves to 09:00
	assert.Equal(t, []time.Time{
		tehranTime(t, 2026, 3, 7, 8, 0).UTC(),
		tehranTime(t, 2026, 3, 8, 9, 0).UTC(),
	}, scheduledTimes(t, s, user.ID, medication.ID, reminder.ID))

	// a status-only change does not move the cutoff
	paused, active := models.ReminderPaused, models.ReminderActive
	_, err = s.UpdateReminder(user.ID, medication.ID, reminder.ID, models.ReminderRequest{Status: &paused}, true)
	require.NoError(t, err)
	updated, err := s.UpdateReminder(user.ID, medication.ID, reminder.ID, models.ReminderRequest{Status: &active}, true)
	require.NoError(t, err)
	require.NotNil(t, updated.ScheduleChangedAt)
	assert.Equal(t, tehranTime(t, 2026, 3, 7, 10, 0).UTC(), updated.ScheduleChangedAt.UTC())
}

func TestDeleteReminder(t *testing.T) {
	db := testdb.New(t)
	user := createUser(t, db, "09120000001")
	medication := createMedication(t, db, user.ID, "Metformin")
	s := newReminderService(tehranTime(t, 2026, 3, 7, 10, 0))

	keep, err := s.CreateReminder(user.ID, medication.ID, dailyRequest("2026-03-01", "08:00"))
	require.NoError(t, err)
	drop, err := s.CreateReminder(user.ID, medication.ID, dailyRequest("2026-03-01", "20:00"))
	require.NoError(t, err)
	for _, r := range []*models.Reminder{keep, drop} {
		_, err := s.GenerateLogs(user.ID, medication.ID, r.ID, 2)
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteReminder(user.ID, medication.ID, drop.ID))
	assert.ErrorIs(t, s.DeleteReminder(user.ID, medication.ID, drop.ID), ErrNotFound)

	assert.Zero(t, countLogs(t, db, drop.ID))
	assert.Equal(t, int64(2), countLogs(t, db, keep.ID))

	list, err := s.ListReminders(user.ID, medication.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}
