package services

import (
	"context"
	"log"
	"pharmacist/internal/config"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"time"

	"gorm.io/gorm"
)

// maxLead is the largest lead time a user can choose, so no due dose is further away than this
const maxLead = 120 * time.Minute

// ReminderWorker keeps logs generated ahead of time and notifies users when a dose is due
type ReminderWorker struct {
	db            *gorm.DB
	reminders     *ReminderService
	notifications *NotificationService
	interval      time.Duration
	windowDays    int
	staleAfter    time.Duration
	loc           *time.Location
}

func NewReminderWorker(cfg *config.Config, reminders *ReminderService, notifications *NotificationService) *ReminderWorker {
	staleAfter := cfg.Reminder.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 2 * time.Hour
	}

	return &ReminderWorker{
		db:            database.GetDB(),
		reminders:     reminders,
		notifications: notifications,
		interval:      cfg.Reminder.WorkerInterval,
		windowDays:    cfg.Reminder.GenerateWindowDays,
		staleAfter:    staleAfter,
		loc:           cfg.Location(),
	}
}

// Start runs the worker in the background until ctx is cancelled
func (w *ReminderWorker) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run ticks immediately and then every interval until ctx is cancelled
func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("Reminder worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick tops up logs and sends notifications for doses that became due
func (w *ReminderWorker) Tick(ctx context.Context) {
	created, err := w.reminders.TopUpAll(w.windowDays)
	if err != nil {
		log.Printf("Error: failed to top up reminder logs: %v", err)
	} else if created > 0 {
		log.Printf("Generated %d reminder logs", created)
	}

	sent, err := w.dispatchDue(ctx, w.reminders.clock())
	if err != nil {
		log.Printf("Error: failed to dispatch due doses: %v", err)
	} else if sent > 0 {
		log.Printf("Notified %d due doses", sent)
	}
}

type dueDose struct {
	models.Dose
	UserID       uint
	SnoozedUntil *time.Time
}

// findDue returns pending doses of active reminders that are within the largest lead time and
// were never notified, plus snoozed doses whose snooze has expired
func (w *ReminderWorker) findDue(now time.Time) ([]dueDose, error) {
	var rows []struct {
		ID             uint
		ReminderID     uint
		MedicationID   uint
		MedicationName string
		Dosage         string
		ScheduledTime  time.Time
		UserID         uint
		SnoozedUntil   *time.Time
	}

	err := w.db.Model(&models.ReminderLog{}).
		Select(`reminder_log.id, reminder_log.reminder_id, reminder.medication_id,
			medication.name AS medication_name, medication.dosage, reminder_log.scheduled_time,
			medication.user_id, reminder_log.snoozed_until`).
		Joins("JOIN reminder ON reminder.id = reminder_log.reminder_id").
		Joins("JOIN medication ON medication.id = reminder.medication_id").
		Where("reminder_log.status = ? AND reminder.status = ?", models.LogPending, models.ReminderActive).
		Where(w.db.
			Where("reminder_log.notified_at IS NULL AND reminder_log.snoozed_until IS NULL AND reminder_log.scheduled_time <= ? AND reminder_log.scheduled_time >= ?",
				now.Add(maxLead), now.Add(-w.staleAfter)).
			Or("reminder_log.snoozed_until <= ?", now)).
		Order("reminder_log.scheduled_time").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	due := make([]dueDose, 0, len(rows))
	for _, r := range rows {
		due = append(due, dueDose{
			Dose: models.Dose{
				ID:             r.ID,
				ReminderID:     r.ReminderID,
				MedicationID:   r.MedicationID,
				MedicationName: r.MedicationName,
				Dosage:         r.Dosage,
				ScheduledTime:  r.ScheduledTime,
				Status:         models.LogPending,
			},
			UserID:       r.UserID,
			SnoozedUntil: r.SnoozedUntil,
		})
	}
	return due, nil
}

// dispatchDue notifies every due dose once and returns how many were handled
func (w *ReminderWorker) dispatchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := w.findDue(now)
	if err != nil || len(due) == 0 {
		return 0, err
	}

	userIDs := make([]uint, 0, len(due))
	seen := map[uint]bool{}
	for _, d := range due {
		if !seen[d.UserID] {
			seen[d.UserID] = true
			userIDs = append(userIDs, d.UserID)
		}
	}

	var users []models.User
	if err := w.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return 0, err
	}
	usersByID := make(map[uint]*models.User, len(users))
	for i := range users {
		usersByID[users[i].ID] = &users[i]
	}

	var saved []models.NotificationSettings
	if err := w.db.Where("user_id IN ?", userIDs).Find(&saved).Error; err != nil {
		return 0, err
	}
	settingsByUser := make(map[uint]models.NotificationSettings, len(saved))
	for _, s := range saved {
		settingsByUser[s.UserID] = s
	}

	handled := 0
	for _, d := range due {
		user, ok := usersByID[d.UserID]
		if !ok {
			continue
		}
		settings, ok := settingsByUser[d.UserID]
		if !ok {
			settings = models.DefaultNotificationSettings(d.UserID)
		}

		// doses that were never snoozed wait for the user's own lead time
		if d.SnoozedUntil == nil && d.ScheduledTime.After(now.Add(time.Duration(settings.LeadMinutes)*time.Minute)) {
			continue
		}

		attempts := w.notifications.NotifyDose(ctx, user, settings, d.Dose, w.loc)
		if len(attempts) > 0 {
			if err := w.db.Create(&attempts).Error; err != nil {
				log.Printf("Warning: failed to record notification attempts for log %d: %v", d.ID, err)
			}
		}

		if err := w.db.Model(&models.ReminderLog{}).Where("id = ?", d.ID).Updates(map[string]interface{}{
			"notified_at":   now,
			"snoozed_until": nil,
		}).Error; err != nil {
			log.Printf("Error: failed to mark log %d notified: %v", d.ID, err)
			continue
		}
		handled++
	}

	return handled, nil
}
