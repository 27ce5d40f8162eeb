package services

import (
	"errors"
	"fmt"
	"log"
	"pharmacist/internal/models"
	"pharmacist/internal/schedule"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SortScheduledAsc  = "scheduled_time"
	SortScheduledDesc = "-scheduled_time"
)

// GenerateLogs materialises pending logs for the next days calendar days (0 means the configured default).
// It returns how many logs were created; existing doses are never duplicated.
func (s *ReminderService) GenerateLogs(userID, medicationID, reminderID uint, days int) (int, error) {
	if days == 0 {
		days = s.cfg.DefaultDays
	}
	if days < 1 || days > s.maxDays() {
		return 0, invalidField("days", fmt.Sprintf("days must be between 1 and %d", s.maxDays()))
	}

	reminder, err := s.loadReminder(s.db, userID, medicationID, reminderID)
	if err != nil {
		return 0, err
	}

	return s.generate(s.db, reminder, days, s.clock())
}

func (s *ReminderService) maxDays() int {
	if s.cfg.MaxDays > 0 && s.cfg.MaxDays < schedule.MaxWindowDays {
		return s.cfg.MaxDays
	}
	return schedule.MaxWindowDays
}

func (s *ReminderService) generate(db *gorm.DB, reminder *models.Reminder, days int, now time.Time) (int, error) {
	if !reminder.IsActive() {
		return 0, nil
	}

	rule, err := schedule.FromReminder(reminder, s.loc)
	if err != nil {
		return 0, asValidation(err)
	}

	instants, err := schedule.Expand(rule, now, days, s.loc)
	if err != nil {
		return 0, asValidation(err)
	}
	if reminder.ScheduleChangedAt != nil {
		instants = notBefore(instants, *reminder.ScheduleChangedAt)
	}
	if len(instants) == 0 {
		return 0, nil
	}

	var existing []time.Time
	if err := db.Model(&models.ReminderLog{}).
		Where("reminder_id = ? AND scheduled_time >= ? AND scheduled_time <= ?", reminder.ID, instants[0], instants[len(instants)-1]).
		Pluck("scheduled_time", &existing).Error; err != nil {
		return 0, fmt.Errorf("failed to load existing logs: %w", err)
	}

	have := make(map[int64]bool, len(existing))
	for _, t := range existing {
		have[t.Unix()] = true
	}

	logs := make([]models.ReminderLog, 0, len(instants))
	for _, at := range instants {
		if !have[at.Unix()] {
			logs = append(logs, models.ReminderLog{
				ReminderID:    reminder.ID,
				ScheduledTime: at,
				Status:        models.LogPending,
			})
		}
	}
	if len(logs) == 0 {
		return 0, nil
	}

	// a concurrent generator may have inserted some of these in the meantime
	result := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&logs, 200)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to create logs: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

func notBefore(instants []time.Time, since time.Time) []time.Time {
	kept := instants[:0]
	for _, at := range instants {
		if !at.Before(since) {
			kept = append(kept, at)
		}
	}
	return kept
}

// TopUpAll generates logs over days for every active reminder
func (s *ReminderService) TopUpAll(days int) (int, error) {
	total := 0
	now := s.clock()

	var batch []models.Reminder
	result := s.db.Where("reminder.status = ?", models.ReminderActive).
		Preload("Times").
		FindInBatches(&batch, 100, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				created, err := s.generate(s.db, &batch[i], days, now)
				if err != nil {
					// one broken reminder must not stop the others
					log.Printf("Warning: failed to generate logs for reminder %d: %v", batch[i].ID, err)
					continue
				}
				total += created
			}
			return nil
		})
	if result.Error != nil {
		return total, fmt.Errorf("failed to load active reminders: %w", result.Error)
	}
	return total, nil
}

// ListLogs returns a reminder's logs, optionally filtered by status, sorted by scheduled time
func (s *ReminderService) ListLogs(userID, medicationID, reminderID uint, status, sortBy string) ([]models.ReminderLog, error) {
	if _, err := s.loadReminder(s.db, userID, medicationID, reminderID); err != nil {
		return nil, err
	}

	query := s.db.Where("reminder_id = ?", reminderID)

	if status != "" {
		if !models.LogStatus(status).Valid() {
			return nil, invalidField("status", "status must be one of pending, taken, skipped")
		}
		query = query.Where("status = ?", status)
	}

	switch sortBy {
	case SortScheduledAsc:
		query = query.Order("scheduled_time ASC, id ASC")
	case "", SortScheduledDesc:
		query = query.Order("scheduled_time DESC, id DESC")
	default:
		return nil, invalidField("sort", "sort must be scheduled_time or -scheduled_time")
	}

	var logs []models.ReminderLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return logs, nil
}

func (s *ReminderService) loadLog(userID, medicationID, reminderID, logID uint) (*models.ReminderLog, error) {
	if _, err := s.loadReminder(s.db, userID, medicationID, reminderID); err != nil {
		return nil, err
	}

	var log models.ReminderLog
	if err := s.db.Where("id = ? AND reminder_id = ?", logID, reminderID).First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load log: %w", err)
	}
	return &log, nil
}

func (s *ReminderService) GetLog(userID, medicationID, reminderID, logID uint) (*models.ReminderLog, error) {
	return s.loadLog(userID, medicationID, reminderID, logID)
}

// UpdateLog applies a status transition and/or new notes. taken_time is always set by the server.
func (s *ReminderService) UpdateLog(userID, medicationID, reminderID, logID uint, req models.UpdateLogRequest) (*models.ReminderLog, error) {
	log, err := s.loadLog(userID, medicationID, reminderID, logID)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, invalidField("status", "status must be one of pending, taken, skipped")
		}
		if err := log.Transition(*req.Status, s.clock()); err != nil {
			return nil, err
		}
	}
	if req.Notes != nil {
		log.Notes = req.Notes
	}

	if err := s.saveLog(s.db, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *ReminderService) saveLog(db *gorm.DB, log *models.ReminderLog) error {
	log.UpdatedAt = time.Now().UTC()
	if err := db.Model(log).
		Select("status", "taken_time", "notes", "snoozed_until", "notified_at", "updated_at").
		Updates(log).Error; err != nil {
		return fmt.Errorf("failed to update log: %w", err)
	}
	return nil
}

// dueLog finds the latest pending dose of a medication that has been (or is about to be) notified.
// lead widens "due" to doses notified ahead of their time.
func (s *ReminderService) dueLog(userID, medicationID uint, lead time.Duration) (*models.ReminderLog, error) {
	if _, err := s.loadMedication(userID, medicationID); err != nil {
		return nil, err
	}

	now := s.clock()
	var log models.ReminderLog
	err := s.db.Joins("JOIN reminder ON reminder.id = reminder_log.reminder_id").
		Where("reminder.medication_id = ? AND reminder_log.status = ?", medicationID, models.LogPending).
		Where("reminder_log.scheduled_time <= ? AND reminder_log.scheduled_time >= ?", now.Add(lead), now.Add(-s.staleAfter())).
		Order("reminder_log.scheduled_time DESC").
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNothingDue
		}
		return nil, fmt.Errorf("failed to find due dose: %w", err)
	}
	return &log, nil
}

func (s *ReminderService) staleAfter() time.Duration {
	if s.cfg.StaleAfter > 0 {
		return s.cfg.StaleAfter
	}
	return 2 * time.Hour
}

func (s *ReminderService) userLead(userID uint) time.Duration {
	settings := models.DefaultNotificationSettings(userID)
	s.db.Where("user_id = ?", userID).Limit(1).Find(&settings)
	return time.Duration(settings.LeadMinutes) * time.Minute
}

// MarkDoseTaken marks the medication's currently due dose taken (push notification "taken" action)
func (s *ReminderService) MarkDoseTaken(userID, medicationID uint) (*models.ReminderLog, error) {
	log, err := s.dueLog(userID, medicationID, s.userLead(userID))
	if err != nil {
		return nil, err
	}
	if err := log.Transition(models.LogTaken, s.clock()); err != nil {
		return nil, err
	}
	if err := s.saveLog(s.db, log); err != nil {
		return nil, err
	}
	return log, nil
}

// SnoozeDose postpones the notification of the currently due dose (push "remind later" action)
func (s *ReminderService) SnoozeDose(userID, medicationID uint) (*models.ReminderLog, error) {
	log, err := s.dueLog(userID, medicationID, s.userLead(userID))
	if err != nil {
		return nil, err
	}

	minutes := s.cfg.SnoozeMinutes
	if minutes <= 0 {
		minutes = 15
	}
	until := s.clock().Add(time.Duration(minutes) * time.Minute)
	log.SnoozedUntil = &until

	if err := s.saveLog(s.db, log); err != nil {
		return nil, err
	}
	return log, nil
}

// Doses lists the user's doses scheduled in [from, to) across all medications
func (s *ReminderService) Doses(userID uint, from, to time.Time, status models.LogStatus) ([]models.Dose, error) {
	query := s.db.Model(&models.ReminderLog{}).
		Select(`reminder_log.id, reminder_log.reminder_id, reminder.medication_id,
			medication.name AS medication_name, medication.dosage,
			reminder_log.scheduled_time, reminder_log.status, reminder_log.taken_time, reminder_log.notes`).
		Joins("JOIN reminder ON reminder.id = reminder_log.reminder_id").
		Joins("JOIN medication ON medication.id = reminder.medication_id").
		Where("medication.user_id = ? AND reminder_log.scheduled_time >= ? AND reminder_log.scheduled_time < ?",
			userID, from.UTC(), to.UTC())

	if status != "" {
		query = query.Where("reminder_log.status = ?", status)
	}

	doses := []models.Dose{}
	if err := query.Order("reminder_log.scheduled_time ASC, reminder_log.id ASC").Scan(&doses).Error; err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	return doses, nil
}

// Today lists the user's doses on the current calendar day
func (s *ReminderService) Today(userID uint) ([]models.Dose, error) {
	from, to := schedule.Window(s.clock(), 1, s.loc)
	return s.Doses(userID, from, to, "")
}

// Upcoming lists pending doses in the next hours
func (s *ReminderService) Upcoming(userID uint, hours int) ([]models.Dose, error) {
	if hours < 1 || hours > 24*schedule.MaxWindowDays {
		return nil, invalidField("hours", fmt.Sprintf("hours must be between 1 and %d", 24*schedule.MaxWindowDays))
	}
	now := s.clock()
	return s.Doses(userID, now, now.Add(time.Duration(hours)*time.Hour), models.LogPending)
}

// UpdateDose changes a log of the user without knowing its medication and reminder (used by tools)
func (s *ReminderService) UpdateDose(userID, logID uint, req models.UpdateLogRequest) (*models.ReminderLog, error) {
	var ref struct {
		ReminderID   uint
		MedicationID uint
	}
	err := s.db.Model(&models.ReminderLog{}).
		Select("reminder_log.reminder_id, reminder.medication_id").
		Joins("JOIN reminder ON reminder.id = reminder_log.reminder_id").
		Joins("JOIN medication ON medication.id = reminder.medication_id").
		Where("reminder_log.id = ? AND medication.user_id = ?", logID, userID).
		Take(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find log: %w", err)
	}
	return s.UpdateLog(userID, ref.MedicationID, ref.ReminderID, logID, req)
}

// GenerateForReminder runs generation for a reminder owned by the user, resolving its medication
func (s *ReminderService) GenerateForReminder(userID, reminderID uint, days int) (int, error) {
	var reminder models.Reminder
	err := s.db.Joins("JOIN medication ON medication.id = reminder.medication_id").
		Where("reminder.id = ? AND medication.user_id = ?", reminderID, userID).
		First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to load reminder: %w", err)
	}
	return s.GenerateLogs(userID, reminder.MedicationID, reminderID, days)
}
