package services

import (
	"errors"
	"fmt"
	"pharmacist/internal/config"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"pharmacist/internal/schedule"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReminderService manages reminders and the logs generated from them
type ReminderService struct {
	db  *gorm.DB
	cfg config.ReminderConfig
	loc *time.Location
	now func() time.Time
}

func NewReminderService(cfg *config.Config) *ReminderService {
	return &ReminderService{
		db:  database.GetDB(),
		cfg: cfg.Reminder,
		loc: cfg.Location(),
		now: time.Now,
	}
}

// clock returns the current instant in UTC at second precision, the form every timestamp is stored in
func (s *ReminderService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *ReminderService) loadMedication(userID, medicationID uint) (*models.Medication, error) {
	var medication models.Medication
	if err := s.db.Where("id = ? AND user_id = ?", medicationID, userID).First(&medication).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load medication: %w", err)
	}
	return &medication, nil
}

func (s *ReminderService) loadReminder(db *gorm.DB, userID, medicationID, reminderID uint) (*models.Reminder, error) {
	var reminder models.Reminder
	err := db.Joins("JOIN medication ON medication.id = reminder.medication_id").
		Where("reminder.id = ? AND reminder.medication_id = ? AND medication.user_id = ?", reminderID, medicationID, userID).
		Preload("Times", func(db *gorm.DB) *gorm.DB { return db.Order("time") }).
		First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load reminder: %w", err)
	}
	return &reminder, nil
}

func (s *ReminderService) ListReminders(userID, medicationID uint) ([]models.Reminder, error) {
	if _, err := s.loadMedication(userID, medicationID); err != nil {
		return nil, err
	}

	var reminders []models.Reminder
	if err := s.db.Where("medication_id = ?", medicationID).
		Preload("Times", func(db *gorm.DB) *gorm.DB { return db.Order("time") }).
		Order("id").
		Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

func (s *ReminderService) GetReminder(userID, medicationID, reminderID uint) (*models.Reminder, error) {
	return s.loadReminder(s.db, userID, medicationID, reminderID)
}

func (s *ReminderService) CreateReminder(userID, medicationID uint, req models.ReminderRequest) (*models.Reminder, error) {
	if _, err := s.loadMedication(userID, medicationID); err != nil {
		return nil, err
	}

	reminder := models.Reminder{MedicationID: medicationID}
	if err := s.applyRequest(&reminder, req, false); err != nil {
		return nil, err
	}

	if err := s.db.Create(&reminder).Error; err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return &reminder, nil
}

// UpdateReminder replaces (partial=false, PUT) or patches (partial=true, PATCH) a reminder.
// Changing the schedule discards pending logs that have not happened yet, and generation
// never backfills doses earlier than the edit.
func (s *ReminderService) UpdateReminder(userID, medicationID, reminderID uint, req models.ReminderRequest, partial bool) (*models.Reminder, error) {
	reminder, err := s.loadReminder(s.db, userID, medicationID, reminderID)
	if err != nil {
		return nil, err
	}

	before := scheduleKey(reminder)
	beforeTimes := strings.Join(reminder.TimeStrings(), ",")

	if err := s.applyRequest(reminder, req, partial); err != nil {
		return nil, err
	}
	timesChanged := strings.Join(reminder.TimeStrings(), ",") != beforeTimes
	scheduleChanged := scheduleKey(reminder) != before

	if scheduleChanged {
		changedAt := s.clock()
		reminder.ScheduleChangedAt = &changedAt
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		reminder.UpdatedAt = time.Now().UTC()
		if err := tx.Omit(clause.Associations).Save(reminder).Error; err != nil {
			return fmt.Errorf("failed to save reminder: %w", err)
		}

		if timesChanged {
			if err := tx.Where("reminder_id = ?", reminder.ID).Delete(&models.ReminderTime{}).Error; err != nil {
				return fmt.Errorf("failed to replace reminder times: %w", err)
			}
			for i := range reminder.Times {
				reminder.Times[i].ID = 0
				reminder.Times[i].ReminderID = reminder.ID
			}
			if err := tx.Create(&reminder.Times).Error; err != nil {
				return fmt.Errorf("failed to replace reminder times: %w", err)
			}
		}

		if scheduleChanged {
			future := tx.Model(&models.ReminderLog{}).Select("id").
				Where("reminder_id = ? AND status = ? AND scheduled_time > ?", reminder.ID, models.LogPending, s.clock())
			if err := tx.Where("log_id IN (?)", future).Delete(&models.NotificationLog{}).Error; err != nil {
				return fmt.Errorf("failed to discard notification logs: %w", err)
			}
			if err := tx.Where("reminder_id = ? AND status = ? AND scheduled_time > ?", reminder.ID, models.LogPending, s.clock()).
				Delete(&models.ReminderLog{}).Error; err != nil {
				return fmt.Errorf("failed to discard future logs: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reminder, nil
}

func (s *ReminderService) DeleteReminder(userID, medicationID, reminderID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		reminder, err := s.loadReminder(tx, userID, medicationID, reminderID)
		if err != nil {
			return err
		}

		ids := tx.Model(&models.Reminder{}).Select("id").Where("id = ?", reminder.ID)
		if err := deleteReminderChildren(tx, ids); err != nil {
			return err
		}
		if err := tx.Delete(&models.Reminder{}, reminder.ID).Error; err != nil {
			return fmt.Errorf("failed to delete reminder: %w", err)
		}
		return nil
	})
}

// applyRequest copies a request onto r and validates the resulting rule.
// For full updates missing fields fall back to their defaults; start_date defaults to today.
func (s *ReminderService) applyRequest(r *models.Reminder, req models.ReminderRequest, partial bool) error {
	if req.Frequency != nil {
		r.Frequency = *req.Frequency
	} else if !partial {
		return invalidField("frequency", "frequency is required")
	}

	if req.Status != nil {
		r.Status = *req.Status
	} else if !partial {
		r.Status = models.ReminderActive
	}

	if req.StartDate != nil {
		r.StartDate = strings.TrimSpace(*req.StartDate)
	} else if !partial {
		r.StartDate = s.clock().In(s.loc).Format(schedule.DateLayout)
	}

	if req.EndDate != nil {
		if end := strings.TrimSpace(*req.EndDate); end != "" {
			r.EndDate = &end
		} else {
			r.EndDate = nil
		}
	} else if !partial {
		r.EndDate = nil
	}

	if req.DaysOfWeek != nil || !partial {
		r.DaysOfWeek = uniqueDays(req.DaysOfWeek)
	}

	if req.Times != nil || !partial {
		times, err := schedule.NormalizeTimes(req.Times)
		if err != nil {
			return asValidation(err)
		}
		r.Times = make([]models.ReminderTime, len(times))
		for i, t := range times {
			r.Times[i] = models.ReminderTime{ReminderID: r.ID, Time: t}
		}
	}

	if _, err := schedule.FromReminder(r, s.loc); err != nil {
		return asValidation(err)
	}
	return nil
}

func uniqueDays(days []int) datatypes.JSONSlice[int] {
	seen := make(map[int]bool, len(days))
	out := datatypes.JSONSlice[int]{}
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// scheduleKey captures every field that affects which doses a reminder produces
func scheduleKey(r *models.Reminder) string {
	end := ""
	if r.EndDate != nil {
		end = *r.EndDate
	}
	return fmt.Sprintf("%s|%s|%s|%v|%s", r.Frequency, r.StartDate, end, []int(r.DaysOfWeek), strings.Join(r.TimeStrings(), ","))
}
