package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// LogStatus is the consumption status of one scheduled dose
type LogStatus string

const (
	LogPending LogStatus = "pending"
	LogTaken   LogStatus = "taken"
	LogSkipped LogStatus = "skipped"
)

// ErrInvalidTransition is returned when a log cannot move to the requested status
var ErrInvalidTransition = errors.New("invalid status transition")

// ReminderLog is one concrete, dated, timed dose instance of a reminder.
// (reminder_id, scheduled_time) is unique so generation can never duplicate a dose.
type ReminderLog struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ReminderID    uint       `gorm:"not null;uniqueIndex:idx_reminder_log_slot,priority:1" json:"reminder"`
	ScheduledTime time.Time  `gorm:"not null;uniqueIndex:idx_reminder_log_slot,priority:2;index" json:"scheduled_time"`
	Status        LogStatus  `gorm:"size:10;not null;default:pending;index" json:"status"`
	TakenTime     *time.Time `json:"taken_time"`
	Notes         *string    `gorm:"type:text" json:"notes"`
	NotifiedAt    *time.Time `gorm:"index" json:"-"`
	SnoozedUntil  *time.Time `gorm:"index" json:"snoozed_until,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
	Reminder      *Reminder  `gorm:"foreignKey:ReminderID" json:"-"`
}

// BeforeCreate hook for logs
func (l *ReminderLog) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
	if l.Status == "" {
		l.Status = LogPending
	}
	l.ScheduledTime = l.ScheduledTime.UTC()
	return nil
}

// Transition moves the log to the requested status.
// pending -> taken sets TakenTime, pending -> skipped, taken|skipped -> pending clears TakenTime.
// Requesting the current status is a no-op; taken <-> skipped is rejected.
func (l *ReminderLog) Transition(to LogStatus, now time.Time) error {
	if !to.Valid() {
		return ErrInvalidTransition
	}
	if l.Status == to {
		return nil
	}

	switch {
	case l.Status == LogPending && to == LogTaken:
		taken := now.UTC()
		l.TakenTime = &taken
	case l.Status == LogPending && to == LogSkipped:
		l.TakenTime = nil
	case to == LogPending:
		l.TakenTime = nil
	default:
		return ErrInvalidTransition
	}

	l.Status = to
	l.SnoozedUntil = nil
	return nil
}

// Valid reports whether s is a known log status
func (s LogStatus) Valid() bool {
	switch s {
	case LogPending, LogTaken, LogSkipped:
		return true
	}
	return false
}

// UpdateLogRequest represents a log PATCH body. Both fields are optional.
type UpdateLogRequest struct {
	Status *LogStatus `json:"status"`
	Notes  *string    `json:"notes"`
}

// Dose is a log joined with its medication, used for cross-medication listings
type Dose struct {
	ID             uint       `json:"id"`
	ReminderID     uint       `json:"reminder"`
	MedicationID   uint       `json:"medication"`
	MedicationName string     `json:"medication_name"`
	Dosage         string     `json:"dosage"`
	ScheduledTime  time.Time  `json:"scheduled_time"`
	Status         LogStatus  `json:"status"`
	TakenTime      *time.Time `json:"taken_time"`
	Notes          *string    `json:"notes"`
}
