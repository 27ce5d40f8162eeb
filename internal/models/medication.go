package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Frequency represents how a reminder repeats
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// ReminderStatus represents whether a reminder still produces doses
type ReminderStatus string

const (
	ReminderActive    ReminderStatus = "active"
	ReminderPaused    ReminderStatus = "paused"
	ReminderCompleted ReminderStatus = "completed"
)

// Medication represents a drug the user takes
type Medication struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"-"`
	Name           string     `gorm:"size:200;not null" json:"name"`
	Dosage         string     `gorm:"size:100" json:"dosage"`
	Description    string     `gorm:"type:text" json:"description"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
	Reminders      []Reminder `gorm:"foreignKey:MedicationID;constraint:OnDelete:CASCADE" json:"reminders,omitempty"`
	RemindersCount int64      `gorm:"-" json:"reminders_count"`
}

// Reminder is a recurrence rule describing when a medication should be taken.
// StartDate and EndDate are calendar dates (YYYY-MM-DD) in the reminder timezone.
// ScheduleChangedAt is the last edit of the recurrence; no dose before it is generated.
type Reminder struct {
	ID                uint                     `gorm:"primaryKey;autoIncrement" json:"id"`
	MedicationID      uint                     `gorm:"not null;index" json:"medication"`
	Frequency         Frequency                `gorm:"size:10;not null" json:"frequency"`
	Status            ReminderStatus           `gorm:"size:10;not null;default:active;index" json:"status"`
	StartDate         string                   `gorm:"size:10;not null" json:"start_date"`
	EndDate           *string                  `gorm:"size:10" json:"end_date"`
	DaysOfWeek        datatypes.JSONSlice[int] `gorm:"type:json" json:"days_of_week"`
	Times             []ReminderTime           `gorm:"foreignKey:ReminderID;constraint:OnDelete:CASCADE" json:"times"`
	Logs              []ReminderLog            `gorm:"foreignKey:ReminderID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`
	CreatedAt         time.Time                `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                `gorm:"not null" json:"updated_at"`
	ScheduleChangedAt *time.Time               `json:"-"`
	Medication        *Medication              `gorm:"foreignKey:MedicationID" json:"-"`
}

// ReminderTime is one time-of-day (HH:MM) of a reminder
type ReminderTime struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ReminderID uint   `gorm:"not null;index" json:"-"`
	Time       string `gorm:"size:5;not null" json:"time"`
}

// TimeStrings returns the reminder's times-of-day in stored order
func (r *Reminder) TimeStrings() []string {
	times := make([]string, 0, len(r.Times))
	for _, t := range r.Times {
		times = append(times, t.Time)
	}
	return times
}

// IsActive reports whether the reminder may generate new logs
func (r *Reminder) IsActive() bool {
	return r.Status == ReminderActive
}

// BeforeCreate hook for medications
func (m *Medication) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	return nil
}

// BeforeCreate hook for reminders
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.Status == "" {
		r.Status = ReminderActive
	}
	if r.DaysOfWeek == nil {
		r.DaysOfWeek = datatypes.JSONSlice[int]{}
	}
	return nil
}

// MedicationRequest represents the data needed to create or replace a medication
type MedicationRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Dosage      string `json:"dosage" binding:"max=100"`
	Description string `json:"description"`
}

// MedicationPatch represents a partial medication update
type MedicationPatch struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Dosage      *string `json:"dosage" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

// ReminderRequest represents a reminder create/update body.
// On PATCH nil fields are left unchanged and an empty end_date clears it;
// on POST and PUT a nil end_date means the reminder never ends.
type ReminderRequest struct {
	Frequency  *Frequency      `json:"frequency"`
	Status     *ReminderStatus `json:"status"`
	StartDate  *string         `json:"start_date"`
	EndDate    *string         `json:"end_date"`
	Times      []string        `json:"times"`
	DaysOfWeek []int           `json:"days_of_week"`
}

// GenerateLogsRequest asks for logs over the next Days days
type GenerateLogsRequest struct {
	Days *int `json:"days"`
}
