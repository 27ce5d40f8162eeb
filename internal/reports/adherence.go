// Package reports runs read-only aggregate queries over reminder logs
package reports

import (
	"context"
	"errors"
	"fmt"
	"pharmacist/internal/models"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

const (
	DefaultAdherenceDays = 30
	MaxAdherenceDays     = 365
)

var (
	ErrMedicationNotFound = errors.New("medication not found")
	ErrDays               = fmt.Errorf("days must be between 1 and %d", MaxAdherenceDays)
)

// Adherence summarises how a medication was taken over a period
type Adherence struct {
	MedicationID uint      `json:"medication"`
	Days         int       `json:"days"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Total        int       `json:"total"`
	Taken        int       `json:"taken"`
	Skipped      int       `json:"skipped"`
	Pending      int       `json:"pending"`
	// Rate is taken / (taken + skipped); nil until at least one dose was answered
	Rate *float64 `json:"adherence_rate"`
}

type statusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

type Reporter struct {
	db  *sqlx.DB
	sq  squirrel.StatementBuilderType
	now func() time.Time
}

// NewReporter builds queries for driver ("postgres" uses $n placeholders, anything else ?)
func NewReporter(db *sqlx.DB, driver string) *Reporter {
	var placeholder squirrel.PlaceholderFormat = squirrel.Question
	if driver == "postgres" {
		placeholder = squirrel.Dollar
	}
	return &Reporter{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		now: time.Now,
	}
}

// FromGorm shares the connection pool of an open gorm database
func FromGorm(gdb *gorm.DB) (*Reporter, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	driver := gdb.Dialector.Name()
	return NewReporter(sqlx.NewDb(sqlDB, driver), driver), nil
}

// Adherence counts the medication's doses scheduled in the last days days up to now
func (r *Reporter) Adherence(ctx context.Context, userID, medicationID uint, days int) (*Adherence, error) {
	if days == 0 {
		days = DefaultAdherenceDays
	}
	if days < 1 || days > MaxAdherenceDays {
		return nil, ErrDays
	}

	owned, args, err := r.sq.Select("COUNT(*)").
		From("medication").
		Where(squirrel.Eq{"id": medicationID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var found int
	if err := r.db.GetContext(ctx, &found, owned, args...); err != nil {
		return nil, fmt.Errorf("failed to load medication: %w", err)
	}
	if found == 0 {
		return nil, ErrMedicationNotFound
	}

	to := r.now().UTC().Truncate(time.Second)
	from := to.AddDate(0, 0, -days)

	query, args, err := r.sq.Select("reminder_log.status AS status", "COUNT(*) AS count").
		From("reminder_log").
		Join("reminder ON reminder.id = reminder_log.reminder_id").
		Where(squirrel.Eq{"reminder.medication_id": medicationID}).
		Where(squirrel.GtOrEq{"reminder_log.scheduled_time": from}).
		Where(squirrel.LtOrEq{"reminder_log.scheduled_time": to}).
		GroupBy("reminder_log.status").
		ToSql()
	if err != nil {
		return nil, err
	}

	var counts []statusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count logs: %w", err)
	}

	report := &Adherence{MedicationID: medicationID, Days: days, From: from, To: to}
	for _, c := range counts {
		switch models.LogStatus(c.Status) {
		case models.LogTaken:
			report.Taken = c.Count
		case models.LogSkipped:
			report.Skipped = c.Count
		case models.LogPending:
			report.Pending = c.Count
		}
		report.Total += c.Count
	}
	if answered := report.Taken + report.Skipped; answered > 0 {
		rate := float64(report.Taken) / float64(answered)
		report.Rate = &rate
	}

	return report, nil
}
