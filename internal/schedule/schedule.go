// Package schedule expands a reminder's recurrence rule into concrete dose instants.
// It does no I/O; persisting the instants as logs is the services package's job.
package schedule

import (
	"errors"
	"fmt"
	"pharmacist/internal/models"
	"sort"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// MaxWindowDays bounds how far ahead logs may be generated in one call
	MaxWindowDays = 30
)

var ErrWindow = fmt.Errorf("days must be between 1 and %d", MaxWindowDays)

// ValidationError reports a rule field that cannot be used
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Clock is a time of day
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock accepts HH:MM, and HH:MM:SS with zero seconds as some clients send it
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
		if err != nil || t.Second() != 0 {
			return Clock{}, invalid("times", "%q is not a valid HH:MM time", s)
		}
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// NormalizeTimes validates, deduplicates and sorts times of day
func NormalizeTimes(times []string) ([]string, error) {
	if len(times) == 0 {
		return nil, invalid("times", "at least one time is required")
	}

	seen := make(map[Clock]bool, len(times))
	clocks := make([]Clock, 0, len(times))
	for _, s := range times {
		c, err := ParseClock(s)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			clocks = append(clocks, c)
		}
	}
	sortClocks(clocks)

	out := make([]string, len(clocks))
	for i, c := range clocks {
		out[i] = c.String()
	}
	return out, nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a valid YYYY-MM-DD date", s)
	}
	return t, nil
}

// PersianWeekday numbers days the way the frontend does: 0 = Saturday ... 6 = Friday
func PersianWeekday(t time.Time) int {
	return (int(t.Weekday()) + 1) % 7
}

// Rule is the recurrence definition of a reminder, resolved against a timezone
type Rule struct {
	Frequency  models.Frequency
	Start      time.Time  // midnight of the first day
	End        *time.Time // midnight of the last day, nil for open-ended
	DaysOfWeek map[int]bool
	Times      []Clock
	Active     bool
}

// FromReminder builds and validates the rule of a stored or requested reminder
func FromReminder(r *models.Reminder, loc *time.Location) (Rule, error) {
	rule := Rule{
		Frequency:  r.Frequency,
		DaysOfWeek: make(map[int]bool, len(r.DaysOfWeek)),
		Active:     r.IsActive(),
	}

	switch r.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyCustom:
	default:
		return Rule{}, invalid("frequency", "must be one of daily, weekly, monthly, custom")
	}

	switch r.Status {
	case models.ReminderActive, models.ReminderPaused, models.ReminderCompleted:
	default:
		return Rule{}, invalid("status", "must be one of active, paused, completed")
	}

	start, err := ParseDate(r.StartDate, loc)
	if err != nil {
		return Rule{}, invalid("start_date", "%s", err.Error())
	}
	rule.Start = start

	if r.EndDate != nil && *r.EndDate != "" {
		end, err := ParseDate(*r.EndDate, loc)
		if err != nil {
			return Rule{}, invalid("end_date", "%s", err.Error())
		}
		if end.Before(start) {
			return Rule{}, invalid("end_date", "must not be before start_date")
		}
		rule.End = &end
	}

	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return Rule{}, invalid("days_of_week", "%d is not a day between 0 and 6", d)
		}
		rule.DaysOfWeek[d] = true
	}
	if rule.needsDays() && len(rule.DaysOfWeek) == 0 {
		return Rule{}, invalid("days_of_week", "at least one day is required for %s reminders", r.Frequency)
	}

	if len(r.Times) == 0 {
		return Rule{}, invalid("times", "at least one time is required")
	}
	seen := make(map[Clock]bool, len(r.Times))
	for _, t := range r.Times {
		c, err := ParseClock(t.Time)
		if err != nil {
			return Rule{}, err
		}
		if !seen[c] {
			seen[c] = true
			rule.Times = append(rule.Times, c)
		}
	}
	sortClocks(rule.Times)

	return rule, nil
}

func (r Rule) needsDays() bool {
	return r.Frequency == models.FrequencyWeekly || r.Frequency == models.FrequencyCustom
}

// OccursOn reports whether the rule has doses on the calendar day of day
func (r Rule) OccursOn(day time.Time) bool {
	day = midnight(day)
	if day.Before(r.Start) {
		return false
	}
	if r.End != nil && day.After(*r.End) {
		return false
	}

	switch r.Frequency {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekly, models.FrequencyCustom:
		return r.DaysOfWeek[PersianWeekday(day)]
	case models.FrequencyMonthly:
		want := r.Start.Day()
		if last := daysIn(day.Year(), day.Month(), day.Location()); want > last {
			want = last
		}
		return day.Day() == want
	}
	return false
}

// Expand returns every dose instant on the days today ... today+days-1 (calendar days in loc),
// in UTC and ascending order. Inactive rules produce nothing.
func Expand(rule Rule, today time.Time, days int, loc *time.Location) ([]time.Time, error) {
	if days < 1 || days > MaxWindowDays {
		return nil, ErrWindow
	}
	if !rule.Active {
		return nil, nil
	}

	first := midnight(today.In(loc))
	var instants []time.Time
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		if !rule.OccursOn(day) {
			continue
		}
		for _, c := range rule.Times {
			at := time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc)
			instants = append(instants, at.UTC())
		}
	}
	return instants, nil
}

// Window returns the [from, to) instants covering days calendar days starting at today's midnight in loc
func Window(today time.Time, days int, loc *time.Location) (time.Time, time.Time) {
	from := midnight(today.In(loc))
	return from.UTC(), from.AddDate(0, 0, days).UTC()
}

// IsScheduleError reports whether err came from rule validation
func IsScheduleError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrWindow)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func sortClocks(clocks []Clock) {
	sort.Slice(clocks, func(i, j int) bool {
		if clocks[i].Hour != clocks[j].Hour {
			return clocks[i].Hour < clocks[j].Hour
		}
		return clocks[i].Minute < clocks[j].Minute
	})
}
