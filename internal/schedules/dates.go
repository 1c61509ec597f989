package schedules

import (
	"fmt"
	"time"

	"github.com/dividify/dividify-backend/pkg/enums"
)

const (
	MinDayOfMonth = 1
	MaxDayOfMonth = 28
)

// ValidDayOfMonth reports whether day avoids month-end ambiguity.
func ValidDayOfMonth(day int) bool {
	return day >= MinDayOfMonth && day <= MaxDayOfMonth
}

// NextRunDate advances last by one period of freq and pins the day to dayOfMonth.
// Time of day and location of last are preserved.
func NextRunDate(freq enums.ScheduleFrequency, dayOfMonth int, last time.Time) (time.Time, error) {
	months := freq.Months()
	if months == 0 {
		return time.Time{}, fmt.Errorf("invalid schedule frequency %q", freq)
	}
	if !ValidDayOfMonth(dayOfMonth) {
		return time.Time{}, fmt.Errorf("day of month %d outside %d-%d", dayOfMonth, MinDayOfMonth, MaxDayOfMonth)
	}
	y, m, _ := last.Date()
	h, mi, s := last.Clock()
	return time.Date(y, m+time.Month(months), dayOfMonth, h, mi, s, last.Nanosecond(), last.Location()), nil
}

// FirstRunDate returns the earliest instant on or after start that falls on dayOfMonth, keeping start's time of day.
func FirstRunDate(dayOfMonth int, start time.Time) (time.Time, error) {
	if !ValidDayOfMonth(dayOfMonth) {
		return time.Time{}, fmt.Errorf("day of month %d outside %d-%d", dayOfMonth, MinDayOfMonth, MaxDayOfMonth)
	}
	y, m, _ := start.Date()
	h, mi, s := start.Clock()
	candidate := time.Date(y, m, dayOfMonth, h, mi, s, start.Nanosecond(), start.Location())
	if candidate.Before(start) {
		candidate = time.Date(y, m+1, dayOfMonth, h, mi, s, start.Nanosecond(), start.Location())
	}
	return candidate, nil
}

// NextRunAfter computes the next run from the day a run actually executed, keeping the time of day of the
// period it served. Periods missed while the schedule was overdue are skipped.
func NextRunAfter(freq enums.ScheduleFrequency, dayOfMonth int, scheduledFor, ranAt time.Time) (time.Time, error) {
	anchor := scheduledFor
	if ranAt.After(scheduledFor) {
		y, m, d := ranAt.In(scheduledFor.Location()).Date()
		h, mi, s := scheduledFor.Clock()
		anchor = time.Date(y, m, d, h, mi, s, scheduledFor.Nanosecond(), scheduledFor.Location())
	}
	return NextRunDate(freq, dayOfMonth, anchor)
}
