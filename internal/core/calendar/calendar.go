// Package calendar handles ISO calendar days (YYYY-MM-DD) in UTC.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the ISO calendar-day layout used in transcripts.
const Layout = "2006-01-02"

// Parse reads an ISO calendar day.
func Parse(value string) (time.Time, error) {
	day, err := time.ParseInLocation(Layout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return day, nil
}

// MustParse is Parse for static catalogue data; it panics on error.
func MustParse(value string) time.Time {
	day, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return day
}

// Format writes day as an ISO calendar day.
func Format(day time.Time) string {
	return day.UTC().Format(Layout)
}

// AddDays shifts day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	start = Truncate(start)
	end = Truncate(end)
	return int(end.Sub(start).Hours() / 24)
}

// Truncate drops the time-of-day part of t.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Within reports whether day falls on a (month, day) range inclusive, ignoring
// the year.
func Within(day time.Time, fromMonth time.Month, fromDay int, toMonth time.Month, toDay int) bool {
	key := int(day.Month())*100 + day.Day()
	from := int(fromMonth)*100 + fromDay
	to := int(toMonth)*100 + toDay
	if from <= to {
		return key >= from && key <= to
	}
	return key >= from || key <= to
}
