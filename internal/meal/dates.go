package meal

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date key format used everywhere: local calendar day.
const DateLayout = "2006-01-02"

// DateKey formats t as a local YYYY-MM-DD key.
func DateKey(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// DateOnly drops any time-of-day suffix ("2026-02-20T18:30:00Z" -> "2026-02-20").
func DateOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// ParseDate parses a date key as local midnight.
func ParseDate(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, DateOnly(key), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", key, err)
	}
	return t, nil
}

func ValidDate(key string) bool {
	_, err := time.ParseInLocation(DateLayout, key, time.Local)
	return err == nil
}

// Midnight returns local midnight of t's calendar day.
func Midnight(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// IsPast reports whether key is strictly before now's local calendar day.
func IsPast(key string, now time.Time) bool {
	d, err := ParseDate(key)
	if err != nil {
		return false
	}
	return d.Before(Midnight(now))
}

// AddDays shifts a date key by n calendar days.
func AddDays(key string, n int) (string, error) {
	d, err := ParseDate(key)
	if err != nil {
		return "", err
	}
	return DateKey(d.AddDate(0, 0, n)), nil
}

// MonthDates lists every date key of the given month.
func MonthDates(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	out := make([]string, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		out = append(out, DateKey(d))
	}
	return out
}
