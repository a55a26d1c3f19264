package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadReportTime = errors.New("invalid report time")
	ErrBadTimezone   = errors.New("invalid timezone")
)

// ParseReportTime parses a 24-hour "HH:MM" string into hour and minute.
func ParseReportTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected HH:MM, got %q", ErrBadReportTime, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", ErrBadReportTime, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", ErrBadReportTime, s)
	}
	return hour, minute, nil
}

// FormatReportTime renders hour and minute as "HH:MM".
func FormatReportTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// LoadTimezone resolves an IANA zone name.
func LoadTimezone(tz string) (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(tz))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadTimezone, tz)
	}
	return loc, nil
}

// DayOf truncates t to midnight of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayWindow returns the inclusive [00:00:00.000, 23:59:59.999] bounds of the
// calendar day starting at day. The caller passes a midnight in the desired
// location.
func DayWindow(day time.Time) (start, end time.Time) {
	start = day
	end = day.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// DateLabel renders a day as "02.01.2006" for user-facing texts.
func DateLabel(day time.Time) string {
	return day.Format("02.01.2006")
}
