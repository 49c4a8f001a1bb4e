package clock

import (
	"errors"
	"fmt"
	"time"
)

// DayFormat is the wire format for calendar days across all stores.
const DayFormat = "2006-01-02"

var (
	ErrInvalidTimeFormat = errors.New("invalid time, expected HH:MM")
	ErrNegativeDuration  = errors.New("end time must be after start time")
)

// ParseClock converts a zero-padded 24-hour "HH:MM" string into minutes since
// midnight. "24:00" is accepted as an end-of-day bound.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
	}

	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	if minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	return hour*60 + minute, nil
}

// Span is a duration split into whole hours and leftover minutes.
type Span struct {
	Hours   int
	Minutes int
}

// TotalMinutes returns the span flattened back to minutes.
func (s Span) TotalMinutes() int {
	return s.Hours*60 + s.Minutes
}

func (s Span) String() string {
	switch {
	case s.Hours == 0:
		return fmt.Sprintf("%dm", s.Minutes)
	case s.Minutes == 0:
		return fmt.Sprintf("%dh", s.Hours)
	default:
		return fmt.Sprintf("%dh %dm", s.Hours, s.Minutes)
	}
}

// Duration computes the wall-clock span between two same-day "HH:MM" times.
func Duration(start, end string) (Span, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return Span{}, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return Span{}, err
	}
	if endMin <= startMin {
		return Span{}, fmt.Errorf("%w: %s..%s", ErrNegativeDuration, start, end)
	}

	total := endMin - startMin
	return Span{Hours: total / 60, Minutes: total % 60}, nil
}

// OverlapsRange reports whether the block [blockStart, blockEnd) intersects
// the range [rangeStart, rangeEnd). Plain string comparison is valid because
// all inputs are fixed-width zero-padded 24h clock strings.
func OverlapsRange(blockStart, blockEnd, rangeStart, rangeEnd string) bool {
	return (blockStart >= rangeStart && blockStart < rangeEnd) ||
		(blockEnd > rangeStart && blockEnd <= rangeEnd) ||
		(blockStart <= rangeStart && blockEnd >= rangeEnd)
}

// SameDay reports whether two instants fall on the same calendar day,
// ignoring their time-of-day. Every day comparison in the planner goes
// through here (or DayKey) so time components never leak into day equality.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayKey formats an instant as its "YYYY-MM-DD" calendar day.
func DayKey(t time.Time) string {
	return t.Format(DayFormat)
}

// ParseDay parses a "YYYY-MM-DD" string into a midnight local time.
func ParseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(DayFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return day, nil
}

// Midnight truncates an instant to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns each calendar day in [start, end] inclusive.
func DaysBetween(start, end time.Time) []time.Time {
	first := Midnight(start)
	last := Midnight(end)

	var days []time.Time
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// TopOfHour formats the start of the hour containing t, e.g. "15:00".
func TopOfHour(t time.Time) string {
	return fmt.Sprintf("%02d:00", t.Hour())
}

// NextHour formats the start of the hour after t. At 23:xx this yields
// "24:00", the end-of-day bound.
func NextHour(t time.Time) string {
	return fmt.Sprintf("%02d:00", t.Hour()+1)
}
