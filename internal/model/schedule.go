package model

import "time"

// Work schedule types, in precedence order: a day matched by more than one
// rule resolves to full before morning before afternoon.
const (
	ScheduleFull      = "full"
	ScheduleMorning   = "morning"
	ScheduleAfternoon = "afternoon"
)

// Resolved working-hour bounds per schedule type.
const (
	fullStart      = "07:00"
	fullEnd        = "19:00"
	morningEnd     = "13:00"
	afternoonStart = "13:00"
)

// ScheduleBounds returns the start and end times for a schedule type.
func ScheduleBounds(scheduleType string) (start, end string) {
	switch scheduleType {
	case ScheduleMorning:
		return fullStart, morningEnd
	case ScheduleAfternoon:
		return afternoonStart, fullEnd
	default:
		return fullStart, fullEnd
	}
}

// ScheduleRule marks a weekday as recurring working time of a given type.
type ScheduleRule struct {
	ID        uint         `gorm:"primaryKey"`
	Weekday   time.Weekday `gorm:"index:idx_weekday_type,unique"`
	Type      string       `gorm:"index:idx_weekday_type,unique"` // full, morning, afternoon
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkDay is the resolved schedule for a single date. Derived, never
// persisted; a date has at most one WorkDay.
type WorkDay struct {
	Date      time.Time
	Type      string
	StartTime string
	EndTime   string
}
