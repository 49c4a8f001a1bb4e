package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"timeblock-planner/internal/clock"
	"timeblock-planner/internal/model"
)

// DateSet is a set of calendar days. Membership ignores time-of-day: two
// instants on the same day are the same element.
type DateSet map[string]struct{}

func (s DateSet) Add(t time.Time) {
	s[clock.DayKey(t)] = struct{}{}
}

func (s DateSet) Contains(t time.Time) bool {
	_, ok := s[clock.DayKey(t)]
	return ok
}

func (s DateSet) Len() int {
	return len(s)
}

// Days returns the member days as sorted "YYYY-MM-DD" keys.
func (s DateSet) Days() []string {
	days := make([]string, 0, len(s))
	for day := range s {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// ModifierSet is the per-range calendar highlight projection. Read-side only,
// never persisted. Morning and afternoon sets are precedence-resolved by the
// schedule resolver and are mutually exclusive with full-day on a given date.
type ModifierSet struct {
	HasTasks               DateSet
	HasHighPriorityTasks   DateSet
	HasMediumPriorityTasks DateSet
	HasLowPriorityTasks    DateSet
	FullDaySchedule        DateSet
	MorningSchedule        DateSet
	AfternoonSchedule      DateSet
}

func newModifierSet() ModifierSet {
	return ModifierSet{
		HasTasks:               DateSet{},
		HasHighPriorityTasks:   DateSet{},
		HasMediumPriorityTasks: DateSet{},
		HasLowPriorityTasks:    DateSet{},
		FullDaySchedule:        DateSet{},
		MorningSchedule:        DateSet{},
		AfternoonSchedule:      DateSet{},
	}
}

// ModifierAggregator builds calendar highlight data for a date range.
type ModifierAggregator struct {
	schedule *ScheduleResolver
}

func NewModifierAggregator(schedule *ScheduleResolver) *ModifierAggregator {
	return &ModifierAggregator{schedule: schedule}
}

// Aggregate walks each day in [start, end] once, classifying it by the tasks
// the lookup returns and by its resolved work schedule. An unavailable
// schedule source degrades to empty schedule sets; it never fails the caller.
func (a *ModifierAggregator) Aggregate(ctx context.Context, start, end time.Time, tasksByDay func(time.Time) []model.Task) (ModifierSet, error) {
	set := newModifierSet()

	workDays, err := a.schedule.ResolveRange(ctx, start, end)
	switch {
	case err == nil:
	case errors.Is(err, ErrScheduleUnavailable):
		workDays = nil
	default:
		return set, err
	}

	workDayByKey := make(map[string]model.WorkDay, len(workDays))
	for _, workDay := range workDays {
		workDayByKey[clock.DayKey(workDay.Date)] = workDay
	}

	for _, day := range clock.DaysBetween(start, end) {
		tasks := tasksByDay(day)
		if len(tasks) > 0 {
			set.HasTasks.Add(day)

			var high, medium, low bool
			for _, task := range tasks {
				if task.Priority == nil {
					continue
				}
				switch *task.Priority {
				case model.PriorityHigh:
					high = true
				case model.PriorityMedium:
					medium = true
				case model.PriorityLow:
					low = true
				}
			}
			if high {
				set.HasHighPriorityTasks.Add(day)
			}
			if medium {
				set.HasMediumPriorityTasks.Add(day)
			}
			if low {
				set.HasLowPriorityTasks.Add(day)
			}
		}

		workDay, ok := workDayByKey[clock.DayKey(day)]
		if !ok {
			continue
		}
		switch workDay.Type {
		case model.ScheduleFull:
			set.FullDaySchedule.Add(day)
		case model.ScheduleMorning:
			set.MorningSchedule.Add(day)
		case model.ScheduleAfternoon:
			set.AfternoonSchedule.Add(day)
		}
	}

	return set, nil
}
