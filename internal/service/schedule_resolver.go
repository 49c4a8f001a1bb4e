package service

import (
	"context"
	"fmt"
	"time"

	"timeblock-planner/internal/clock"
	"timeblock-planner/internal/model"
)

// ScheduleResolver projects the recurring weekday rules onto concrete dates.
// It is a pure projection over the rule source: idempotent, no side effects.
type ScheduleResolver struct {
	rules ScheduleRuleSource
}

func NewScheduleResolver(rules ScheduleRuleSource) *ScheduleResolver {
	return &ScheduleResolver{rules: rules}
}

// ResolveRange returns one WorkDay per day in [start, end] inclusive that has
// a matching rule; days without a rule are omitted. A day matched by more
// than one rule set resolves with precedence full > morning > afternoon.
func (r *ScheduleResolver) ResolveRange(ctx context.Context, start, end time.Time) ([]model.WorkDay, error) {
	if clock.Midnight(start).After(clock.Midnight(end)) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, clock.DayKey(start), clock.DayKey(end))
	}

	rules, err := r.rules.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleUnavailable, err)
	}

	byType := map[string]map[time.Weekday]bool{
		model.ScheduleFull:      {},
		model.ScheduleMorning:   {},
		model.ScheduleAfternoon: {},
	}
	for _, rule := range rules {
		if set, ok := byType[rule.Type]; ok {
			set[rule.Weekday] = true
		}
	}

	var days []model.WorkDay
	for _, day := range clock.DaysBetween(start, end) {
		weekday := day.Weekday()

		var scheduleType string
		switch {
		case byType[model.ScheduleFull][weekday]:
			scheduleType = model.ScheduleFull
		case byType[model.ScheduleMorning][weekday]:
			scheduleType = model.ScheduleMorning
		case byType[model.ScheduleAfternoon][weekday]:
			scheduleType = model.ScheduleAfternoon
		default:
			continue
		}

		startTime, endTime := model.ScheduleBounds(scheduleType)
		days = append(days, model.WorkDay{
			Date:      day,
			Type:      scheduleType,
			StartTime: startTime,
			EndTime:   endTime,
		})
	}

	return days, nil
}

// ResolveSingle reduces ResolveRange over one date to zero-or-one WorkDay.
func (r *ScheduleResolver) ResolveSingle(ctx context.Context, date time.Time) (*model.WorkDay, error) {
	days, err := r.ResolveRange(ctx, date, date)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, nil
	}
	return &days[0], nil
}
