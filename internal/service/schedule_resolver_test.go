package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeblock-planner/internal/clock"
	"timeblock-planner/internal/model"
)

type fakeRules struct {
	rules []model.ScheduleRule
	err   error
}

func (f *fakeRules) Rules(ctx context.Context) ([]model.ScheduleRule, error) {
	return f.rules, f.err
}

// 2025-01-06 is a Monday.
var monday = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.Local)

func TestResolveSinglePrecedence(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(&fakeRules{rules: []model.ScheduleRule{
		{Weekday: time.Monday, Type: model.ScheduleMorning},
		{Weekday: time.Monday, Type: model.ScheduleFull},
	}})

	workDay, err := resolver.ResolveSingle(context.Background(), monday)
	require.NoError(t, err)
	require.NotNil(t, workDay)
	assert.Equal(t, model.ScheduleFull, workDay.Type, "full wins over morning")
	assert.Equal(t, "07:00", workDay.StartTime)
	assert.Equal(t, "19:00", workDay.EndTime)
}

func TestResolveSingleBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheduleType string
		start, end   string
	}{
		{model.ScheduleFull, "07:00", "19:00"},
		{model.ScheduleMorning, "07:00", "13:00"},
		{model.ScheduleAfternoon, "13:00", "19:00"},
	}
	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.scheduleType, func(t *testing.T) {
			t.Parallel()

			resolver := NewScheduleResolver(&fakeRules{rules: []model.ScheduleRule{
				{Weekday: time.Monday, Type: testCase.scheduleType},
			}})

			workDay, err := resolver.ResolveSingle(context.Background(), monday)
			require.NoError(t, err)
			require.NotNil(t, workDay)
			assert.Equal(t, testCase.scheduleType, workDay.Type)
			assert.Equal(t, testCase.start, workDay.StartTime)
			assert.Equal(t, testCase.end, workDay.EndTime)
		})
	}
}

func TestResolveSingleNoRule(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(&fakeRules{rules: []model.ScheduleRule{
		{Weekday: time.Tuesday, Type: model.ScheduleFull},
	}})

	workDay, err := resolver.ResolveSingle(context.Background(), monday)
	require.NoError(t, err)
	assert.Nil(t, workDay, "days without a rule are omitted, not emitted as none")
}

func TestResolveRangeOmitsUnruledDays(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(&fakeRules{rules: []model.ScheduleRule{
		{Weekday: time.Monday, Type: model.ScheduleFull},
		{Weekday: time.Wednesday, Type: model.ScheduleAfternoon},
	}})

	// Monday through Sunday.
	days, err := resolver.ResolveRange(context.Background(), monday, monday.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-01-06", clock.DayKey(days[0].Date))
	assert.Equal(t, model.ScheduleFull, days[0].Type)
	assert.Equal(t, "2025-01-08", clock.DayKey(days[1].Date))
	assert.Equal(t, model.ScheduleAfternoon, days[1].Type)
}

func TestResolveRangeInvalidRange(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(&fakeRules{})

	_, err := resolver.ResolveRange(context.Background(), monday.AddDate(0, 0, 1), monday)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestResolveRangeIgnoresTimeOfDayInRangeCheck(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(&fakeRules{})

	// Same calendar day, start's time-of-day later than end's.
	lateStart := monday.Add(23 * time.Hour)
	earlyEnd := monday.Add(1 * time.Hour)
	_, err := resolver.ResolveRange(context.Background(), lateStart, earlyEnd)
	require.NoError(t, err)
}

func TestResolveRangeScheduleUnavailable(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(&fakeRules{err: errors.New("store down")})

	_, err := resolver.ResolveRange(context.Background(), monday, monday)
	require.ErrorIs(t, err, ErrScheduleUnavailable)
}
