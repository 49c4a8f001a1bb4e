package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"timeblock-planner/internal/clock"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleDaily registers a daily job at the given "HH:MM" time.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleInterval registers a job that runs every given number of hours.
func (s *SchedulerService) ScheduleInterval(hours int, job func()) (cron.EntryID, error) {
	spec, err := buildIntervalSpec(hours)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	minutes, err := clock.ParseClock(timeStr)
	if err != nil {
		return "", err
	}
	if minutes >= 24*60 {
		return "", fmt.Errorf("daily job time %q is out of range", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minutes%60, minutes/60), nil
}

func buildIntervalSpec(hours int) (string, error) {
	if hours <= 0 {
		return "", fmt.Errorf("interval must be positive, got %d", hours)
	}
	return fmt.Sprintf("@every %dh", hours), nil
}
