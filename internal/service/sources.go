package service

import (
	"context"

	"timeblock-planner/internal/model"
)

// The planner never owns authoritative state; it pulls request-scoped copies
// from these stores and issues explicit writes. The gorm repositories satisfy
// them in production, fakes in tests.

type TaskSource interface {
	Fetch(ctx context.Context) ([]model.Task, error)
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) (*model.Task, error)
}

type TimeBlockSource interface {
	FetchRange(ctx context.Context, start, end string) ([]model.TimeBlock, error)
	FetchAll(ctx context.Context) ([]model.TimeBlock, error)
	FindByID(ctx context.Context, id uint) (*model.TimeBlock, error)
	Create(ctx context.Context, block *model.TimeBlock) error
	Update(ctx context.Context, block *model.TimeBlock) (*model.TimeBlock, error)
	Delete(ctx context.Context, id uint) error
}

type ScheduleRuleSource interface {
	Rules(ctx context.Context) ([]model.ScheduleRule, error)
}

type CategorySource interface {
	List(ctx context.Context) ([]model.Category, error)
}
