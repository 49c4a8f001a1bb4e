package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"timeblock-planner/internal/model"
)

// ScheduleRuleRepository stores the recurring work-schedule rules.
type ScheduleRuleRepository struct {
	db *gorm.DB
}

func NewScheduleRuleRepository(db *gorm.DB) *ScheduleRuleRepository {
	return &ScheduleRuleRepository{db: db}
}

func (r *ScheduleRuleRepository) Rules(ctx context.Context) ([]model.ScheduleRule, error) {
	var rules []model.ScheduleRule
	if err := r.db.WithContext(ctx).Order("weekday ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Upsert sets the rule for a weekday, replacing any rules of other types so
// a weekday carries at most one stored type.
func (r *ScheduleRuleRepository) Upsert(ctx context.Context, weekday int, scheduleType string) (*model.ScheduleRule, error) {
	var rule model.ScheduleRule
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("weekday = ? AND type <> ?", weekday, scheduleType).
			Delete(&model.ScheduleRule{}).Error; err != nil {
			return fmt.Errorf("clear weekday rules: %w", err)
		}

		err := tx.Where("weekday = ? AND type = ?", weekday, scheduleType).First(&rule).Error
		switch {
		case err == nil:
			return nil
		case err == gorm.ErrRecordNotFound:
			rule = model.ScheduleRule{Weekday: time.Weekday(weekday), Type: scheduleType}
			if err := tx.Create(&rule).Error; err != nil {
				return fmt.Errorf("create rule: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("find rule: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ClearDay removes every rule for a weekday.
func (r *ScheduleRuleRepository) ClearDay(ctx context.Context, weekday int) error {
	if err := r.db.WithContext(ctx).Where("weekday = ?", weekday).
		Delete(&model.ScheduleRule{}).Error; err != nil {
		return fmt.Errorf("clear weekday rules: %w", err)
	}
	return nil
}
