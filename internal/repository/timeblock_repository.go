package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"timeblock-planner/internal/model"
)

// TimeBlockRepository handles CRUD for time blocks and their ordered task
// link rows.
type TimeBlockRepository struct {
	db *gorm.DB
}

func NewTimeBlockRepository(db *gorm.DB) *TimeBlockRepository {
	return &TimeBlockRepository{db: db}
}

func withOrderedRefs(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FetchRange returns blocks with date in [start, end] inclusive, link rows
// preloaded in array order.
func (r *TimeBlockRepository) FetchRange(ctx context.Context, start, end string) ([]model.TimeBlock, error) {
	var blocks []model.TimeBlock
	if err := r.db.WithContext(ctx).Preload("TaskRefs", withOrderedRefs).
		Where("date BETWEEN ? AND ?", start, end).
		Order("date ASC, start_time ASC").
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

// FetchAll returns every stored block. The unscheduled-task computation needs
// the full collection, not a day-scoped subset.
func (r *TimeBlockRepository) FetchAll(ctx context.Context) ([]model.TimeBlock, error) {
	var blocks []model.TimeBlock
	if err := r.db.WithContext(ctx).Preload("TaskRefs", withOrderedRefs).
		Order("date ASC, start_time ASC").
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *TimeBlockRepository) FindByID(ctx context.Context, id uint) (*model.TimeBlock, error) {
	var block model.TimeBlock
	if err := r.db.WithContext(ctx).Preload("TaskRefs", withOrderedRefs).
		First(&block, id).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *TimeBlockRepository) Create(ctx context.Context, block *model.TimeBlock) error {
	for i := range block.TaskRefs {
		block.TaskRefs[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(block).Error; err != nil {
		return fmt.Errorf("create time block: %w", err)
	}
	return nil
}

// Update rewrites the block's own fields and replaces its link rows so that
// removed links are deleted and array order survives the round trip.
func (r *TimeBlockRepository) Update(ctx context.Context, block *model.TimeBlock) (*model.TimeBlock, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.TimeBlock{}).Where("id = ?", block.ID).
			Updates(map[string]interface{}{
				"title":      block.Title,
				"date":       block.Date,
				"start_time": block.StartTime,
				"end_time":   block.EndTime,
				"task_id":    block.TaskID,
			}).Error; err != nil {
			return fmt.Errorf("update time block: %w", err)
		}

		if err := tx.Where("time_block_id = ?", block.ID).
			Delete(&model.TimeBlockTask{}).Error; err != nil {
			return fmt.Errorf("clear task links: %w", err)
		}
		for i, ref := range block.TaskRefs {
			row := model.TimeBlockTask{TimeBlockID: block.ID, TaskID: ref.TaskID, Position: i}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("write task link: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, block.ID)
}

func (r *TimeBlockRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("time_block_id = ?", id).
			Delete(&model.TimeBlockTask{}).Error; err != nil {
			return fmt.Errorf("clear task links: %w", err)
		}
		if err := tx.Delete(&model.TimeBlock{}, id).Error; err != nil {
			return fmt.Errorf("delete time block: %w", err)
		}
		return nil
	})
	return err
}
