package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"timeblock-planner/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Fetch returns every non-archived task, due-dated tasks first.
func (r *TaskRepository) Fetch(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("archived = ?", false).
		Order("due_date NULLS LAST, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies a partial update and returns the stored row.
func (r *TaskRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*model.Task, error) {
	var task model.Task
	db := r.db.WithContext(ctx)
	if err := db.First(&task, id).Error; err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	if err := db.Model(&task).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) SetCompleted(ctx context.Context, id uint, completed bool) (*model.Task, error) {
	return r.Update(ctx, id, map[string]interface{}{"completed": completed})
}

// Archive hides a task from fetches without deleting the row.
func (r *TaskRepository) Archive(ctx context.Context, id uint) error {
	if _, err := r.Update(ctx, id, map[string]interface{}{"archived": true}); err != nil {
		return fmt.Errorf("archive task: %w", err)
	}
	return nil
}
