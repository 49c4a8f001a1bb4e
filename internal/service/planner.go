package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"timeblock-planner/internal/clock"
	"timeblock-planner/internal/model"
)

// Planner coordinates the task, time-block and schedule stores. Mutations are
// issued one at a time from user interaction; after every write the caller
// reloads a fresh snapshot instead of trusting local optimistic edits.
type Planner struct {
	tasks     TaskSource
	blocks    TimeBlockSource
	schedule  *ScheduleResolver
	modifiers *ModifierAggregator
}

func NewPlanner(tasks TaskSource, blocks TimeBlockSource, schedule *ScheduleResolver) *Planner {
	return &Planner{
		tasks:     tasks,
		blocks:    blocks,
		schedule:  schedule,
		modifiers: NewModifierAggregator(schedule),
	}
}

// DaySnapshot is the merged result of the four independent fetches for one
// date. Each source carries its own error so the rest of the snapshot stays
// usable when a subset fails.
type DaySnapshot struct {
	Date time.Time

	Tasks     []model.Task
	DayBlocks []model.TimeBlock
	AllBlocks []model.TimeBlock
	WorkDay   *model.WorkDay

	// Derived after the join barrier.
	Unscheduled []model.Task

	TasksErr     error
	DayBlocksErr error
	AllBlocksErr error
	ScheduleErr  error
}

// Err joins the per-source errors, nil when every fetch succeeded.
func (s *DaySnapshot) Err() error {
	return errors.Join(s.TasksErr, s.DayBlocksErr, s.AllBlocksErr, s.ScheduleErr)
}

// TaskIndex returns the fetched tasks keyed by id, for link resolution.
func (s *DaySnapshot) TaskIndex() map[uint]model.Task {
	index := make(map[uint]model.Task, len(s.Tasks))
	for _, task := range s.Tasks {
		index[task.ID] = task
	}
	return index
}

// LoadDay issues the four fetches concurrently and joins them. The fetches
// resolve in no particular order; derived fields are computed only after all
// of them have settled. A failed schedule fetch degrades to no schedule.
func (p *Planner) LoadDay(ctx context.Context, date time.Time) *DaySnapshot {
	snap := &DaySnapshot{Date: date}
	dayKey := clock.DayKey(date)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		snap.Tasks, snap.TasksErr = p.tasks.Fetch(ctx)
	}()
	go func() {
		defer wg.Done()
		blocks, err := p.blocks.FetchRange(ctx, dayKey, dayKey)
		if err != nil {
			snap.DayBlocksErr = err
			return
		}
		sort.SliceStable(blocks, func(i, j int) bool {
			return blocks[i].StartTime < blocks[j].StartTime
		})
		snap.DayBlocks = blocks
	}()
	go func() {
		defer wg.Done()
		snap.AllBlocks, snap.AllBlocksErr = p.blocks.FetchAll(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.WorkDay, snap.ScheduleErr = p.schedule.ResolveSingle(ctx, date)
	}()
	wg.Wait()

	// Unscheduled needs both sources: without the full block collection a
	// task linked on another day would be misreported as unscheduled.
	if snap.TasksErr == nil && snap.AllBlocksErr == nil {
		snap.Unscheduled = ComputeUnscheduledTasks(snap.Tasks, snap.AllBlocks)
	}

	return snap
}

// ComputeUnscheduledTasks returns the tasks that are not completed and not
// referenced by any block, via either link representation. The full block
// collection matters here: a task may be scheduled on a different day.
func ComputeUnscheduledTasks(tasks []model.Task, allBlocks []model.TimeBlock) []model.Task {
	linked := make(map[uint]bool)
	for _, block := range allBlocks {
		for _, id := range LinkedTaskIDs(block) {
			linked[id] = true
		}
	}

	var unscheduled []model.Task
	for _, task := range tasks {
		if task.Completed || linked[task.ID] {
			continue
		}
		unscheduled = append(unscheduled, task)
	}
	return unscheduled
}

// NewDraftBlock builds an unsaved one-hour block for the quick-add
// affordance: top of the current hour to the top of the next.
func (p *Planner) NewDraftBlock(date, now time.Time) model.TimeBlock {
	return model.TimeBlock{
		Title:     "New Time Block",
		Date:      clock.DayKey(date),
		StartTime: clock.TopOfHour(now),
		EndTime:   clock.NextHour(now),
	}
}

// SaveBlock validates and persists a block, creating it when its ID is zero.
// Validation errors are returned as-is; store failures wrap ErrPersistFailure
// with the attempted action named.
func (p *Planner) SaveBlock(ctx context.Context, block model.TimeBlock) (*model.TimeBlock, error) {
	if block.Title == "" {
		return nil, fmt.Errorf("time block title is required")
	}
	if _, err := clock.Duration(block.StartTime, block.EndTime); err != nil {
		return nil, err
	}

	if block.ID == 0 {
		if err := p.blocks.Create(ctx, &block); err != nil {
			return nil, fmt.Errorf("%w: create time block %q: %v", ErrPersistFailure, block.Title, err)
		}
		return &block, nil
	}

	saved, err := p.blocks.Update(ctx, &block)
	if err != nil {
		return nil, fmt.Errorf("%w: update time block %d: %v", ErrPersistFailure, block.ID, err)
	}
	return saved, nil
}

// FindBlock resolves a block by id, for edit flows that load, modify and
// save it back.
func (p *Planner) FindBlock(ctx context.Context, id uint) (*model.TimeBlock, error) {
	block, err := p.blocks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: id %d", ErrBlockNotFound, id)
	}
	return block, nil
}

func (p *Planner) DeleteBlock(ctx context.Context, id uint) error {
	if err := p.blocks.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete time block %d: %v", ErrPersistFailure, id, err)
	}
	return nil
}

// DropTaskOnBlock is the drag-link protocol: resolve both ends, link, and
// persist. An unresolvable task or block is a reported no-op, as is dropping
// a task that is already linked. The caller refreshes all sources afterward.
func (p *Planner) DropTaskOnBlock(ctx context.Context, blockID, taskID uint) (*model.TimeBlock, error) {
	if _, err := p.tasks.FindByID(ctx, taskID); err != nil {
		return nil, fmt.Errorf("%w: id %d", ErrTaskNotFound, taskID)
	}
	block, err := p.blocks.FindByID(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %d", ErrBlockNotFound, blockID)
	}

	linked, err := LinkTask(*block, taskID)
	if err != nil {
		return nil, err
	}

	saved, err := p.blocks.Update(ctx, &linked)
	if err != nil {
		return nil, fmt.Errorf("%w: link task %d to block %d: %v", ErrPersistFailure, taskID, blockID, err)
	}
	return saved, nil
}

// UnlinkAllFromBlock clears every task link on a block and persists it.
func (p *Planner) UnlinkAllFromBlock(ctx context.Context, blockID uint) (*model.TimeBlock, error) {
	block, err := p.blocks.FindByID(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %d", ErrBlockNotFound, blockID)
	}

	cleared, err := UnlinkAllTasks(*block)
	if err != nil {
		return nil, err
	}

	saved, err := p.blocks.Update(ctx, &cleared)
	if err != nil {
		return nil, fmt.Errorf("%w: unlink tasks from block %d: %v", ErrPersistFailure, blockID, err)
	}
	return saved, nil
}

// UnlinkTaskFromBlock removes one task link and persists the block.
func (p *Planner) UnlinkTaskFromBlock(ctx context.Context, blockID, taskID uint) (*model.TimeBlock, error) {
	block, err := p.blocks.FindByID(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %d", ErrBlockNotFound, blockID)
	}

	updated, err := UnlinkOneTask(*block, taskID)
	if err != nil {
		return nil, err
	}

	saved, err := p.blocks.Update(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("%w: unlink task %d from block %d: %v", ErrPersistFailure, taskID, blockID, err)
	}
	return saved, nil
}

// ToggleTask flips a task's completed flag.
func (p *Planner) ToggleTask(ctx context.Context, id uint, completed bool) (*model.Task, error) {
	task, err := p.tasks.Update(ctx, id, map[string]interface{}{"completed": completed})
	if err != nil {
		return nil, fmt.Errorf("%w: toggle task %d: %v", ErrPersistFailure, id, err)
	}
	return task, nil
}

// QuickCreateTask creates an incomplete task due on the given day.
func (p *Planner) QuickCreateTask(ctx context.Context, title string, due time.Time, categoryID *uint) (*model.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	dueKey := clock.DayKey(due)
	task := model.Task{
		Title:      title,
		DueDate:    &dueKey,
		CategoryID: categoryID,
	}
	if err := p.tasks.Create(ctx, &task); err != nil {
		return nil, fmt.Errorf("%w: create task %q: %v", ErrPersistFailure, title, err)
	}
	return &task, nil
}

// MonthModifiers aggregates calendar highlight sets for [start, end], keying
// tasks by due date.
func (p *Planner) MonthModifiers(ctx context.Context, start, end time.Time) (ModifierSet, error) {
	tasks, err := p.tasks.Fetch(ctx)
	if err != nil {
		return newModifierSet(), fmt.Errorf("fetch tasks: %w", err)
	}

	byDay := make(map[string][]model.Task)
	for _, task := range tasks {
		if task.DueDate == nil {
			continue
		}
		byDay[*task.DueDate] = append(byDay[*task.DueDate], task)
	}

	return p.modifiers.Aggregate(ctx, start, end, func(day time.Time) []model.Task {
		return byDay[clock.DayKey(day)]
	})
}
