package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeblock-planner/internal/clock"
	"timeblock-planner/internal/model"
)

var errNotFound = errors.New("record not found")

type fakeTasks struct {
	mu       sync.Mutex
	tasks    map[uint]model.Task
	nextID   uint
	fetchErr error
}

func newFakeTasks(tasks ...model.Task) *fakeTasks {
	f := &fakeTasks{tasks: make(map[uint]model.Task)}
	for _, task := range tasks {
		f.tasks[task.ID] = task
		if task.ID > f.nextID {
			f.nextID = task.ID
		}
	}
	return f
}

func (f *fakeTasks) Fetch(ctx context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	tasks := make([]model.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (f *fakeTasks) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, errNotFound
	}
	return &task, nil
}

func (f *fakeTasks) Create(ctx context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	task.ID = f.nextID
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeTasks) Update(ctx context.Context, id uint, fields map[string]interface{}) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, errNotFound
	}
	if completed, ok := fields["completed"].(bool); ok {
		task.Completed = completed
	}
	if archived, ok := fields["archived"].(bool); ok {
		task.Archived = archived
	}
	f.tasks[id] = task
	return &task, nil
}

type fakeBlocks struct {
	mu          sync.Mutex
	blocks      map[uint]model.TimeBlock
	nextID      uint
	fetchAllErr error
	rangeErr    error
	createErr   error
	updateErr   error
	deleteErr   error
}

func newFakeBlocks(blocks ...model.TimeBlock) *fakeBlocks {
	f := &fakeBlocks{blocks: make(map[uint]model.TimeBlock)}
	for _, block := range blocks {
		f.blocks[block.ID] = block
		if block.ID > f.nextID {
			f.nextID = block.ID
		}
	}
	return f
}

func (f *fakeBlocks) all() []model.TimeBlock {
	blocks := make([]model.TimeBlock, 0, len(f.blocks))
	for _, block := range f.blocks {
		blocks = append(blocks, block)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })
	return blocks
}

func (f *fakeBlocks) FetchRange(ctx context.Context, start, end string) ([]model.TimeBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	var blocks []model.TimeBlock
	for _, block := range f.all() {
		if block.Date >= start && block.Date <= end {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

func (f *fakeBlocks) FetchAll(ctx context.Context) ([]model.TimeBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchAllErr != nil {
		return nil, f.fetchAllErr
	}
	return f.all(), nil
}

func (f *fakeBlocks) FindByID(ctx context.Context, id uint) (*model.TimeBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	block, ok := f.blocks[id]
	if !ok {
		return nil, errNotFound
	}
	return &block, nil
}

func (f *fakeBlocks) Create(ctx context.Context, block *model.TimeBlock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	block.ID = f.nextID
	f.blocks[block.ID] = *block
	return nil
}

func (f *fakeBlocks) Update(ctx context.Context, block *model.TimeBlock) (*model.TimeBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.blocks[block.ID]; !ok {
		return nil, errNotFound
	}
	f.blocks[block.ID] = *block
	stored := f.blocks[block.ID]
	return &stored, nil
}

func (f *fakeBlocks) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.blocks, id)
	return nil
}

func newTestPlanner(tasks *fakeTasks, blocks *fakeBlocks, rules *fakeRules) *Planner {
	if rules == nil {
		rules = &fakeRules{}
	}
	return NewPlanner(tasks, blocks, NewScheduleResolver(rules))
}

func TestComputeUnscheduledTasks(t *testing.T) {
	t.Parallel()

	tasks := []model.Task{
		{ID: 1, Title: "linked via legacy"},
		{ID: 2, Title: "linked via array"},
		{ID: 3, Title: "free"},
		{ID: 4, Title: "done", Completed: true},
		{ID: 5, Title: "done and linked", Completed: true},
	}
	allBlocks := []model.TimeBlock{
		{ID: 10, Date: "2025-01-06", TaskID: uintPtr(1)},
		{ID: 11, Date: "2025-02-20", TaskRefs: []model.TimeBlockTask{{TaskID: 2}, {TaskID: 5}}},
	}

	unscheduled := ComputeUnscheduledTasks(tasks, allBlocks)
	require.Len(t, unscheduled, 1)
	assert.Equal(t, uint(3), unscheduled[0].ID, "only the free incomplete task remains")
}

func TestComputeUnscheduledTasksNoBlocks(t *testing.T) {
	t.Parallel()

	tasks := []model.Task{
		{ID: 1},
		{ID: 2, Completed: true},
	}

	unscheduled := ComputeUnscheduledTasks(tasks, nil)
	require.Len(t, unscheduled, 1)
	assert.Equal(t, uint(1), unscheduled[0].ID)
}

func TestLoadDay(t *testing.T) {
	t.Parallel()

	tasks := newFakeTasks(
		model.Task{ID: 1, Title: "write intro"},
		model.Task{ID: 2, Title: "free task"},
	)
	blocks := newFakeBlocks(
		model.TimeBlock{ID: 20, Date: "2025-01-06", StartTime: "14:00", EndTime: "15:00", Title: "late"},
		model.TimeBlock{ID: 21, Date: "2025-01-06", StartTime: "09:00", EndTime: "10:00", Title: "early", TaskID: uintPtr(1)},
		model.TimeBlock{ID: 22, Date: "2025-01-07", StartTime: "08:00", EndTime: "09:00", Title: "other day"},
	)
	rules := &fakeRules{rules: []model.ScheduleRule{{Weekday: time.Monday, Type: model.ScheduleMorning}}}

	planner := newTestPlanner(tasks, blocks, rules)
	snap := planner.LoadDay(context.Background(), monday)

	require.NoError(t, snap.Err())
	require.Len(t, snap.DayBlocks, 2)
	assert.Equal(t, "early", snap.DayBlocks[0].Title, "day blocks sorted by start time")
	assert.Equal(t, "late", snap.DayBlocks[1].Title)
	require.Len(t, snap.AllBlocks, 3)

	require.NotNil(t, snap.WorkDay)
	assert.Equal(t, model.ScheduleMorning, snap.WorkDay.Type)

	require.Len(t, snap.Unscheduled, 1)
	assert.Equal(t, uint(2), snap.Unscheduled[0].ID)

	index := snap.TaskIndex()
	assert.Equal(t, "write intro", index[1].Title)
}

func TestLoadDayPartialFailure(t *testing.T) {
	t.Parallel()

	tasks := newFakeTasks(model.Task{ID: 1, Title: "task"})
	blocks := newFakeBlocks()
	blocks.fetchAllErr = errors.New("store down")

	planner := newTestPlanner(tasks, blocks, nil)
	snap := planner.LoadDay(context.Background(), monday)

	require.Error(t, snap.Err())
	assert.Error(t, snap.AllBlocksErr)
	assert.NoError(t, snap.TasksErr)
	assert.NoError(t, snap.DayBlocksErr)
	assert.Nil(t, snap.Unscheduled, "unscheduled is not derivable without the block collection")
}

func TestLoadDayAllBlocksFailureHidesLinkedElsewhere(t *testing.T) {
	t.Parallel()

	// Task 1 is linked on another day. With the block collection missing it
	// must not resurface as unscheduled.
	tasks := newFakeTasks(model.Task{ID: 1, Title: "linked elsewhere"})
	blocks := newFakeBlocks(model.TimeBlock{ID: 10, Date: "2025-02-20", StartTime: "09:00", EndTime: "10:00", TaskID: uintPtr(1)})
	blocks.fetchAllErr = errors.New("store down")

	planner := newTestPlanner(tasks, blocks, nil)
	snap := planner.LoadDay(context.Background(), monday)

	assert.Error(t, snap.AllBlocksErr)
	assert.Nil(t, snap.Unscheduled)
}

func TestLoadDayTasksFailure(t *testing.T) {
	t.Parallel()

	tasks := newFakeTasks()
	tasks.fetchErr = errors.New("store down")

	planner := newTestPlanner(tasks, newFakeBlocks(), nil)
	snap := planner.LoadDay(context.Background(), monday)

	assert.Error(t, snap.TasksErr)
	assert.Nil(t, snap.Unscheduled, "unscheduled is not derivable without tasks")
}

func TestNewDraftBlock(t *testing.T) {
	t.Parallel()

	planner := newTestPlanner(newFakeTasks(), newFakeBlocks(), nil)

	now := time.Date(2025, time.January, 6, 14, 37, 0, 0, time.Local)
	draft := planner.NewDraftBlock(monday, now)
	assert.Zero(t, draft.ID, "draft is unsaved")
	assert.Equal(t, "New Time Block", draft.Title)
	assert.Equal(t, "2025-01-06", draft.Date)
	assert.Equal(t, "14:00", draft.StartTime)
	assert.Equal(t, "15:00", draft.EndTime)
	assert.Nil(t, draft.TaskID)
	assert.Empty(t, draft.TaskRefs)

	lateDraft := planner.NewDraftBlock(monday, time.Date(2025, time.January, 6, 23, 5, 0, 0, time.Local))
	assert.Equal(t, "23:00", lateDraft.StartTime)
	assert.Equal(t, "24:00", lateDraft.EndTime)
}

func TestSaveBlockValidation(t *testing.T) {
	t.Parallel()

	planner := newTestPlanner(newFakeTasks(), newFakeBlocks(), nil)
	ctx := context.Background()

	_, err := planner.SaveBlock(ctx, model.TimeBlock{Title: "x", StartTime: "9:00", EndTime: "10:00"})
	require.ErrorIs(t, err, clock.ErrInvalidTimeFormat)

	_, err = planner.SaveBlock(ctx, model.TimeBlock{Title: "x", StartTime: "10:00", EndTime: "10:00"})
	require.ErrorIs(t, err, clock.ErrNegativeDuration)

	_, err = planner.SaveBlock(ctx, model.TimeBlock{StartTime: "09:00", EndTime: "10:00"})
	require.Error(t, err)
}

func TestSaveBlockCreateAndUpdate(t *testing.T) {
	t.Parallel()

	blocks := newFakeBlocks()
	planner := newTestPlanner(newFakeTasks(), blocks, nil)
	ctx := context.Background()

	created, err := planner.SaveBlock(ctx, model.TimeBlock{Title: "focus", Date: "2025-01-06", StartTime: "09:00", EndTime: "10:30"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	created.Title = "deep focus"
	updated, err := planner.SaveBlock(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, "deep focus", updated.Title)

	stored, err := blocks.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "deep focus", stored.Title)
}

func TestSaveBlockPersistFailure(t *testing.T) {
	t.Parallel()

	blocks := newFakeBlocks()
	blocks.createErr = errors.New("disk full")
	planner := newTestPlanner(newFakeTasks(), blocks, nil)

	_, err := planner.SaveBlock(context.Background(), model.TimeBlock{Title: "x", StartTime: "09:00", EndTime: "10:00"})
	require.ErrorIs(t, err, ErrPersistFailure)
	assert.Contains(t, err.Error(), "create time block", "the attempted action is named")
}

func TestFindBlock(t *testing.T) {
	t.Parallel()

	blocks := newFakeBlocks(model.TimeBlock{ID: 10, Title: "slot"})
	planner := newTestPlanner(newFakeTasks(), blocks, nil)
	ctx := context.Background()

	block, err := planner.FindBlock(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "slot", block.Title)

	_, err = planner.FindBlock(ctx, 99)
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestDropTaskOnBlock(t *testing.T) {
	t.Parallel()

	tasks := newFakeTasks(model.Task{ID: 2, Title: "review"})
	blocks := newFakeBlocks(model.TimeBlock{ID: 10, Date: "2025-01-06", StartTime: "09:00", EndTime: "10:00", TaskID: uintPtr(1)})
	planner := newTestPlanner(tasks, blocks, nil)
	ctx := context.Background()

	saved, err := planner.DropTaskOnBlock(ctx, 10, 2)
	require.NoError(t, err)
	assert.Nil(t, saved.TaskID, "legacy link migrated on second task")
	assert.Equal(t, []uint{1, 2}, LinkedTaskIDs(*saved))

	stored, err := blocks.FindByID(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, stored.TaskID)
	assert.Equal(t, []uint{1, 2}, LinkedTaskIDs(*stored))
}

func TestDropTaskOnBlockNoOps(t *testing.T) {
	t.Parallel()

	tasks := newFakeTasks(model.Task{ID: 2})
	blocks := newFakeBlocks(model.TimeBlock{ID: 10, TaskRefs: []model.TimeBlockTask{{TaskID: 2}}})
	planner := newTestPlanner(tasks, blocks, nil)
	ctx := context.Background()

	_, err := planner.DropTaskOnBlock(ctx, 10, 99)
	require.ErrorIs(t, err, ErrTaskNotFound)

	_, err = planner.DropTaskOnBlock(ctx, 99, 2)
	require.ErrorIs(t, err, ErrBlockNotFound)

	_, err = planner.DropTaskOnBlock(ctx, 10, 2)
	require.ErrorIs(t, err, ErrAlreadyLinked)

	stored, findErr := blocks.FindByID(ctx, 10)
	require.NoError(t, findErr)
	assert.Equal(t, []uint{2}, LinkedTaskIDs(*stored), "no-op drops leave the block unchanged")
}

func TestUnlinkAllFromBlockIdempotent(t *testing.T) {
	t.Parallel()

	blocks := newFakeBlocks(model.TimeBlock{ID: 10, TaskID: uintPtr(1), TaskRefs: []model.TimeBlockTask{{TaskID: 2}}})
	planner := newTestPlanner(newFakeTasks(), blocks, nil)
	ctx := context.Background()

	cleared, err := planner.UnlinkAllFromBlock(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, LinkedTaskIDs(*cleared))

	_, err = planner.UnlinkAllFromBlock(ctx, 10)
	require.ErrorIs(t, err, ErrNothingToUnlink)

	stored, findErr := blocks.FindByID(ctx, 10)
	require.NoError(t, findErr)
	assert.Empty(t, LinkedTaskIDs(*stored))
}

func TestUnlinkTaskFromBlock(t *testing.T) {
	t.Parallel()

	blocks := newFakeBlocks(model.TimeBlock{ID: 10, TaskRefs: []model.TimeBlockTask{{TaskID: 2}, {TaskID: 3}}})
	planner := newTestPlanner(newFakeTasks(), blocks, nil)
	ctx := context.Background()

	saved, err := planner.UnlinkTaskFromBlock(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{3}, LinkedTaskIDs(*saved))

	_, err = planner.UnlinkTaskFromBlock(ctx, 10, 2)
	require.ErrorIs(t, err, ErrTaskNotLinked)
}

func TestToggleTask(t *testing.T) {
	t.Parallel()

	tasks := newFakeTasks(model.Task{ID: 1, Title: "task"})
	planner := newTestPlanner(tasks, newFakeBlocks(), nil)
	ctx := context.Background()

	task, err := planner.ToggleTask(ctx, 1, true)
	require.NoError(t, err)
	assert.True(t, task.Completed)

	task, err = planner.ToggleTask(ctx, 1, false)
	require.NoError(t, err)
	assert.False(t, task.Completed)

	_, err = planner.ToggleTask(ctx, 99, true)
	require.ErrorIs(t, err, ErrPersistFailure)
}

func TestQuickCreateTask(t *testing.T) {
	t.Parallel()

	tasks := newFakeTasks()
	planner := newTestPlanner(tasks, newFakeBlocks(), nil)

	task, err := planner.QuickCreateTask(context.Background(), "buy milk", monday, nil)
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2025-01-06", *task.DueDate)
	assert.False(t, task.Completed)

	_, err = planner.QuickCreateTask(context.Background(), "", monday, nil)
	require.Error(t, err)
}

func TestMonthModifiers(t *testing.T) {
	t.Parallel()

	due := "2025-01-15"
	tasks := newFakeTasks(model.Task{ID: 1, Title: "pay rent", DueDate: &due, Priority: strPtr(model.PriorityHigh)})
	planner := newTestPlanner(tasks, newFakeBlocks(), nil)

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.Local)
	set, err := planner.MonthModifiers(context.Background(), start, end)
	require.NoError(t, err)

	day15 := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.Local)
	assert.True(t, set.HasTasks.Contains(day15))
	assert.True(t, set.HasHighPriorityTasks.Contains(day15))
	assert.Equal(t, 1, set.HasTasks.Len())
}

func TestLoadDayUnorderedArrival(t *testing.T) {
	t.Parallel()

	// Hammer the join barrier; the race detector flags unsynchronized
	// snapshot writes if the fetches ever share fields.
	tasks := newFakeTasks(model.Task{ID: 1})
	blocks := newFakeBlocks(model.TimeBlock{ID: 10, Date: "2025-01-06", StartTime: "09:00", EndTime: "10:00"})
	planner := newTestPlanner(tasks, blocks, nil)

	for i := 0; i < 25; i++ {
		snap := planner.LoadDay(context.Background(), monday)
		require.NoError(t, snap.Err(), fmt.Sprintf("iteration %d", i))
		require.Len(t, snap.DayBlocks, 1)
	}
}
