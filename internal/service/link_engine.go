package service

import (
	"fmt"

	"timeblock-planner/internal/model"
)

// Task-link lifecycle for time blocks. Blocks move one way through three
// states: unlinked, single-linked via the legacy TaskID scalar, and
// multi-linked via the TaskRefs array. The first link on top of a legacy
// scalar migrates it into the array and clears the scalar; a block that has
// ever used the array stays on it, even when reduced to one entry.
//
// All functions operate on copies; callers persist the returned block.

// ReferencesTask reports whether the block links the task through either
// representation.
func ReferencesTask(block model.TimeBlock, taskID uint) bool {
	if block.TaskID != nil && *block.TaskID == taskID {
		return true
	}
	for _, ref := range block.TaskRefs {
		if ref.TaskID == taskID {
			return true
		}
	}
	return false
}

// LinkedTaskIDs returns the de-duplicated union of both representations:
// the legacy scalar first, then array entries in order.
func LinkedTaskIDs(block model.TimeBlock) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	if block.TaskID != nil {
		seen[*block.TaskID] = true
		ids = append(ids, *block.TaskID)
	}
	for _, ref := range block.TaskRefs {
		if seen[ref.TaskID] {
			continue
		}
		seen[ref.TaskID] = true
		ids = append(ids, ref.TaskID)
	}
	return ids
}

// LinkedTasks resolves the linked task ids against an index. Ids that do not
// resolve are skipped; dangling references are tolerated, not fatal.
func LinkedTasks(block model.TimeBlock, index map[uint]model.Task) []model.Task {
	var tasks []model.Task
	for _, id := range LinkedTaskIDs(block) {
		if task, ok := index[id]; ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// LinkTask adds a task link. Linking a task that is already present, via
// either representation, reports ErrAlreadyLinked; callers surface it as a
// no-op notice. A legacy single-linked block is migrated onto the array
// before the new link is appended.
func LinkTask(block model.TimeBlock, taskID uint) (model.TimeBlock, error) {
	if ReferencesTask(block, taskID) {
		return block, fmt.Errorf("%w: task %d", ErrAlreadyLinked, taskID)
	}

	switch {
	case block.TaskID != nil && len(block.TaskRefs) == 0:
		legacy := *block.TaskID
		block.TaskRefs = []model.TimeBlockTask{
			{TimeBlockID: block.ID, TaskID: legacy, Position: 0},
			{TimeBlockID: block.ID, TaskID: taskID, Position: 1},
		}
		block.TaskID = nil
	case len(block.TaskRefs) > 0:
		refs := make([]model.TimeBlockTask, 0, len(block.TaskRefs)+1)
		refs = append(refs, block.TaskRefs...)
		refs = append(refs, model.TimeBlockTask{
			TimeBlockID: block.ID,
			TaskID:      taskID,
			Position:    len(refs),
		})
		block.TaskRefs = refs
	default:
		block.TaskRefs = []model.TimeBlockTask{
			{TimeBlockID: block.ID, TaskID: taskID, Position: 0},
		}
	}

	return block, nil
}

// UnlinkAllTasks clears both representations. Calling it on a block with no
// links reports ErrNothingToUnlink and leaves the block unchanged.
func UnlinkAllTasks(block model.TimeBlock) (model.TimeBlock, error) {
	if block.TaskID == nil && len(block.TaskRefs) == 0 {
		return block, ErrNothingToUnlink
	}

	block.TaskID = nil
	if block.TaskRefs != nil {
		block.TaskRefs = []model.TimeBlockTask{}
	}
	return block, nil
}

// UnlinkOneTask removes a single task link. Emptying the array also clears
// the legacy scalar so the block lands in a clean no-links state, never an
// ambiguous one with a null array and a stale scalar. An id not present in
// either representation reports ErrTaskNotLinked.
func UnlinkOneTask(block model.TimeBlock, taskID uint) (model.TimeBlock, error) {
	if block.TaskID != nil && *block.TaskID == taskID {
		block.TaskID = nil
		return block, nil
	}

	for i, ref := range block.TaskRefs {
		if ref.TaskID != taskID {
			continue
		}
		remaining := make([]model.TimeBlockTask, 0, len(block.TaskRefs)-1)
		remaining = append(remaining, block.TaskRefs[:i]...)
		remaining = append(remaining, block.TaskRefs[i+1:]...)
		for j := range remaining {
			remaining[j].Position = j
		}
		block.TaskRefs = remaining
		if len(remaining) == 0 {
			block.TaskID = nil
		}
		return block, nil
	}

	return block, fmt.Errorf("%w: task %d", ErrTaskNotLinked, taskID)
}
