package model

import "time"

// TimeBlock is a scheduled interval on a specific day, optionally associated
// with one or more tasks.
//
// Task links use a dual schema: the legacy scalar TaskID holds at most one
// linked task, the current TaskRefs array holds an ordered list. Once
// TaskRefs is populated TaskID is legacy-read-only and never repopulated;
// all new links go through TaskRefs. Readers must treat "linked tasks" as
// the de-duplicated union of both fields.
type TimeBlock struct {
	ID        uint `gorm:"primaryKey"`
	Title     string
	Date      string          `gorm:"index"` // YYYY-MM-DD
	StartTime string          // HH:MM, always < EndTime
	EndTime   string          // HH:MM
	TaskID    *uint           `gorm:"index"`
	TaskRefs  []TimeBlockTask `gorm:"foreignKey:TimeBlockID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeBlockTask is one entry of the ordered multi-link array. Position keeps
// insertion order; new links are appended, never sorted.
type TimeBlockTask struct {
	ID          uint `gorm:"primaryKey"`
	TimeBlockID uint `gorm:"index:idx_block_task,unique"`
	TaskID      uint `gorm:"index:idx_block_task,unique"`
	Position    int
}
