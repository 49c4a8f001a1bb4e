package model

import "time"

// Category tags tasks with a colored label (work, health, study, etc.).
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"uniqueIndex"`
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
