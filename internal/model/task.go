package model

import "time"

// Task priority levels.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Emotional weight of getting a task started.
const (
	WeightNone        = "none"
	WeightMinimal     = "minimal"
	WeightSignificant = "significant"
)

// Mental complexity of a task.
const (
	ComplexityEasy     = "easy"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// Task represents a single item in the planner. Tasks are archived rather
// than hard-deleted in the normal flow.
type Task struct {
	ID               uint `gorm:"primaryKey"`
	Title            string
	Completed        bool    `gorm:"default:false"`
	Archived         bool    `gorm:"default:false"`
	DueDate          *string `gorm:"index"` // YYYY-MM-DD
	ProjectID        *uint   `gorm:"index"`
	CategoryID       *uint   `gorm:"index"`
	ParentTaskID     *uint   `gorm:"index"`
	Priority         *string // low, medium, high
	EstimatedMinutes *int
	EmotionalWeight  *string // none, minimal, significant
	MentalComplexity *string // easy, moderate, complex
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
