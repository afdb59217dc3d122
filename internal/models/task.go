package models

import (
	"time"

	"gorm.io/gorm"
)

// Task status values
const (
	TaskStatusOpen     = "open"
	TaskStatusDone     = "done"
	TaskStatusArchived = "archived"
)

// Worker is the identity performing timed work (an operator or VA)
type Worker struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Subject is the client a worker is timing work for
type Subject struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	Tasks []Task `gorm:"foreignKey:SubjectID" json:"tasks,omitempty"`
}

// Task is a unit of client work that entries can be attributed to
type Task struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SubjectID uint   `gorm:"not null;index" json:"subject_id"`
	Title     string `gorm:"not null" json:"title"`
	Status    string `gorm:"default:open" json:"status"` // open, done, archived
	Reference string `json:"reference"`                  // external ticket, e.g. ACME-12
}
