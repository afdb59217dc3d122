package models

import (
	"time"
)

// DefaultEntryTitle is the bookkeeping title given to time that is not
// attributed to a task.
const DefaultEntryTitle = "Client Session"

// Session is one continuous worker-to-subject timing window.
// At most one session per worker has a nil EndedAt.
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkerID  uint       `gorm:"not null;index:idx_sessions_open_worker,unique,where:ended_at IS NULL" json:"worker_id"`
	SubjectID uint       `gorm:"not null;index" json:"subject_id"`
	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`

	// LastClosedEntryID is the single-use undo slot: the entry closed by the
	// most recent task switch, restorable by a dismiss.
	LastClosedEntryID *string `gorm:"size:36" json:"last_closed_entry_id,omitempty"`
}

// IsOpen reports whether the session is still timing
func (s *Session) IsOpen() bool {
	return s != nil && s.EndedAt == nil
}

// Entry is one contiguous interval inside a session, optionally attributed
// to a task. An open entry with a nil TaskID is the session's default entry.
type Entry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SessionID       *string    `gorm:"size:36;index:idx_entries_open_session,unique,where:ended_at IS NULL" json:"session_id"`
	TaskID          *uint      `gorm:"index" json:"task_id"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds *int64     `json:"duration_seconds"` // set at close time
}

// IsOpen reports whether the entry is still timing
func (e *Entry) IsOpen() bool {
	return e != nil && e.EndedAt == nil
}

// IsDefault reports whether the entry carries unattributed session time
func (e *Entry) IsDefault() bool {
	return e != nil && e.TaskID == nil
}

// TimeRecord is the finalized, append-only record written when an entry
// closes with a positive duration.
type TimeRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	EntryID         string    `gorm:"size:36;not null;index" json:"entry_id"`
	SessionID       *string   `gorm:"size:36;index" json:"session_id"`
	TaskID          *uint     `gorm:"index" json:"task_id"`
	SubjectID       uint      `gorm:"not null;index" json:"subject_id"`
	WorkerID        uint      `gorm:"not null;index" json:"worker_id"`
	Title           string    `json:"title"`
	StartedAt       time.Time `gorm:"not null;index" json:"started_at"`
	EndedAt         time.Time `gorm:"not null" json:"ended_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	DurationMinutes int64     `json:"duration_minutes"`
}
