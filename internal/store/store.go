// Package store defines the persistence contract the session engine runs
// against, plus an in-memory implementation used by tests and ephemeral
// servers. The SQLite implementation lives in internal/db.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/balkashynov/wrokdesk/internal/models"
)

// ErrNotFound is returned by lookups when the row does not exist.
var ErrNotFound = errors.New("not found")

// TimeRecordFilter narrows QueryTimeRecords. Nil fields do not filter.
// From is inclusive and To exclusive, both compared against StartedAt.
//
// With WholeSessions set, From and To select sessions instead: every record
// of a session is returned when the session's latest EndedAt falls in
// (From, To]. Records without a session are compared by their own EndedAt.
// Reports use this so a session crossing midnight is never split.
type TimeRecordFilter struct {
	WorkerID      *uint
	SubjectID     *uint
	SessionID     *string
	From          *time.Time
	To            *time.Time
	WholeSessions bool
	Limit         int
}

// Store is keyed CRUD over sessions, entries and time records, with
// read-only lookups of the worker/subject/task directory.
//
// Single-row operations are atomic. Multi-row changes must run inside
// Atomically, which commits everything fn did or nothing.
type Store interface {
	GetWorker(ctx context.Context, id uint) (*models.Worker, error)
	GetSubject(ctx context.Context, id uint) (*models.Subject, error)
	GetTask(ctx context.Context, id uint) (*models.Task, error)

	// OpenSession returns the worker's session with no end, or ErrNotFound.
	OpenSession(ctx context.Context, workerID uint) (*models.Session, error)
	// LatestSession returns the open session if any, else the most recently
	// started one, or ErrNotFound.
	LatestSession(ctx context.Context, workerID uint) (*models.Session, error)
	// OpenEntry returns the session's entry with no end, or ErrNotFound.
	OpenEntry(ctx context.Context, sessionID string) (*models.Entry, error)
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	// QueryTimeRecords returns matching records ordered by StartedAt.
	QueryTimeRecords(ctx context.Context, filter TimeRecordFilter) ([]models.TimeRecord, error)

	CreateSession(ctx context.Context, session *models.Session) error
	UpdateSession(ctx context.Context, session *models.Session) error
	CreateEntry(ctx context.Context, entry *models.Entry) error
	UpdateEntry(ctx context.Context, entry *models.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	CreateTimeRecord(ctx context.Context, record *models.TimeRecord) error
	DeleteTimeRecordsForEntry(ctx context.Context, entryID string) error

	// Atomically runs fn against a transactional view of the store. If fn
	// returns an error or ctx is done, none of its writes are kept.
	Atomically(ctx context.Context, fn func(tx Store) error) error
}
