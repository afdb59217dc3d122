package engine

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable matches every StoreUnavailableError via errors.Is.
var ErrStoreUnavailable = errors.New("store unavailable")

// NotFoundError reports a worker, subject, task or session reference that
// does not exist in the store.
type NotFoundError struct {
	Kind string // worker, subject, task, session
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func notFound(kind string, id uint) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: fmt.Sprintf("#%d", id)}
}

// StoreUnavailableError wraps a persistence failure. The operation that
// returned it changed nothing.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// CrossTenantError describes a task switch that targeted another subject's
// task. It is logged, never returned.
type CrossTenantError struct {
	WorkerID         uint
	TaskID           uint
	SessionSubjectID uint
	TaskSubjectID    uint
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("task #%d belongs to subject #%d, session is for subject #%d",
		e.TaskID, e.TaskSubjectID, e.SessionSubjectID)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
