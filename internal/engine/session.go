package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/store"
)

// StartSession opens a session for workerID on subjectID together with its
// default entry. An already open session is stopped first.
func (e *Engine) StartSession(ctx context.Context, workerID, subjectID uint) (*models.Session, error) {
	var started *models.Session
	err := e.mutate(ctx, "start session", workerID, func(tx store.Store, now time.Time) (txResult, error) {
		if err := e.requireWorker(ctx, tx, workerID); err != nil {
			return txResult{}, err
		}
		if _, err := tx.GetSubject(ctx, subjectID); err != nil {
			return txResult{}, e.lookupErr("start session", "subject", subjectID, err)
		}

		current, active, err := e.openState(ctx, tx, workerID)
		if err != nil {
			return txResult{}, err
		}
		if current != nil {
			if err := e.stopSession(ctx, tx, current, active, now); err != nil {
				return txResult{}, err
			}
		}

		session := &models.Session{
			ID:        uuid.NewString(),
			WorkerID:  workerID,
			SubjectID: subjectID,
			StartedAt: now,
		}
		if err := tx.CreateSession(ctx, session); err != nil {
			return txResult{}, fmt.Errorf("create session: %w", err)
		}
		entry, err := e.openEntry(ctx, tx, session, nil, now)
		if err != nil {
			return txResult{}, err
		}

		started = session
		return txResult{
			snap:   &Snapshot{WorkerID: workerID, Session: session, Entry: entry},
			change: &Change{Kind: ChangeSessionStarted, WorkerID: workerID, SessionID: session.ID, EntryID: entry.ID, At: now},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// StopSession closes the worker's active entry and session. Does nothing
// when no session is open.
func (e *Engine) StopSession(ctx context.Context, workerID uint) error {
	return e.mutate(ctx, "stop session", workerID, func(tx store.Store, now time.Time) (txResult, error) {
		if err := e.requireWorker(ctx, tx, workerID); err != nil {
			return txResult{}, err
		}
		current, active, err := e.openState(ctx, tx, workerID)
		if err != nil {
			return txResult{}, err
		}
		if current == nil {
			return txResult{}, nil
		}

		if err := e.stopSession(ctx, tx, current, active, now); err != nil {
			return txResult{}, err
		}
		return txResult{
			snap:   &Snapshot{WorkerID: workerID, Session: current},
			change: &Change{Kind: ChangeSessionStopped, WorkerID: workerID, SessionID: current.ID, At: now},
		}, nil
	})
}

// SwitchTaskEntry closes the active entry and opens one for taskID at the
// same instant. Switching to the task already being timed, switching with
// no open session, and switching to another subject's task change nothing.
//
// A switch away from a task entry remembers that entry so one following
// DismissActiveTaskEntry can restore it. A switch made while an entry is
// already remembered forgets it instead. Over a run of task switches the
// slot therefore alternates: after A->B->C->D a dismiss restores C, while
// after A->B->C or A->B->C->D->E it opens a fresh default entry.
func (e *Engine) SwitchTaskEntry(ctx context.Context, workerID, taskID uint) error {
	return e.mutate(ctx, "switch task", workerID, func(tx store.Store, now time.Time) (txResult, error) {
		if err := e.requireWorker(ctx, tx, workerID); err != nil {
			return txResult{}, err
		}
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return txResult{}, e.lookupErr("switch task", "task", taskID, err)
		}

		current, active, err := e.openState(ctx, tx, workerID)
		if err != nil {
			return txResult{}, err
		}
		if current == nil {
			return txResult{}, nil
		}
		unchanged := txResult{snap: &Snapshot{WorkerID: workerID, Session: current, Entry: active}}

		if task.SubjectID != current.SubjectID {
			cross := &CrossTenantError{
				WorkerID:         workerID,
				TaskID:           taskID,
				SessionSubjectID: current.SubjectID,
				TaskSubjectID:    task.SubjectID,
			}
			e.logger.Warn("cross-tenant task switch ignored",
				"worker_id", workerID,
				"task_id", taskID,
				"session_subject_id", current.SubjectID,
				"task_subject_id", task.SubjectID,
				"error", cross)
			return unchanged, nil
		}
		if active != nil && active.TaskID != nil && *active.TaskID == taskID {
			return unchanged, nil
		}

		if active != nil {
			if err := e.closeEntry(ctx, tx, current, active, now); err != nil {
				return txResult{}, err
			}
		}

		switch {
		case current.LastClosedEntryID != nil:
			current.LastClosedEntryID = nil
		case active != nil && active.TaskID != nil:
			id := active.ID
			current.LastClosedEntryID = &id
		}
		if err := tx.UpdateSession(ctx, current); err != nil {
			return txResult{}, fmt.Errorf("update session: %w", err)
		}

		id := taskID
		entry, err := e.openEntry(ctx, tx, current, &id, now)
		if err != nil {
			return txResult{}, err
		}
		return txResult{
			snap:   &Snapshot{WorkerID: workerID, Session: current, Entry: entry},
			change: &Change{Kind: ChangeEntrySwitched, WorkerID: workerID, SessionID: current.ID, EntryID: entry.ID, At: now},
		}, nil
	})
}

// StopActiveTaskEntry closes a task-attributed active entry and continues
// the session on a fresh default entry. Does nothing when the active entry
// is already the default one.
func (e *Engine) StopActiveTaskEntry(ctx context.Context, workerID uint) error {
	return e.mutate(ctx, "stop task", workerID, func(tx store.Store, now time.Time) (txResult, error) {
		if err := e.requireWorker(ctx, tx, workerID); err != nil {
			return txResult{}, err
		}
		current, active, err := e.openState(ctx, tx, workerID)
		if err != nil {
			return txResult{}, err
		}
		if current == nil {
			return txResult{}, nil
		}
		if active == nil || active.IsDefault() {
			return txResult{snap: &Snapshot{WorkerID: workerID, Session: current, Entry: active}}, nil
		}

		if err := e.closeEntry(ctx, tx, current, active, now); err != nil {
			return txResult{}, err
		}
		if current.LastClosedEntryID != nil {
			current.LastClosedEntryID = nil
			if err := tx.UpdateSession(ctx, current); err != nil {
				return txResult{}, fmt.Errorf("update session: %w", err)
			}
		}
		entry, err := e.openEntry(ctx, tx, current, nil, now)
		if err != nil {
			return txResult{}, err
		}
		return txResult{
			snap:   &Snapshot{WorkerID: workerID, Session: current, Entry: entry},
			change: &Change{Kind: ChangeEntryStopped, WorkerID: workerID, SessionID: current.ID, EntryID: entry.ID, At: now},
		}, nil
	})
}

// DismissActiveTaskEntry undoes an accidental switch. The active task entry
// is deleted without a time record. The entry remembered by the last switch
// is reopened, and the record written when it closed is retracted so its
// time is counted once, when it closes again. Without a remembered entry a
// fresh default entry opens. Does nothing when the active entry is the
// default one.
func (e *Engine) DismissActiveTaskEntry(ctx context.Context, workerID uint) error {
	return e.mutate(ctx, "dismiss task", workerID, func(tx store.Store, now time.Time) (txResult, error) {
		if err := e.requireWorker(ctx, tx, workerID); err != nil {
			return txResult{}, err
		}
		current, active, err := e.openState(ctx, tx, workerID)
		if err != nil {
			return txResult{}, err
		}
		if current == nil {
			return txResult{}, nil
		}
		if active == nil || active.IsDefault() {
			return txResult{snap: &Snapshot{WorkerID: workerID, Session: current, Entry: active}}, nil
		}

		if err := tx.DeleteEntry(ctx, active.ID); err != nil {
			return txResult{}, fmt.Errorf("delete entry: %w", err)
		}

		var restored *models.Entry
		if current.LastClosedEntryID != nil {
			restored, err = e.reopenEntry(ctx, tx, current, *current.LastClosedEntryID)
			if err != nil {
				return txResult{}, err
			}
			current.LastClosedEntryID = nil
			if err := tx.UpdateSession(ctx, current); err != nil {
				return txResult{}, fmt.Errorf("update session: %w", err)
			}
		}
		if restored == nil {
			restored, err = e.openEntry(ctx, tx, current, nil, now)
			if err != nil {
				return txResult{}, err
			}
		}

		return txResult{
			snap:   &Snapshot{WorkerID: workerID, Session: current, Entry: restored},
			change: &Change{Kind: ChangeEntryDismissed, WorkerID: workerID, SessionID: current.ID, EntryID: restored.ID, At: now},
		}, nil
	})
}

func (e *Engine) requireWorker(ctx context.Context, tx store.Store, workerID uint) error {
	if _, err := tx.GetWorker(ctx, workerID); err != nil {
		return e.lookupErr("lookup worker", "worker", workerID, err)
	}
	return nil
}

// openState returns the worker's open session and its open entry. Either
// may be nil.
func (e *Engine) openState(ctx context.Context, tx store.Store, workerID uint) (*models.Session, *models.Entry, error) {
	session, err := tx.OpenSession(ctx, workerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load open session: %w", err)
	}

	entry, err := tx.OpenEntry(ctx, session.ID)
	if errors.Is(err, store.ErrNotFound) {
		return session, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load open entry: %w", err)
	}
	return session, entry, nil
}

func (e *Engine) stopSession(ctx context.Context, tx store.Store, session *models.Session, active *models.Entry, now time.Time) error {
	if active != nil {
		if err := e.closeEntry(ctx, tx, session, active, now); err != nil {
			return err
		}
	}
	end := now
	session.EndedAt = &end
	session.LastClosedEntryID = nil
	if err := tx.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (e *Engine) openEntry(ctx context.Context, tx store.Store, session *models.Session, taskID *uint, now time.Time) (*models.Entry, error) {
	sessionID := session.ID
	entry := &models.Entry{
		ID:        uuid.NewString(),
		SessionID: &sessionID,
		TaskID:    taskID,
		StartedAt: now,
	}
	if err := tx.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	return entry, nil
}

// closeEntry ends entry at now and writes its time record when the
// duration is positive.
func (e *Engine) closeEntry(ctx context.Context, tx store.Store, session *models.Session, entry *models.Entry, now time.Time) error {
	end := now
	duration := elapsedSeconds(entry.StartedAt, end)
	entry.EndedAt = &end
	entry.DurationSeconds = &duration
	if err := tx.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("close entry: %w", err)
	}
	if duration <= 0 {
		return nil
	}

	title, err := e.entryTitle(ctx, tx, entry)
	if err != nil {
		return err
	}
	sessionID := session.ID
	record := &models.TimeRecord{
		ID:              uuid.NewString(),
		EntryID:         entry.ID,
		SessionID:       &sessionID,
		TaskID:          entry.TaskID,
		SubjectID:       session.SubjectID,
		WorkerID:        session.WorkerID,
		Title:           title,
		StartedAt:       entry.StartedAt,
		EndedAt:         end,
		DurationSeconds: duration,
		DurationMinutes: (duration + 59) / 60,
	}
	if err := tx.CreateTimeRecord(ctx, record); err != nil {
		return fmt.Errorf("write time record: %w", err)
	}
	return nil
}

func (e *Engine) entryTitle(ctx context.Context, tx store.Store, entry *models.Entry) (string, error) {
	if entry.TaskID == nil {
		return models.DefaultEntryTitle, nil
	}
	task, err := tx.GetTask(ctx, *entry.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Task #%d", *entry.TaskID), nil
	}
	if err != nil {
		return "", fmt.Errorf("load task title: %w", err)
	}
	return task.Title, nil
}

// reopenEntry makes a previously closed entry of session active again and
// retracts its time record. Returns nil when the entry is gone.
func (e *Engine) reopenEntry(ctx context.Context, tx store.Store, session *models.Session, entryID string) (*models.Entry, error) {
	entry, err := tx.GetEntry(ctx, entryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load remembered entry: %w", err)
	}
	if entry.SessionID == nil || *entry.SessionID != session.ID {
		return nil, nil
	}

	if err := tx.DeleteTimeRecordsForEntry(ctx, entry.ID); err != nil {
		return nil, fmt.Errorf("retract time record: %w", err)
	}
	entry.EndedAt = nil
	entry.DurationSeconds = nil
	if err := tx.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("reopen entry: %w", err)
	}
	return entry, nil
}
