// Package engine tracks which task each worker is timing. It owns the
// worker's single open session and that session's single open entry, and
// turns closed entries into time records.
//
// Mutations for one worker are serialized by a per-worker mutex and run as
// one store transaction each. Elapsed-time reads never lock: they use the
// snapshot published after the last successful mutation or Load.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balkashynov/wrokdesk/internal/clock"
	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/store"
)

// Snapshot is an immutable view of one worker's state. Session is the open
// session, or the most recent closed one; Entry is the open entry and is
// nil whenever no session is open.
type Snapshot struct {
	WorkerID uint
	Session  *models.Session
	Entry    *models.Entry
}

// HasOpenSession reports whether the worker is timing
func (s *Snapshot) HasOpenSession() bool {
	return s != nil && s.Session.IsOpen()
}

type workerState struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source. Defaults to clock.Real().
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifier sets who hears about committed changes
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// Engine is the session engine. It is safe for concurrent use.
type Engine struct {
	store    store.Store
	clock    clock.Clock
	logger   *slog.Logger
	notifier Notifier

	workers sync.Map // uint -> *workerState
}

// New creates an engine over s
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		clock:    clock.Real(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) worker(id uint) *workerState {
	if ws, ok := e.workers.Load(id); ok {
		return ws.(*workerState)
	}
	ws, _ := e.workers.LoadOrStore(id, &workerState{})
	return ws.(*workerState)
}

// Current returns the last published snapshot for workerID, or nil if the
// engine has not seen the worker yet.
func (e *Engine) Current(workerID uint) *Snapshot {
	ws, ok := e.workers.Load(workerID)
	if !ok {
		return nil
	}
	return ws.(*workerState).snap.Load()
}

// Load reads the worker's state from the store and publishes it as the
// current snapshot.
func (e *Engine) Load(ctx context.Context, workerID uint) (*Snapshot, error) {
	ws := e.worker(workerID)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if _, err := e.store.GetWorker(ctx, workerID); err != nil {
		return nil, e.lookupErr("load", "worker", workerID, err)
	}

	snap := &Snapshot{WorkerID: workerID}
	session, err := e.store.LatestSession(ctx, workerID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, &StoreUnavailableError{Op: "load", Err: err}
	default:
		snap.Session = session
	}

	if snap.Session.IsOpen() {
		entry, err := e.store.OpenEntry(ctx, snap.Session.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, &StoreUnavailableError{Op: "load", Err: err}
		default:
			snap.Entry = entry
		}
	}

	ws.snap.Store(snap)
	return snap, nil
}

// ActiveEntryElapsedSeconds returns the seconds since the open entry
// started, floored at 0. Zero when no entry is open.
func (e *Engine) ActiveEntryElapsedSeconds(workerID uint) int64 {
	snap := e.Current(workerID)
	if snap == nil || !snap.Entry.IsOpen() {
		return 0
	}
	return elapsedSeconds(snap.Entry.StartedAt, e.clock.Now())
}

// SessionElapsedSeconds returns the length of the current or last session:
// start to end when closed, start to now when open. Floored at 0.
func (e *Engine) SessionElapsedSeconds(workerID uint) int64 {
	snap := e.Current(workerID)
	if snap == nil || snap.Session == nil {
		return 0
	}
	end := e.clock.Now()
	if snap.Session.EndedAt != nil {
		end = *snap.Session.EndedAt
	}
	return elapsedSeconds(snap.Session.StartedAt, end)
}

func elapsedSeconds(start, end time.Time) int64 {
	d := int64(end.Sub(start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

// txResult is what a mutation hands back to mutate for publishing.
type txResult struct {
	snap   *Snapshot
	change *Change
}

// mutate serializes fn against other mutations of the same worker and runs
// it in one store transaction. The snapshot and notification are published
// only after commit.
func (e *Engine) mutate(ctx context.Context, op string, workerID uint, fn func(tx store.Store, now time.Time) (txResult, error)) error {
	ws := e.worker(workerID)
	ws.mu.Lock()
	defer ws.mu.Unlock()

	var result txResult
	err := e.store.Atomically(ctx, func(tx store.Store) error {
		var err error
		result, err = fn(tx, e.clock.Now())
		return err
	})
	if err != nil {
		return e.opErr(op, err)
	}

	if result.snap != nil {
		ws.snap.Store(result.snap)
	}
	if result.change != nil {
		e.logger.Debug("worker state changed",
			"op", op,
			"worker_id", workerID,
			"kind", result.change.Kind,
			"session_id", result.change.SessionID,
			"entry_id", result.change.EntryID)
		e.notifier.Notify(*result.change)
	}
	return nil
}

// opErr normalizes errors leaving a mutation.
func (e *Engine) opErr(op string, err error) error {
	var nf *NotFoundError
	var su *StoreUnavailableError
	switch {
	case errors.As(err, &nf), errors.As(err, &su):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return &StoreUnavailableError{Op: op, Err: err}
	}
}

// lookupErr turns a directory lookup failure into NotFound or StoreUnavailable.
func (e *Engine) lookupErr(op, kind string, id uint, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(kind, id)
	}
	return &StoreUnavailableError{Op: op, Err: err}
}
