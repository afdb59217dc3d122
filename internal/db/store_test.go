package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/wrokdesk/internal/clock"
	"github.com/balkashynov/wrokdesk/internal/engine"
	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/store"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(conn)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	worker, err := s.CreateWorker(ctx, "  Dana ")
	require.NoError(t, err)
	assert.Equal(t, "Dana", worker.Name)

	_, err = s.CreateWorker(ctx, "Dana")
	assert.Error(t, err, "names are unique")
	_, err = s.CreateWorker(ctx, " ")
	assert.Error(t, err)

	acme, err := s.CreateSubject(ctx, "Acme")
	require.NoError(t, err)
	_, err = s.CreateSubject(ctx, "Globex")
	require.NoError(t, err)

	task, err := s.CreateTask(ctx, CreateTaskRequest{SubjectID: acme.ID, Title: "Draft contract", Reference: "acme-12"})
	require.NoError(t, err)
	assert.Equal(t, "ACME-12", task.Reference)
	assert.Equal(t, models.TaskStatusOpen, task.Status)

	loose, err := s.CreateTask(ctx, CreateTaskRequest{SubjectID: acme.ID, Title: "Call", Reference: "see email"})
	require.NoError(t, err)
	assert.Equal(t, "see email", loose.Reference)

	_, err = s.CreateTask(ctx, CreateTaskRequest{SubjectID: 999, Title: "Orphan"})
	assert.Error(t, err)

	subjects, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Acme", subjects[0].Name)

	tasks, err := s.ListTasks(ctx, TaskQuery{SubjectID: acme.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	done, err := s.SetTaskStatus(ctx, task.ID, models.TaskStatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, done.Status)
	_, err = s.SetTaskStatus(ctx, task.ID, models.TaskStatusDone)
	assert.Error(t, err)
	_, err = s.SetTaskStatus(ctx, task.ID, "lost")
	assert.Error(t, err)

	open, err := s.ListTasks(ctx, TaskQuery{Status: models.TaskStatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, loose.ID, open[0].ID)
}

func TestUpdateAndSearchTasks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acme, err := s.CreateSubject(ctx, "Acme")
	require.NoError(t, err)
	draft, err := s.CreateTask(ctx, CreateTaskRequest{SubjectID: acme.ID, Title: "Draft contract"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, CreateTaskRequest{SubjectID: acme.ID, Title: "Review invoice", Reference: "ACME-7"})
	require.NoError(t, err)

	title, ref := "Draft lease", "acme-9"
	updated, err := s.UpdateTask(ctx, draft.ID, UpdateTaskRequest{Title: &title, Reference: &ref})
	require.NoError(t, err)
	assert.Equal(t, "Draft lease", updated.Title)
	assert.Equal(t, "ACME-9", updated.Reference)

	blank := "  "
	_, err = s.UpdateTask(ctx, draft.ID, UpdateTaskRequest{Title: &blank})
	assert.Error(t, err)
	_, err = s.UpdateTask(ctx, 999, UpdateTaskRequest{Title: &title})
	assert.Error(t, err)

	found, err := s.ListTasks(ctx, TaskQuery{Search: "LEASE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, draft.ID, found[0].ID)

	found, err = s.ListTasks(ctx, TaskQuery{Search: "acme-7"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Review invoice", found[0].Title)
}

func TestFindByRef(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	worker, err := s.CreateWorker(ctx, "Dana")
	require.NoError(t, err)
	acme, err := s.CreateSubject(ctx, "Acme")
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, CreateTaskRequest{SubjectID: acme.ID, Title: "Draft", Reference: "ACME-12"})
	require.NoError(t, err)

	byName, err := s.FindWorker(ctx, "dana")
	require.NoError(t, err)
	assert.Equal(t, worker.ID, byName.ID)

	byID, err := s.FindSubject(ctx, "#1")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, byID.ID)

	byRef, err := s.FindTask(ctx, "acme-12")
	require.NoError(t, err)
	assert.Equal(t, task.ID, byRef.ID)

	_, err = s.FindWorker(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindTask(ctx, "42")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLookupsReturnErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetWorker(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetTask(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.OpenSession(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.LatestSession(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetEntry(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEntry(ctx, "missing"), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEntry(ctx, &models.Entry{ID: "missing", StartedAt: t0}), store.ErrNotFound)
}

func TestOneOpenSessionPerWorker(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "s1", WorkerID: 1, SubjectID: 1, StartedAt: t0}))
	err := s.CreateSession(ctx, &models.Session{ID: "s2", WorkerID: 1, SubjectID: 1, StartedAt: t0})
	assert.Error(t, err)

	// another worker is independent
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "s3", WorkerID: 2, SubjectID: 1, StartedAt: t0}))

	// closed sessions don't count
	end := t0.Add(time.Hour)
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "s4", WorkerID: 1, SubjectID: 1, StartedAt: t0, EndedAt: &end}))
}

func TestOneOpenEntryPerSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sessionID := "s1"

	require.NoError(t, s.CreateEntry(ctx, &models.Entry{ID: "e1", SessionID: &sessionID, StartedAt: t0}))
	err := s.CreateEntry(ctx, &models.Entry{ID: "e2", SessionID: &sessionID, StartedAt: t0})
	assert.Error(t, err)
}

func TestAtomicallyRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.Atomically(ctx, func(tx store.Store) error {
		require.NoError(t, tx.CreateSession(ctx, &models.Session{ID: "s1", WorkerID: 1, SubjectID: 1, StartedAt: t0}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.OpenSession(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = s.Atomically(cctx, func(tx store.Store) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateEntryClearsEnd(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sessionID := "s1"
	end := t0.Add(time.Minute)
	dur := int64(60)

	entry := &models.Entry{ID: "e1", SessionID: &sessionID, StartedAt: t0, EndedAt: &end, DurationSeconds: &dur}
	require.NoError(t, s.CreateEntry(ctx, entry))

	entry.EndedAt = nil
	entry.DurationSeconds = nil
	require.NoError(t, s.UpdateEntry(ctx, entry))

	open, err := s.OpenEntry(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "e1", open.ID)
	assert.Nil(t, open.DurationSeconds)
}

func TestQueryTimeRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sessionID := "s1"

	add := func(id string, worker, subject uint, start time.Time) {
		require.NoError(t, s.CreateTimeRecord(ctx, &models.TimeRecord{
			ID: id, EntryID: "e-" + id, SessionID: &sessionID, WorkerID: worker, SubjectID: subject,
			Title: id, StartedAt: start, EndedAt: start.Add(time.Minute), DurationSeconds: 60, DurationMinutes: 1,
		}))
	}
	add("late", 1, 1, t0.Add(2*time.Hour))
	add("early", 1, 1, t0)
	add("other-worker", 2, 1, t0.Add(time.Hour))
	add("other-subject", 1, 2, t0.Add(time.Hour))

	worker := uint(1)
	recs, err := s.QueryTimeRecords(ctx, store.TimeRecordFilter{WorkerID: &worker})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "early", recs[0].ID)
	assert.Equal(t, "late", recs[2].ID)

	subject := uint(1)
	from, to := t0.Add(30*time.Minute), t0.Add(2*time.Hour)
	recs, err = s.QueryTimeRecords(ctx, store.TimeRecordFilter{SubjectID: &subject, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "other-worker", recs[0].ID)

	require.NoError(t, s.DeleteTimeRecordsForEntry(ctx, "e-late"))
	recs, err = s.QueryTimeRecords(ctx, store.TimeRecordFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestQueryTimeRecordsWholeSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	midnight := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	add := func(id string, sessionID *string, start, end time.Time) {
		require.NoError(t, s.CreateTimeRecord(ctx, &models.TimeRecord{
			ID: id, EntryID: "e-" + id, SessionID: sessionID, WorkerID: 1, SubjectID: 1, Title: id,
			StartedAt: start, EndedAt: end, DurationSeconds: int64(end.Sub(start).Seconds()),
		}))
	}
	late, early := "late", "early"
	add("l1", &late, midnight.Add(-time.Hour), midnight.Add(-10*time.Minute))
	add("l2", &late, midnight.Add(-10*time.Minute), midnight.Add(40*time.Minute))
	add("e1", &early, midnight.Add(-3*time.Hour), midnight)
	add("x1", nil, midnight.Add(time.Hour), midnight.Add(2*time.Hour))

	ids := func(recs []models.TimeRecord) []string {
		out := make([]string, 0, len(recs))
		for _, r := range recs {
			out = append(out, r.ID)
		}
		return out
	}

	worker := uint(1)
	from, to := midnight, midnight.AddDate(0, 0, 1)
	recs, err := s.QueryTimeRecords(ctx, store.TimeRecordFilter{WorkerID: &worker, From: &from, To: &to, WholeSessions: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2", "x1"}, ids(recs))

	from, to = midnight.AddDate(0, 0, -1), midnight
	recs, err = s.QueryTimeRecords(ctx, store.TimeRecordFilter{WorkerID: &worker, From: &from, To: &to, WholeSessions: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids(recs))
}

func TestEngineOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clk := clock.Fake(t0)
	eng := engine.New(s, engine.WithClock(clk))

	worker, err := s.CreateWorker(ctx, "Dana")
	require.NoError(t, err)
	acme, err := s.CreateSubject(ctx, "Acme")
	require.NoError(t, err)
	taskA, err := s.CreateTask(ctx, CreateTaskRequest{SubjectID: acme.ID, Title: "Draft contract"})
	require.NoError(t, err)
	taskB, err := s.CreateTask(ctx, CreateTaskRequest{SubjectID: acme.ID, Title: "Review invoice"})
	require.NoError(t, err)

	session, err := eng.StartSession(ctx, worker.ID, acme.ID)
	require.NoError(t, err)
	clk.Advance(10 * time.Second)
	require.NoError(t, eng.SwitchTaskEntry(ctx, worker.ID, taskA.ID))
	entryA, err := s.OpenEntry(ctx, session.ID)
	require.NoError(t, err)
	clk.Advance(20 * time.Second)
	require.NoError(t, eng.SwitchTaskEntry(ctx, worker.ID, taskB.ID))
	clk.Advance(5 * time.Second)
	require.NoError(t, eng.DismissActiveTaskEntry(ctx, worker.ID))

	restored, err := s.OpenEntry(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entryA.ID, restored.ID)

	clk.Advance(15 * time.Second)
	require.NoError(t, eng.StopSession(ctx, worker.ID))

	workerID := worker.ID
	recs, err := s.QueryTimeRecords(ctx, store.TimeRecordFilter{WorkerID: &workerID})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.DefaultEntryTitle, recs[0].Title)
	assert.Equal(t, int64(10), recs[0].DurationSeconds)
	assert.Equal(t, "Draft contract", recs[1].Title)
	assert.Equal(t, int64(40), recs[1].DurationSeconds)
	assert.True(t, recs[1].StartedAt.Equal(t0.Add(10*time.Second)))

	latest, err := s.LatestSession(ctx, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, latest.ID)
	require.NotNil(t, latest.EndedAt)
	assert.True(t, latest.EndedAt.Equal(t0.Add(50*time.Second)))
	assert.Nil(t, latest.LastClosedEntryID)

	fresh := engine.New(s, engine.WithClock(clk))
	snap, err := fresh.Load(ctx, worker.ID)
	require.NoError(t, err)
	assert.False(t, snap.HasOpenSession())
	assert.Equal(t, int64(50), fresh.SessionElapsedSeconds(worker.ID))
}
