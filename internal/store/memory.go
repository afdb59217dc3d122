package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/balkashynov/wrokdesk/internal/models"
)

var (
	_ Store = (*Memory)(nil)
	_ Store = (*memTx)(nil)
)

// Memory is an in-process Store. Transactions work on a copy of the data
// that replaces the live copy only when fn succeeds.
type Memory struct {
	mu       sync.RWMutex
	data     *memData
	failures map[string]error
}

type memData struct {
	nextID   uint
	seq      int
	workers  map[uint]models.Worker
	subjects map[uint]models.Subject
	tasks    map[uint]models.Task
	sessions map[string]models.Session
	entries  map[string]models.Entry
	records  map[string]models.TimeRecord

	// insertion order, used to break StartedAt ties
	order map[string]int
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		data: &memData{
			workers:  make(map[uint]models.Worker),
			subjects: make(map[uint]models.Subject),
			tasks:    make(map[uint]models.Task),
			sessions: make(map[string]models.Session),
			entries:  make(map[string]models.Entry),
			records:  make(map[string]models.TimeRecord),
			order:    make(map[string]int),
		},
		failures: make(map[string]error),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		nextID:   d.nextID,
		seq:      d.seq,
		workers:  make(map[uint]models.Worker, len(d.workers)),
		subjects: make(map[uint]models.Subject, len(d.subjects)),
		tasks:    make(map[uint]models.Task, len(d.tasks)),
		sessions: make(map[string]models.Session, len(d.sessions)),
		entries:  make(map[string]models.Entry, len(d.entries)),
		records:  make(map[string]models.TimeRecord, len(d.records)),
		order:    make(map[string]int, len(d.order)),
	}
	for k, v := range d.workers {
		c.workers[k] = v
	}
	for k, v := range d.subjects {
		c.subjects[k] = v
	}
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	for k, v := range d.sessions {
		c.sessions[k] = v
	}
	for k, v := range d.entries {
		c.entries[k] = v
	}
	for k, v := range d.records {
		c.records[k] = v
	}
	for k, v := range d.order {
		c.order[k] = v
	}
	return c
}

// FailOn makes every subsequent write named op (for example "CreateEntry")
// fail with err. A nil err clears the failure.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// AddWorker registers a worker and returns it
func (m *Memory) AddWorker(name string) models.Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.nextID++
	w := models.Worker{ID: m.data.nextID, Name: name, CreatedAt: time.Now().UTC()}
	m.data.workers[w.ID] = w
	return w
}

// AddSubject registers a subject (client) and returns it
func (m *Memory) AddSubject(name string) models.Subject {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.nextID++
	s := models.Subject{ID: m.data.nextID, Name: name, CreatedAt: time.Now().UTC()}
	m.data.subjects[s.ID] = s
	return s
}

// AddTask registers a task owned by subjectID and returns it
func (m *Memory) AddTask(subjectID uint, title string) models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.nextID++
	t := models.Task{
		ID:        m.data.nextID,
		SubjectID: subjectID,
		Title:     title,
		Status:    models.TaskStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	m.data.tasks[t.ID] = t
	return t
}

// Sessions returns every session of workerID, oldest first
func (m *Memory) Sessions(workerID uint) []models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Session
	for _, s := range m.data.sessions {
		if s.WorkerID == workerID {
			out = append(out, copySession(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.data.order[out[i].ID] < m.data.order[out[j].ID]
	})
	return out
}

// Entries returns every entry of sessionID, in creation order
func (m *Memory) Entries(sessionID string) []models.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Entry
	for _, e := range m.data.entries {
		if e.SessionID != nil && *e.SessionID == sessionID {
			out = append(out, copyEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.data.order[out[i].ID] < m.data.order[out[j].ID]
	})
	return out
}

func (m *Memory) view() *memTx {
	return &memTx{m: m, d: m.data}
}

func (m *Memory) GetWorker(ctx context.Context, id uint) (*models.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetWorker(ctx, id)
}

func (m *Memory) GetSubject(ctx context.Context, id uint) (*models.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetSubject(ctx, id)
}

func (m *Memory) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetTask(ctx, id)
}

func (m *Memory) OpenSession(ctx context.Context, workerID uint) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().OpenSession(ctx, workerID)
}

func (m *Memory) LatestSession(ctx context.Context, workerID uint) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().LatestSession(ctx, workerID)
}

func (m *Memory) OpenEntry(ctx context.Context, sessionID string) (*models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().OpenEntry(ctx, sessionID)
}

func (m *Memory) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetEntry(ctx, id)
}

func (m *Memory) QueryTimeRecords(ctx context.Context, filter TimeRecordFilter) ([]models.TimeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().QueryTimeRecords(ctx, filter)
}

func (m *Memory) CreateSession(ctx context.Context, session *models.Session) error {
	return m.Atomically(ctx, func(tx Store) error { return tx.CreateSession(ctx, session) })
}

func (m *Memory) UpdateSession(ctx context.Context, session *models.Session) error {
	return m.Atomically(ctx, func(tx Store) error { return tx.UpdateSession(ctx, session) })
}

func (m *Memory) CreateEntry(ctx context.Context, entry *models.Entry) error {
	return m.Atomically(ctx, func(tx Store) error { return tx.CreateEntry(ctx, entry) })
}

func (m *Memory) UpdateEntry(ctx context.Context, entry *models.Entry) error {
	return m.Atomically(ctx, func(tx Store) error { return tx.UpdateEntry(ctx, entry) })
}

func (m *Memory) DeleteEntry(ctx context.Context, id string) error {
	return m.Atomically(ctx, func(tx Store) error { return tx.DeleteEntry(ctx, id) })
}

func (m *Memory) CreateTimeRecord(ctx context.Context, record *models.TimeRecord) error {
	return m.Atomically(ctx, func(tx Store) error { return tx.CreateTimeRecord(ctx, record) })
}

func (m *Memory) DeleteTimeRecordsForEntry(ctx context.Context, entryID string) error {
	return m.Atomically(ctx, func(tx Store) error { return tx.DeleteTimeRecordsForEntry(ctx, entryID) })
}

// Atomically runs fn on a private copy of the data and swaps it in on success.
// Transactions are serialized.
func (m *Memory) Atomically(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.data.clone()
	if err := fn(&memTx{m: m, d: working}); err != nil {
		return err
	}
	// a caller that gave up must not see its writes land
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data = working
	return nil
}

// memTx is a view over one memData. Callers hold m.mu.
type memTx struct {
	m *Memory
	d *memData
}

func (tx *memTx) fail(op string) error {
	if err, ok := tx.m.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (tx *memTx) GetWorker(_ context.Context, id uint) (*models.Worker, error) {
	w, ok := tx.d.workers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (tx *memTx) GetSubject(_ context.Context, id uint) (*models.Subject, error) {
	s, ok := tx.d.subjects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (tx *memTx) GetTask(_ context.Context, id uint) (*models.Task, error) {
	t, ok := tx.d.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (tx *memTx) OpenSession(_ context.Context, workerID uint) (*models.Session, error) {
	for _, s := range tx.d.sessions {
		if s.WorkerID == workerID && s.EndedAt == nil {
			c := copySession(s)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (tx *memTx) LatestSession(ctx context.Context, workerID uint) (*models.Session, error) {
	if open, err := tx.OpenSession(ctx, workerID); err == nil {
		return open, nil
	}

	var latest *models.Session
	for _, s := range tx.d.sessions {
		if s.WorkerID != workerID {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) ||
			(s.StartedAt.Equal(latest.StartedAt) && tx.d.order[s.ID] > tx.d.order[latest.ID]) {
			c := copySession(s)
			latest = &c
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (tx *memTx) OpenEntry(_ context.Context, sessionID string) (*models.Entry, error) {
	for _, e := range tx.d.entries {
		if e.SessionID != nil && *e.SessionID == sessionID && e.EndedAt == nil {
			c := copyEntry(e)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (tx *memTx) GetEntry(_ context.Context, id string) (*models.Entry, error) {
	e, ok := tx.d.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyEntry(e)
	return &c, nil
}

func (tx *memTx) QueryTimeRecords(_ context.Context, filter TimeRecordFilter) ([]models.TimeRecord, error) {
	matches := func(r models.TimeRecord) bool {
		if filter.WorkerID != nil && r.WorkerID != *filter.WorkerID {
			return false
		}
		if filter.SubjectID != nil && r.SubjectID != *filter.SubjectID {
			return false
		}
		if filter.SessionID != nil && (r.SessionID == nil || *r.SessionID != *filter.SessionID) {
			return false
		}
		return true
	}

	// latest end per session, for whole-session windows
	sessionEnd := map[string]time.Time{}
	if filter.WholeSessions {
		for _, r := range tx.d.records {
			if r.SessionID == nil || !matches(r) {
				continue
			}
			if end, ok := sessionEnd[*r.SessionID]; !ok || r.EndedAt.After(end) {
				sessionEnd[*r.SessionID] = r.EndedAt
			}
		}
	}

	out := make([]models.TimeRecord, 0)
	for _, r := range tx.d.records {
		if !matches(r) {
			continue
		}
		if filter.WholeSessions {
			end := r.EndedAt
			if r.SessionID != nil {
				end = sessionEnd[*r.SessionID]
			}
			if filter.From != nil && !end.After(*filter.From) {
				continue
			}
			if filter.To != nil && end.After(*filter.To) {
				continue
			}
		} else {
			if filter.From != nil && r.StartedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !r.StartedAt.Before(*filter.To) {
				continue
			}
		}
		out = append(out, copyRecord(r))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return tx.d.order[out[i].ID] < tx.d.order[out[j].ID]
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (tx *memTx) remember(id string) {
	tx.d.seq++
	tx.d.order[id] = tx.d.seq
}

func (tx *memTx) CreateSession(_ context.Context, session *models.Session) error {
	if err := tx.fail("CreateSession"); err != nil {
		return err
	}
	if _, exists := tx.d.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	if session.EndedAt == nil {
		for _, s := range tx.d.sessions {
			if s.WorkerID == session.WorkerID && s.EndedAt == nil {
				return fmt.Errorf("worker %d already has open session %s", session.WorkerID, s.ID)
			}
		}
	}
	now := time.Now().UTC()
	session.CreatedAt, session.UpdatedAt = now, now
	tx.d.sessions[session.ID] = copySession(*session)
	tx.remember(session.ID)
	return nil
}

func (tx *memTx) UpdateSession(_ context.Context, session *models.Session) error {
	if err := tx.fail("UpdateSession"); err != nil {
		return err
	}
	if _, ok := tx.d.sessions[session.ID]; !ok {
		return ErrNotFound
	}
	session.UpdatedAt = time.Now().UTC()
	tx.d.sessions[session.ID] = copySession(*session)
	return nil
}

func (tx *memTx) CreateEntry(_ context.Context, entry *models.Entry) error {
	if err := tx.fail("CreateEntry"); err != nil {
		return err
	}
	if _, exists := tx.d.entries[entry.ID]; exists {
		return fmt.Errorf("entry %s already exists", entry.ID)
	}
	if err := tx.checkOneOpenEntry(entry); err != nil {
		return err
	}
	now := time.Now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	tx.d.entries[entry.ID] = copyEntry(*entry)
	tx.remember(entry.ID)
	return nil
}

func (tx *memTx) UpdateEntry(_ context.Context, entry *models.Entry) error {
	if err := tx.fail("UpdateEntry"); err != nil {
		return err
	}
	if _, ok := tx.d.entries[entry.ID]; !ok {
		return ErrNotFound
	}
	if err := tx.checkOneOpenEntry(entry); err != nil {
		return err
	}
	entry.UpdatedAt = time.Now().UTC()
	tx.d.entries[entry.ID] = copyEntry(*entry)
	return nil
}

// checkOneOpenEntry mirrors the partial unique index of the SQLite schema.
func (tx *memTx) checkOneOpenEntry(entry *models.Entry) error {
	if entry.EndedAt != nil || entry.SessionID == nil {
		return nil
	}
	for _, e := range tx.d.entries {
		if e.ID != entry.ID && e.SessionID != nil && *e.SessionID == *entry.SessionID && e.EndedAt == nil {
			return fmt.Errorf("session %s already has open entry %s", *entry.SessionID, e.ID)
		}
	}
	return nil
}

func (tx *memTx) DeleteEntry(_ context.Context, id string) error {
	if err := tx.fail("DeleteEntry"); err != nil {
		return err
	}
	if _, ok := tx.d.entries[id]; !ok {
		return ErrNotFound
	}
	delete(tx.d.entries, id)
	delete(tx.d.order, id)
	return nil
}

func (tx *memTx) CreateTimeRecord(_ context.Context, record *models.TimeRecord) error {
	if err := tx.fail("CreateTimeRecord"); err != nil {
		return err
	}
	if _, exists := tx.d.records[record.ID]; exists {
		return fmt.Errorf("time record %s already exists", record.ID)
	}
	record.CreatedAt = time.Now().UTC()
	tx.d.records[record.ID] = copyRecord(*record)
	tx.remember(record.ID)
	return nil
}

func (tx *memTx) DeleteTimeRecordsForEntry(_ context.Context, entryID string) error {
	if err := tx.fail("DeleteTimeRecordsForEntry"); err != nil {
		return err
	}
	for id, r := range tx.d.records {
		if r.EntryID == entryID {
			delete(tx.d.records, id)
			delete(tx.d.order, id)
		}
	}
	return nil
}

// Atomically on a transaction joins it.
func (tx *memTx) Atomically(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(tx)
}

func copySession(s models.Session) models.Session {
	if s.EndedAt != nil {
		t := *s.EndedAt
		s.EndedAt = &t
	}
	if s.LastClosedEntryID != nil {
		id := *s.LastClosedEntryID
		s.LastClosedEntryID = &id
	}
	return s
}

func copyEntry(e models.Entry) models.Entry {
	if e.SessionID != nil {
		id := *e.SessionID
		e.SessionID = &id
	}
	if e.TaskID != nil {
		id := *e.TaskID
		e.TaskID = &id
	}
	if e.EndedAt != nil {
		t := *e.EndedAt
		e.EndedAt = &t
	}
	if e.DurationSeconds != nil {
		d := *e.DurationSeconds
		e.DurationSeconds = &d
	}
	return e
}

func copyRecord(r models.TimeRecord) models.TimeRecord {
	if r.SessionID != nil {
		id := *r.SessionID
		r.SessionID = &id
	}
	if r.TaskID != nil {
		id := *r.TaskID
		r.TaskID = &id
	}
	return r
}
