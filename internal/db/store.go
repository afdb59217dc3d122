package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on gorm. Inside Atomically it is bound to the
// transaction.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// notFound maps gorm's missing-row error to store.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) GetWorker(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	if err := s.conn(ctx).First(&worker, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &worker, nil
}

func (s *Store) GetSubject(ctx context.Context, id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := s.conn(ctx).First(&subject, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &subject, nil
}

func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.conn(ctx).First(&task, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (s *Store) OpenSession(ctx context.Context, workerID uint) (*models.Session, error) {
	var session models.Session
	err := s.conn(ctx).Where("worker_id = ? AND ended_at IS NULL", workerID).First(&session).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (s *Store) LatestSession(ctx context.Context, workerID uint) (*models.Session, error) {
	session, err := s.OpenSession(ctx, workerID)
	if !errors.Is(err, store.ErrNotFound) {
		return session, err
	}

	var latest models.Session
	err = s.conn(ctx).Where("worker_id = ?", workerID).
		Order("started_at DESC").
		Order("created_at DESC").
		First(&latest).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &latest, nil
}

func (s *Store) OpenEntry(ctx context.Context, sessionID string) (*models.Entry, error) {
	var entry models.Entry
	err := s.conn(ctx).Where("session_id = ? AND ended_at IS NULL", sessionID).First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	if err := s.conn(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *Store) QueryTimeRecords(ctx context.Context, filter store.TimeRecordFilter) ([]models.TimeRecord, error) {
	query := s.conn(ctx).Model(&models.TimeRecord{})
	if filter.WorkerID != nil {
		query = query.Where("worker_id = ?", *filter.WorkerID)
	}
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}
	switch {
	case filter.WholeSessions && (filter.From != nil || filter.To != nil):
		// sessions whose last record ends in the window
		sessions := s.conn(ctx).Model(&models.TimeRecord{}).
			Select("session_id").
			Where("session_id IS NOT NULL").
			Group("session_id")
		loose := s.conn(ctx).Where("session_id IS NULL")
		if filter.From != nil {
			sessions = sessions.Having("MAX(ended_at) > ?", filter.From.UTC())
			loose = loose.Where("ended_at > ?", filter.From.UTC())
		}
		if filter.To != nil {
			sessions = sessions.Having("MAX(ended_at) <= ?", filter.To.UTC())
			loose = loose.Where("ended_at <= ?", filter.To.UTC())
		}
		query = query.Where(s.conn(ctx).Where("session_id IN (?)", sessions).Or(loose))
	default:
		if filter.From != nil {
			query = query.Where("started_at >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			query = query.Where("started_at < ?", filter.To.UTC())
		}
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	records := make([]models.TimeRecord, 0)
	err := query.Order("started_at ASC").Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query time records: %w", err)
	}
	return records, nil
}

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	return s.conn(ctx).Create(session).Error
}

func (s *Store) UpdateSession(ctx context.Context, session *models.Session) error {
	return s.update(ctx, session, session.ID)
}

func (s *Store) CreateEntry(ctx context.Context, entry *models.Entry) error {
	return s.conn(ctx).Create(entry).Error
}

func (s *Store) UpdateEntry(ctx context.Context, entry *models.Entry) error {
	return s.update(ctx, entry, entry.ID)
}

// update writes every column of row, nil pointers included, and reports
// ErrNotFound when no row has id.
func (s *Store) update(ctx context.Context, row any, id string) error {
	result := s.conn(ctx).Model(row).Where("id = ?", id).Select("*").Omit("id", "created_at").Updates(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	result := s.conn(ctx).Where("id = ?", id).Delete(&models.Entry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateTimeRecord(ctx context.Context, record *models.TimeRecord) error {
	return s.conn(ctx).Create(record).Error
}

func (s *Store) DeleteTimeRecordsForEntry(ctx context.Context, entryID string) error {
	return s.conn(ctx).Where("entry_id = ?", entryID).Delete(&models.TimeRecord{}).Error
}

// Atomically runs fn inside a database transaction. A nested call joins
// the enclosing transaction through a savepoint.
func (s *Store) Atomically(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(&Store{db: tx}); err != nil {
			return err
		}
		// a caller that gave up must not see its writes land
		return ctx.Err()
	})
}
