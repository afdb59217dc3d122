package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/balkashynov/wrokdesk/internal/models"
	"github.com/balkashynov/wrokdesk/internal/parser"
	"github.com/balkashynov/wrokdesk/internal/store"
)

// CreateTaskRequest holds the data needed to create a new task
type CreateTaskRequest struct {
	SubjectID uint
	Title     string
	Reference string
}

// UpdateTaskRequest holds the task fields to change. Nil fields are kept.
type UpdateTaskRequest struct {
	Title     *string
	Reference *string
}

// TaskQuery filters ListTasks. Zero values do not filter.
type TaskQuery struct {
	SubjectID uint
	Status    string
	Search    string // case-insensitive match on title or reference
}

// CreateWorker registers a worker
func (s *Store) CreateWorker(ctx context.Context, name string) (*models.Worker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("worker name cannot be empty")
	}
	worker := models.Worker{Name: name}
	if err := s.conn(ctx).Create(&worker).Error; err != nil {
		return nil, fmt.Errorf("failed to create worker %q: %w", name, err)
	}
	return &worker, nil
}

// CreateSubject registers a client
func (s *Store) CreateSubject(ctx context.Context, name string) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("client name cannot be empty")
	}
	subject := models.Subject{Name: name}
	if err := s.conn(ctx).Create(&subject).Error; err != nil {
		return nil, fmt.Errorf("failed to create client %q: %w", name, err)
	}
	return &subject, nil
}

// CreateTask creates a task for an existing client
func (s *Store) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("task title cannot be empty")
	}
	if _, err := s.GetSubject(ctx, req.SubjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("client #%d not found", req.SubjectID)
		}
		return nil, err
	}

	task := models.Task{
		SubjectID: req.SubjectID,
		Title:     title,
		Status:    models.TaskStatusOpen,
		Reference: cleanReference(req.Reference),
	}
	if err := s.conn(ctx).Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask changes a task's title or reference
func (s *Store) UpdateTask(ctx context.Context, id uint, req UpdateTaskRequest) (*models.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("task #%d not found", id)
		}
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("task title cannot be empty")
		}
		task.Title = title
	}
	if req.Reference != nil {
		task.Reference = cleanReference(*req.Reference)
	}

	if err := s.conn(ctx).Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// cleanReference upper-cases ticket ids and keeps anything else as typed
func cleanReference(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref != "" && parser.IsValidReference(ref) {
		ref, _ = parser.NormalizeReference(ref)
	}
	return ref
}

// ListWorkers returns every worker ordered by name
func (s *Store) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	var workers []models.Worker
	if err := s.conn(ctx).Order("name ASC").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

// ListSubjects returns every client ordered by name
func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := s.conn(ctx).Order("name ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

// ListTasks retrieves tasks with optional filters
func (s *Store) ListTasks(ctx context.Context, q TaskQuery) ([]models.Task, error) {
	query := s.conn(ctx).Model(&models.Task{})
	if q.SubjectID != 0 {
		query = query.Where("subject_id = ?", q.SubjectID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(reference) LIKE ?", like, like)
	}

	var tasks []models.Task
	if err := query.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// SetTaskStatus moves a task to open, done or archived
func (s *Store) SetTaskStatus(ctx context.Context, id uint, status string) (*models.Task, error) {
	switch status {
	case models.TaskStatusOpen, models.TaskStatusDone, models.TaskStatusArchived:
	default:
		return nil, fmt.Errorf("invalid task status %q", status)
	}

	task, err := s.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("task #%d not found", id)
		}
		return nil, err
	}
	if task.Status == status {
		return nil, fmt.Errorf("task #%d is already %s", id, status)
	}

	task.Status = status
	if err := s.conn(ctx).Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// FindWorker resolves a worker by id ("3" or "#3") or case-insensitive name
func (s *Store) FindWorker(ctx context.Context, ref string) (*models.Worker, error) {
	var worker models.Worker
	if err := s.findByRef(ctx, &worker, ref, "name"); err != nil {
		return nil, fmt.Errorf("worker %q: %w", ref, err)
	}
	return &worker, nil
}

// FindSubject resolves a client by id or case-insensitive name
func (s *Store) FindSubject(ctx context.Context, ref string) (*models.Subject, error) {
	var subject models.Subject
	if err := s.findByRef(ctx, &subject, ref, "name"); err != nil {
		return nil, fmt.Errorf("client %q: %w", ref, err)
	}
	return &subject, nil
}

// FindTask resolves a task by id or by its reference (ACME-12)
func (s *Store) FindTask(ctx context.Context, ref string) (*models.Task, error) {
	var task models.Task
	if err := s.findByRef(ctx, &task, ref, "reference"); err != nil {
		return nil, fmt.Errorf("task %q: %w", ref, err)
	}
	return &task, nil
}

func (s *Store) findByRef(ctx context.Context, dest any, ref, column string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return store.ErrNotFound
	}

	if id, err := strconv.ParseUint(strings.TrimPrefix(ref, "#"), 10, 64); err == nil {
		err := s.conn(ctx).First(dest, uint(id)).Error
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	err := s.conn(ctx).Where("LOWER("+column+") = ?", strings.ToLower(ref)).First(dest).Error
	return notFound(err)
}
