package domain

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// TaskStore abstracts the document collection backing tasks. Get, Merge and
// Delete report a missing record via their first return value rather than an
// error so callers can distinguish absence from storage failure.
type TaskStore interface {
	// InsertTask persists a new task and returns it with id and timestamps
	// assigned by the store.
	InsertTask(ctx context.Context, t Task) (Task, error)
	// ListTasks returns every task, or only those with the given status when
	// status is non-empty.
	ListTasks(ctx context.Context, status Status) ([]Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	// MergeTask applies the non-nil fields of upd and returns the merged
	// record, or nil when no task matches id.
	MergeTask(ctx context.Context, id string, upd TaskUpdate) (*Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}

// CreateTaskInput carries the caller-supplied fields for task creation.
type CreateTaskInput struct {
	Title       string
	Description string
}

// ListQuery carries the raw search and status filter parameters of a list
// request.
type ListQuery struct {
	Search string
	Status string
}

// TaskService validates caller input, builds query predicates and delegates
// persistence to a TaskStore.
type TaskService struct {
	store TaskStore
}

func NewTaskService(store TaskStore) TaskService {
	return TaskService{store: store}
}

// Create validates and trims the input, then persists a new Pending task.
func (s TaskService) Create(ctx context.Context, in CreateTaskInput) (Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, validationf("Task title is required")
	}
	t := Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      StatusPending,
	}
	return s.store.InsertTask(ctx, t)
}

// List returns tasks matching the query, newest created first. The search
// term matches title or description as a case-insensitive substring; a status
// of "All" or the empty string places no status restriction.
func (s TaskService) List(ctx context.Context, q ListQuery) ([]Task, error) {
	var status Status
	switch q.Status {
	case "", StatusFilterAll:
	case string(StatusPending), string(StatusCompleted):
		status = Status(q.Status)
	default:
		return nil, validationf("Status filter must be Pending, Completed or All")
	}

	tasks, err := s.store.ListTasks(ctx, status)
	if err != nil {
		return nil, err
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		needle := strings.ToLower(search)
		matched := tasks[:0]
		for _, t := range tasks {
			if strings.Contains(strings.ToLower(t.Title), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle) {
				matched = append(matched, t)
			}
		}
		tasks = matched
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt > tasks[j].CreatedAt
	})
	return tasks, nil
}

// Update applies a partial update. Only non-nil fields are written; title and
// description are trimmed before the write.
func (s TaskService) Update(ctx context.Context, id string, upd TaskUpdate) (Task, error) {
	if err := validateID(id); err != nil {
		return Task{}, err
	}
	if upd.Empty() {
		return Task{}, validationf("At least one field is required to update")
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return Task{}, validationf("Task title cannot be empty")
		}
		upd.Title = &title
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		upd.Description = &desc
	}
	if upd.Status != nil && !ValidStatus(string(*upd.Status)) {
		return Task{}, validationf("Status must be either Pending or Completed")
	}

	t, err := s.store.MergeTask(ctx, id, upd)
	if err != nil {
		return Task{}, err
	}
	if t == nil {
		return Task{}, NotFoundError{ID: id}
	}
	return *t, nil
}

// Delete permanently removes a task. Deleting an id that no longer exists
// reports NotFoundError, never silent success.
func (s TaskService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	found, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return NotFoundError{ID: id}
	}
	return nil
}

// GetByID returns a single task. Identifier format is validated here as well
// to keep the error contract uniform across operations.
func (s TaskService) GetByID(ctx context.Context, id string) (Task, error) {
	if err := validateID(id); err != nil {
		return Task{}, err
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t == nil {
		return Task{}, NotFoundError{ID: id}
	}
	return *t, nil
}

func validateID(id string) error {
	if uuid.Validate(id) != nil {
		return validationf("Invalid task ID")
	}
	return nil
}
