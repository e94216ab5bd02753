package api

import (
	"context"

	"taskboard-api/domain"
)

// TaskService abstracts the domain operations for handlers.
type TaskService interface {
	Create(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error)
	List(ctx context.Context, q domain.ListQuery) ([]domain.Task, error)
	Update(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (domain.Task, error)
}

// ChangePublisher delivers task change events to the change feed.
type ChangePublisher interface {
	EnqueueChanges(ctx context.Context, evs []domain.ChangeEvent) error
}

// envelope is the uniform response shape shared by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}
