package domain

// Status is the completion state of a task. Only the two declared values are
// ever persisted.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// StatusFilterAll widens a list query to both statuses.
const StatusFilterAll = "All"

// ValidStatus reports whether s is one of the persistable status values.
func ValidStatus(s string) bool {
	return s == string(StatusPending) || s == string(StatusCompleted)
}

// Task represents a single tracked item.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// TaskUpdate carries a partial update for a task. Nil fields are left
// untouched by the store.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *Status
}

// Empty reports whether the update carries no field at all.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil
}
