package domain

// ChangeType classifies entries on the task change feed.
type ChangeType string

const (
	TaskCreated ChangeType = "task-created"
	TaskUpdated ChangeType = "task-updated"
	TaskDeleted ChangeType = "task-deleted"
)

// ChangeEvent is published to the change feed after every successful mutation.
type ChangeEvent struct {
	ID     string     `json:"id"`
	TaskID string     `json:"taskId"`
	Type   ChangeType `json:"type"`
	// Timestamp is strictly increasing across events emitted by one process.
	Timestamp int64 `json:"timestamp"`
}
