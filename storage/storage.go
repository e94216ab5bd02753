package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"taskboard-api/domain"
)

// All tasks share one partition; the board is single-tenant.
const taskPartition = "task"

const edmInt64 = "Edm.Int64"

// Storage provides access to the task table and the change feed queue.
type Storage struct {
	taskTable   *aztables.Client
	changeQueue *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, changeQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	tt := svc.NewClient(tasksTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	cq, err := azqueue.NewQueueClientFromConnectionString(connStr, changeQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{taskTable: tt, changeQueue: cq}, nil
}

type taskEntity struct {
	aztables.Entity
	Title         string `json:"Title"`
	Description   string `json:"Description"`
	Status        string `json:"Status"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
	UpdatedAt     int64  `json:"UpdatedAt,string"`
	UpdatedAtType string `json:"UpdatedAt@odata.type"`
}

// taskUpdateEntity carries a partial merge; nil columns survive untouched.
type taskUpdateEntity struct {
	aztables.Entity
	Title         *string `json:"Title,omitempty"`
	Description   *string `json:"Description,omitempty"`
	Status        *string `json:"Status,omitempty"`
	UpdatedAt     *int64  `json:"UpdatedAt,omitempty,string"`
	UpdatedAtType *string `json:"UpdatedAt@odata.type,omitempty"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      domain.Status(ent.Status),
		CreatedAt:   ent.CreatedAt,
		UpdatedAt:   ent.UpdatedAt,
	}, nil
}

// InsertTask persists a new task, assigning its id and timestamps.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	now := time.Now().UnixMilli()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	ent := taskEntity{
		Entity:        aztables.Entity{PartitionKey: taskPartition, RowKey: t.ID},
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
		CreatedAtType: edmInt64,
		UpdatedAt:     t.UpdatedAt,
		UpdatedAtType: edmInt64,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ListTasks retrieves every task, restricted to one status when status is
// non-empty. The status value is always one of the validated enum members.
func (s *Storage) ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + taskPartition + "'"
	if status != "" {
		filter += " and Status eq '" + string(status) + "'"
	}
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			t, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// GetTask retrieves a single task, or nil when no record matches.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	ent, err := s.taskTable.GetEntity(ctx, taskPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	t, err := decodeTaskEntity(ent.Value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MergeTask applies the non-nil fields of upd and returns the merged record,
// or nil when no record matches.
func (s *Storage) MergeTask(ctx context.Context, id string, upd domain.TaskUpdate) (*domain.Task, error) {
	now := time.Now().UnixMilli()
	updType := edmInt64
	ent := taskUpdateEntity{
		Entity:        aztables.Entity{PartitionKey: taskPartition, RowKey: id},
		Title:         upd.Title,
		Description:   upd.Description,
		UpdatedAt:     &now,
		UpdatedAtType: &updType,
	}
	if upd.Status != nil {
		status := string(*upd.Status)
		ent.Status = &status
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return nil, err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// DeleteTask permanently removes a task. It reports whether a record existed.
func (s *Storage) DeleteTask(ctx context.Context, id string) (bool, error) {
	if _, err := s.taskTable.DeleteEntity(ctx, taskPartition, id, nil); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnqueueChanges publishes change events to the feed queue.
func (s *Storage) EnqueueChanges(ctx context.Context, evs []domain.ChangeEvent) error {
	for _, ev := range evs {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := s.changeQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
