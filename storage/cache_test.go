package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

type stubStore struct {
	listTasksFn  func(ctx context.Context, status domain.Status) ([]domain.Task, error)
	insertTaskFn func(ctx context.Context, t domain.Task) (domain.Task, error)
	getTaskFn    func(ctx context.Context, id string) (*domain.Task, error)
	mergeTaskFn  func(ctx context.Context, id string, upd domain.TaskUpdate) (*domain.Task, error)
	deleteTaskFn func(ctx context.Context, id string) (bool, error)
}

func (s *stubStore) ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	if s.listTasksFn == nil {
		return nil, errors.New("unexpected ListTasks call")
	}
	return s.listTasksFn(ctx, status)
}

func (s *stubStore) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if s.insertTaskFn == nil {
		return domain.Task{}, errors.New("unexpected InsertTask call")
	}
	return s.insertTaskFn(ctx, t)
}

func (s *stubStore) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if s.getTaskFn == nil {
		return nil, errors.New("unexpected GetTask call")
	}
	return s.getTaskFn(ctx, id)
}

func (s *stubStore) MergeTask(ctx context.Context, id string, upd domain.TaskUpdate) (*domain.Task, error) {
	if s.mergeTaskFn == nil {
		return nil, errors.New("unexpected MergeTask call")
	}
	return s.mergeTaskFn(ctx, id, upd)
}

func (s *stubStore) DeleteTask(ctx context.Context, id string) (bool, error) {
	if s.deleteTaskFn == nil {
		return false, errors.New("unexpected DeleteTask call")
	}
	return s.deleteTaskFn(ctx, id)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheListMissThenHit(t *testing.T) {
	mr, client := newTestRedis(t)

	ctx := context.Background()
	expected := []domain.Task{{ID: "t1", Title: "Write code", Status: domain.StatusPending}}

	var calls int
	cache := NewCache(&stubStore{
		listTasksFn: func(ctx context.Context, status domain.Status) ([]domain.Task, error) {
			calls++
			if status != "" {
				t.Fatalf("unexpected status filter: %s", status)
			}
			return append([]domain.Task(nil), expected...), nil
		},
	}, client, time.Minute)

	tasks, err := cache.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if !reflect.DeepEqual(tasks, expected) {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call to backing store, got %d", calls)
	}
	if ttl := mr.TTL(listCacheKey("")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	cached, err := cache.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("list cached tasks: %v", err)
	}
	if !reflect.DeepEqual(cached, expected) {
		t.Fatalf("unexpected cached tasks: %#v", cached)
	}
	if calls != 1 {
		t.Fatalf("expected cached list to avoid backing store, calls=%d", calls)
	}
}

func TestCacheListKeyedByStatus(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var statuses []domain.Status
	cache := NewCache(&stubStore{
		listTasksFn: func(ctx context.Context, status domain.Status) ([]domain.Task, error) {
			statuses = append(statuses, status)
			return []domain.Task{{ID: string(status) + "-1"}}, nil
		},
	}, client, time.Minute)

	if _, err := cache.ListTasks(ctx, domain.StatusPending); err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if _, err := cache.ListTasks(ctx, domain.StatusCompleted); err != nil {
		t.Fatalf("list completed: %v", err)
	}
	// Both filters went to the store; the pending result did not answer the
	// completed query.
	if len(statuses) != 2 || statuses[0] != domain.StatusPending || statuses[1] != domain.StatusCompleted {
		t.Fatalf("unexpected store calls: %#v", statuses)
	}

	tasks, err := cache.ListTasks(ctx, domain.StatusPending)
	if err != nil {
		t.Fatalf("list pending again: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected pending list served from cache, calls=%d", len(statuses))
	}
	if len(tasks) != 1 || tasks[0].ID != "Pending-1" {
		t.Fatalf("unexpected cached tasks: %#v", tasks)
	}
}

func TestCacheMutationsEvictLists(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var listCalls int
	id := "11111111-2222-3333-4444-555555555555"
	task := domain.Task{ID: id, Title: "x", Status: domain.StatusPending}
	cache := NewCache(&stubStore{
		listTasksFn: func(ctx context.Context, status domain.Status) ([]domain.Task, error) {
			listCalls++
			return []domain.Task{task}, nil
		},
		insertTaskFn: func(ctx context.Context, t domain.Task) (domain.Task, error) {
			return task, nil
		},
		mergeTaskFn: func(ctx context.Context, id string, upd domain.TaskUpdate) (*domain.Task, error) {
			return &task, nil
		},
		deleteTaskFn: func(ctx context.Context, id string) (bool, error) {
			return true, nil
		},
	}, client, time.Minute)

	warm := func() {
		t.Helper()
		if _, err := cache.ListTasks(ctx, ""); err != nil {
			t.Fatalf("warm list: %v", err)
		}
	}

	warm()
	if _, err := cache.InsertTask(ctx, domain.Task{Title: "x"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	warm()
	if listCalls != 2 {
		t.Fatalf("expected insert to evict cached list, calls=%d", listCalls)
	}

	if _, err := cache.MergeTask(ctx, id, domain.TaskUpdate{}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	warm()
	if listCalls != 3 {
		t.Fatalf("expected merge to evict cached list, calls=%d", listCalls)
	}

	if _, err := cache.DeleteTask(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	warm()
	if listCalls != 4 {
		t.Fatalf("expected delete to evict cached list, calls=%d", listCalls)
	}
}

func TestCacheMissedDeleteKeepsLists(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var listCalls int
	cache := NewCache(&stubStore{
		listTasksFn: func(ctx context.Context, status domain.Status) ([]domain.Task, error) {
			listCalls++
			return []domain.Task{}, nil
		},
		deleteTaskFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}, client, time.Minute)

	if _, err := cache.ListTasks(ctx, ""); err != nil {
		t.Fatalf("warm list: %v", err)
	}
	found, err := cache.DeleteTask(ctx, "missing")
	if err != nil || found {
		t.Fatalf("expected miss without error, found=%v err=%v", found, err)
	}
	if _, err := cache.ListTasks(ctx, ""); err != nil {
		t.Fatalf("list: %v", err)
	}
	if listCalls != 1 {
		t.Fatalf("expected cached list to survive a missed delete, calls=%d", listCalls)
	}
}

func TestCacheCorruptPayloadFallsBack(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	if err := mr.Set(listCacheKey(""), "{not json"); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	expected := []domain.Task{{ID: "t1"}}
	cache := NewCache(&stubStore{
		listTasksFn: func(ctx context.Context, status domain.Status) ([]domain.Task, error) {
			return expected, nil
		},
	}, client, time.Minute)

	tasks, err := cache.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(tasks, expected) {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
}

func TestCacheNilRedisPassesThrough(t *testing.T) {
	ctx := context.Background()
	var calls int
	cache := NewCache(&stubStore{
		listTasksFn: func(ctx context.Context, status domain.Status) ([]domain.Task, error) {
			calls++
			return nil, nil
		},
	}, nil, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.ListTasks(ctx, ""); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every list to hit the store without redis, calls=%d", calls)
	}
}
