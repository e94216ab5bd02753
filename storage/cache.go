package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

// Cache wraps a TaskStore with Redis-backed caching of list results. Every
// mutation evicts all cached lists; redis failures degrade to the backing
// store and never fail the request.
type Cache struct {
	base  domain.TaskStore
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching TaskStore wrapper using the provided Redis
// client and TTL.
func NewCache(base domain.TaskStore, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	if tasks, ok := c.loadListFromCache(ctx, status); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx, status)
	if err != nil {
		return nil, err
	}

	c.storeList(ctx, status, tasks)
	return tasks, nil
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	created, err := c.base.InsertTask(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return created, nil
}

func (c *Cache) MergeTask(ctx context.Context, id string, upd domain.TaskUpdate) (*domain.Task, error) {
	t, err := c.base.MergeTask(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if t != nil {
		c.evict(ctx)
	}
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) (bool, error) {
	found, err := c.base.DeleteTask(ctx, id)
	if err != nil {
		return false, err
	}
	if found {
		c.evict(ctx)
	}
	return found, nil
}

// GetTask reads through to the backing store; single records are not cached.
func (c *Cache) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) loadListFromCache(ctx context.Context, status domain.Status) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := listCacheKey(status)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeList(ctx context.Context, status domain.Status, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, listCacheKey(status), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx,
		listCacheKey(""),
		listCacheKey(domain.StatusPending),
		listCacheKey(domain.StatusCompleted),
	).Result()
}

func listCacheKey(status domain.Status) string {
	if status == "" {
		return "tasks:all"
	}
	return "tasks:" + string(status)
}
