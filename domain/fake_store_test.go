package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// fakeStore is an in-memory TaskStore. Insert assigns ids and strictly
// increasing timestamps so ordering assertions are deterministic.
type fakeStore struct {
	tasks map[string]Task
	clock int64

	err        error
	lastStatus Status
	lastMerge  TaskUpdate
}

var errStoreDown = errors.New("storage unavailable")

func (f *fakeStore) InsertTask(ctx context.Context, t Task) (Task, error) {
	if f.err != nil {
		return Task{}, f.err
	}
	if f.tasks == nil {
		f.tasks = map[string]Task{}
	}
	f.clock++
	t.ID = uuid.NewString()
	t.CreatedAt = f.clock
	t.UpdatedAt = f.clock
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeStore) ListTasks(ctx context.Context, status Status) ([]Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastStatus = status
	out := []Task{}
	for _, t := range f.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) MergeTask(ctx context.Context, id string, upd TaskUpdate) (*Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastMerge = upd
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	f.clock++
	t.UpdatedAt = f.clock
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.tasks[id]; !ok {
		return false, nil
	}
	delete(f.tasks, id)
	return true, nil
}
