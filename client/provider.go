package client

import (
	"context"
	"sync"

	"taskboard-api/domain"
)

// State is a snapshot of the provider's view of the task board.
type State struct {
	Tasks         []domain.Task
	SearchQuery   string
	StatusFilter  string
	Loading       bool
	Err           string
	DeleteConfirm string
}

// TaskProvider owns the client-side task list and its query parameters. Every
// filter change and every successful mutation triggers a full list refresh;
// the held list is never patched incrementally. Subscribers are notified on
// each state change.
type TaskProvider struct {
	api *Client

	mu    sync.Mutex
	state State
	subs  []func(State)
}

// NewTaskProvider creates a provider with the status filter defaulting to All.
func NewTaskProvider(api *Client) *TaskProvider {
	return &TaskProvider{
		api:   api,
		state: State{StatusFilter: domain.StatusFilterAll},
	}
}

// Subscribe registers fn to receive a state snapshot after every change.
func (p *TaskProvider) Subscribe(fn func(State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// State returns a snapshot of the current provider state.
func (p *TaskProvider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *TaskProvider) snapshotLocked() State {
	s := p.state
	s.Tasks = append([]domain.Task(nil), p.state.Tasks...)
	return s
}

func (p *TaskProvider) mutate(fn func(*State)) {
	p.mu.Lock()
	fn(&p.state)
	snapshot := p.snapshotLocked()
	subs := p.subs
	p.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

// SetSearchQuery updates the search text and refreshes the list.
func (p *TaskProvider) SetSearchQuery(ctx context.Context, q string) {
	p.mutate(func(s *State) { s.SearchQuery = q })
	p.Refresh(ctx)
}

// SetStatusFilter updates the status filter and refreshes the list.
func (p *TaskProvider) SetStatusFilter(ctx context.Context, status string) {
	p.mutate(func(s *State) { s.StatusFilter = status })
	p.Refresh(ctx)
}

// Refresh replaces the held task list with the server's view of the current
// query. A failed fetch records a generic error and leaves the previous list
// in place; loading is always cleared.
func (p *TaskProvider) Refresh(ctx context.Context) {
	p.mu.Lock()
	search := p.state.SearchQuery
	status := p.state.StatusFilter
	p.mu.Unlock()

	p.mutate(func(s *State) {
		s.Loading = true
		s.Err = ""
	})

	tasks, _, err := p.api.ListTasks(ctx, search, status)
	p.mutate(func(s *State) {
		s.Loading = false
		if err != nil {
			s.Err = "Failed to fetch tasks"
			return
		}
		s.Tasks = tasks
	})
}

// Create adds a task and refreshes the list. The service's validation message
// is propagated to the caller.
func (p *TaskProvider) Create(ctx context.Context, title, description string) error {
	if _, err := p.api.CreateTask(ctx, title, description); err != nil {
		return err
	}
	p.Refresh(ctx)
	return nil
}

// Update applies a partial update and refreshes the list.
func (p *TaskProvider) Update(ctx context.Context, id string, upd domain.TaskUpdate) error {
	if _, err := p.api.UpdateTask(ctx, id, upd); err != nil {
		return err
	}
	p.Refresh(ctx)
	return nil
}

// ConfirmDelete marks a task as the pending deletion target.
func (p *TaskProvider) ConfirmDelete(id string) {
	p.mutate(func(s *State) { s.DeleteConfirm = id })
}

// CancelDelete clears the pending deletion target without deleting.
func (p *TaskProvider) CancelDelete() {
	p.mutate(func(s *State) { s.DeleteConfirm = "" })
}

// Delete removes a task; on acknowledgment the pending deletion target is
// cleared and the list refreshed.
func (p *TaskProvider) Delete(ctx context.Context, id string) error {
	if err := p.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	p.mutate(func(s *State) { s.DeleteConfirm = "" })
	p.Refresh(ctx)
	return nil
}

// FetchOne returns a single task for populating an edit form. The held list
// is left untouched.
func (p *TaskProvider) FetchOne(ctx context.Context, id string) (domain.Task, error) {
	return p.api.GetTask(ctx, id)
}
