package tasks

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/feelmint/feelmint-go/feelmint/api"
)

// API is the slice of the backend the task state machine consumes.
type API interface {
	DailyTasks(ctx context.Context) (*api.DailyTasks, error)
	UploadTicket(ctx context.Context, taskType string) (*api.UploadTicket, error)
	SubmitTask(ctx context.Context, req api.SubmitTaskRequest) error
}

// Registry holds today's assignable tasks. Fetches never overlap: a call
// arriving while one is in flight shares its result instead of issuing a
// second request. A failed fetch leaves the previous task list intact.
type Registry struct {
	api   API
	group singleflight.Group

	mu          sync.RWMutex
	tasks       []api.Task
	claimedAt   *time.Time
	initialized bool
	loading     bool
	lastErr     error
}

func NewRegistry(apiClient API) *Registry {
	return &Registry{api: apiClient}
}

// FetchDailyTasks retrieves today's task set and the claimed-at marker,
// replacing the in-memory list. Safe to call repeatedly and concurrently.
func (r *Registry) FetchDailyTasks(ctx context.Context) error {
	_, err, _ := r.group.Do("daily", func() (any, error) {
		// The loading flag is owned by the shared flight body; callers that
		// join an in-flight fetch never touch it.
		r.mu.Lock()
		r.loading = true
		r.mu.Unlock()

		daily, err := r.api.DailyTasks(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.loading = false
		r.initialized = true
		if err != nil {
			r.lastErr = err
			return nil, err
		}
		r.lastErr = nil
		r.tasks = daily.Tasks
		r.claimedAt = daily.ClaimedAt
		return nil, nil
	})
	return err
}

// RefreshList re-fetches and replaces the task list without touching the
// claimed-at marker or the loading/initialized flags. Used after a successful
// submission to pick up updated media counts.
func (r *Registry) RefreshList(ctx context.Context) error {
	_, err, _ := r.group.Do("refresh", func() (any, error) {
		daily, err := r.api.DailyTasks(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.tasks = daily.Tasks
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// Tasks returns a copy of the current task list.
func (r *Registry) Tasks() []api.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]api.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Task looks a task up by id.
func (r *Registry) Task(id string) (api.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return api.Task{}, false
}

// Selectable reports whether a new draft may be started for the task: known
// and not yet carrying its full media quota.
func (r *Registry) Selectable(id string) bool {
	task, ok := r.Task(id)
	return ok && !task.Completed()
}

// ClaimedAt returns the server's claimed-at marker from the daily batch.
func (r *Registry) ClaimedAt() *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.claimedAt
}

// Initialized distinguishes "not yet tried" from "tried and failed".
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func (r *Registry) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// LastErr is the error recorded by the most recent failed fetch, nil after a
// successful one.
func (r *Registry) LastErr() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}
