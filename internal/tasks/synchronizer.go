package tasks

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"taskmanager/internal/analytics"
	"taskmanager/internal/observe"
)

const (
	MsgTasksLoaded     = "Tasks Loaded"
	MsgNetworkError    = "Network Error"
	MsgTaskLoadError   = "Task load error"
	MsgTaskAdded       = "Task added"
	MsgTaskAddError    = "Task added error"
	MsgTaskRemoved     = "Task removed"
	MsgTaskRemoveError = "Task removal error"
	MsgTaskUpdated     = "Task updated"
	MsgNoChanges       = "No changes detected"
	MsgTaskNotFound    = "Task not found"
	MsgTaskUpdateError = "Task update error"
)

const (
	opInitialize = "initialize"
	opLoad       = "load"
	opAdd        = "add"
	opRemove     = "remove"
	opUpdate     = "update"
	opToggle     = "toggle"
)

type Option func(*Synchronizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracker(tracker analytics.Tracker) Option {
	return func(s *Synchronizer) {
		if tracker != nil {
			s.tracker = tracker
		}
	}
}

// WithSessionID replaces the random session id, so callers can correlate the
// session with their own logs and analytics identity.
func WithSessionID(id uuid.UUID) Option {
	return func(s *Synchronizer) {
		if id != uuid.Nil {
			s.sessionID = id
		}
	}
}

func WithMetricsRegistry(registry *prometheus.Registry) Option {
	return func(s *Synchronizer) {
		s.registry = registry
	}
}

// Synchronizer owns the in-memory task list of one session. It reconciles
// the remote source with the store, applies mutations write-through, and
// publishes derived views. Collaborator faults never escape an operation;
// they are reported through the returned and published Status.
type Synchronizer struct {
	store     Store
	source    Source
	logger    *slog.Logger
	tracker   analytics.Tracker
	registry  *prometheus.Registry
	metrics   *operationMetrics
	sessionID uuid.UUID

	// opMu serializes operations that reach the store or the source.
	opMu sync.Mutex

	stateMu      sync.Mutex
	allTasks     []Task
	activeFilter Filter
	sortReversed bool

	status   *observe.Value[Status]
	filter   *observe.Value[Filter]
	reversed *observe.Value[bool]
	sorted   *observe.Value[[]Task]
	counts   *observe.Value[Counts]
}

type Snapshot struct {
	Status       Status
	Filter       Filter
	SortReversed bool
	Tasks        []Task
	Counts       Counts
}

func NewSynchronizer(store Store, source Source, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:        store,
		source:       source,
		logger:       slog.Default(),
		tracker:      analytics.Nop{},
		sessionID:    uuid.New(),
		allTasks:     []Task{},
		activeFilter: FilterAll,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "synchronizer", "session_id", s.sessionID.String())
	s.metrics = newOperationMetrics(s.registry)
	observableMetrics := observe.NewMetrics(s.registry)

	s.status = observe.New("status", Status{Kind: StatusEmpty}, nil, observableMetrics)
	s.filter = observe.NewComparable("filter", FilterAll, observableMetrics)
	s.reversed = observe.NewComparable("sort_reversed", false, observableMetrics)
	s.sorted = observe.New("sorted_tasks", []Task{}, slices.Equal[[]Task, Task], observableMetrics)
	s.counts = observe.NewComparable("counts", Counts{}, observableMetrics)
	return s
}

func (s *Synchronizer) SessionID() uuid.UUID {
	return s.sessionID
}

func (s *Synchronizer) Status() observe.Observable[Status] {
	return s.status
}

func (s *Synchronizer) SortedTasks() observe.Observable[[]Task] {
	return s.sorted
}

func (s *Synchronizer) Counts() observe.Observable[Counts] {
	return s.counts
}

func (s *Synchronizer) Filter() observe.Observable[Filter] {
	return s.filter
}

func (s *Synchronizer) SortReversed() observe.Observable[bool] {
	return s.reversed
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	return Snapshot{
		Status:       s.status.Get(),
		Filter:       s.activeFilter,
		SortReversed: s.sortReversed,
		Tasks:        DeriveView(s.allTasks, s.activeFilter, s.sortReversed),
		Counts:       CountTasks(s.allTasks),
	}
}

// Tasks returns a copy of the unfiltered task list in store order.
func (s *Synchronizer) Tasks() []Task {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return slices.Clone(s.allTasks)
}

// Close releases every subscriber of the published views.
func (s *Synchronizer) Close() {
	s.status.Close()
	s.filter.Close()
	s.reversed.Close()
	s.sorted.Close()
	s.counts.Close()
}

// Initialize fetches the remote list once, merges it into the store, and
// reloads the session from the store. Ids already present in the store are
// kept as they are.
func (s *Synchronizer) Initialize(ctx context.Context) Status {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.status.Set(Loading())

	fetched, err := s.source.FetchTasks(ctx)
	if err != nil {
		return s.failFetch(err)
	}
	if err := s.store.CreateTasks(ctx, fetched); err != nil {
		return s.failFetch(err)
	}
	stored, err := s.store.ListTasks(ctx)
	if err != nil {
		return s.failFetch(err)
	}

	s.mutate(func([]Task) []Task { return stored })
	s.tracker.Track(analytics.EventTaskFetchedSuccess, map[string]any{
		"fetched": len(fetched),
		"stored":  len(stored),
	})
	return s.finish(opInitialize, Loaded(MsgTasksLoaded), nil)
}

// Load replaces the session list with the store contents without contacting
// the remote source.
func (s *Synchronizer) Load(ctx context.Context) Status {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.status.Set(Loading())

	stored, err := s.store.ListTasks(ctx)
	if err != nil {
		return s.fail(opLoad, MsgTaskLoadError, err)
	}

	s.mutate(func([]Task) []Task { return stored })
	return s.finish(opLoad, Loaded(MsgTasksLoaded), nil)
}

func (s *Synchronizer) AddTask(ctx context.Context, title string) Status {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.status.Set(Loading())

	task := Task{Title: title, Completed: false}
	id, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return s.fail(opAdd, MsgTaskAddError, err)
	}
	task.ID = id

	s.mutate(func(all []Task) []Task { return append(all, task) })
	s.tracker.Track(analytics.EventTaskAdded, taskProperties(task))
	return s.finish(opAdd, Loaded(MsgTaskAdded), nil)
}

// RemoveTask deletes the task from the store and then from the session. A
// task the store no longer knows about is still dropped from the session.
func (s *Synchronizer) RemoveTask(ctx context.Context, task Task) Status {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.status.Set(Loading())

	if err := s.store.DeleteTask(ctx, task.ID); err != nil && !errors.Is(err, ErrTaskNotFound) {
		return s.fail(opRemove, MsgTaskRemoveError, err)
	}

	s.mutate(func(all []Task) []Task {
		return slices.DeleteFunc(all, func(existing Task) bool { return existing.ID == task.ID })
	})
	s.tracker.Track(analytics.EventTaskRemoved, taskProperties(task))
	return s.finish(opRemove, Loaded(MsgTaskRemoved), nil)
}

func (s *Synchronizer) UpdateTask(ctx context.Context, task Task) Status {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.status.Set(Loading())

	existing, found, err := s.store.GetTask(ctx, task.ID)
	if err != nil {
		return s.fail(opUpdate, MsgTaskUpdateError, err)
	}
	if !found {
		return s.fail(opUpdate, MsgTaskNotFound, ErrTaskNotFound)
	}
	if existing.Title == task.Title && existing.Completed == task.Completed {
		return s.finish(opUpdate, Loaded(MsgNoChanges), nil)
	}

	return s.write(ctx, opUpdate, task)
}

// ToggleTaskCompletion writes task with its completion flipped. Unlike
// UpdateTask there is no unchanged short-circuit.
func (s *Synchronizer) ToggleTaskCompletion(ctx context.Context, task Task) Status {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.status.Set(Loading())

	updated := task
	updated.Completed = !task.Completed
	return s.write(ctx, opToggle, updated)
}

func (s *Synchronizer) SetFilter(filter Filter) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.activeFilter = filter
	s.filter.Set(filter)
	s.publishLocked()
}

func (s *Synchronizer) ToggleSortOrder() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.sortReversed = !s.sortReversed
	s.reversed.Set(s.sortReversed)
	s.publishLocked()
}

// write must be called with opMu held.
func (s *Synchronizer) write(ctx context.Context, op string, task Task) Status {
	if err := s.store.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return s.fail(op, MsgTaskNotFound, err)
		}
		return s.fail(op, MsgTaskUpdateError, err)
	}

	s.mutate(func(all []Task) []Task {
		for i := range all {
			if all[i].ID == task.ID {
				all[i] = task
			}
		}
		return all
	})

	event := analytics.EventTaskEdited
	if task.Completed {
		event = analytics.EventTaskCompleted
	}
	s.tracker.Track(event, taskProperties(task))
	return s.finish(op, Loaded(MsgTaskUpdated), nil)
}

// mutate applies fn to a private copy of the task list, installs the result
// and republishes the derived views.
func (s *Synchronizer) mutate(fn func(all []Task) []Task) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.allTasks = fn(slices.Clone(s.allTasks))
	if s.allTasks == nil {
		s.allTasks = []Task{}
	}
	s.publishLocked()
}

func (s *Synchronizer) publishLocked() {
	s.sorted.Set(DeriveView(s.allTasks, s.activeFilter, s.sortReversed))
	s.counts.Set(CountTasks(s.allTasks))
}

func (s *Synchronizer) failFetch(err error) Status {
	s.tracker.Track(analytics.EventTaskFetchedError, map[string]any{
		"error": err.Error(),
	})
	return s.finish(opInitialize, Failed(MsgNetworkError, err), err)
}

func (s *Synchronizer) fail(op, message string, err error) Status {
	s.tracker.Track(analytics.EventTaskError, map[string]any{
		"operation": op,
		"message":   message,
		"error":     err.Error(),
	})
	return s.finish(op, Failed(message, err), err)
}

func (s *Synchronizer) finish(op string, status Status, err error) Status {
	s.status.Set(status)
	s.metrics.Observe(op, status)

	if status.IsError() {
		s.logger.Warn("task operation failed",
			"operation", op,
			"message", status.Message,
			"fault", string(Classify(err)),
			"error", err,
		)
	} else {
		s.logger.Debug("task operation completed",
			"operation", op,
			"message", status.Message,
		)
	}
	return status
}

func taskProperties(task Task) map[string]any {
	return map[string]any{
		"task_id":   task.ID,
		"title":     task.Title,
		"completed": task.Completed,
	}
}
