package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"taskmanager/internal/analytics"
)

type stubSource struct {
	tasks []Task
	err   error
	calls int
}

func (s *stubSource) FetchTasks(_ context.Context) ([]Task, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]Task(nil), s.tasks...), nil
}

func networkFault(message string) error {
	return fmt.Errorf("%w: %s", ErrNetwork, message)
}

// faultyStore wraps a Store and fails the named methods.
type faultyStore struct {
	Store
	failures map[string]error
	writes   int
}

func (f *faultyStore) fail(method string) error {
	if f.failures == nil {
		return nil
	}
	return f.failures[method]
}

func (f *faultyStore) ListTasks(ctx context.Context) ([]Task, error) {
	if err := f.fail("ListTasks"); err != nil {
		return nil, err
	}
	return f.Store.ListTasks(ctx)
}

func (f *faultyStore) GetTask(ctx context.Context, id int64) (Task, bool, error) {
	if err := f.fail("GetTask"); err != nil {
		return Task{}, false, err
	}
	return f.Store.GetTask(ctx, id)
}

func (f *faultyStore) CreateTask(ctx context.Context, task Task) (int64, error) {
	if err := f.fail("CreateTask"); err != nil {
		return 0, err
	}
	f.writes++
	return f.Store.CreateTask(ctx, task)
}

func (f *faultyStore) CreateTasks(ctx context.Context, tasks []Task) error {
	if err := f.fail("CreateTasks"); err != nil {
		return err
	}
	f.writes++
	return f.Store.CreateTasks(ctx, tasks)
}

func (f *faultyStore) UpdateTask(ctx context.Context, task Task) error {
	if err := f.fail("UpdateTask"); err != nil {
		return err
	}
	f.writes++
	return f.Store.UpdateTask(ctx, task)
}

func (f *faultyStore) DeleteTask(ctx context.Context, id int64) error {
	if err := f.fail("DeleteTask"); err != nil {
		return err
	}
	f.writes++
	return f.Store.DeleteTask(ctx, id)
}

var errDiskFull = errors.New("disk full")

type syncHarness struct {
	Ctx      context.Context
	Store    *faultyStore
	Source   *stubSource
	Tracker  *analytics.Recorder
	Registry *prometheus.Registry
	Sync     *Synchronizer
}

func newSyncHarness(t *testing.T, seed ...Task) *syncHarness {
	t.Helper()

	h := &syncHarness{
		Ctx:      context.Background(),
		Store:    &faultyStore{Store: NewMemoryStore(seed...)},
		Source:   &stubSource{},
		Tracker:  &analytics.Recorder{},
		Registry: prometheus.NewRegistry(),
	}
	h.Sync = NewSynchronizer(h.Store, h.Source,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTracker(h.Tracker),
		WithMetricsRegistry(h.Registry),
	)
	t.Cleanup(h.Sync.Close)
	return h
}

func (h *syncHarness) storedTasks(t *testing.T) []Task {
	t.Helper()

	stored, err := h.Store.Store.ListTasks(h.Ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	return stored
}

func (h *syncHarness) findTask(title string) []Task {
	var matches []Task
	for _, task := range h.Sync.Tasks() {
		if task.Title == title {
			matches = append(matches, task)
		}
	}
	return matches
}
