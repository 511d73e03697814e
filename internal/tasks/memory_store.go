package tasks

import (
	"context"
	"slices"
	"sync"
)

type MemoryStore struct {
	mu        sync.RWMutex
	tasksByID map[int64]Task
	lastID    int64
}

func NewMemoryStore(seed ...Task) *MemoryStore {
	store := &MemoryStore{
		tasksByID: make(map[int64]Task),
	}
	for _, task := range seed {
		store.insertLocked(task)
	}
	return store
}

func (s *MemoryStore) ListTasks(_ context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.tasksByID))
	for id := range s.tasksByID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	result := make([]Task, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.tasksByID[id])
	}
	return result, nil
}

func (s *MemoryStore) GetTask(_ context.Context, id int64) (Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasksByID[id]
	return task, ok, nil
}

func (s *MemoryStore) CreateTask(_ context.Context, task Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasksByID[task.ID]; exists && task.ID != 0 {
		return 0, ErrDuplicateTask
	}
	return s.insertLocked(task), nil
}

func (s *MemoryStore) CreateTasks(_ context.Context, tasks []Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range tasks {
		if _, exists := s.tasksByID[task.ID]; exists && task.ID != 0 {
			continue
		}
		s.insertLocked(task)
	}
	return nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasksByID[task.ID]; !exists {
		return ErrTaskNotFound
	}
	s.tasksByID[task.ID] = task
	return nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasksByID[id]; !exists {
		return ErrTaskNotFound
	}
	delete(s.tasksByID, id)
	return nil
}

// insertLocked mirrors sqlite rowid assignment: an unset id becomes one past
// the largest id ever stored.
func (s *MemoryStore) insertLocked(task Task) int64 {
	if task.ID == 0 {
		task.ID = s.lastID + 1
	}
	if task.ID > s.lastID {
		s.lastID = task.ID
	}
	s.tasksByID[task.ID] = task
	return task.ID
}
