package tasks

import (
	"context"
	"errors"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateTask = errors.New("task id already exists")
	ErrNetwork       = errors.New("network fault")
)

// Store is durable keyed storage for tasks. ListTasks returns tasks in
// ascending id order and the store is the only component that assigns ids.
type Store interface {
	ListTasks(ctx context.Context) ([]Task, error)
	GetTask(ctx context.Context, id int64) (Task, bool, error)
	CreateTask(ctx context.Context, task Task) (int64, error)
	CreateTasks(ctx context.Context, tasks []Task) error
	UpdateTask(ctx context.Context, task Task) error
	DeleteTask(ctx context.Context, id int64) error
}

// Source returns the authoritative task list for a session. Failures match
// ErrNetwork via errors.Is.
type Source interface {
	FetchTasks(ctx context.Context) ([]Task, error)
}

type FaultKind string

const (
	FaultNone                FaultKind = ""
	FaultNetwork             FaultKind = "network"
	FaultConstraintViolation FaultKind = "constraint_violation"
	FaultNotFound            FaultKind = "not_found"
	FaultUnknown             FaultKind = "unknown"
)

func Classify(err error) FaultKind {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, ErrNetwork):
		return FaultNetwork
	case errors.Is(err, ErrDuplicateTask):
		return FaultConstraintViolation
	case errors.Is(err, ErrTaskNotFound):
		return FaultNotFound
	default:
		return FaultUnknown
	}
}
