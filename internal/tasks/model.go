package tasks

import (
	"fmt"
	"strings"
)

type Task struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Filter string

const (
	FilterAll        Filter = "all"
	FilterCompleted  Filter = "completed"
	FilterIncomplete Filter = "incomplete"
)

var Filters = []Filter{FilterAll, FilterCompleted, FilterIncomplete}

func ParseFilter(raw string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterCompleted:
		return FilterCompleted, nil
	case FilterIncomplete:
		return FilterIncomplete, nil
	default:
		return "", fmt.Errorf("unsupported filter %q (supported: all, completed, incomplete)", raw)
	}
}

func (f Filter) Label() string {
	switch f {
	case FilterCompleted:
		return "Completed"
	case FilterIncomplete:
		return "Incomplete"
	default:
		return "All"
	}
}

type StatusKind string

const (
	StatusEmpty   StatusKind = "empty"
	StatusLoading StatusKind = "loading"
	StatusLoaded  StatusKind = "loaded"
	StatusError   StatusKind = "error"
)

// Status is the outcome of the most recent synchronizer operation. Detail
// carries the underlying fault message for Error statuses.
type Status struct {
	Kind    StatusKind
	Message string
	Detail  string
}

func Loading() Status {
	return Status{Kind: StatusLoading}
}

func Loaded(message string) Status {
	return Status{Kind: StatusLoaded, Message: message}
}

func Failed(message string, cause error) Status {
	status := Status{Kind: StatusError, Message: message}
	if cause != nil {
		status.Detail = cause.Error()
	}
	return status
}

func (s Status) IsError() bool {
	return s.Kind == StatusError
}

func (s Status) String() string {
	switch {
	case s.Kind == "":
		return string(StatusEmpty)
	case s.Message == "":
		return string(s.Kind)
	case s.Detail != "":
		return fmt.Sprintf("%s: %s (%s)", s.Kind, s.Message, s.Detail)
	default:
		return fmt.Sprintf("%s: %s", s.Kind, s.Message)
	}
}

type Counts struct {
	All        int `json:"all"`
	Completed  int `json:"completed"`
	Incomplete int `json:"incomplete"`
}

func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}
