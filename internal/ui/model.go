package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskmanager/internal/tasks"
)

const maxEvents = 5

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model renders one snapshot of a task session plus the most recent status
// events. It is a value; every update returns a new Model.
type Model struct {
	snapshot tasks.Snapshot
	events   []string
}

func NewModel(snapshot tasks.Snapshot) Model {
	return Model{snapshot: snapshot}
}

func (m Model) WithSnapshot(snapshot tasks.Snapshot) Model {
	m.snapshot = snapshot
	return m
}

// WithStatus records a status transition as an event line. Only the most
// recent events are kept.
func (m Model) WithStatus(status tasks.Status) Model {
	events := append([]string(nil), m.events...)
	events = append(events, EventLine(status))
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	m.events = events
	return m
}

func (m Model) Events() []string {
	return append([]string(nil), m.events...)
}

func NextFilter(current tasks.Filter) tasks.Filter {
	return tasks.Filters[(filterIndex(current)+1)%len(tasks.Filters)]
}

func PrevFilter(current tasks.Filter) tasks.Filter {
	n := len(tasks.Filters)
	return tasks.Filters[(filterIndex(current)-1+n)%n]
}

func filterIndex(filter tasks.Filter) int {
	for i, candidate := range tasks.Filters {
		if candidate == filter {
			return i
		}
	}
	return 0
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("taskman"))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("keys: 1/2/3 or tab/backtab filter | s sort | a <title> | t <id> | e <id> <title> | d <id> | r refresh | q quit"))
	b.WriteString("\n\n")

	counts := m.snapshot.Counts
	for _, filter := range tasks.Filters {
		label := fmt.Sprintf("%s (%d)", filter.Label(), countFor(counts, filter))
		if filter == m.activeFilter() {
			b.WriteString(activeTabStyle.Render("[ " + label + " ]"))
		} else {
			b.WriteString(tabStyle.Render("  " + label + "  "))
		}
		b.WriteString(" ")
	}
	order := "ascending"
	if m.snapshot.SortReversed {
		order = "descending"
	}
	b.WriteString(hintStyle.Render("sort: id " + order))
	b.WriteString("\n")
	b.WriteString("status: ")
	b.WriteString(renderStatus(m.snapshot.Status))
	b.WriteString("\n\n")

	if len(m.snapshot.Tasks) == 0 {
		b.WriteString(hintStyle.Render("no tasks"))
		b.WriteString("\n")
	}
	for _, task := range m.snapshot.Tasks {
		if task.Completed {
			b.WriteString(doneStyle.Render(TaskRow(task)))
		} else {
			b.WriteString(TaskRow(task))
		}
		b.WriteString("\n")
	}

	if len(m.events) > 0 {
		b.WriteString("\nevents:\n")
		for _, event := range m.events {
			b.WriteString("- ")
			b.WriteString(event)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) activeFilter() tasks.Filter {
	if m.snapshot.Filter == "" {
		return tasks.FilterAll
	}
	return m.snapshot.Filter
}

// TaskRow formats a task as "[x] #id title".
func TaskRow(task tasks.Task) string {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	return fmt.Sprintf("[%s] #%d %s", mark, task.ID, task.Title)
}

// EventLine formats a status transition for the event log.
func EventLine(status tasks.Status) string {
	switch status.Kind {
	case tasks.StatusLoading:
		return "[..] loading"
	case tasks.StatusLoaded:
		return "[ok] " + status.Message
	case tasks.StatusError:
		line := "[err] " + status.Message
		if status.Detail != "" {
			line += " (" + status.Detail + ")"
		}
		return line
	default:
		return "[--] idle"
	}
}

func renderStatus(status tasks.Status) string {
	switch status.Kind {
	case tasks.StatusError:
		return errStyle.Render(status.String())
	case tasks.StatusLoaded:
		return okStyle.Render(status.String())
	default:
		return status.String()
	}
}

func countFor(counts tasks.Counts, filter tasks.Filter) int {
	switch filter {
	case tasks.FilterCompleted:
		return counts.Completed
	case tasks.FilterIncomplete:
		return counts.Incomplete
	default:
		return counts.All
	}
}
