package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"taskmanager/internal/observe"
	"taskmanager/internal/tasks"
)

// Session is the part of a tasks.Synchronizer the interactive loop drives.
type Session interface {
	Snapshot() tasks.Snapshot
	Tasks() []tasks.Task
	Status() observe.Observable[tasks.Status]
	Initialize(ctx context.Context) tasks.Status
	AddTask(ctx context.Context, title string) tasks.Status
	RemoveTask(ctx context.Context, task tasks.Task) tasks.Status
	UpdateTask(ctx context.Context, task tasks.Task) tasks.Status
	ToggleTaskCompletion(ctx context.Context, task tasks.Task) tasks.Status
	SetFilter(filter tasks.Filter)
	ToggleSortOrder()
}

const statusBuffer = 16

// RunInteractive reads one command per line from in and renders the session
// to out after every command. Status transitions pushed by the session are
// shown in the event log.
func RunInteractive(ctx context.Context, session Session, in io.Reader, out io.Writer) error {
	statuses, sub := session.Status().Subscribe(statusBuffer)
	defer sub.Unsubscribe()

	model := NewModel(session.Snapshot())
	scanner := bufio.NewScanner(in)

	for {
		model = drainStatuses(model, statuses).WithSnapshot(session.Snapshot())
		if _, err := fmt.Fprint(out, model.View()); err != nil {
			return fmt.Errorf("write ui view: %w", err)
		}
		if _, err := fmt.Fprint(out, "\ncommand> "); err != nil {
			return fmt.Errorf("write ui prompt: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read ui command: %w", err)
			}
			return nil
		}

		verb, arg := splitCommand(scanner.Text())
		var problem string
		switch verb {
		case "q", "quit", "exit":
			return nil
		case "tab", "right", "l":
			session.SetFilter(NextFilter(session.Snapshot().Filter))
		case "backtab", "left", "h":
			session.SetFilter(PrevFilter(session.Snapshot().Filter))
		case "1", "2", "3":
			session.SetFilter(tasks.Filters[int(verb[0]-'1')])
		case "s", "sort":
			session.ToggleSortOrder()
		case "r", "refresh":
			session.Initialize(ctx)
		case "a", "add":
			title := tasks.NormalizeTitle(arg)
			if title == "" {
				problem = "title must not be empty"
				break
			}
			session.AddTask(ctx, title)
		case "t", "toggle":
			task, err := lookupTask(session, arg)
			if err != nil {
				problem = err.Error()
				break
			}
			session.ToggleTaskCompletion(ctx, task)
		case "e", "edit":
			idText, title, _ := strings.Cut(arg, " ")
			task, err := lookupTask(session, idText)
			if err != nil {
				problem = err.Error()
				break
			}
			title = tasks.NormalizeTitle(title)
			if title == "" {
				problem = "title must not be empty"
				break
			}
			task.Title = title
			session.UpdateTask(ctx, task)
		case "d", "delete", "remove":
			task, err := lookupTask(session, arg)
			if err != nil {
				problem = err.Error()
				break
			}
			session.RemoveTask(ctx, task)
		case "":
			// No-op; rerender.
		default:
			problem = "unknown command: " + verb
		}

		if problem != "" {
			if _, err := fmt.Fprintln(out, problem); err != nil {
				return fmt.Errorf("write ui command error: %w", err)
			}
		}
	}
}

func drainStatuses(model Model, statuses <-chan tasks.Status) Model {
	for {
		select {
		case status, ok := <-statuses:
			if !ok {
				return model
			}
			model = model.WithStatus(status)
		default:
			return model
		}
	}
}

func splitCommand(line string) (string, string) {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	return strings.ToLower(verb), strings.TrimSpace(arg)
}

func lookupTask(session Session, raw string) (tasks.Task, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("invalid task id %q", raw)
	}
	for _, task := range session.Tasks() {
		if task.ID == id {
			return task, nil
		}
	}
	return tasks.Task{}, fmt.Errorf("no task #%d", id)
}
