package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"taskmanager/internal/tasks"
	"taskmanager/internal/ui"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the remote task list and merge it into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := a.sync.Initialize(cmd.Context())
			counts := a.sync.Snapshot().Counts
			return printStatus(cmd.OutOrStdout(), status,
				fmt.Sprintf("all=%d completed=%d incomplete=%d", counts.All, counts.Completed, counts.Incomplete),
			)
		},
	}
}

type listOutput struct {
	Filter       tasks.Filter `json:"filter"`
	SortReversed bool         `json:"sort_reversed"`
	Counts       tasks.Counts `json:"counts"`
	Tasks        []tasks.Task `json:"tasks"`
}

func newListCmd(a *app) *cobra.Command {
	var (
		filterRaw string
		reverse   bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := tasks.ParseFilter(filterRaw)
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			snapshot := a.view(filter, reverse)

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(listOutput{
					Filter:       snapshot.Filter,
					SortReversed: snapshot.SortReversed,
					Counts:       snapshot.Counts,
					Tasks:        snapshot.Tasks,
				})
			}

			for _, task := range snapshot.Tasks {
				if _, err := fmt.Fprintln(out, ui.TaskRow(task)); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "filter=%s all=%d completed=%d incomplete=%d\n",
				snapshot.Filter,
				snapshot.Counts.All,
				snapshot.Counts.Completed,
				snapshot.Counts.Incomplete,
			)
			return err
		},
	}
	cmd.Flags().StringVar(&filterRaw, "filter", string(tasks.FilterAll), "task filter: all, completed, incomplete")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "sort by id descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON output")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := tasks.NormalizeTitle(strings.Join(args, " "))
			if title == "" {
				return errors.New("title must not be empty")
			}
			if err := a.load(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}

			status := a.sync.AddTask(cmd.Context(), title)
			if status.IsError() {
				return printStatus(cmd.OutOrStdout(), status)
			}
			all := a.sync.Tasks()
			return printStatus(cmd.OutOrStdout(), status, fmt.Sprintf("id=%d", all[len(all)-1].ID))
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var (
		title     string
		completed bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			titleChanged := cmd.Flags().Changed("title")
			if !titleChanged && !cmd.Flags().Changed("completed") {
				return errors.New("nothing to edit: pass --title or --completed")
			}
			if err := a.load(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}

			task := a.task(id)
			if titleChanged {
				task.Title = tasks.NormalizeTitle(title)
				if task.Title == "" {
					return errors.New("title must not be empty")
				}
			}
			if cmd.Flags().Changed("completed") {
				task.Completed = completed
			}
			return printStatus(cmd.OutOrStdout(), a.sync.UpdateTask(cmd.Context(), task))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new task title")
	cmd.Flags().BoolVar(&completed, "completed", false, "mark the task completed (use --completed=false to reopen)")
	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), a.sync.ToggleTaskCompletion(cmd.Context(), a.task(id)))
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), a.sync.RemoveTask(cmd.Context(), a.task(id)))
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		filterRaw string
		reverse   bool
		keep      bool
	)
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Write stored tasks as a markdown checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := tasks.ParseFilter(filterRaw)
			if err != nil {
				return err
			}
			if err := a.load(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			snapshot := a.view(filter, reverse)

			created, err := tasks.ExportChecklist(afero.NewOsFs(), args[0], filter.Label()+" tasks", snapshot.Tasks, keep)
			if err != nil {
				return fmt.Errorf("export tasks: %w", err)
			}

			result := "updated"
			switch {
			case created:
				result = "created"
			case keep:
				result = "existing"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "status=%s path=%s tasks=%d\n", result, args[0], len(snapshot.Tasks))
			return err
		},
	}
	cmd.Flags().StringVar(&filterRaw, "filter", string(tasks.FilterAll), "task filter: all, completed, incomplete")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "sort by id descending")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave an existing file untouched")
	return cmd
}

func newUICmd(a *app) *cobra.Command {
	var syncFirst bool
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Run the interactive task view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if syncFirst {
				a.sync.Initialize(cmd.Context())
			} else {
				a.sync.Load(cmd.Context())
			}
			return ui.RunInteractive(cmd.Context(), a.sync, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&syncFirst, "sync", false, "fetch the remote list before showing the view")
	return cmd
}

// load fills the session from the store. A failure is printed and returned
// as a statusError.
func (a *app) load(ctx context.Context, out io.Writer) error {
	status := a.sync.Load(ctx)
	if status.IsError() {
		return printStatus(out, status)
	}
	return nil
}

func (a *app) view(filter tasks.Filter, reverse bool) tasks.Snapshot {
	a.sync.SetFilter(filter)
	if reverse != a.sync.SortReversed().Get() {
		a.sync.ToggleSortOrder()
	}
	return a.sync.Snapshot()
}

// task returns the session's copy of id, or a bare task carrying only the id
// so the synchronizer reports the missing task itself.
func (a *app) task(id int64) tasks.Task {
	for _, task := range a.sync.Tasks() {
		if task.ID == id {
			return task
		}
	}
	return tasks.Task{ID: id}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}
