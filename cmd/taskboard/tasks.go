package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/tasks"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// taskRow is the printed form of a task
type taskRow struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Status       string    `json:"status" yaml:"status"`
	Creator      string    `json:"creator" yaml:"creator"`
	Assignee     string    `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	TotalMinutes int       `json:"totalMinutes" yaml:"total_minutes"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updated_at"`
}

func toRow(t model.Task) taskRow {
	row := taskRow{
		ID:           t.ID,
		Title:        t.Title,
		Status:       string(t.Status),
		Creator:      t.Creator.FullName(),
		TotalMinutes: t.TotalMinutes,
		Description:  t.Description,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.Assignee != nil {
		row.Assignee = t.Assignee.FullName()
	}
	return row
}

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and edit tasks",
	}

	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksAddCmd())
	cmd.AddCommand(tasksStatusCmd())
	cmd.AddCommand(tasksLogCmd())
	cmd.AddCommand(tasksSuggestCmd())
	cmd.AddCommand(tasksJournalCmd())

	return cmd
}

func tasksListCmd() *cobra.Command {
	var output, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter model.Status
			if status != "" {
				s, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter = s
			}

			a, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Tasks.FetchTasks(cmd.Context())
			if msg := a.Tasks.Error(); msg != "" {
				return fmt.Errorf("%s", msg)
			}

			list := a.Tasks.Tasks()
			if filter != "" {
				list = a.Tasks.ByStatus(filter)
			}
			return printTasks(cmd.OutOrStdout(), output, list)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only show tasks with this status")

	return cmd
}

func printTasks(w io.Writer, format string, list []model.Task) error {
	rows := make([]taskRow, 0, len(list))
	for _, t := range list {
		rows = append(rows, toRow(t))
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	case "table", "":
		if len(rows) == 0 {
			fmt.Fprintln(w, "No tasks")
			return nil
		}
		tbl := table.New().Headers("ID", "STATUS", "TITLE", "ASSIGNEE", "TIME")
		for _, r := range rows {
			assignee := r.Assignee
			if assignee == "" {
				assignee = "-"
			}
			tbl.Row(r.ID, r.Status, r.Title, assignee, model.FormatMinutes(r.TotalMinutes))
		}
		fmt.Fprintln(w, tbl.Render())
		stats := model.ComputeStats(list)
		fmt.Fprintf(w, "%d tasks, %d%% done, %s logged\n",
			stats.Total, stats.CompletionPercent(), model.FormatMinutes(stats.TotalMinutes))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func tasksAddCmd() *cobra.Command {
	var description, status, assignee string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title must not be empty")
			}
			s, ok := model.ParseStatus(status)
			if !ok {
				return fmt.Errorf("unknown status %q", status)
			}

			a, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			created, ok := a.Tasks.CreateTask(cmd.Context(), model.NewTask{
				Title:       title,
				Description: description,
				Status:      s,
				AssigneeID:  assignee,
			})
			if !ok {
				return fmt.Errorf("%s", a.Tasks.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created: %s (%s)\n", created.Title, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&status, "status", "s", string(model.StatusTodo), "Initial status")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Assignee user ID")

	return cmd
}

func tasksStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := model.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}

			a, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Tasks.FetchTasks(cmd.Context())
			a.Tasks.UpdateTaskStatus(cmd.Context(), args[0], s)
			if msg := a.Tasks.Error(); msg != "" {
				return fmt.Errorf("%s", msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], s.Label())
			return nil
		},
	}
}

// parseMinutes validates a time log amount
func parseMinutes(raw string) (int, error) {
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("minutes must be a whole number, got %q", raw)
	}
	if minutes < tasks.MinLogMinutes || minutes > tasks.MaxLogMinutes {
		return 0, fmt.Errorf("minutes must be between %d and %d", tasks.MinLogMinutes, tasks.MaxLogMinutes)
	}
	return minutes, nil
}

func tasksLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <id> <minutes>",
		Short: "Add time spent on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := parseMinutes(args[1])
			if err != nil {
				return err
			}

			a, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Tasks.FetchTasks(cmd.Context())
			a.Tasks.UpdateTaskTime(cmd.Context(), args[0], minutes)
			if msg := a.Tasks.Error(); msg != "" {
				return fmt.Errorf("%s", msg)
			}
			if t, ok := a.Tasks.Task(args[0]); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged %s on %q, total %s\n",
					model.FormatMinutes(minutes), t.Title, model.FormatMinutes(t.TotalMinutes))
			}
			return nil
		},
	}
}

func tasksSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <title>",
		Short: "Draft a description for a task title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title must not be empty")
			}

			a, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			desc, ok := a.Tasks.SuggestDescription(cmd.Context(), title)
			if !ok {
				return fmt.Errorf("%s", a.Tasks.Error())
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}

func tasksJournalCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show time logged from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.DB.RecentTimeEntries(limit)
			if err != nil {
				return fmt.Errorf("failed to read journal: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No time logged yet")
				return nil
			}
			tbl := table.New().Headers("WHEN", "TASK", "LOGGED", "TOTAL")
			for _, e := range entries {
				tbl.Row(e.LoggedAt.Local().Format("Jan 2 15:04"), e.TaskTitle,
					model.FormatMinutes(e.Minutes), model.FormatMinutes(e.TotalAfter))
			}
			fmt.Fprintln(out, tbl.Render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries")

	return cmd
}
