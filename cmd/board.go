package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/board"
	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

type boardFlags struct {
	workspace string
	project   string
	json      bool
}

func newBoardCmd(a *app) *cobra.Command {
	f := &boardFlags{}
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Work with the kanban board of a project",
	}
	cmd.PersistentFlags().StringVar(&f.workspace, "workspace", "", "workspace id")
	cmd.PersistentFlags().StringVar(&f.project, "project", "", "project id")
	cmd.PersistentFlags().BoolVar(&f.json, "json", false, "print JSON")
	_ = cmd.MarkPersistentFlagRequired("workspace")
	_ = cmd.MarkPersistentFlagRequired("project")

	cmd.AddCommand(
		newShowCmd(a, f),
		newAddColumnCmd(a, f),
		newAddTaskCmd(a, f),
		newUpdateTaskCmd(a, f),
		newDeleteTaskCmd(a, f),
		newMoveCmd(a, f),
		newStatsCmd(a, f),
		newSearchCmd(a, f),
		newExportCmd(a, f),
		newMembersCmd(a, f),
		newAddMemberCmd(a, f),
		newRemoveMemberCmd(a, f),
	)
	return cmd
}

// loadBoard builds an engine for the selected project and loads it.
func (a *app) loadBoard(cmd *cobra.Command, f *boardFlags) (*board.Engine, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	engine := board.New(client, domain.ProjectRef{WorkspaceID: f.workspace, ProjectID: f.project}, a.logger)
	if err := engine.Load(commandContext(cmd)); err != nil {
		return nil, err
	}
	return engine, nil
}

func newShowCmd(a *app, f *boardFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			snap := engine.Snapshot()
			if f.json {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			return printBoard(cmd.OutOrStdout(), snap)
		},
	}
}

func newAddColumnCmd(a *app, f *boardFlags) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add-column NAME",
		Short: "Append a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			col, err := engine.AddColumn(commandContext(cmd), args[0], color)
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), col)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added column %s (%s)\n", col.Name, col.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "column color, e.g. #3B82F6")
	return cmd
}

func newAddTaskCmd(a *app, f *boardFlags) *cobra.Command {
	var description, priority, due string
	cmd := &cobra.Command{
		Use:   "add-task COLUMN TITLE",
		Short: "Create a task in a column given by id or name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := board.TaskInput{Title: args[1], Description: description, Priority: domain.Priority(priority)}
			if due != "" {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				in.DueDate = &d
			}
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			col, err := resolveColumn(engine, args[0])
			if err != nil {
				return err
			}
			task, err := engine.AddTask(commandContext(cmd), col.ID, in)
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s to %s\n", task.ID, col.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	return cmd
}

func newUpdateTaskCmd(a *app, f *boardFlags) *cobra.Command {
	var (
		title, description, priority, status, due, assignee, column string
		clearDue                                                    bool
	)
	cmd := &cobra.Command{
		Use:   "update-task TASK",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				p := domain.Priority(priority)
				patch.Priority = &p
			}
			if flags.Changed("status") {
				st := domain.Status(status)
				patch.Status = &st
			}
			if flags.Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			patch.ClearDue = clearDue
			if flags.Changed("assignee") {
				patch.AssigneeID = &assignee
			}
			if patch.Empty() && !flags.Changed("column") {
				return errors.New("nothing to update")
			}

			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			if flags.Changed("column") {
				col, err := resolveColumn(engine, column)
				if err != nil {
					return err
				}
				patch.ColumnID = &col.ID
			}
			taskID, err := resolveTask(engine, args[0])
			if err != nil {
				return err
			}
			task, err := engine.UpdateTask(commandContext(cmd), taskID, patch)
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s (%s)\n", task.ID, task.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&status, "status", "", "todo, in-progress, review or done")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id, empty to unassign")
	cmd.Flags().StringVar(&column, "column", "", "column id or name")
	return cmd
}

func newDeleteTaskCmd(a *app, f *boardFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-task TASK",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			taskID, err := resolveTask(engine, args[0])
			if err != nil {
				return err
			}
			if err := engine.DeleteTask(commandContext(cmd), taskID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", taskID)
			return nil
		},
	}
}

func newMoveCmd(a *app, f *boardFlags) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "move TASK TARGET",
		Short: "Move a task onto a column (id or name) or onto another task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			taskID, err := resolveTask(engine, args[0])
			if err != nil {
				return err
			}
			target := args[1]
			if col, err := resolveColumn(engine, target); err == nil {
				target = col.ID
			} else if id, err := resolveTask(engine, target); err == nil {
				target = id
			}
			if from != "" {
				col, err := resolveColumn(engine, from)
				if err != nil {
					return err
				}
				from = col.ID
			}

			res, err := engine.MoveTask(commandContext(cmd), taskID, from, target)
			if f.json {
				if perr := printJSON(cmd.OutOrStdout(), moveJSON(res)); perr != nil {
					return perr
				}
				return err
			}
			if err != nil {
				return err
			}
			switch res.Outcome {
			case board.MoveNoop:
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to do: %s\n", res.Reason)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s (%s)\n", res.Task.Title, columnName(engine, res.To), res.Task.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "column the task is dragged from, id or name")
	return cmd
}

func newStatsCmd(a *app, f *boardFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count tasks by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			stats := engine.Stats()
			if f.json {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			return printStats(cmd.OutOrStdout(), stats)
		},
	}
}

func newSearchCmd(a *app, f *boardFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Find tasks by title or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			tasks := engine.Search(strings.Join(args, " "))
			if f.json {
				if tasks == nil {
					tasks = []domain.Task{}
				}
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			return printTasks(cmd.OutOrStdout(), engine.Columns(), tasks)
		},
	}
}

func newExportCmd(a *app, f *boardFlags) *cobra.Command {
	var out string
	var server bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board's tasks as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if server {
				client, err := a.client()
				if err != nil {
					return err
				}
				return client.ExportTasksCSV(commandContext(cmd), domain.ProjectRef{WorkspaceID: f.workspace, ProjectID: f.project}, w)
			}
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			return engine.ExportCSV(w)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	cmd.Flags().BoolVar(&server, "server", false, "download the API's own export instead")
	return cmd
}

func newMembersCmd(a *app, f *boardFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List project members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			members := engine.Members()
			if f.json {
				if members == nil {
					members = []domain.Member{}
				}
				return printJSON(cmd.OutOrStdout(), members)
			}
			return printMembers(cmd.OutOrStdout(), members)
		},
	}
}

func newAddMemberCmd(a *app, f *boardFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add-member EMAIL",
		Short: "Add a user to the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			m, err := engine.AddMember(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s as %s (%s)\n", m.User.DisplayName(), m.Role, m.ID)
			return nil
		},
	}
}

func newRemoveMemberCmd(a *app, f *boardFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member MEMBER",
		Short: "Remove a member from the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.loadBoard(cmd, f)
			if err != nil {
				return err
			}
			if err := engine.RemoveMember(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed member %s\n", args[0])
			return nil
		},
	}
}

func parseDue(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("due date %q must look like 2024-06-01", s)
	}
	return d, nil
}

// resolveColumn finds a column by id, then by name ignoring case.
func resolveColumn(engine *board.Engine, ref string) (domain.Column, error) {
	cols := engine.Columns()
	for _, c := range cols {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range cols {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(ref)) {
			return c, nil
		}
	}
	return domain.Column{}, fmt.Errorf("no column %q", ref)
}

// resolveTask accepts a full task id or an unambiguous prefix of one.
func resolveTask(engine *board.Engine, ref string) (string, error) {
	if _, ok := engine.Task(ref); ok {
		return ref, nil
	}
	var match string
	for _, t := range engine.Tasks() {
		if ref != "" && strings.HasPrefix(t.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", ref)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no task %q", ref)
	}
	return match, nil
}

func columnName(engine *board.Engine, id string) string {
	for _, c := range engine.Columns() {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}
