package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bytedance/sonic"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/board"
	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type moveOutput struct {
	Outcome  string      `json:"outcome"`
	Task     domain.Task `json:"task"`
	From     string      `json:"from,omitempty"`
	To       string      `json:"to,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Fallback bool        `json:"fallback,omitempty"`
}

func moveJSON(res board.MoveResult) moveOutput {
	return moveOutput{
		Outcome:  res.Outcome.String(),
		Task:     res.Task,
		From:     res.From,
		To:       res.To,
		Reason:   res.Reason,
		Fallback: res.Fallback,
	}
}

func printBoard(w io.Writer, snap board.Snapshot) error {
	fmt.Fprintf(w, "%s\n", snap.Project.Name)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, col := range snap.Columns {
		stage := ""
		if col.Workflow {
			stage = " [" + string(col.Stage) + "]"
		}
		fmt.Fprintf(tw, "\n%s%s (%d)\n", col.Name, stage, len(col.Tasks))
		for _, t := range col.Tasks {
			writeTaskRow(tw, t, "")
		}
	}
	if len(snap.Orphans) > 0 {
		fmt.Fprintf(tw, "\nNot shown in any column (%d)\n", len(snap.Orphans))
		for _, t := range snap.Orphans {
			writeTaskRow(tw, t, "")
		}
	}
	return tw.Flush()
}

func writeTaskRow(w io.Writer, t domain.Task, column string) {
	due := "-"
	if t.DueDate != nil {
		due = t.DueDate.Format("2006-01-02")
	}
	assignee := "-"
	if t.Assignee != nil {
		assignee = t.Assignee.DisplayName()
	}
	id := t.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if column != "" {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n", id, t.Title, column, t.Status, t.Priority, due, assignee)
		return
	}
	fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n", id, t.Title, t.Status, t.Priority, due, assignee)
}

func printTasks(w io.Writer, columns []domain.Column, tasks []domain.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range tasks {
		column := "-"
		if c, ok := domain.EffectiveColumn(t, columns); ok {
			column = c.Name
		}
		writeTaskRow(tw, t, column)
	}
	return tw.Flush()
}

func printStats(w io.Writer, s domain.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%d\n", s.Total)
	fmt.Fprintf(tw, "To do\t%d\n", s.Todo)
	fmt.Fprintf(tw, "In progress\t%d\n", s.InProgress)
	fmt.Fprintf(tw, "Review\t%d\n", s.Review)
	fmt.Fprintf(tw, "Done\t%d\n", s.Done)
	fmt.Fprintf(tw, "Overdue\t%d\n", s.Overdue)
	return tw.Flush()
}

func printMembers(w io.Writer, members []domain.Member) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.User.DisplayName(), m.User.Email, m.Role)
	}
	return tw.Flush()
}
