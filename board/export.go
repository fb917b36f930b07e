package board

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

var csvHeader = []string{"ID", "Title", "Description", "Assignee", "Priority", "Status", "Column", "Due", "Created"}

// ExportCSV writes every task on the board as CSV, one row per task in board
// order. The Column field is the column the task is displayed under.
func (e *Engine) ExportCSV(w io.Writer) error {
	e.mu.RLock()
	tasks := e.allTasksLocked()
	columns := append([]domain.Column(nil), e.columns...)
	e.mu.RUnlock()

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		column := ""
		if c, ok := domain.EffectiveColumn(t, columns); ok {
			column = c.Name
		}
		assignee := ""
		if t.Assignee != nil {
			assignee = t.Assignee.DisplayName()
		}
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		created := ""
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.UTC().Format(time.RFC3339)
		}
		row := []string{t.ID, t.Title, t.Description, assignee, string(t.Priority), string(t.Status), column, due, created}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
