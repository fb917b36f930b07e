package domain

import (
	"strings"
	"unicode"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// stageSynonyms maps normalized column names onto the workflow stage they
// stand for.
var stageSynonyms = map[string]Status{
	"todo":       StatusTodo,
	"backlog":    StatusTodo,
	"open":       StatusTodo,
	"new":        StatusTodo,
	"inprogress": StatusInProgress,
	"doing":      StatusInProgress,
	"wip":        StatusInProgress,
	"active":     StatusInProgress,
	"started":    StatusInProgress,
	"done":       StatusDone,
	"complete":   StatusDone,
	"completed":  StatusDone,
	"finished":   StatusDone,
	"closed":     StatusDone,
}

// NormalizeName lowercases s and strips whitespace, hyphens and underscores,
// so "In Progress", "in-progress" and "IN_PROGRESS" compare equal.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// StageOf returns the workflow stage a column name corresponds to.
func StageOf(name string) (Status, bool) {
	st, ok := stageSynonyms[NormalizeName(name)]
	return st, ok
}

// IsWorkflow reports whether the column name matches a workflow stage.
func (c Column) IsWorkflow() bool {
	_, ok := StageOf(c.Name)
	return ok
}

// ParseStatus maps any accepted spelling of a status onto its canonical
// value. Review is a valid status without a stage of its own.
func ParseStatus(s string) (Status, bool) {
	norm := NormalizeName(s)
	if norm == "" {
		return StatusTodo, true
	}
	if norm == "review" || norm == "inreview" {
		return StatusReview, true
	}
	st, ok := stageSynonyms[norm]
	return st, ok
}

// SameStatus compares two statuses in normalized form.
func SameStatus(a, b Status) bool {
	na, okA := ParseStatus(string(a))
	nb, okB := ParseStatus(string(b))
	if okA && okB {
		return na == nb
	}
	return NormalizeName(string(a)) == NormalizeName(string(b))
}

// StageColumn returns the first column, in column order, whose name matches
// the stage of status.
func StageColumn(status Status, columns []Column) (Column, bool) {
	want, ok := ParseStatus(string(status))
	if !ok {
		return Column{}, false
	}
	for _, c := range columns {
		if st, ok := StageOf(c.Name); ok && st == want {
			return c, true
		}
	}
	return Column{}, false
}

// EffectiveColumn returns the column a task is displayed under. A stored
// column that is not workflow-named wins; otherwise the task follows its
// status to the first matching workflow column. The second return value is
// false for tasks no column can display.
func EffectiveColumn(t Task, columns []Column) (Column, bool) {
	for _, c := range columns {
		if c.ID == t.ColumnID {
			if !c.IsWorkflow() {
				return c, true
			}
			break
		}
	}
	return StageColumn(t.Status, columns)
}
