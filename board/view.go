package board

import (
	"strings"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// ColumnView is a column with the tasks displayed under it.
type ColumnView struct {
	domain.Column
	Workflow bool          `json:"workflow"`
	Stage    domain.Status `json:"stage,omitempty"`
	Tasks    []domain.Task `json:"tasks"`
}

// Snapshot is a copy of the board that shares no memory with the engine.
type Snapshot struct {
	Loaded  bool            `json:"loaded"`
	Project domain.Project  `json:"project"`
	Columns []ColumnView    `json:"columns"`
	Members []domain.Member `json:"members"`
	Stats   domain.Stats    `json:"stats"`
	Orphans []domain.Task   `json:"orphans,omitempty"`
}

// Snapshot returns the current board.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	all := e.allTasksLocked()
	snap := Snapshot{
		Loaded:  e.loaded,
		Project: e.project,
		Columns: make([]ColumnView, 0, len(e.columns)),
		Members: append([]domain.Member(nil), e.members...),
		Stats:   domain.ComputeStats(all, e.now()),
	}

	byColumn := make(map[string][]domain.Task, len(e.columns))
	for _, t := range all {
		col, ok := domain.EffectiveColumn(t, e.columns)
		if !ok {
			snap.Orphans = append(snap.Orphans, t)
			continue
		}
		byColumn[col.ID] = append(byColumn[col.ID], t)
	}
	for _, c := range e.columns {
		view := ColumnView{Column: c, Tasks: byColumn[c.ID]}
		view.Stage, view.Workflow = domain.StageOf(c.Name)
		if view.Tasks == nil {
			view.Tasks = []domain.Task{}
		}
		snap.Columns = append(snap.Columns, view)
	}
	return snap
}

// allTasksLocked lists every task once, in column order then list order.
// The returned tasks are copies.
func (e *Engine) allTasksLocked() []domain.Task {
	var out []domain.Task
	seen := make(map[string]bool)
	for _, c := range e.columns {
		for _, t := range e.lists[c.ID] {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t.Clone())
		}
	}
	return out
}

// Columns returns the board's columns in order.
func (e *Engine) Columns() []domain.Column {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.Column(nil), e.columns...)
}

// Tasks returns every task on the board once, in board order.
func (e *Engine) Tasks() []domain.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.allTasksLocked()
}

// Task looks a task up by id.
func (e *Engine) Task(id string) (domain.Task, bool) {
	t, _, ok := e.find(id)
	return t, ok
}

// DisplayedTasks returns the tasks shown under a column. Workflow-named
// columns show every task in their stage; other columns show the tasks
// stored in them.
func (e *Engine) DisplayedTasks(columnID string) []domain.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []domain.Task
	for _, t := range e.allTasksLocked() {
		if col, ok := domain.EffectiveColumn(t, e.columns); ok && col.ID == columnID {
			out = append(out, t)
		}
	}
	return out
}

// Orphans returns tasks that no column displays.
func (e *Engine) Orphans() []domain.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []domain.Task
	for _, t := range e.allTasksLocked() {
		if _, ok := domain.EffectiveColumn(t, e.columns); !ok {
			out = append(out, t)
		}
	}
	return out
}

// Stats summarises the board.
func (e *Engine) Stats() domain.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.ComputeStats(e.allTasksLocked(), e.now())
}

// Search returns tasks whose title or description contains query, ignoring
// case. An empty query matches nothing.
func (e *Engine) Search(query string) []domain.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []domain.Task
	for _, t := range e.allTasksLocked() {
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}
