package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// Backend is the REST collaborator the engine reads from and writes to.
// *backend.Client implements it.
type Backend interface {
	GetProject(ctx context.Context, ref domain.ProjectRef) (domain.Project, error)
	ListColumns(ctx context.Context, ref domain.ProjectRef) ([]domain.Column, error)
	ListTasks(ctx context.Context, ref domain.ProjectRef, columnID string) ([]domain.Task, error)
	CreateColumn(ctx context.Context, ref domain.ProjectRef, col domain.Column) (domain.Column, error)
	CreateTask(ctx context.Context, ref domain.ProjectRef, t domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID string, patch domain.TaskPatch) (domain.Task, error)
	MoveTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID, targetColumnID string, position int) (domain.Task, error)
	DeleteTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID string) error
	ListMembers(ctx context.Context, ref domain.ProjectRef) ([]domain.Member, error)
	AddMember(ctx context.Context, ref domain.ProjectRef, email string) (domain.Member, error)
	RemoveMember(ctx context.Context, ref domain.ProjectRef, memberID string) error
}

// DefaultColumns are created when a project has no columns yet.
var DefaultColumns = []domain.Column{
	{Name: "To Do", Color: "#3B82F6", Position: 0},
	{Name: "In Progress", Color: "#8B5CF6", Position: 1},
	{Name: "Done", Color: "#10B981", Position: 2},
}

// Engine holds the in-memory board of one project. It is safe for
// concurrent use; network calls are never made while the lock is held.
type Engine struct {
	backend Backend
	ref     domain.ProjectRef
	logger  *log.Logger
	now     func() time.Time

	mu        sync.RWMutex
	loaded    bool
	project   domain.Project
	columns   []domain.Column
	lists     map[string][]domain.Task
	members   []domain.Member
	listeners []func(Snapshot)
}

// New creates an engine for the project at ref. Call Load before anything
// else.
func New(b Backend, ref domain.ProjectRef, logger *log.Logger) *Engine {
	if b == nil {
		panic("board.New: backend is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		backend: b,
		ref:     ref,
		logger:  logger,
		now:     time.Now,
		lists:   make(map[string][]domain.Task),
	}
}

// Ref returns the project the engine serves.
func (e *Engine) Ref() domain.ProjectRef {
	return e.ref
}

// OnChange registers fn to be called with a fresh snapshot after every
// committed change. fn runs on the goroutine that made the change.
func (e *Engine) OnChange(fn func(Snapshot)) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Load fetches the project, its columns and the tasks of every column. The
// per-column fetches run concurrently; any failure aborts the load and the
// previous board stays in place.
func (e *Engine) Load(ctx context.Context) error {
	start := time.Now()
	logger := e.logger.WithFields(log.Fields{"workspace": e.ref.WorkspaceID, "project": e.ref.ProjectID})

	project, err := e.backend.GetProject(ctx, e.ref)
	if err != nil {
		return &LoadError{Stage: "project", Err: err}
	}

	columns, err := e.backend.ListColumns(ctx, e.ref)
	if err != nil {
		return &LoadError{Stage: "columns", Err: err}
	}
	if len(columns) == 0 {
		if columns, err = e.createDefaultColumns(ctx); err != nil {
			return &LoadError{Stage: "default columns", Err: err}
		}
	}

	lists := make([][]domain.Task, len(columns))
	g, gctx := errgroup.WithContext(ctx)
	for i, col := range columns {
		g.Go(func() error {
			tasks, err := e.backend.ListTasks(gctx, e.ref, col.ID)
			if err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
			lists[i] = tasks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &LoadError{Stage: "tasks", Err: err}
	}

	members, err := e.backend.ListMembers(ctx, e.ref)
	if err != nil {
		logger.WithError(err).Warn("board.members.load_failed")
		members = nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	e.project = project
	e.columns = append([]domain.Column(nil), columns...)
	e.lists = make(map[string][]domain.Task, len(columns))
	for i, col := range columns {
		e.lists[col.ID] = append(e.lists[col.ID], lists[i]...)
	}
	e.members = members
	e.loaded = true
	snap := e.snapshotLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()

	logger.WithFields(log.Fields{
		"columns":  len(columns),
		"tasks":    snap.Stats.Total,
		"orphans":  len(snap.Orphans),
		"total_ms": float64(time.Since(start)) / float64(time.Millisecond),
	}).Debug("board.loaded")
	notify(listeners, snap)
	return nil
}

func (e *Engine) createDefaultColumns(ctx context.Context) ([]domain.Column, error) {
	out := make([]domain.Column, 0, len(DefaultColumns))
	for _, def := range DefaultColumns {
		col, err := e.backend.CreateColumn(ctx, e.ref, def)
		if err != nil {
			return nil, fmt.Errorf("create column %q: %w", def.Name, err)
		}
		out = append(out, col)
	}
	e.logger.WithField("project", e.ref.ProjectID).Info("board.default_columns.created")
	return out, nil
}

// commit runs fn under the write lock and notifies listeners afterwards.
func (e *Engine) commit(fn func()) {
	e.mu.Lock()
	fn()
	snap := e.snapshotLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()
	notify(listeners, snap)
}

func (e *Engine) listenersLocked() []func(Snapshot) {
	if len(e.listeners) == 0 {
		return nil
	}
	return append([]func(Snapshot){}, e.listeners...)
}

// listsLocked copies the per-column task lists.
func (e *Engine) listsLocked() map[string][]domain.Task {
	out := make(map[string][]domain.Task, len(e.lists))
	for id, list := range e.lists {
		cp := make([]domain.Task, len(list))
		for i, t := range list {
			cp[i] = t.Clone()
		}
		out[id] = cp
	}
	return out
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// findLocked returns the first occurrence of a task and the column list
// holding it.
func (e *Engine) findLocked(taskID string) (domain.Task, string, bool) {
	for _, col := range e.columns {
		for _, t := range e.lists[col.ID] {
			if t.ID == taskID {
				return t, col.ID, true
			}
		}
	}
	return domain.Task{}, "", false
}

func (e *Engine) columnLocked(id string) (domain.Column, bool) {
	for _, c := range e.columns {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Column{}, false
}

// removeLocked drops every occurrence of a task from every list.
func (e *Engine) removeLocked(taskID string) {
	for id, list := range e.lists {
		kept := list[:0:0]
		for _, t := range list {
			if t.ID != taskID {
				kept = append(kept, t)
			}
		}
		e.lists[id] = kept
	}
}

// replaceLocked swaps every occurrence of t for the server copy. When the
// server reports a different column the task is moved to that column's list.
func (e *Engine) replaceLocked(t domain.Task) {
	found := false
	inTarget := false
	for id, list := range e.lists {
		for i := range list {
			if list[i].ID == t.ID {
				list[i] = t
				found = true
				if id == t.ColumnID {
					inTarget = true
				}
			}
		}
	}
	if _, known := e.lists[t.ColumnID]; !known || !found || inTarget {
		return
	}
	e.removeLocked(t.ID)
	e.lists[t.ColumnID] = append(e.lists[t.ColumnID], t)
}
