package board

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

const defaultColumnColor = "#6B7280"

// TaskInput is the form used to create a task.
type TaskInput struct {
	Title       string
	Description string
	Priority    domain.Priority
	DueDate     *time.Time
}

// AddColumn appends a column named name. The new column gets the next
// position; columns are never reordered.
func (e *Engine) AddColumn(ctx context.Context, name, color string) (domain.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Column{}, invalid("name", "column name is required")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = defaultColumnColor
	}

	e.mu.RLock()
	loaded := e.loaded
	position := len(e.columns)
	e.mu.RUnlock()
	if !loaded {
		return domain.Column{}, ErrNotLoaded
	}

	col, err := e.backend.CreateColumn(ctx, e.ref, domain.Column{Name: name, Color: color, Position: position})
	if err != nil {
		return domain.Column{}, &MutationError{Op: "add column", Err: err}
	}

	e.commit(func() {
		e.columns = append(e.columns, col)
		if _, ok := e.lists[col.ID]; !ok {
			e.lists[col.ID] = nil
		}
	})
	e.logger.WithFields(log.Fields{"column": col.ID, "name": col.Name}).Info("board.column.added")
	return col, nil
}

// AddTask creates a task in columnID. A task created in a workflow-named
// column starts in that column's stage.
func (e *Engine) AddTask(ctx context.Context, columnID string, in TaskInput) (domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Task{}, invalid("title", "task title is required")
	}
	priority, ok := domain.ParsePriority(string(in.Priority))
	if !ok {
		return domain.Task{}, invalid("priority", "priority must be low, medium or high")
	}

	e.mu.RLock()
	loaded := e.loaded
	col, found := e.columnLocked(columnID)
	e.mu.RUnlock()
	if !loaded {
		return domain.Task{}, ErrNotLoaded
	}
	if !found {
		return domain.Task{}, invalid("column", "column does not exist")
	}

	status := domain.StatusTodo
	if st, ok := domain.StageOf(col.Name); ok {
		status = st
	}

	task, err := e.backend.CreateTask(ctx, e.ref, domain.NewTask{
		Title:       title,
		Description: in.Description,
		Priority:    priority,
		Status:      status,
		DueDate:     in.DueDate,
		ColumnID:    col.ID,
	})
	if err != nil {
		return domain.Task{}, &MutationError{Op: "add task", Err: err}
	}

	e.commit(func() {
		e.lists[col.ID] = append(e.lists[col.ID], task)
	})
	e.logger.WithFields(log.Fields{"task": task.ID, "column": col.ID, "status": task.Status}).Info("board.task.added")
	return task, nil
}

// UpdateTask applies patch to a task. A status change also points the task's
// column reference at the first column of the new stage, if there is one.
// The board changes only after the server confirms.
func (e *Engine) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Task{}, invalid("title", "task title is required")
		}
		patch.Title = &title
	}
	if patch.Priority != nil {
		p, ok := domain.ParsePriority(string(*patch.Priority))
		if !ok {
			return domain.Task{}, invalid("priority", "priority must be low, medium or high")
		}
		patch.Priority = &p
	}
	if patch.Status != nil {
		st, ok := domain.ParseStatus(string(*patch.Status))
		if !ok {
			return domain.Task{}, invalid("status", "unknown status "+string(*patch.Status))
		}
		patch.Status = &st
	}

	e.mu.RLock()
	loaded := e.loaded
	current, holder, found := e.findLocked(taskID)
	columns := append([]domain.Column(nil), e.columns...)
	e.mu.RUnlock()
	if !loaded {
		return domain.Task{}, ErrNotLoaded
	}
	if !found {
		return domain.Task{}, ErrTaskNotFound
	}

	if patch.Status != nil && patch.ColumnID == nil && !domain.SameStatus(*patch.Status, current.Status) {
		if col, ok := domain.StageColumn(*patch.Status, columns); ok {
			id := col.ID
			patch.ColumnID = &id
		}
	}

	updated, err := e.backend.UpdateTask(ctx, e.ref, contextColumn(current, holder), taskID, patch)
	if err != nil {
		return domain.Task{}, &MutationError{Op: "update task", Err: err}
	}

	e.commit(func() {
		e.replaceLocked(updated)
	})
	e.logger.WithFields(log.Fields{"task": taskID, "status": updated.Status, "column": updated.ColumnID}).Info("board.task.updated")
	return updated, nil
}

// DeleteTask removes a task once the server confirms. Asking the user is the
// caller's job.
func (e *Engine) DeleteTask(ctx context.Context, taskID string) error {
	e.mu.RLock()
	loaded := e.loaded
	current, holder, found := e.findLocked(taskID)
	e.mu.RUnlock()
	if !loaded {
		return ErrNotLoaded
	}
	if !found {
		return ErrTaskNotFound
	}

	if err := e.backend.DeleteTask(ctx, e.ref, contextColumn(current, holder), taskID); err != nil {
		return &MutationError{Op: "delete task", Err: err}
	}

	e.commit(func() {
		e.removeLocked(taskID)
	})
	e.logger.WithField("task", taskID).Info("board.task.deleted")
	return nil
}

// contextColumn is the column a task is addressed under in API paths.
func contextColumn(t domain.Task, holder string) string {
	if t.ColumnID != "" {
		return t.ColumnID
	}
	return holder
}
