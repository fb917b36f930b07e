package board

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// MoveOutcome tells what a MoveTask call did.
type MoveOutcome int

const (
	// MoveNoop means nothing changed: unknown task or target, or the drop
	// landed on the column it started from.
	MoveNoop MoveOutcome = iota
	// MoveApplied means the move was shown optimistically and persisted.
	MoveApplied
	// MoveRolledBack means persisting failed and the board was reloaded.
	MoveRolledBack
)

func (o MoveOutcome) String() string {
	switch o {
	case MoveApplied:
		return "applied"
	case MoveRolledBack:
		return "rolled_back"
	default:
		return "noop"
	}
}

// MoveResult describes a finished MoveTask call.
type MoveResult struct {
	Outcome  MoveOutcome
	Task     domain.Task
	From     string
	To       string
	Reason   string
	Fallback bool
}

// MoveTask handles a drag and drop. target is either the id of the task the
// card was dropped on or the id of a column. The move is applied to the board
// and published to listeners before anything is sent; MoveTask then persists
// it and returns once the server answered. If persisting fails the whole
// board is reloaded.
func (e *Engine) MoveTask(ctx context.Context, taskID, sourceColumnID, target string) (MoveResult, error) {
	var (
		res     MoveResult
		noop    bool
		moved   domain.Task
		targetC domain.Column
	)

	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return MoveResult{}, ErrNotLoaded
	}
	task, holder, found := e.findLocked(taskID)
	switch {
	case !found:
		res, noop = MoveResult{Reason: "task not on board"}, true
	default:
		targetID, ok := e.resolveTargetLocked(target)
		if sourceColumnID == "" {
			sourceColumnID = holder
		}
		switch {
		case !ok:
			res, noop = MoveResult{Task: task, From: sourceColumnID, Reason: "unknown drop target"}, true
		case targetID == sourceColumnID:
			res, noop = MoveResult{Task: task, From: sourceColumnID, To: targetID, Reason: "same column"}, true
		default:
			targetC, _ = e.columnLocked(targetID)
		}
	}
	if noop {
		e.mu.Unlock()
		return res, nil
	}

	before := e.listsLocked()
	moved = task.Clone()
	if st, ok := domain.StageOf(targetC.Name); ok {
		moved.Status = st
	}
	moved.ColumnID = targetC.ID
	e.removeLocked(taskID)
	e.lists[targetC.ID] = append(e.lists[targetC.ID], moved)
	snap := e.snapshotLocked()
	listeners := e.listenersLocked()
	e.mu.Unlock()
	notify(listeners, snap)

	res = MoveResult{Outcome: MoveApplied, Task: moved, From: sourceColumnID, To: targetC.ID}
	logger := e.logger.WithFields(log.Fields{"task": taskID, "from": sourceColumnID, "to": targetC.ID, "status": moved.Status})

	confirmed, err := e.persistMove(ctx, sourceColumnID, moved, &res)
	if err == nil {
		e.commit(func() {
			e.replaceLocked(confirmed)
		})
		res.Task = confirmed
		logger.Info("board.task.moved")
		return res, nil
	}

	logger.WithError(err).Warn("board.task.move_failed")
	res.Outcome = MoveRolledBack
	res.Reason = err.Error()
	if loadErr := e.Load(ctx); loadErr != nil {
		logger.WithError(loadErr).Error("board.reload_failed")
		e.commit(func() {
			e.lists = before
		})
		res.Task = task
		return res, &MutationError{Op: "move task", Err: fmt.Errorf("%w; reload failed: %w", err, loadErr)}
	}
	if t, _, ok := e.find(taskID); ok {
		res.Task = t
	}
	return res, &MutationError{Op: "move task", Err: err}
}

// persistMove sends the new status and column through the update path, with
// the source column as the path context. When that fails the dedicated move
// endpoint gets one try.
func (e *Engine) persistMove(ctx context.Context, source string, moved domain.Task, res *MoveResult) (domain.Task, error) {
	status := moved.Status
	column := moved.ColumnID
	confirmed, err := e.backend.UpdateTask(ctx, e.ref, source, moved.ID, domain.TaskPatch{Status: &status, ColumnID: &column})
	if err == nil {
		return confirmed, nil
	}
	e.logger.WithError(err).WithField("task", moved.ID).Debug("board.task.move_update_failed")

	// The move endpoint only changes the column, so its answer still carries
	// the old status. The optimistic task stands.
	if _, moveErr := e.backend.MoveTask(ctx, e.ref, source, moved.ID, column, -1); moveErr != nil {
		return domain.Task{}, err
	}
	res.Fallback = true
	return moved, nil
}

// resolveTargetLocked maps a drop target onto a column id. Task ids win over
// column ids.
func (e *Engine) resolveTargetLocked(target string) (string, bool) {
	if _, holder, ok := e.findLocked(target); ok {
		return holder, true
	}
	if c, ok := e.columnLocked(target); ok {
		return c.ID, true
	}
	return "", false
}

func (e *Engine) find(taskID string) (domain.Task, string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, holder, ok := e.findLocked(taskID)
	return t.Clone(), holder, ok
}
