package board

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

func newTestEngine(t *testing.T, f *fakeBackend) *Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return New(f, testRef, logger)
}

func loadedEngine(t *testing.T, f *fakeBackend) *Engine {
	t.Helper()
	e := newTestEngine(t, f)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e
}

func displayedIDs(e *Engine, columnID string) []string {
	var ids []string
	for _, t := range e.DisplayedTasks(columnID) {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestLoadPopulatesBoard(t *testing.T) {
	f := newFakeBackend("Todo", "In Progress", "Done")
	f.seedTask("1", "a", "Write spec", domain.StatusTodo)
	f.seedTask("2", "b", "Build", domain.StatusInProgress)
	f.seedTask("3", "c", "Ship", domain.StatusDone)
	f.members = []domain.Member{{ID: "m1", User: domain.User{Email: "ana@example.com"}}}

	e := loadedEngine(t, f)
	snap := e.Snapshot()

	if !snap.Loaded || snap.Project.Name != "Launch" {
		t.Fatalf("unexpected project: %#v", snap.Project)
	}
	if len(snap.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(snap.Columns))
	}
	for i, want := range []string{"a", "b", "c"} {
		col := snap.Columns[i]
		if len(col.Tasks) != 1 || col.Tasks[0].ID != want {
			t.Fatalf("column %s: unexpected tasks %#v", col.Name, col.Tasks)
		}
		if !col.Workflow {
			t.Fatalf("column %s should be workflow-named", col.Name)
		}
	}
	if len(snap.Members) != 1 {
		t.Fatalf("expected members to be loaded")
	}
	if snap.Stats.Total != 3 || snap.Stats.Done != 1 {
		t.Fatalf("unexpected stats: %#v", snap.Stats)
	}
	if got := f.callCount("ListTasks"); got != 3 {
		t.Fatalf("expected one task fetch per column, got %d", got)
	}
}

func TestLoadFetchesColumnsConcurrently(t *testing.T) {
	f := newFakeBackend("Todo", "In Progress", "Done", "Ideas")
	var started int32
	all := make(chan struct{})
	f.listTasksFn = func(columnID string) error {
		if atomic.AddInt32(&started, 1) == 4 {
			close(all)
		}
		select {
		case <-all:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("column fetches were serialized")
		}
	}

	e := newTestEngine(t, f)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadFailureCommitsNothing(t *testing.T) {
	f := newFakeBackend("Todo", "Done")
	f.seedTask("1", "a", "Write spec", domain.StatusTodo)
	e := loadedEngine(t, f)
	before := e.Snapshot()

	f.seedTask("2", "b", "Another", domain.StatusDone)
	f.listTasksErr = map[string]error{"2": errors.New("boom")}

	err := e.Load(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if loadErr.Stage != "tasks" || !loadErr.Retryable() {
		t.Fatalf("unexpected load error: %#v", loadErr)
	}
	if after := e.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("failed load changed the board:\nbefore %#v\nafter  %#v", before, after)
	}
}

func TestLoadFailsOnProjectError(t *testing.T) {
	f := newFakeBackend("Todo")
	f.getProjectErr = errors.New("Not found.")
	e := newTestEngine(t, f)

	err := e.Load(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Stage != "project" {
		t.Fatalf("expected project load error, got %v", err)
	}
	if e.Snapshot().Loaded {
		t.Fatalf("board must stay unloaded")
	}
	if f.callCount("ListColumns") != 0 {
		t.Fatalf("columns must not be fetched after the project failed")
	}
}

func TestLoadCreatesDefaultColumns(t *testing.T) {
	f := newFakeBackend()
	e := loadedEngine(t, f)

	cols := e.Columns()
	if len(cols) != 3 {
		t.Fatalf("expected default columns, got %#v", cols)
	}
	for i, def := range DefaultColumns {
		if cols[i].Name != def.Name || cols[i].Color != def.Color || cols[i].Position != def.Position {
			t.Fatalf("unexpected column %d: %#v", i, cols[i])
		}
	}
	if f.callCount("CreateColumn") != 3 {
		t.Fatalf("expected columns to be created through the backend")
	}
}

func TestLoadFailsWhenDefaultColumnsCannotBeCreated(t *testing.T) {
	f := newFakeBackend()
	f.createColumnErr = errors.New("forbidden")
	e := newTestEngine(t, f)

	var loadErr *LoadError
	if err := e.Load(context.Background()); !errors.As(err, &loadErr) || loadErr.Stage != "default columns" {
		t.Fatalf("expected default columns load error, got %v", err)
	}
}

func TestLoadToleratesMembersFailure(t *testing.T) {
	f := newFakeBackend("Todo")
	f.listMembersErr = errors.New("members unavailable")
	logger, hook := test.NewNullLogger()
	e := New(f, testRef, logger)

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(e.Members()) != 0 {
		t.Fatalf("expected no members")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel || entry.Message != "board.members.load_failed" {
		t.Fatalf("expected members warning, got %#v", entry)
	}
}

func TestLoadCancelledCommitsNothing(t *testing.T) {
	f := newFakeBackend("Todo")
	ctx, cancel := context.WithCancel(context.Background())
	f.listTasksFn = func(string) error {
		cancel()
		return nil
	}
	e := newTestEngine(t, f)

	if err := e.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.Snapshot().Loaded {
		t.Fatalf("cancelled load must not commit")
	}
}

func TestOperationsRequireLoad(t *testing.T) {
	f := newFakeBackend("Todo")
	e := newTestEngine(t, f)
	ctx := context.Background()

	if _, err := e.AddColumn(ctx, "Ideas", ""); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("add column: expected ErrNotLoaded, got %v", err)
	}
	if _, err := e.AddTask(ctx, "1", TaskInput{Title: "x"}); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("add task: expected ErrNotLoaded, got %v", err)
	}
	if _, err := e.MoveTask(ctx, "a", "1", "1"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("move: expected ErrNotLoaded, got %v", err)
	}
}

func TestAddColumnRejectsEmptyName(t *testing.T) {
	f := newFakeBackend("Todo")
	e := loadedEngine(t, f)
	before := e.Snapshot()
	calls := f.totalCalls()

	_, err := e.AddColumn(context.Background(), "   ", "#000")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "name" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.totalCalls() != calls {
		t.Fatalf("validation failure must not reach the backend")
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Fatalf("validation failure changed the board")
	}
}

func TestAddColumnAppendsAtNextPosition(t *testing.T) {
	f := newFakeBackend("Todo", "Done")
	e := loadedEngine(t, f)

	col, err := e.AddColumn(context.Background(), "  Ideas ", "#123456")
	if err != nil {
		t.Fatalf("add column: %v", err)
	}
	if col.Name != "Ideas" || col.Position != 2 || col.Color != "#123456" {
		t.Fatalf("unexpected column: %#v", col)
	}
	cols := e.Columns()
	if cols[len(cols)-1].ID != col.ID {
		t.Fatalf("expected column to be appended")
	}
	if tasks := e.DisplayedTasks(col.ID); len(tasks) != 0 {
		t.Fatalf("expected empty task list")
	}
}

func TestAddColumnSurfacesBackendMessage(t *testing.T) {
	f := newFakeBackend("Todo")
	f.createColumnErr = errors.New("Column limit reached for this project")
	e := loadedEngine(t, f)
	before := e.Snapshot()

	_, err := e.AddColumn(context.Background(), "Ideas", "")
	if err == nil || err.Error() != "Column limit reached for this project" {
		t.Fatalf("expected backend message verbatim, got %v", err)
	}
	var mErr *MutationError
	if !errors.As(err, &mErr) || mErr.Op != "add column" {
		t.Fatalf("expected MutationError, got %T", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Fatalf("failed add column changed the board")
	}
}

func TestAddTaskTakesStageOfColumn(t *testing.T) {
	f := newFakeBackend("Todo", "In Progress", "Done")
	e := loadedEngine(t, f)

	task, err := e.AddTask(context.Background(), "1", TaskInput{Title: " Draft plan "})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.Status != domain.StatusTodo || task.Title != "Draft plan" || task.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected task: %#v", task)
	}
	if got := displayedIDs(e, "1"); !reflect.DeepEqual(got, []string{task.ID}) {
		t.Fatalf("expected task under Todo only, got %v", got)
	}
	for _, col := range []string{"2", "3"} {
		if got := displayedIDs(e, col); len(got) != 0 {
			t.Fatalf("task leaked into column %s: %v", col, got)
		}
	}

	done, err := e.AddTask(context.Background(), "3", TaskInput{Title: "Retro", Priority: domain.PriorityHigh})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if done.Status != domain.StatusDone {
		t.Fatalf("expected done status, got %q", done.Status)
	}
}

func TestAddTaskInCustomColumnDefaultsToTodo(t *testing.T) {
	f := newFakeBackend("Todo", "Ideas")
	e := loadedEngine(t, f)

	task, err := e.AddTask(context.Background(), "2", TaskInput{Title: "Maybe later"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.Status != domain.StatusTodo {
		t.Fatalf("expected todo, got %q", task.Status)
	}
	if got := displayedIDs(e, "2"); !reflect.DeepEqual(got, []string{task.ID}) {
		t.Fatalf("expected task under Ideas, got %v", got)
	}
}

func TestAddTaskValidation(t *testing.T) {
	f := newFakeBackend("Todo")
	e := loadedEngine(t, f)
	calls := f.totalCalls()

	tests := []struct {
		name   string
		column string
		in     TaskInput
		field  string
	}{
		{name: "blank title", column: "1", in: TaskInput{Title: "  "}, field: "title"},
		{name: "unknown column", column: "99", in: TaskInput{Title: "x"}, field: "column"},
		{name: "bad priority", column: "1", in: TaskInput{Title: "x", Priority: "urgent"}, field: "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AddTask(context.Background(), tt.column, tt.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Fatalf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
	if f.totalCalls() != calls {
		t.Fatalf("validation failures must not reach the backend")
	}
}

func TestAddTaskFailureLeavesBoard(t *testing.T) {
	f := newFakeBackend("Todo")
	f.createTaskErr = errors.New("project: Invalid pk")
	e := loadedEngine(t, f)
	before := e.Snapshot()

	if _, err := e.AddTask(context.Background(), "1", TaskInput{Title: "x"}); err == nil || err.Error() != "project: Invalid pk" {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Fatalf("failed add task changed the board")
	}
}

func TestUpdateTaskRemapsColumnOnStatusChange(t *testing.T) {
	f := newFakeBackend("Todo", "In Progress", "Done")
	f.seedTask("1", "a", "Write spec", domain.StatusTodo)
	e := loadedEngine(t, f)

	updated, err := e.UpdateTask(context.Background(), "a", domain.TaskPatch{Status: ptrStatus("Done")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(f.updates) != 1 {
		t.Fatalf("expected one update call, got %d", len(f.updates))
	}
	call := f.updates[0]
	if call.columnID != "1" {
		t.Fatalf("expected current column as context, got %s", call.columnID)
	}
	if call.patch.ColumnID == nil || *call.patch.ColumnID != "3" {
		t.Fatalf("expected column remapped to Done, got %v", call.patch.ColumnID)
	}
	if call.patch.Status == nil || *call.patch.Status != domain.StatusDone {
		t.Fatalf("expected canonical status, got %v", call.patch.Status)
	}
	if updated.Status != domain.StatusDone || updated.ColumnID != "3" {
		t.Fatalf("unexpected updated task: %#v", updated)
	}
	if got := displayedIDs(e, "3"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("expected task under Done, got %v", got)
	}
	if got := displayedIDs(e, "1"); len(got) != 0 {
		t.Fatalf("expected Todo to be empty, got %v", got)
	}
}

func TestUpdateTaskWithoutStatusChangeKeepsColumn(t *testing.T) {
	f := newFakeBackend("Todo", "Done")
	f.seedTask("1", "a", "Write spec", domain.StatusTodo)
	e := loadedEngine(t, f)

	if _, err := e.UpdateTask(context.Background(), "a", domain.TaskPatch{Title: ptrString("Write the spec"), Status: ptrStatus("to-do")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if f.updates[0].patch.ColumnID != nil {
		t.Fatalf("unchanged status must not remap the column")
	}
	task, ok := e.Task("a")
	if !ok || task.Title != "Write the spec" {
		t.Fatalf("expected server copy to replace task, got %#v", task)
	}
}

func TestUpdateTaskReplacesEveryOccurrence(t *testing.T) {
	f := newFakeBackend("Todo", "Ideas")
	e := loadedEngine(t, f)
	dup := domain.Task{ID: "a", Title: "Old", Status: domain.StatusTodo, ColumnID: "1"}
	e.commit(func() {
		e.lists["1"] = append(e.lists["1"], dup)
		e.lists["2"] = append(e.lists["2"], dup)
	})
	f.seedTask("1", "a", "Old", domain.StatusTodo)

	if _, err := e.UpdateTask(context.Background(), "a", domain.TaskPatch{Title: ptrString("New")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for col, list := range e.lists {
		for _, task := range list {
			if task.ID == "a" && task.Title != "New" {
				t.Fatalf("stale copy left in column %s", col)
			}
		}
	}
}

func TestUpdateTaskFailureLeavesTaskUntouched(t *testing.T) {
	f := newFakeBackend("Todo", "Done")
	f.seedTask("1", "a", "Write spec", domain.StatusTodo)
	f.updateTaskErr = errors.New("You do not have permission to perform this action.")
	e := loadedEngine(t, f)
	before := e.Snapshot()

	_, err := e.UpdateTask(context.Background(), "a", domain.TaskPatch{Title: ptrString("x"), Status: ptrStatus(domain.StatusDone)})
	if err == nil || err.Error() != "You do not have permission to perform this action." {
		t.Fatalf("expected backend message, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Fatalf("failed update changed the board")
	}
}

func TestUpdateTaskValidation(t *testing.T) {
	f := newFakeBackend("Todo")
	f.seedTask("1", "a", "Write spec", domain.StatusTodo)
	e := loadedEngine(t, f)
	calls := f.totalCalls()

	var vErr *ValidationError
	if _, err := e.UpdateTask(context.Background(), "a", domain.TaskPatch{Title: ptrString(" \t")}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	if _, err := e.UpdateTask(context.Background(), "a", domain.TaskPatch{Status: ptrStatus("blocked")}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	if f.totalCalls() != calls {
		t.Fatalf("validation failures must not reach the backend")
	}
	if _, err := e.UpdateTask(context.Background(), "missing", domain.TaskPatch{Title: ptrString("x")}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	f := newFakeBackend("Todo")
	f.seedTask("1", "a", "Write spec", domain.StatusTodo)
	f.seedTask("1", "b", "Review", domain.StatusTodo)
	e := loadedEngine(t, f)

	f.deleteTaskErr = errors.New("server error")
	before := e.Snapshot()
	if err := e.DeleteTask(context.Background(), "a"); err == nil {
		t.Fatalf("expected delete failure")
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Fatalf("failed delete changed the board")
	}

	f.deleteTaskErr = nil
	if err := e.DeleteTask(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := displayedIDs(e, "1"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("unexpected tasks after delete: %v", got)
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	f := newFakeBackend("Todo")
	e := newTestEngine(t, f)

	var mu sync.Mutex
	var totals []int
	e.OnChange(func(s Snapshot) {
		mu.Lock()
		totals = append(totals, s.Stats.Total)
		mu.Unlock()
	})

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := e.AddTask(context.Background(), "1", TaskInput{Title: "x"}); err != nil {
		t.Fatalf("add task: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(totals, []int{0, 1}) {
		t.Fatalf("unexpected notifications: %v", totals)
	}
}

func TestMembers(t *testing.T) {
	f := newFakeBackend("Todo")
	e := loadedEngine(t, f)
	ctx := context.Background()

	var vErr *ValidationError
	if _, err := e.AddMember(ctx, "  "); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	m, err := e.AddMember(ctx, " bo@example.com ")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if m.User.Email != "bo@example.com" || len(e.Members()) != 1 {
		t.Fatalf("unexpected members: %#v", e.Members())
	}
	if err := e.RemoveMember(ctx, m.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if len(e.Members()) != 0 {
		t.Fatalf("expected member to be removed")
	}
}
