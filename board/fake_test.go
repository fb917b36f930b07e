package board

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

var testRef = domain.ProjectRef{WorkspaceID: "w1", ProjectID: "p1"}

type updateCall struct {
	columnID string
	taskID   string
	patch    domain.TaskPatch
}

// fakeBackend is an in-memory collaborator. Fields ending in Err make the
// matching call fail; fields ending in Fn run before the call is served.
type fakeBackend struct {
	mu      sync.Mutex
	project domain.Project
	columns []domain.Column
	tasks   []domain.Task
	members []domain.Member
	nextID  int
	calls   map[string]int
	updates []updateCall

	getProjectErr   error
	listColumnsErr  error
	listTasksErr    map[string]error
	listMembersErr  error
	createColumnErr error
	createTaskErr   error
	updateTaskErr   error
	moveTaskErr     error
	deleteTaskErr   error

	listTasksFn  func(columnID string) error
	updateTaskFn func(columnID, taskID string, patch domain.TaskPatch)
}

func newFakeBackend(columnNames ...string) *fakeBackend {
	f := &fakeBackend{
		project: domain.Project{ID: testRef.ProjectID, WorkspaceID: testRef.WorkspaceID, Name: "Launch"},
		calls:   make(map[string]int),
	}
	for i, name := range columnNames {
		f.columns = append(f.columns, domain.Column{ID: strconv.Itoa(i + 1), Name: name, Position: i, ProjectID: testRef.ProjectID})
	}
	return f
}

func (f *fakeBackend) seedTask(columnID, id, title string, status domain.Status) domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := domain.Task{ID: id, Title: title, Status: status, Priority: domain.PriorityMedium, ColumnID: columnID}
	f.tasks = append(f.tasks, t)
	return t
}

func (f *fakeBackend) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) serverTask(id string) (domain.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

func (f *fakeBackend) setServerTask(t domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == t.ID {
			f.tasks[i] = t
		}
	}
}

func (f *fakeBackend) GetProject(ctx context.Context, ref domain.ProjectRef) (domain.Project, error) {
	f.record("GetProject")
	if f.getProjectErr != nil {
		return domain.Project{}, f.getProjectErr
	}
	return f.project, nil
}

func (f *fakeBackend) ListColumns(ctx context.Context, ref domain.ProjectRef) ([]domain.Column, error) {
	f.record("ListColumns")
	if f.listColumnsErr != nil {
		return nil, f.listColumnsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Column(nil), f.columns...), nil
}

func (f *fakeBackend) ListTasks(ctx context.Context, ref domain.ProjectRef, columnID string) ([]domain.Task, error) {
	f.record("ListTasks")
	if f.listTasksFn != nil {
		if err := f.listTasksFn(columnID); err != nil {
			return nil, err
		}
	}
	if err := f.listTasksErr[columnID]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if t.ColumnID == columnID {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateColumn(ctx context.Context, ref domain.ProjectRef, col domain.Column) (domain.Column, error) {
	f.record("CreateColumn")
	if f.createColumnErr != nil {
		return domain.Column{}, f.createColumnErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	col.ID = strconv.Itoa(100 + len(f.columns))
	col.ProjectID = ref.ProjectID
	f.columns = append(f.columns, col)
	return col, nil
}

func (f *fakeBackend) CreateTask(ctx context.Context, ref domain.ProjectRef, in domain.NewTask) (domain.Task, error) {
	f.record("CreateTask")
	if f.createTaskErr != nil {
		return domain.Task{}, f.createTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := domain.Task{
		ID:          fmt.Sprintf("new-%d", f.nextID),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		DueDate:     in.DueDate,
		ColumnID:    in.ColumnID,
	}
	f.tasks = append(f.tasks, t)
	return t.Clone(), nil
}

func (f *fakeBackend) UpdateTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	f.record("UpdateTask")
	f.mu.Lock()
	f.updates = append(f.updates, updateCall{columnID: columnID, taskID: taskID, patch: patch})
	f.mu.Unlock()
	if f.updateTaskFn != nil {
		f.updateTaskFn(columnID, taskID, patch)
	}
	if f.updateTaskErr != nil {
		return domain.Task{}, f.updateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		t := &f.tasks[i]
		if t.ID != taskID {
			continue
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.ColumnID != nil {
			t.ColumnID = *patch.ColumnID
		}
		return t.Clone(), nil
	}
	return domain.Task{}, errors.New("Not found.")
}

func (f *fakeBackend) MoveTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID, targetColumnID string, position int) (domain.Task, error) {
	f.record("MoveTask")
	if f.moveTaskErr != nil {
		return domain.Task{}, f.moveTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks[i].ColumnID = targetColumnID
			for _, c := range f.columns {
				if c.ID == targetColumnID {
					if st, ok := domain.StageOf(c.Name); ok {
						f.tasks[i].Status = st
					}
				}
			}
			return f.tasks[i].Clone(), nil
		}
	}
	return domain.Task{}, errors.New("Not found.")
}

func (f *fakeBackend) DeleteTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID string) error {
	f.record("DeleteTask")
	if f.deleteTaskErr != nil {
		return f.deleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	f.tasks = kept
	return nil
}

func (f *fakeBackend) ListMembers(ctx context.Context, ref domain.ProjectRef) ([]domain.Member, error) {
	f.record("ListMembers")
	if f.listMembersErr != nil {
		return nil, f.listMembersErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Member(nil), f.members...), nil
}

func (f *fakeBackend) AddMember(ctx context.Context, ref domain.ProjectRef, email string) (domain.Member, error) {
	f.record("AddMember")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := domain.Member{ID: fmt.Sprintf("m-%d", f.nextID), User: domain.User{Email: email}, Role: "member"}
	f.members = append(f.members, m)
	return m, nil
}

func (f *fakeBackend) RemoveMember(ctx context.Context, ref domain.ProjectRef, memberID string) error {
	f.record("RemoveMember")
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.members[:0]
	for _, m := range f.members {
		if m.ID != memberID {
			kept = append(kept, m)
		}
	}
	f.members = kept
	return nil
}

func ptrString(s string) *string { return &s }

func ptrStatus(s domain.Status) *domain.Status { return &s }
