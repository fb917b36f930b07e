package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

const (
	routeProject = "/workspaces/{workspace}/projects/{project}/"
	routeColumns = routeProject + "columns/"
	routeTasks   = routeColumns + "{column}/tasks/"
	routeTask    = routeTasks + "{task}/"
	routeMove    = routeTask + "move/"
	routeMembers = routeProject + "members/"
	routeMember  = routeMembers + "{member}/"
)

func projectPath(ref domain.ProjectRef) string {
	return fmt.Sprintf("/workspaces/%s/projects/%s/", url.PathEscape(ref.WorkspaceID), url.PathEscape(ref.ProjectID))
}

func columnsPath(ref domain.ProjectRef) string {
	return projectPath(ref) + "columns/"
}

func tasksPath(ref domain.ProjectRef, columnID string) string {
	return columnsPath(ref) + url.PathEscape(columnID) + "/tasks/"
}

func taskPath(ref domain.ProjectRef, columnID, taskID string) string {
	return tasksPath(ref, columnID) + url.PathEscape(taskID) + "/"
}

func membersPath(ref domain.ProjectRef) string {
	return projectPath(ref) + "members/"
}

// GetProject fetches project metadata.
func (c *Client) GetProject(ctx context.Context, ref domain.ProjectRef) (domain.Project, error) {
	var p wireProject
	if err := c.do(ctx, request{method: http.MethodGet, route: routeProject, path: projectPath(ref)}, &p); err != nil {
		return domain.Project{}, err
	}
	return p.toDomain(ref), nil
}

// ListColumns fetches the project's columns ordered by position.
func (c *Client) ListColumns(ctx context.Context, ref domain.ProjectRef) ([]domain.Column, error) {
	var cols []wireColumn
	if err := c.do(ctx, request{method: http.MethodGet, route: routeColumns, path: columnsPath(ref)}, &cols); err != nil {
		return nil, err
	}
	out := make([]domain.Column, 0, len(cols))
	for _, col := range cols {
		out = append(out, col.toDomain(ref))
	}
	sortColumns(out)
	return out, nil
}

// CreateColumn creates a column with the given name, color and position.
func (c *Client) CreateColumn(ctx context.Context, ref domain.ProjectRef, col domain.Column) (domain.Column, error) {
	body := map[string]any{
		"name":     col.Name,
		"color":    col.Color,
		"position": col.Position,
	}
	var created wireColumn
	if err := c.do(ctx, request{method: http.MethodPost, route: routeColumns, path: columnsPath(ref), body: body}, &created); err != nil {
		return domain.Column{}, err
	}
	return created.toDomain(ref), nil
}

// ListTasks fetches the tasks stored in one column.
func (c *Client) ListTasks(ctx context.Context, ref domain.ProjectRef, columnID string) ([]domain.Task, error) {
	var tasks []wireTask
	if err := c.do(ctx, request{method: http.MethodGet, route: routeTasks, path: tasksPath(ref, columnID)}, &tasks); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.toDomain(columnID))
	}
	return out, nil
}

// CreateTask creates a task in t.ColumnID.
func (c *Client) CreateTask(ctx context.Context, ref domain.ProjectRef, t domain.NewTask) (domain.Task, error) {
	body := map[string]any{
		"title":       t.Title,
		"description": t.Description,
		"priority":    t.Priority,
		"status":      t.Status,
		"due_date":    formatDate(t.DueDate),
		"project":     idValue(ref.ProjectID),
		"column":      idValue(t.ColumnID),
	}
	var created wireTask
	err := c.do(ctx, request{method: http.MethodPost, route: routeTasks, path: tasksPath(ref, t.ColumnID), body: body}, &created)
	if err != nil {
		return domain.Task{}, err
	}
	return created.toDomain(t.ColumnID), nil
}

// UpdateTask applies patch to a task. columnID is the column the task is
// addressed under.
func (c *Client) UpdateTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	var updated wireTask
	err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  routeTask,
		path:   taskPath(ref, columnID, taskID),
		body:   patchBody(patch),
	}, &updated)
	if err != nil {
		return domain.Task{}, err
	}
	fallback := columnID
	if patch.ColumnID != nil {
		fallback = *patch.ColumnID
	}
	return updated.toDomain(fallback), nil
}

func patchBody(p domain.TaskPatch) map[string]any {
	body := make(map[string]any, 6)
	if p.Title != nil {
		body["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.DueDate != nil {
		body["due_date"] = formatDate(p.DueDate)
	} else if p.ClearDue {
		body["due_date"] = nil
	}
	if p.AssigneeID != nil {
		if *p.AssigneeID == "" {
			body["assignee"] = nil
		} else {
			body["assignee"] = idValue(*p.AssigneeID)
		}
	}
	if p.ColumnID != nil {
		body["column"] = idValue(*p.ColumnID)
	}
	return body
}

// MoveTask uses the dedicated move endpoint. A negative position lets the
// server append.
func (c *Client) MoveTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID, targetColumnID string, position int) (domain.Task, error) {
	body := map[string]any{"column_id": idValue(targetColumnID), "position": nil}
	if position >= 0 {
		body["position"] = position
	}
	var moved wireTask
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeMove,
		path:   taskPath(ref, columnID, taskID) + "move/",
		body:   body,
	}, &moved)
	if err != nil {
		return domain.Task{}, err
	}
	return moved.toDomain(targetColumnID), nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, ref domain.ProjectRef, columnID, taskID string) error {
	return c.do(ctx, request{method: http.MethodDelete, route: routeTask, path: taskPath(ref, columnID, taskID)}, nil)
}

// ListMembers fetches the project's members.
func (c *Client) ListMembers(ctx context.Context, ref domain.ProjectRef) ([]domain.Member, error) {
	var members []wireMember
	if err := c.do(ctx, request{method: http.MethodGet, route: routeMembers, path: membersPath(ref)}, &members); err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// AddMember invites a user to the project by email.
func (c *Client) AddMember(ctx context.Context, ref domain.ProjectRef, email string) (domain.Member, error) {
	var m wireMember
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeMembers,
		path:   membersPath(ref),
		body:   map[string]string{"email": email},
	}, &m)
	if err != nil {
		return domain.Member{}, err
	}
	return m.toDomain(), nil
}

// RemoveMember removes a member from the project.
func (c *Client) RemoveMember(ctx context.Context, ref domain.ProjectRef, memberID string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		route:  routeMember,
		path:   membersPath(ref) + url.PathEscape(memberID) + "/",
	}, nil)
}

func sortColumns(cols []domain.Column) {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
}
