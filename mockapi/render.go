package mockapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type userJSON struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type projectJSON struct {
	ID          string   `json:"id"`
	Workspace   string   `json:"workspace"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Icon        string   `json:"icon"`
	Owner       userJSON `json:"owner"`
}

type columnJSON struct {
	ID        int64  `json:"id"`
	Project   string `json:"project"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Position  int    `json:"position"`
	TaskCount int    `json:"task_count"`
}

type taskJSON struct {
	ID               string    `json:"id"`
	Project          string    `json:"project"`
	Column           int64     `json:"column"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
	Position         int       `json:"position"`
	DueDate          *string   `json:"due_date"`
	Assignee         *userJSON `json:"assignee"`
	CreatedBy        *userJSON `json:"created_by"`
	CreatedAt        string    `json:"created_at"`
	CommentsCount    int       `json:"comments_count"`
	AttachmentsCount int       `json:"attachments_count"`
}

type memberJSON struct {
	ID      string   `json:"id"`
	User    userJSON `json:"user"`
	Role    string   `json:"role"`
	AddedAt string   `json:"added_at"`
}

type tokensJSON struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh,omitempty"`
	User    *userJSON `json:"user,omitempty"`
}

func renderUser(u userRecord) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, Username: u.Username, FullName: u.FullName}
}

func (s *Store) userRef(id string) *userJSON {
	if id == "" {
		return nil
	}
	u, ok := s.user(id)
	if !ok {
		return nil
	}
	out := renderUser(u)
	return &out
}

func (s *Store) renderProject(p projectRecord) projectJSON {
	out := projectJSON{ID: p.ID, Workspace: p.WorkspaceID, Name: p.Name, Description: p.Description, Color: p.Color, Icon: p.Icon}
	if owner := s.userRef(p.OwnerID); owner != nil {
		out.Owner = *owner
	}
	return out
}

func renderColumn(c columnRecord, taskCount int) columnJSON {
	return columnJSON{ID: c.ID, Project: c.ProjectID, Name: c.Name, Color: c.Color, Position: c.Position, TaskCount: taskCount}
}

func (s *Store) renderTask(t taskRecord) taskJSON {
	out := taskJSON{
		ID:          t.ID,
		Project:     t.ProjectID,
		Column:      t.ColumnID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Position:    t.Position,
		Assignee:    s.userRef(t.AssigneeID),
		CreatedBy:   s.userRef(t.CreatedBy),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC().Format(time.RFC3339)
		out.DueDate = &due
	}
	return out
}

func (s *Store) renderTasks(tasks []taskRecord) []taskJSON {
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, s.renderTask(t))
	}
	return out
}

func (s *Store) renderMember(m memberRecord) memberJSON {
	out := memberJSON{ID: m.ID, Role: m.Role, AddedAt: m.AddedAt.UTC().Format(time.RFC3339Nano)}
	if u := s.userRef(m.UserID); u != nil {
		out.User = *u
	}
	return out
}

// Response envelopes. Routes answer in different shapes, as the API does.

func respondData(c echo.Context, status int, v any) error {
	return c.JSON(status, echo.Map{"data": v})
}

func respondSuccess(c echo.Context, status int, message string, v any) error {
	body := echo.Map{"success": true, "data": v}
	if message != "" {
		body["message"] = message
	}
	return c.JSON(status, body)
}

func respondPage[T any](c echo.Context, items []T) error {
	return c.JSON(http.StatusOK, echo.Map{"count": len(items), "next": nil, "previous": nil, "results": items})
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func fieldRequired(field string) map[string][]string {
	return map[string][]string{field: {"This field is required."}}
}

// fail maps a store error onto an API error response.
func fail(c echo.Context, err error) error {
	var fe *fieldError
	switch {
	case errors.As(err, &fe):
		return c.JSON(http.StatusBadRequest, map[string][]string{fe.field: {fe.msg}})
	case errors.Is(err, errNotFound):
		return c.JSON(http.StatusNotFound, detail("Not found."))
	case errors.Is(err, errCredentials):
		return c.JSON(http.StatusUnauthorized, detail("No active account found with the given credentials"))
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
