package backend

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// flexID accepts identifiers sent as strings, numbers or objects with an id
// field. Columns use integer keys while projects and tasks use UUIDs.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := sonic.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
	case b[0] == '{':
		var obj struct {
			ID flexID `json:"id"`
		}
		if err := sonic.Unmarshal(b, &obj); err != nil {
			return err
		}
		*f = obj.ID
	default:
		*f = flexID(string(b))
	}
	return nil
}

// idValue renders an identifier the way the API stores it: integer keys go
// out as JSON numbers, everything else as strings.
func idValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

type wireUser struct {
	ID        flexID `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u wireUser) toDomain() domain.User {
	full := u.FullName
	if full == "" {
		full = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return domain.User{ID: string(u.ID), Email: u.Email, Username: u.Username, FullName: full}
}

// userRef is a user sent either as a nested object or as a bare id.
type userRef struct {
	user domain.User
}

func (r *userRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var u wireUser
		if err := sonic.Unmarshal(b, &u); err != nil {
			return err
		}
		r.user = u.toDomain()
		return nil
	}
	var id flexID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	r.user = domain.User{ID: string(id)}
	return nil
}

func (r *userRef) toDomain() *domain.User {
	if r == nil || (r.user.ID == "" && r.user.Email == "") {
		return nil
	}
	u := r.user
	return &u
}

type wireProject struct {
	ID          flexID `json:"id"`
	Workspace   flexID `json:"workspace"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

func (p wireProject) toDomain(ref domain.ProjectRef) domain.Project {
	out := domain.Project{
		ID:          string(p.ID),
		WorkspaceID: string(p.Workspace),
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		Icon:        p.Icon,
	}
	if out.ID == "" {
		out.ID = ref.ProjectID
	}
	if out.WorkspaceID == "" {
		out.WorkspaceID = ref.WorkspaceID
	}
	return out
}

type wireColumn struct {
	ID       flexID `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
	Project  flexID `json:"project"`
}

func (c wireColumn) toDomain(ref domain.ProjectRef) domain.Column {
	out := domain.Column{
		ID:        string(c.ID),
		Name:      c.Name,
		Color:     c.Color,
		Position:  c.Position,
		ProjectID: string(c.Project),
	}
	if out.ProjectID == "" {
		out.ProjectID = ref.ProjectID
	}
	return out
}

type wireTask struct {
	ID               flexID   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Priority         string   `json:"priority"`
	Status           string   `json:"status"`
	DueDate          *string  `json:"due_date"`
	Assignee         *userRef `json:"assignee"`
	Column           flexID   `json:"column"`
	CreatedBy        *userRef `json:"created_by"`
	CreatedAt        string   `json:"created_at"`
	CommentsCount    int      `json:"comments_count"`
	AttachmentsCount int      `json:"attachments_count"`
}

// toDomain converts the wire task. columnID is the column the task was
// fetched from and fills in a missing column reference.
func (t wireTask) toDomain(columnID string) domain.Task {
	out := domain.Task{
		ID:               string(t.ID),
		Title:            t.Title,
		Description:      t.Description,
		Priority:         domain.PriorityMedium,
		Status:           domain.StatusTodo,
		Assignee:         t.Assignee.toDomain(),
		ColumnID:         string(t.Column),
		CreatedBy:        t.CreatedBy.toDomain(),
		CommentsCount:    t.CommentsCount,
		AttachmentsCount: t.AttachmentsCount,
	}
	if p, ok := domain.ParsePriority(t.Priority); ok {
		out.Priority = p
	}
	if st, ok := domain.ParseStatus(t.Status); ok {
		out.Status = st
	} else {
		out.Status = domain.Status(t.Status)
	}
	if out.ColumnID == "" {
		out.ColumnID = columnID
	}
	if t.DueDate != nil {
		if d, ok := parseTime(*t.DueDate); ok {
			out.DueDate = &d
		}
	}
	if c, ok := parseTime(t.CreatedAt); ok {
		out.CreatedAt = c
	}
	return out
}

type wireMember struct {
	ID      flexID   `json:"id"`
	User    *userRef `json:"user"`
	Email   string   `json:"email"`
	Role    string   `json:"role"`
	AddedAt string   `json:"added_at"`
}

func (m wireMember) toDomain() domain.Member {
	out := domain.Member{ID: string(m.ID), Role: m.Role}
	if u := m.User.toDomain(); u != nil {
		out.User = *u
	}
	if out.User.Email == "" {
		out.User.Email = m.Email
	}
	if t, ok := parseTime(m.AddedAt); ok {
		out.AddedAt = t
	}
	return out
}

type wireTokens struct {
	Access  string   `json:"access"`
	Refresh string   `json:"refresh"`
	User    *userRef `json:"user"`
	Tokens  *struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

func (w wireTokens) pair() (string, string) {
	if w.Access == "" && w.Tokens != nil {
		return w.Tokens.Access, w.Tokens.Refresh
	}
	return w.Access, w.Refresh
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}
