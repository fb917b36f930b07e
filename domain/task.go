package domain

import (
	"strings"
	"time"
)

// Priority ranks a task on the board.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps user input onto a Priority. An empty value yields the
// default priority.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	}
	return "", false
}

// ProjectRef addresses a project inside its workspace.
type ProjectRef struct {
	WorkspaceID string
	ProjectID   string
}

// Project is the board owner. It is read-only for the board engine.
type Project struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Column groups tasks on a board.
type Column struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Position  int    `json:"position"`
	ProjectID string `json:"project,omitempty"`
}

// User is the public part of an account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// DisplayName returns the best human readable label for the user.
func (u User) DisplayName() string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Member is a user attached to a project.
type Member struct {
	ID      string    `json:"id"`
	User    User      `json:"user"`
	Role    string    `json:"role,omitempty"`
	AddedAt time.Time `json:"added_at,omitempty"`
}

// Task represents a single board item.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         Priority   `json:"priority"`
	Status           Status     `json:"status"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Assignee         *User      `json:"assignee,omitempty"`
	ColumnID         string     `json:"column"`
	CreatedBy        *User      `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at,omitempty"`
	CommentsCount    int        `json:"comments_count"`
	AttachmentsCount int        `json:"attachments_count"`
}

// Clone returns a copy of t that shares no pointers with it.
func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	if t.Assignee != nil {
		a := *t.Assignee
		out.Assignee = &a
	}
	if t.CreatedBy != nil {
		c := *t.CreatedBy
		out.CreatedBy = &c
	}
	return out
}

// Overdue reports whether the task is past its due date and not finished.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusDone
}

// NewTask carries the fields needed to create a task.
type NewTask struct {
	Title       string
	Description string
	Priority    Priority
	Status      Status
	DueDate     *time.Time
	ColumnID    string
}

// TaskPatch describes a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
	DueDate     *time.Time
	ClearDue    bool
	AssigneeID  *string
	ColumnID    *string
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil &&
		p.DueDate == nil && !p.ClearDue && p.AssigneeID == nil && p.ColumnID == nil
}
