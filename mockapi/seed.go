package mockapi

import (
	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// Demo describes the data created by SeedDemo.
type Demo struct {
	UserID   string
	Email    string
	Password string
	Project  domain.ProjectRef
	Columns  map[string]string
}

var demoColumns = []struct {
	name  string
	color string
}{
	{"To Do", "#3B82F6"},
	{"In Progress", "#8B5CF6"},
	{"Review", "#F59E0B"},
	{"Done", "#10B981"},
}

var demoTasks = []struct {
	column string
	title  string
	status domain.Status
}{
	{"To Do", "Draft the onboarding checklist", domain.StatusTodo},
	{"To Do", "Collect feedback from the beta group", domain.StatusTodo},
	{"In Progress", "Wire up the notification settings", domain.StatusInProgress},
	{"Review", "Review the export format", domain.StatusReview},
	{"Done", "Set up the project board", domain.StatusDone},
}

// SeedDemo creates a user with a project holding a small board. The Review
// column is not a workflow column, so its task keeps the review status.
func (s *Store) SeedDemo(email, password string) (Demo, error) {
	userID, err := s.CreateUser(email, "", "Demo User", password)
	if err != nil {
		return Demo{}, err
	}
	ref, err := s.CreateProject(userID, "TeamLink Launch")
	if err != nil {
		return Demo{}, err
	}
	demo := Demo{UserID: userID, Email: email, Password: password, Project: ref, Columns: make(map[string]string)}
	for _, col := range demoColumns {
		id, err := s.CreateColumn(ref.ProjectID, col.name, col.color)
		if err != nil {
			return Demo{}, err
		}
		demo.Columns[col.name] = id
	}
	for _, t := range demoTasks {
		if _, err := s.CreateTask(ref.ProjectID, demo.Columns[t.column], t.title, t.status); err != nil {
			return Demo{}, err
		}
	}
	return demo, nil
}
