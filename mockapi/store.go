package mockapi

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

var (
	errNotFound    = errors.New("not found")
	errCredentials = errors.New("invalid credentials")
)

// fieldError is a validation failure reported under one field, the way the
// API reports serializer errors.
type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.field + ": " + e.msg }

func invalidField(field, msg string) error { return &fieldError{field: field, msg: msg} }

type userRecord struct {
	ID       string
	Email    string
	Username string
	FullName string
	Password string
	Joined   time.Time
}

type projectRecord struct {
	ID          string
	WorkspaceID string
	Name        string
	Description string
	Color       string
	Icon        string
	OwnerID     string
}

type columnRecord struct {
	ID        int64
	ProjectID string
	Name      string
	Color     string
	Position  int
}

type taskRecord struct {
	ID          string
	ProjectID   string
	ColumnID    int64
	Title       string
	Description string
	Priority    string
	Status      string
	Position    int
	DueDate     *time.Time
	AssigneeID  string
	CreatedBy   string
	CreatedAt   time.Time
}

type memberRecord struct {
	ID        string
	ProjectID string
	UserID    string
	Role      string
	AddedAt   time.Time
}

// taskInput is a validated create request.
type taskInput struct {
	Title       string
	Description string
	Priority    string
	Status      string
	DueDate     *time.Time
}

// taskChanges is a validated partial update. Set flags mark fields that may
// be cleared.
type taskChanges struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	DueSet      bool
	DueDate     *time.Time
	AssigneeSet bool
	AssigneeID  string
	ColumnID    *int64
}

// Store keeps every record of the mock API in memory.
type Store struct {
	mu         sync.Mutex
	users      map[string]*userRecord
	projects   map[string]*projectRecord
	columns    map[int64]*columnRecord
	tasks      map[string]*taskRecord
	members    map[string]*memberRecord
	revoked    map[string]bool
	nextColumn int64
	now        func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*userRecord),
		projects: make(map[string]*projectRecord),
		columns:  make(map[int64]*columnRecord),
		tasks:    make(map[string]*taskRecord),
		members:  make(map[string]*memberRecord),
		revoked:  make(map[string]bool),
		now:      time.Now,
	}
}

// CreateUser registers an account and returns its id.
func (s *Store) CreateUser(email, username, fullName, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalidField("email", "This field may not be blank.")
	}
	if !strings.Contains(email, "@") {
		return "", invalidField("email", "Enter a valid email address.")
	}
	if len(password) < 6 {
		return "", invalidField("password", "This password is too short.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return "", invalidField("email", "user with this email already exists.")
		}
	}
	if username == "" {
		username = email[:strings.Index(email, "@")]
	}
	u := &userRecord{ID: uuid.NewString(), Email: email, Username: username, FullName: fullName, Password: password, Joined: s.now()}
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *Store) authenticate(email, password string) (userRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && u.Password == password {
			return *u, nil
		}
	}
	return userRecord{}, errCredentials
}

func (s *Store) user(id string) (userRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return userRecord{}, false
	}
	return *u, true
}

func (s *Store) revoke(jti string) {
	s.mu.Lock()
	s.revoked[jti] = true
	s.mu.Unlock()
}

func (s *Store) isRevoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[jti]
}

// CreateProject creates a project owned by ownerID in a new workspace.
func (s *Store) CreateProject(ownerID, name string) (domain.ProjectRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[ownerID]; !ok {
		return domain.ProjectRef{}, invalidField("owner", "Invalid pk - object does not exist.")
	}
	p := &projectRecord{ID: uuid.NewString(), WorkspaceID: uuid.NewString(), Name: name, Color: "#3B82F6", OwnerID: ownerID}
	s.projects[p.ID] = p
	m := &memberRecord{ID: uuid.NewString(), ProjectID: p.ID, UserID: ownerID, Role: "owner", AddedAt: s.now()}
	s.members[m.ID] = m
	return domain.ProjectRef{WorkspaceID: p.WorkspaceID, ProjectID: p.ID}, nil
}

// project returns the project when userID may see it.
func (s *Store) project(userID string, ref domain.ProjectRef) (projectRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.projectLocked(userID, ref)
	if err != nil {
		return projectRecord{}, err
	}
	return *p, nil
}

func (s *Store) projectLocked(userID string, ref domain.ProjectRef) (*projectRecord, error) {
	p, ok := s.projects[ref.ProjectID]
	if !ok || p.WorkspaceID != ref.WorkspaceID {
		return nil, errNotFound
	}
	for _, m := range s.members {
		if m.ProjectID == p.ID && m.UserID == userID {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (s *Store) columnLocked(projectID, columnID string) (*columnRecord, error) {
	id, err := strconv.ParseInt(columnID, 10, 64)
	if err != nil {
		return nil, errNotFound
	}
	c, ok := s.columns[id]
	if !ok || c.ProjectID != projectID {
		return nil, errNotFound
	}
	return c, nil
}

func (s *Store) columnsLocked(projectID string) []columnRecord {
	var out []columnRecord
	for _, c := range s.columns {
		if c.ProjectID == projectID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) listColumns(userID string, ref domain.ProjectRef) ([]columnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.projectLocked(userID, ref); err != nil {
		return nil, err
	}
	return s.columnsLocked(ref.ProjectID), nil
}

// CreateColumn appends a column to a project and returns its id. It is the
// seeding counterpart of the create column route.
func (s *Store) CreateColumn(projectID, name, color string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return "", errNotFound
	}
	c := s.addColumnLocked(projectID, name, color, len(s.columnsLocked(projectID)))
	return strconv.FormatInt(c.ID, 10), nil
}

func (s *Store) addColumnLocked(projectID, name, color string, position int) *columnRecord {
	s.nextColumn++
	c := &columnRecord{ID: s.nextColumn, ProjectID: projectID, Name: name, Color: color, Position: position}
	s.columns[c.ID] = c
	return c
}

func (s *Store) createColumn(userID string, ref domain.ProjectRef, name, color string, position *int) (columnRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return columnRecord{}, invalidField("name", "This field may not be blank.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.projectLocked(userID, ref); err != nil {
		return columnRecord{}, err
	}
	for _, c := range s.columnsLocked(ref.ProjectID) {
		if strings.EqualFold(c.Name, name) {
			return columnRecord{}, invalidField("name", "A column with this name already exists in the project.")
		}
	}
	pos := len(s.columnsLocked(ref.ProjectID))
	if position != nil && *position >= 0 {
		pos = *position
	}
	if color == "" {
		color = "#6B7280"
	}
	return *s.addColumnLocked(ref.ProjectID, name, color, pos), nil
}

func (s *Store) tasksInLocked(columnID int64) []*taskRecord {
	var out []*taskRecord
	for _, t := range s.tasks {
		if t.ColumnID == columnID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) renumberLocked(columnID int64) {
	for i, t := range s.tasksInLocked(columnID) {
		t.Position = i
	}
}

func copyTasks(in []*taskRecord) []taskRecord {
	out := make([]taskRecord, 0, len(in))
	for _, t := range in {
		out = append(out, *t)
	}
	return out
}

func (s *Store) listTasks(userID string, ref domain.ProjectRef, columnID string) ([]taskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.projectLocked(userID, ref); err != nil {
		return nil, err
	}
	c, err := s.columnLocked(ref.ProjectID, columnID)
	if err != nil {
		return nil, err
	}
	return copyTasks(s.tasksInLocked(c.ID)), nil
}

// CreateTask stores a task in a column and returns its id. It is the seeding
// counterpart of the create task route.
func (s *Store) CreateTask(projectID, columnID, title string, status domain.Status) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.columnLocked(projectID, columnID)
	if err != nil {
		return "", err
	}
	owner := s.projects[projectID].OwnerID
	t := s.addTaskLocked(c, owner, taskInput{Title: title, Priority: string(domain.PriorityMedium), Status: string(status)})
	return t.ID, nil
}

func (s *Store) addTaskLocked(c *columnRecord, userID string, in taskInput) *taskRecord {
	t := &taskRecord{
		ID:          uuid.NewString(),
		ProjectID:   c.ProjectID,
		ColumnID:    c.ID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		Position:    len(s.tasksInLocked(c.ID)),
		DueDate:     in.DueDate,
		CreatedBy:   userID,
		CreatedAt:   s.now(),
	}
	s.tasks[t.ID] = t
	return t
}

func (s *Store) createTask(userID string, ref domain.ProjectRef, columnID string, in taskInput) (taskRecord, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return taskRecord{}, invalidField("title", "This field may not be blank.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.projectLocked(userID, ref); err != nil {
		return taskRecord{}, err
	}
	c, err := s.columnLocked(ref.ProjectID, columnID)
	if err != nil {
		return taskRecord{}, invalidField("column", "Invalid pk \""+columnID+"\" - object does not exist.")
	}
	return *s.addTaskLocked(c, userID, in), nil
}

// taskLocked finds a task addressed under a column of a visible project.
func (s *Store) taskLocked(userID string, ref domain.ProjectRef, columnID, taskID string) (*taskRecord, error) {
	if _, err := s.projectLocked(userID, ref); err != nil {
		return nil, err
	}
	c, err := s.columnLocked(ref.ProjectID, columnID)
	if err != nil {
		return nil, err
	}
	t, ok := s.tasks[taskID]
	if !ok || t.ColumnID != c.ID {
		return nil, errNotFound
	}
	return t, nil
}

func (s *Store) updateTask(userID string, ref domain.ProjectRef, columnID, taskID string, ch taskChanges) (taskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(userID, ref, columnID, taskID)
	if err != nil {
		return taskRecord{}, err
	}
	if ch.Title != nil && strings.TrimSpace(*ch.Title) == "" {
		return taskRecord{}, invalidField("title", "This field may not be blank.")
	}
	if ch.AssigneeSet && ch.AssigneeID != "" {
		if _, ok := s.users[ch.AssigneeID]; !ok {
			return taskRecord{}, invalidField("assignee", "Invalid pk \""+ch.AssigneeID+"\" - object does not exist.")
		}
	}
	var target *columnRecord
	if ch.ColumnID != nil {
		target, err = s.columnLocked(ref.ProjectID, strconv.FormatInt(*ch.ColumnID, 10))
		if err != nil {
			return taskRecord{}, invalidField("column", "Invalid pk \""+strconv.FormatInt(*ch.ColumnID, 10)+"\" - object does not exist.")
		}
	}

	if ch.Title != nil {
		t.Title = strings.TrimSpace(*ch.Title)
	}
	if ch.Description != nil {
		t.Description = *ch.Description
	}
	if ch.Priority != nil {
		t.Priority = *ch.Priority
	}
	if ch.Status != nil {
		t.Status = *ch.Status
	}
	if ch.DueSet {
		t.DueDate = ch.DueDate
	}
	if ch.AssigneeSet {
		t.AssigneeID = ch.AssigneeID
	}
	if target != nil && target.ID != t.ColumnID {
		s.moveLocked(t, target, -1)
	}
	return *t, nil
}

// moveLocked puts t into target at position, appending when position is
// negative or past the end.
func (s *Store) moveLocked(t *taskRecord, target *columnRecord, position int) {
	from := t.ColumnID
	others := make([]*taskRecord, 0)
	for _, other := range s.tasksInLocked(target.ID) {
		if other.ID != t.ID {
			others = append(others, other)
		}
	}
	if position < 0 || position > len(others) {
		position = len(others)
	}
	ordered := append(others[:position:position], append([]*taskRecord{t}, others[position:]...)...)
	t.ColumnID = target.ID
	for i, task := range ordered {
		task.Position = i
	}
	if from != target.ID {
		s.renumberLocked(from)
	}
}

func (s *Store) moveTask(userID string, ref domain.ProjectRef, columnID, taskID, targetID string, position int) (taskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(userID, ref, columnID, taskID)
	if err != nil {
		return taskRecord{}, err
	}
	target, err := s.columnLocked(ref.ProjectID, targetID)
	if err != nil {
		return taskRecord{}, invalidField("column_id", "Invalid pk \""+targetID+"\" - object does not exist.")
	}
	s.moveLocked(t, target, position)
	return *t, nil
}

func (s *Store) deleteTask(userID string, ref domain.ProjectRef, columnID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(userID, ref, columnID, taskID)
	if err != nil {
		return err
	}
	delete(s.tasks, t.ID)
	s.renumberLocked(t.ColumnID)
	return nil
}

// projectTasks returns every task of a project in board order.
func (s *Store) projectTasks(userID string, ref domain.ProjectRef) (projectRecord, []columnRecord, []taskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.projectLocked(userID, ref)
	if err != nil {
		return projectRecord{}, nil, nil, err
	}
	cols := s.columnsLocked(p.ID)
	var tasks []taskRecord
	for _, c := range cols {
		tasks = append(tasks, copyTasks(s.tasksInLocked(c.ID))...)
	}
	return *p, cols, tasks, nil
}

// projectRef finds a project by id alone, for routes that do not carry the
// workspace.
func (s *Store) projectRef(userID, projectID string) (domain.ProjectRef, error) {
	s.mu.Lock()
	p, ok := s.projects[projectID]
	s.mu.Unlock()
	if !ok {
		return domain.ProjectRef{}, errNotFound
	}
	ref := domain.ProjectRef{WorkspaceID: p.WorkspaceID, ProjectID: p.ID}
	if _, err := s.project(userID, ref); err != nil {
		return domain.ProjectRef{}, err
	}
	return ref, nil
}

func (s *Store) listMembers(userID string, ref domain.ProjectRef) ([]memberRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.projectLocked(userID, ref); err != nil {
		return nil, err
	}
	var out []memberRecord
	for _, m := range s.members {
		if m.ProjectID == ref.ProjectID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) || (out[i].AddedAt.Equal(out[j].AddedAt) && out[i].ID < out[j].ID) })
	return out, nil
}

func (s *Store) addMember(userID string, ref domain.ProjectRef, email string) (memberRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return memberRecord{}, invalidField("email", "This field may not be blank.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.projectLocked(userID, ref); err != nil {
		return memberRecord{}, err
	}
	var invitee *userRecord
	for _, u := range s.users {
		if u.Email == email {
			invitee = u
		}
	}
	if invitee == nil {
		return memberRecord{}, invalidField("email", "No user with this email exists.")
	}
	for _, m := range s.members {
		if m.ProjectID == ref.ProjectID && m.UserID == invitee.ID {
			return memberRecord{}, invalidField("email", "User is already a member of this project.")
		}
	}
	m := &memberRecord{ID: uuid.NewString(), ProjectID: ref.ProjectID, UserID: invitee.ID, Role: "member", AddedAt: s.now()}
	s.members[m.ID] = m
	return *m, nil
}

func (s *Store) removeMember(userID string, ref domain.ProjectRef, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.projectLocked(userID, ref); err != nil {
		return err
	}
	m, ok := s.members[memberID]
	if !ok || m.ProjectID != ref.ProjectID {
		return errNotFound
	}
	if m.Role == "owner" {
		return invalidField("non_field_errors", "The project owner cannot be removed.")
	}
	delete(s.members, memberID)
	return nil
}
