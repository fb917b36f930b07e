package mockapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

func refFromPath(c echo.Context) domain.ProjectRef {
	return domain.ProjectRef{WorkspaceID: c.Param("workspace"), ProjectID: c.Param("project")}
}

func getProject(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := store.project(currentUser(c), refFromPath(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, store.renderProject(p))
	}
}

func listColumns(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ref := currentUser(c), refFromPath(c)
		cols, err := store.listColumns(userID, ref)
		if err != nil {
			return fail(c, err)
		}
		out := make([]columnJSON, 0, len(cols))
		for _, col := range cols {
			tasks, err := store.listTasks(userID, ref, strconv.FormatInt(col.ID, 10))
			if err != nil {
				return fail(c, err)
			}
			out = append(out, renderColumn(col, len(tasks)))
		}
		return respondPage(c, out)
	}
}

type columnRequest struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position *int   `json:"position"`
}

func createColumn(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in columnRequest
		if err := c.Bind(&in); err != nil {
			return err
		}
		col, err := store.createColumn(currentUser(c), refFromPath(c), in.Name, in.Color, in.Position)
		if err != nil {
			return fail(c, err)
		}
		return respondSuccess(c, http.StatusCreated, "Column created successfully", renderColumn(col, 0))
	}
}

func listTasks(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := store.listTasks(currentUser(c), refFromPath(c), c.Param("column"))
		if err != nil {
			return fail(c, err)
		}
		return respondSuccess(c, http.StatusOK, "", store.renderTasks(tasks))
	}
}

type taskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date"`
}

func createTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in taskRequest
		if err := c.Bind(&in); err != nil {
			return err
		}
		input := taskInput{Title: in.Title, Description: in.Description}
		var err error
		if input.Priority, err = parsePriority(in.Priority); err != nil {
			return fail(c, err)
		}
		if input.Status, err = parseStatus(in.Status); err != nil {
			return fail(c, err)
		}
		if in.DueDate != nil && *in.DueDate != "" {
			due, err := parseDue(*in.DueDate)
			if err != nil {
				return fail(c, err)
			}
			input.DueDate = &due
		}
		t, err := store.createTask(currentUser(c), refFromPath(c), c.Param("column"), input)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, store.renderTask(t))
	}
}

func updateTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body map[string]json.RawMessage
		if err := new(echo.DefaultBinder).BindBody(c, &body); err != nil {
			return err
		}
		changes, err := parseChanges(body)
		if err != nil {
			return fail(c, err)
		}
		t, err := store.updateTask(currentUser(c), refFromPath(c), c.Param("column"), c.Param("task"), changes)
		if err != nil {
			return fail(c, err)
		}
		return respondData(c, http.StatusOK, store.renderTask(t))
	}
}

type moveRequest struct {
	ColumnID json.RawMessage `json:"column_id"`
	Position *int            `json:"position"`
}

func moveTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in moveRequest
		if err := c.Bind(&in); err != nil {
			return err
		}
		target := rawID(in.ColumnID)
		if target == "" {
			return c.JSON(http.StatusBadRequest, fieldRequired("column_id"))
		}
		position := -1
		if in.Position != nil {
			position = *in.Position
		}
		t, err := store.moveTask(currentUser(c), refFromPath(c), c.Param("column"), c.Param("task"), target, position)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, store.renderTask(t))
	}
}

func deleteTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.deleteTask(currentUser(c), refFromPath(c), c.Param("column"), c.Param("task")); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listMembers(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		members, err := store.listMembers(currentUser(c), refFromPath(c))
		if err != nil {
			return fail(c, err)
		}
		out := make([]memberJSON, 0, len(members))
		for _, m := range members {
			out = append(out, store.renderMember(m))
		}
		return c.JSON(http.StatusOK, out)
	}
}

type memberRequest struct {
	Email string `json:"email"`
}

func addMember(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in memberRequest
		if err := c.Bind(&in); err != nil {
			return err
		}
		m, err := store.addMember(currentUser(c), refFromPath(c), in.Email)
		if err != nil {
			return fail(c, err)
		}
		return respondSuccess(c, http.StatusCreated, "Member added successfully", store.renderMember(m))
	}
}

func removeMember(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.removeMember(currentUser(c), refFromPath(c), c.Param("member")); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

var exportHeader = []string{"ID", "Title", "Description", "Project", "Column", "Assignee", "Priority", "Status", "Due Date", "Created At"}

func exportTasks(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectID := strings.TrimSpace(c.QueryParam("project"))
		if projectID == "" {
			return c.JSON(http.StatusBadRequest, fieldRequired("project"))
		}
		userID := currentUser(c)
		ref, err := store.projectRef(userID, projectID)
		if err != nil {
			return fail(c, err)
		}
		p, cols, tasks, err := store.projectTasks(userID, ref)
		if err != nil {
			return fail(c, err)
		}
		names := make(map[int64]string, len(cols))
		for _, col := range cols {
			names[col.ID] = col.Name
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write(exportHeader)
		for _, t := range tasks {
			assignee := ""
			if u := store.userRef(t.AssigneeID); u != nil {
				assignee = u.Email
			}
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.UTC().Format(time.RFC3339)
			}
			_ = w.Write([]string{t.ID, t.Title, t.Description, p.Name, names[t.ColumnID], assignee, t.Priority, t.Status, due, t.CreatedAt.UTC().Format(time.RFC3339)})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fail(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="tasks.csv"`)
		return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
	}
}

func parsePriority(s string) (string, error) {
	p, ok := domain.ParsePriority(s)
	if !ok {
		return "", invalidField("priority", strconv.Quote(s)+" is not a valid choice.")
	}
	return string(p), nil
}

func parseStatus(s string) (string, error) {
	st, ok := domain.ParseStatus(s)
	if !ok {
		return "", invalidField("status", strconv.Quote(s)+" is not a valid choice.")
	}
	return string(st), nil
}

var dueLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDue(s string) (time.Time, error) {
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidField("due_date", "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z].")
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// rawID reads an identifier sent as a JSON string or number.
func rawID(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := sonic.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func rawText(field string, raw json.RawMessage) (string, error) {
	var s string
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return "", invalidField(field, "Not a valid string.")
	}
	return s, nil
}

// parseChanges turns a PATCH body into task changes. Only present keys are
// applied; null clears due date and assignee.
func parseChanges(body map[string]json.RawMessage) (taskChanges, error) {
	var ch taskChanges
	for key, raw := range body {
		switch key {
		case "title", "description":
			s, err := rawText(key, raw)
			if err != nil {
				return ch, err
			}
			if key == "title" {
				ch.Title = &s
			} else {
				ch.Description = &s
			}
		case "priority":
			s, err := rawText(key, raw)
			if err != nil {
				return ch, err
			}
			p, err := parsePriority(s)
			if err != nil {
				return ch, err
			}
			ch.Priority = &p
		case "status":
			s, err := rawText(key, raw)
			if err != nil {
				return ch, err
			}
			st, err := parseStatus(s)
			if err != nil {
				return ch, err
			}
			ch.Status = &st
		case "due_date":
			ch.DueSet = true
			if isNull(raw) {
				continue
			}
			s, err := rawText(key, raw)
			if err != nil {
				return ch, err
			}
			due, err := parseDue(s)
			if err != nil {
				return ch, err
			}
			ch.DueDate = &due
		case "assignee", "assignee_id":
			ch.AssigneeSet = true
			ch.AssigneeID = rawID(raw)
		case "column", "column_id":
			id, err := strconv.ParseInt(rawID(raw), 10, 64)
			if err != nil {
				return ch, invalidField(key, "Incorrect type. Expected pk value.")
			}
			ch.ColumnID = &id
		}
	}
	return ch, nil
}
