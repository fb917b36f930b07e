package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
)

// ExportTasksCSV downloads the server side CSV export of a project's tasks
// and copies it to w.
func (c *Client) ExportTasksCSV(ctx context.Context, ref domain.ProjectRef, w io.Writer) error {
	q := url.Values{}
	q.Set("project", ref.ProjectID)
	_, body, err := c.send(ctx, request{
		method: http.MethodGet,
		route:  "/export/tasks_csv/",
		path:   "/export/tasks_csv/?" + q.Encode(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
