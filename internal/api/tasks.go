package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dori/taskboard/internal/model"
)

// TasksAPI wraps the /tasks resource
type TasksAPI struct {
	c *Client
}

func taskPath(id string, suffix string) string {
	return "/tasks/" + url.PathEscape(id) + suffix
}

// List returns every task visible to the caller, in server order
func (t *TasksAPI) List(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	err := t.c.do(ctx, http.MethodGet, "/tasks", nil, &out)
	return out, err
}

// Create creates a task
func (t *TasksAPI) Create(ctx context.Context, task model.NewTask) (model.Task, error) {
	var out model.Task
	err := t.c.do(ctx, http.MethodPost, "/tasks", task, &out)
	return out, err
}

// Update edits any subset of a task's fields
func (t *TasksAPI) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	var out model.Task
	err := t.c.do(ctx, http.MethodPut, taskPath(id, ""), patch, &out)
	return out, err
}

// UpdateStatus moves a task to another column
func (t *TasksAPI) UpdateStatus(ctx context.Context, id string, status model.Status) (model.Task, error) {
	var out model.Task
	body := map[string]model.Status{"status": status}
	err := t.c.do(ctx, http.MethodPatch, taskPath(id, "/status"), body, &out)
	return out, err
}

// UpdateAssignee reassigns a task
func (t *TasksAPI) UpdateAssignee(ctx context.Context, id, assigneeID string) (model.Task, error) {
	var out model.Task
	body := map[string]string{"assigneeId": assigneeID}
	err := t.c.do(ctx, http.MethodPatch, taskPath(id, "/assignee"), body, &out)
	return out, err
}

// LogTime adds minutes to a task's total; the server returns the new total
func (t *TasksAPI) LogTime(ctx context.Context, id string, minutes int) (model.Task, error) {
	var out model.Task
	body := map[string]int{"minutes": minutes}
	err := t.c.do(ctx, http.MethodPatch, taskPath(id, "/time"), body, &out)
	return out, err
}

// SuggestDescription asks the backend to draft a description for title
func (t *TasksAPI) SuggestDescription(ctx context.Context, title string) (string, error) {
	var out struct {
		Description string `json:"description"`
	}
	body := map[string]string{"title": title}
	err := t.c.do(ctx, http.MethodPost, "/tasks/ai/suggest", body, &out)
	return out.Description, err
}
