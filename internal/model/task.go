package model

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the board column a task sits in
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses returns the board columns in display order
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label returns the column title for a status
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseStatus accepts the wire form as well as loose spellings
// like "in-progress" or "done".
func ParseStatus(s string) (Status, bool) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	st := Status(norm)
	return st, st.Valid()
}

// Task is a task as returned by the backend.
//
// Creator and Assignee are copies of the user taken when the task was
// last fetched. They go stale if the user is edited elsewhere and are
// only refreshed by refetching the task list.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Status       Status    `json:"status"`
	Creator      User      `json:"creator"`
	Assignee     *User     `json:"assignee"`
	TotalMinutes int       `json:"totalMinutes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AssigneeID returns the assignee's id or "" when unassigned
func (t *Task) AssigneeID() string {
	if t.Assignee == nil {
		return ""
	}
	return t.Assignee.ID
}

// NewTask is the body of a create request
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

// TaskPatch is the body of a full/partial edit. Nil fields are left
// untouched by the backend.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`

	// Deprecated: time is logged through the additive time endpoint.
	// Overwriting the total is only forwarded when explicitly allowed.
	TotalMinutes *int `json:"totalMinutes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.AssigneeID == nil && p.TotalMinutes == nil
}

// FormatMinutes renders a minute count as "1h 30m"
func FormatMinutes(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}
