package model

import (
	"time"
)

// TimeEntry is a local journal record of a server-confirmed time log
type TimeEntry struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	TaskTitle  string    `json:"task_title"`
	Minutes    int       `json:"minutes"`
	TotalAfter int       `json:"total_after"` // task total reported by the server
	LoggedAt   time.Time `json:"logged_at"`
}
