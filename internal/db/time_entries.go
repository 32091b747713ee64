package db

import (
	"database/sql"
	"time"

	"github.com/dori/taskboard/internal/model"
	"github.com/google/uuid"
)

// AddTimeEntry records a confirmed time log. An empty ID gets a fresh uuid.
// Timestamps are stored in UTC so that logged_at sorts and compares as text.
func (db *DB) AddTimeEntry(e model.TimeEntry) (model.TimeEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now()
	}

	_, err := db.Exec(`
		INSERT INTO time_entries (id, task_id, task_title, minutes, total_after, logged_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.TaskID, e.TaskTitle, e.Minutes, e.TotalAfter, e.LoggedAt.UTC())
	if err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}

// RecentTimeEntries returns the newest entries first
func (db *DB) RecentTimeEntries(limit int) ([]model.TimeEntry, error) {
	rows, err := db.Query(`
		SELECT id, task_id, task_title, minutes, total_after, logged_at
		FROM time_entries
		ORDER BY logged_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTimeEntries(rows)
}

// DailyMinutes sums the minutes logged on each of the last days calendar
// days in now's location, oldest day first
func (db *DB) DailyMinutes(days int, now time.Time) ([]int, error) {
	totals := make([]int, days)
	if days <= 0 {
		return totals, nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	since := today.AddDate(0, 0, -(days - 1))

	rows, err := db.Query(`
		SELECT id, task_id, task_title, minutes, total_after, logged_at
		FROM time_entries
		WHERE logged_at >= ?
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanTimeEntries(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		at := e.LoggedAt.In(now.Location())
		if at.Before(since) {
			continue
		}
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, now.Location())
		// calendar days, so DST shifts do not move entries
		i := days - 1 - int(today.Sub(day).Hours()+12)/24
		if i >= 0 && i < days {
			totals[i] += e.Minutes
		}
	}
	return totals, nil
}

// TimeEntriesForTask returns a task's entries, oldest first
func (db *DB) TimeEntriesForTask(taskID string) ([]model.TimeEntry, error) {
	rows, err := db.Query(`
		SELECT id, task_id, task_title, minutes, total_after, logged_at
		FROM time_entries
		WHERE task_id = ?
		ORDER BY logged_at
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTimeEntries(rows)
}

func scanTimeEntries(rows *sql.Rows) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	for rows.Next() {
		var e model.TimeEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.TaskTitle, &e.Minutes, &e.TotalAfter, &e.LoggedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
