package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dori/taskboard/internal/model"
)

// SaveTaskSnapshot replaces the cached task list with tasks, keeping their order
func (db *DB) SaveTaskSnapshot(tasks []model.Task) error {
	now := time.Now()
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM task_cache`); err != nil {
			return err
		}
		for i, t := range tasks {
			payload, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("failed to encode task %s: %w", t.ID, err)
			}
			_, err = tx.Exec(`
				INSERT INTO task_cache (id, position, payload, fetched_at)
				VALUES (?, ?, ?, ?)
			`, t.ID, i, string(payload), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTaskSnapshot returns the cached task list in the order it was saved
func (db *DB) LoadTaskSnapshot() ([]model.Task, error) {
	rows, err := db.Query(`SELECT payload FROM task_cache ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var t model.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("failed to decode cached task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClearTaskSnapshot drops the cached task list
func (db *DB) ClearTaskSnapshot() error {
	_, err := db.Exec(`DELETE FROM task_cache`)
	return err
}
