package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/config"
	"github.com/dori/taskboard/internal/db"
	"github.com/dori/taskboard/internal/logging"
	"github.com/dori/taskboard/internal/session"
	"github.com/dori/taskboard/internal/tasks"
	"github.com/dori/taskboard/internal/users"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// Mode selects how the app claims the data directory
type Mode int

const (
	// Interactive takes the single-instance lock; used by the TUI
	Interactive Mode = iota
	// OneShot skips the lock so CLI commands work next to a running TUI
	OneShot
)

// App holds the application state and dependencies
type App struct {
	Config *config.Config
	DB     *db.DB
	Log    *logrus.Entry
	API    *api.Client

	Session *session.Store
	Tasks   *tasks.Store
	Users   *users.Store

	DataDir   string
	lockFile  *flock.Flock
	logCloser io.Closer
}

// New wires the stores to the backend and local storage
func New(cfg *config.Config, mode Mode) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	app := &App{
		Config:  cfg,
		DataDir: cfg.DataDir,
	}

	if mode == Interactive {
		if err := app.acquireLock(); err != nil {
			return nil, err
		}
	}

	log, closer, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		app.releaseLock()
		return nil, err
	}
	app.Log = log
	app.logCloser = closer

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database

	client, err := api.New(api.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.HTTP.Timeout,
		Tokens:  database,
		Log:     log,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	app.API = client

	app.Session = session.NewStore(client.Auth(), client.Users(), database, log)
	app.Tasks = tasks.NewStore(client.Tasks(), tasks.Options{
		AllowTimeOverwrite: cfg.Tasks.AllowTimeOverwrite,
		Cache:              database,
		Journal:            database,
	}, log)
	app.Users = users.NewStore(client.Users(), log)

	log.WithFields(logrus.Fields{
		"api_url": cfg.APIURL,
		"db":      database.Path(),
	}).Debug("app started")

	return app, nil
}

// Bootstrap restores the persisted session. The cached task list is
// only shown once the session is confirmed; when it cannot be restored
// the cache belongs to nobody and is dropped.
func (a *App) Bootstrap(ctx context.Context) {
	a.Session.Bootstrap(ctx)
	if a.Session.IsAuthenticated() {
		a.Tasks.LoadCached()
		return
	}
	a.forget()
}

// Logout ends the session and forgets everything cached for the user
func (a *App) Logout() {
	a.Session.Logout()
	a.forget()
}

func (a *App) forget() {
	a.Users.Reset()
	a.Tasks.Reset()
	if err := a.DB.ClearTaskSnapshot(); err != nil {
		a.Log.WithError(err).Warn("failed to clear cached tasks")
	}
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	lockPath := filepath.Join(a.DataDir, "taskboard.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("another instance of taskboard is already running")
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}

	a.releaseLock()

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
