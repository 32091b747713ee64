// Package tasks caches the task list and syncs it with the backend.
package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/model"
	"github.com/sirupsen/logrus"
)

// Bounds for a single time log. Callers validate; the store does not.
const (
	MinLogMinutes = 1
	MaxLogMinutes = 480
)

// API is the tasks resource as used by the store
type API interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task model.NewTask) (model.Task, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (model.Task, error)
	UpdateAssignee(ctx context.Context, id, assigneeID string) (model.Task, error)
	LogTime(ctx context.Context, id string, minutes int) (model.Task, error)
	SuggestDescription(ctx context.Context, title string) (string, error)
}

// Cache persists the last fetched list. *db.DB implements it.
type Cache interface {
	SaveTaskSnapshot(tasks []model.Task) error
	LoadTaskSnapshot() ([]model.Task, error)
}

// Journal records confirmed time logs. *db.DB implements it.
type Journal interface {
	AddTimeEntry(e model.TimeEntry) (model.TimeEntry, error)
}

// Options configures optional store behaviour
type Options struct {
	// AllowTimeOverwrite forwards TaskPatch.TotalMinutes verbatim.
	// When false an increase is logged additively and a decrease is refused.
	AllowTimeOverwrite bool

	Cache   Cache
	Journal Journal
}

// Store is the task list state container. Actions never return errors;
// failures are reported through Error.
type Store struct {
	mu       sync.RWMutex
	tasks    []model.Task
	hidden   []model.Task
	inflight int
	err      string

	// seq numbers every mutation start. lastMut holds the seq of each
	// task's newest mutation, gens the generation whose response may apply.
	seq     uint64
	lastMut map[string]uint64
	gens    map[string]uint64

	listGen    uint64
	listCancel context.CancelFunc

	// epoch changes on Reset; responses started before it are dropped
	epoch uint64

	api  API
	opts Options
	log  *logrus.Entry
}

// NewStore creates an empty store
func NewStore(tasksAPI API, opts Options, log *logrus.Entry) *Store {
	return &Store{
		lastMut: make(map[string]uint64),
		gens:    make(map[string]uint64),
		api:     tasksAPI,
		opts:    opts,
		log:     log.WithField("store", "tasks"),
	}
}

// Tasks returns a copy of the visible task list
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.tasks...)
}

// Hidden returns tasks removed with DeleteTask since the last fetch
func (s *Store) Hidden() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.hidden...)
}

// Task returns the cached task with id
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

// ByStatus returns the visible tasks in one column, in list order
func (s *Store) ByStatus(status model.Status) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Stats summarises the visible tasks
func (s *Store) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.ComputeStats(s.tasks)
}

// Loading reports whether any action is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Error returns the last failure message, or ""
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ClearError dismisses the current error
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// indexOf returns the position of id in the visible list; callers hold mu
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// start marks an action as running and clears the error
func (s *Store) start() {
	s.mu.Lock()
	s.inflight++
	s.err = ""
	s.mu.Unlock()
}

func (s *Store) finish() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

func (s *Store) fail(log *logrus.Entry, err error, fallback string) {
	log.WithError(err).Warn(fallback)
	s.mu.Lock()
	s.err = api.MessageOf(err, fallback)
	s.mu.Unlock()
}

// beginMutation numbers a mutation of task id. The returned generation
// is compared against the newest one when the response arrives.
func (s *Store) beginMutation(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.err = ""
	s.seq++
	s.lastMut[id] = s.seq
	s.gens[id]++
	return s.gens[id]
}

// apply replaces the cached copy of t unless a newer mutation of the same
// task was started after gen. It reports whether the response was used.
func (s *Store) apply(t model.Task, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[t.ID] != gen {
		return false
	}
	if i := s.indexOf(t.ID); i >= 0 {
		s.tasks[i] = t
	}
	return true
}

// failMutation records an error unless the mutation was superseded
func (s *Store) failMutation(log *logrus.Entry, id string, gen uint64, err error, fallback string) {
	s.mu.RLock()
	stale := s.gens[id] != gen
	s.mu.RUnlock()
	if stale {
		log.WithError(err).Debug("dropping error of superseded request")
		return
	}
	s.fail(log, err, fallback)
}

// FetchTasks replaces the list with the server's, in server order. A
// newer fetch cancels an older one still in flight. Tasks mutated after
// this fetch started keep their local copy; responses to mutations sent
// before it are dropped. Locally hidden tasks return.
func (s *Store) FetchTasks(ctx context.Context) {
	log := s.log.WithField("op", "tasks.FetchTasks")

	s.mu.Lock()
	if s.listCancel != nil {
		s.listCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.listCancel = cancel
	s.listGen++
	gen := s.listGen
	since := s.seq
	s.inflight++
	s.err = ""
	s.mu.Unlock()
	defer s.finish()
	defer cancel()

	list, err := s.api.List(ctx)

	s.mu.Lock()
	if gen != s.listGen {
		s.mu.Unlock()
		log.Debug("dropping superseded task list")
		return
	}
	s.listCancel = nil
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		s.fail(log, err, "Failed to fetch tasks")
		return
	}

	merged := make([]model.Task, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, t := range list {
		seen[t.ID] = true
		if s.lastMut[t.ID] > since {
			if i := s.indexOf(t.ID); i >= 0 {
				t = s.tasks[i]
			}
		} else {
			// responses to mutations sent before this fetch are older than it
			s.gens[t.ID]++
		}
		merged = append(merged, t)
	}
	// tasks created while the fetch was running
	for _, t := range s.tasks {
		if !seen[t.ID] && s.lastMut[t.ID] > since {
			merged = append(merged, t)
		}
	}
	s.tasks = merged
	s.hidden = nil
	snapshot := append([]model.Task(nil), merged...)
	s.mu.Unlock()

	log.WithField("count", len(snapshot)).Debug("tasks fetched")
	if s.opts.Cache != nil {
		if err := s.opts.Cache.SaveTaskSnapshot(snapshot); err != nil {
			log.WithError(err).Warn("failed to cache task list")
		}
	}
}

// LoadCached fills an empty store from the local snapshot, so a board
// can render before the first fetch returns. It reports whether anything
// was loaded.
func (s *Store) LoadCached() bool {
	if s.opts.Cache == nil {
		return false
	}
	cached, err := s.opts.Cache.LoadTaskSnapshot()
	if err != nil {
		s.log.WithError(err).Warn("failed to read cached tasks")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) > 0 || len(cached) == 0 {
		return false
	}
	s.tasks = cached
	return true
}

// CreateTask creates a task and appends the server's copy. Callers check
// that the title is not empty.
func (s *Store) CreateTask(ctx context.Context, task model.NewTask) (model.Task, bool) {
	log := s.log.WithFields(logrus.Fields{"op": "tasks.CreateTask", "status": task.Status})
	s.start()
	defer s.finish()

	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	created, err := s.api.Create(ctx, task)
	if err != nil {
		s.fail(log, err, "Failed to create task")
		return model.Task{}, false
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		log.Debug("dropping task created before reset")
		return created, true
	}
	s.seq++
	s.lastMut[created.ID] = s.seq
	// a fetch that landed while the create was in flight may already list it
	if i := s.indexOf(created.ID); i >= 0 {
		s.tasks[i] = created
	} else {
		s.tasks = append(s.tasks, created)
	}
	s.mu.Unlock()

	log.WithField("task_id", created.ID).Info("task created")
	return created, true
}

// UpdateTaskStatus moves a task to another column
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status model.Status) {
	log := s.log.WithFields(logrus.Fields{"op": "tasks.UpdateTaskStatus", "task_id": id, "status": status})
	gen := s.beginMutation(id)
	defer s.finish()

	updated, err := s.api.UpdateStatus(ctx, id, status)
	if err != nil {
		s.failMutation(log, id, gen, err, "Failed to update task status")
		return
	}
	if !s.apply(updated, gen) {
		log.Debug("dropping superseded response")
	}
}

// AssignTask changes a task's assignee
func (s *Store) AssignTask(ctx context.Context, id, assigneeID string) {
	log := s.log.WithFields(logrus.Fields{"op": "tasks.AssignTask", "task_id": id})
	gen := s.beginMutation(id)
	defer s.finish()

	updated, err := s.api.UpdateAssignee(ctx, id, assigneeID)
	if err != nil {
		s.failMutation(log, id, gen, err, "Failed to assign task")
		return
	}
	if !s.apply(updated, gen) {
		log.Debug("dropping superseded response")
	}
}

// UpdateTask edits a task. Unless AllowTimeOverwrite is set, a new
// TotalMinutes is turned into an additive time log of the difference
// and a lower total is refused without contacting the backend.
func (s *Store) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) {
	log := s.log.WithFields(logrus.Fields{"op": "tasks.UpdateTask", "task_id": id})

	extra := 0
	if patch.TotalMinutes != nil && !s.opts.AllowTimeOverwrite {
		current, ok := s.Task(id)
		if !ok {
			s.SetError("Task not found")
			return
		}
		delta := *patch.TotalMinutes - current.TotalMinutes
		if delta < 0 {
			s.SetError("Logged time can only be increased")
			return
		}
		extra = delta
		patch.TotalMinutes = nil
	}

	gen := s.beginMutation(id)
	defer s.finish()

	var (
		updated model.Task
		sent    bool
	)
	if !patch.IsEmpty() {
		edited, err := s.api.Update(ctx, id, patch)
		if err != nil {
			s.failMutation(log, id, gen, err, "Failed to update task")
			return
		}
		updated, sent = edited, true
	}
	if extra > 0 {
		logged, err := s.api.LogTime(ctx, id, extra)
		if err != nil {
			if sent {
				s.apply(updated, gen)
			}
			s.failMutation(log, id, gen, err, "Failed to log time")
			return
		}
		s.record(log, logged, extra)
		updated, sent = logged, true
	}
	if !sent {
		return
	}
	if !s.apply(updated, gen) {
		log.Debug("dropping superseded response")
	}
}

// UpdateTaskTime adds minutes to a task and takes the server's new total
func (s *Store) UpdateTaskTime(ctx context.Context, id string, minutes int) {
	log := s.log.WithFields(logrus.Fields{"op": "tasks.UpdateTaskTime", "task_id": id, "minutes": minutes})
	gen := s.beginMutation(id)
	defer s.finish()

	updated, err := s.api.LogTime(ctx, id, minutes)
	if err != nil {
		s.failMutation(log, id, gen, err, "Failed to log time")
		return
	}
	s.record(log, updated, minutes)
	if !s.apply(updated, gen) {
		log.Debug("dropping superseded response")
	}
}

// record appends a confirmed time log to the journal
func (s *Store) record(log *logrus.Entry, t model.Task, minutes int) {
	if s.opts.Journal == nil {
		return
	}
	_, err := s.opts.Journal.AddTimeEntry(model.TimeEntry{
		TaskID:     t.ID,
		TaskTitle:  t.Title,
		Minutes:    minutes,
		TotalAfter: t.TotalMinutes,
	})
	if err != nil {
		log.WithError(err).Warn("failed to journal time entry")
	}
}

// DeleteTask hides a task locally. The backend has no delete endpoint,
// so the task comes back on the next FetchTasks.
func (s *Store) DeleteTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.hidden = append(s.hidden, s.tasks[i])
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.log.WithFields(logrus.Fields{"op": "tasks.DeleteTask", "task_id": id}).Info("task hidden locally")
}

// SuggestDescription asks the backend to draft a description for title
func (s *Store) SuggestDescription(ctx context.Context, title string) (string, bool) {
	log := s.log.WithField("op", "tasks.SuggestDescription")
	s.start()
	defer s.finish()

	desc, err := s.api.SuggestDescription(ctx, title)
	if err != nil {
		s.fail(log, err, "Failed to suggest a description")
		return "", false
	}
	return desc, true
}

// Reset forgets every task, e.g. on logout. A fetch in flight is
// cancelled, and responses to requests sent before the reset are dropped.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listCancel != nil {
		s.listCancel()
		s.listCancel = nil
	}
	s.listGen++
	s.epoch++
	s.tasks = nil
	s.hidden = nil
	s.lastMut = make(map[string]uint64)
	for id := range s.gens {
		s.gens[id]++
	}
	s.err = ""
}

// SetError sets or clears (with "") the error message
func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = message
}
