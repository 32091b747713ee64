// Package users keeps the current user's profile and, for admins, the
// full user list.
package users

import (
	"context"
	"strings"
	"sync"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/model"
	"github.com/sirupsen/logrus"
)

// API is the users resource as used by the store
type API interface {
	Current(ctx context.Context) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id string, update model.UserUpdate) (model.User, error)
	Delete(ctx context.Context, id string) error
}

// ErrIncomplete is shown when an update lacks a field and no cached
// value can fill it
const ErrIncomplete = "First name, last name and email are required"

// Store is the users state container. Like the other stores it reports
// failures through Error instead of returning them.
type Store struct {
	mu       sync.RWMutex
	current  *model.User
	fetched  bool
	users    []model.User
	inflight int
	err      string

	api API
	log *logrus.Entry
}

// NewStore creates an empty store
func NewStore(usersAPI API, log *logrus.Entry) *Store {
	return &Store{
		api: usersAPI,
		log: log.WithField("store", "users"),
	}
}

// CurrentUser returns the fetched profile, or nil
func (s *Store) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// CurrentFetched reports whether FetchCurrentUser has completed since
// the last Reset, successfully or not
func (s *Store) CurrentFetched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetched
}

// IsAdmin reports whether the fetched profile has admin rights
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.IsAdmin
}

// Users returns a copy of the user list
func (s *Store) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.User(nil), s.users...)
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

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

// Reset forgets everything, e.g. after logout
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.fetched = false
	s.users = nil
	s.err = ""
}

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

// FetchCurrentUser loads the caller's profile, which decides admin access
func (s *Store) FetchCurrentUser(ctx context.Context) {
	log := s.log.WithField("op", "users.FetchCurrentUser")
	s.start()
	defer s.finish()

	u, err := s.api.Current(ctx)
	if err != nil {
		s.mu.Lock()
		s.fetched = true
		s.mu.Unlock()
		s.fail(log, err, "Failed to fetch current user")
		return
	}

	s.mu.Lock()
	s.current = &u
	s.fetched = true
	s.replace(u)
	s.mu.Unlock()
}

// FetchAllUsers loads every user. The backend allows this for admins only.
func (s *Store) FetchAllUsers(ctx context.Context) {
	log := s.log.WithField("op", "users.FetchAllUsers")
	s.start()
	defer s.finish()

	list, err := s.api.List(ctx)
	if err != nil {
		s.fail(log, err, "Failed to fetch users")
		return
	}

	s.mu.Lock()
	s.users = list
	s.mu.Unlock()
	log.WithField("count", len(list)).Debug("users fetched")
}

// UpdateUser edits a user. The backend needs all three fields, so empty
// ones are taken from the cached copy of the user; if that still leaves a
// gap nothing is sent. It reports whether the update went through.
func (s *Store) UpdateUser(ctx context.Context, id string, update model.UserUpdate) bool {
	log := s.log.WithFields(logrus.Fields{"op": "users.UpdateUser", "user_id": id})

	update = s.complete(id, update)
	if !update.Complete() {
		s.mu.Lock()
		s.err = ErrIncomplete
		s.mu.Unlock()
		return false
	}

	s.start()
	defer s.finish()

	updated, err := s.api.Update(ctx, id, update)
	if err != nil {
		s.fail(log, err, "Failed to update user")
		return false
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == updated.ID {
		s.current = &updated
	}
	s.replace(updated)
	s.mu.Unlock()

	log.Info("user updated")
	return true
}

// DeleteUser removes a user on the backend and from both local copies
func (s *Store) DeleteUser(ctx context.Context, id string) bool {
	log := s.log.WithFields(logrus.Fields{"op": "users.DeleteUser", "user_id": id})
	s.start()
	defer s.finish()

	if err := s.api.Delete(ctx, id); err != nil {
		s.fail(log, err, "Failed to delete user")
		return false
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i:i], s.users[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	log.Info("user deleted")
	return true
}

// complete fills blank fields of update from the cached user
func (s *Store) complete(id string, update model.UserUpdate) model.UserUpdate {
	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)
	update.Email = strings.TrimSpace(update.Email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	cached := s.current
	if cached == nil || cached.ID != id {
		cached = nil
		for i := range s.users {
			if s.users[i].ID == id {
				cached = &s.users[i]
				break
			}
		}
	}
	if cached == nil {
		return update
	}
	if update.FirstName == "" {
		update.FirstName = cached.FirstName
	}
	if update.LastName == "" {
		update.LastName = cached.LastName
	}
	if update.Email == "" {
		update.Email = cached.Email
	}
	return update
}

// replace swaps the list entry for u if present; callers hold mu
func (s *Store) replace(u model.User) {
	for i := range s.users {
		if s.users[i].ID == u.ID {
			s.users[i] = u
			return
		}
	}
}
