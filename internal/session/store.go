// Package session holds the authenticated user and persists the tokens
// that keep them logged in across restarts.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/model"
	"github.com/sirupsen/logrus"
)

// AuthAPI is the part of the auth resource the session uses
type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

// ProfileAPI fetches the token owner's profile
type ProfileAPI interface {
	Current(ctx context.Context) (model.User, error)
}

// State is a snapshot of the session
type State struct {
	User    *model.AuthUser
	Loading bool
	Error   string
}

// Store is the session state container
type Store struct {
	mu    sync.RWMutex
	state State

	auth    AuthAPI
	profile ProfileAPI
	storage Storage
	log     *logrus.Entry
	now     func() time.Time
}

// NewStore creates an empty, logged-out session
func NewStore(auth AuthAPI, profile ProfileAPI, storage Storage, log *logrus.Entry) *Store {
	return &Store{
		auth:    auth,
		profile: profile,
		storage: storage,
		log:     log.WithField("store", "session"),
		now:     time.Now,
	}
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// IsAuthenticated reports whether a user is present
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User != nil
}

// Loading reports whether login or bootstrap is running
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// Error returns the last login error, or ""
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// SetUser replaces the current user without touching storage
func (s *Store) SetUser(u *model.AuthUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = u
}

// SetError sets or clears (with "") the error message
func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = message
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = loading
}

// Login authenticates against the backend, persists the token pair and
// the email, then loads the user's profile. It reports success; on
// failure the reason is available from Error.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	const op = "session.Login"
	log := s.log.WithFields(logrus.Fields{"op": op, "email": email})

	s.mu.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
	defer s.setLoading(false)

	pair, err := s.auth.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		log.WithError(err).Info("login rejected")
		s.SetError(api.MessageOf(err, "Login failed"))
		return false
	}

	if err := s.persist(pair, email); err != nil {
		log.WithError(err).Error("failed to persist tokens")
		s.clearTokens(log)
		s.SetError("Failed to save session")
		return false
	}

	user, err := s.profile.Current(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to load profile after login")
		s.clearTokens(log)
		s.SetError(api.MessageOf(err, "Failed to load your profile"))
		return false
	}

	s.SetUser(model.AuthUserFrom(user))
	log.WithField("user_id", user.ID).Info("logged in")
	return true
}

// Logout forgets the user and every persisted token. There is no
// server-side invalidation.
func (s *Store) Logout() {
	log := s.log.WithField("op", "session.Logout")
	s.clearTokens(log)

	s.mu.Lock()
	s.state.User = nil
	s.state.Error = ""
	s.mu.Unlock()
	log.Info("logged out")
}

func (s *Store) persist(pair model.TokenPair, email string) error {
	if err := s.storage.Set(api.KeyAccessToken, pair.AccessToken); err != nil {
		return err
	}
	if err := s.storage.Set(api.KeyRefreshToken, pair.RefreshToken); err != nil {
		return err
	}
	if email != "" {
		return s.storage.Set(api.KeyUserEmail, email)
	}
	return nil
}

func (s *Store) clearTokens(log *logrus.Entry) {
	if err := s.storage.Delete(api.AllKeys...); err != nil {
		log.WithError(err).Error("failed to clear persisted tokens")
	}
}
