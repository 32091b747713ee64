package session

import (
	"context"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/model"
	"github.com/sirupsen/logrus"
)

// Bootstrap rehydrates the session from a persisted access token. It is
// meant to run once at startup; Loading is true while it runs.
//
// A token whose exp claim has passed skips the profile call. A 401 from
// the backend (or a locally expired token) triggers one refresh attempt.
// Any remaining failure clears every persisted key without reporting an
// error, leaving the user logged out.
func (s *Store) Bootstrap(ctx context.Context) {
	log := s.log.WithField("op", "session.Bootstrap")

	s.setLoading(true)
	defer s.setLoading(false)

	token, err := s.storage.Get(api.KeyAccessToken)
	if err != nil {
		log.WithError(err).Warn("failed to read persisted token")
		s.reset(log)
		return
	}
	if token == "" {
		log.Debug("no persisted session")
		return
	}

	refreshed := false
	if tokenExpired(token, s.now()) {
		log.Debug("persisted access token expired")
		if !s.refresh(ctx, log) {
			s.reset(log)
			return
		}
		refreshed = true
	}

	user, err := s.profile.Current(ctx)
	if err != nil && api.IsUnauthorized(err) && !refreshed && s.refresh(ctx, log) {
		user, err = s.profile.Current(ctx)
	}
	if err != nil {
		log.WithError(err).Debug("session rehydration failed")
		s.reset(log)
		return
	}

	s.SetUser(model.AuthUserFrom(user))
	log.WithField("user_id", user.ID).Info("session restored")
}

// refresh swaps the persisted refresh token for a new pair
func (s *Store) refresh(ctx context.Context, log *logrus.Entry) bool {
	refreshToken, err := s.storage.Get(api.KeyRefreshToken)
	if err != nil || refreshToken == "" {
		return false
	}

	pair, err := s.auth.Refresh(ctx, refreshToken)
	if err != nil {
		log.WithError(err).Debug("token refresh failed")
		return false
	}

	// keep the stored email
	if err := s.persist(pair, ""); err != nil {
		log.WithError(err).Error("failed to persist refreshed tokens")
		return false
	}
	log.Debug("tokens refreshed")
	return true
}

func (s *Store) reset(log *logrus.Entry) {
	s.clearTokens(log)
	s.SetUser(nil)
}
