package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/model"
	"github.com/gin-gonic/gin"
)

func TestBootstrapWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.store.Bootstrap(context.Background())

	if f.store.IsAuthenticated() || f.store.Loading() {
		t.Errorf("unexpected state: %+v", f.store.State())
	}
	if len(f.backend.Requests()) != 0 {
		t.Error("bootstrap without a token should not call the backend")
	}
}

func TestBootstrapRestoresSession(t *testing.T) {
	f := newFixture(t)
	f.storage.Set(api.KeyAccessToken, f.backend.IssueToken(f.backend.User.ID, time.Hour))

	f.store.Bootstrap(context.Background())

	st := f.store.State()
	if st.User == nil || st.User.ID != f.backend.User.ID || st.User.IsAdmin {
		t.Fatalf("session not restored: %+v", st.User)
	}
	if st.Loading {
		t.Error("loading flag left set")
	}
}

func TestBootstrapWithExpiredTokenClearsStorage(t *testing.T) {
	f := newFixture(t)
	f.storage.Set(api.KeyAccessToken, f.backend.IssueToken(f.backend.User.ID, -time.Minute))
	f.storage.Set(api.KeyRefreshToken, "revoked")
	f.storage.Set(api.KeyUserEmail, "user@example.com")

	f.store.Bootstrap(context.Background())

	if f.store.IsAuthenticated() {
		t.Error("expired token must not authenticate")
	}
	if f.storage.Len() != 0 {
		t.Errorf("persisted keys not cleared: %d left", f.storage.Len())
	}
	if f.store.Error() != "" {
		t.Errorf("bootstrap failures are silent, got %q", f.store.Error())
	}
	if n := f.requestsTo("/users/current-user"); n != 0 {
		t.Errorf("expired token should skip the profile call, saw %d", n)
	}
}

func TestBootstrapRefreshesOnUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.storage.Set(api.KeyAccessToken, "opaque-and-invalid")
	f.storage.Set(api.KeyRefreshToken, f.backend.IssueRefreshToken(f.backend.Admin.ID))
	f.storage.Set(api.KeyUserEmail, "admin@example.com")

	f.store.Bootstrap(context.Background())

	if !f.store.IsAuthenticated() {
		t.Fatal("refresh should have restored the session")
	}
	access, _ := f.storage.Get(api.KeyAccessToken)
	if access == "opaque-and-invalid" || access == "" {
		t.Errorf("access token not replaced: %q", access)
	}
	if email, _ := f.storage.Get(api.KeyUserEmail); email != "admin@example.com" {
		t.Errorf("user_email lost during refresh: %q", email)
	}
	if n := f.requestsTo("/users/current-user"); n != 2 {
		t.Errorf("expected one retry, saw %d profile calls", n)
	}
}

func TestBootstrapNetworkFailureClearsStorage(t *testing.T) {
	f := newFixture(t)
	f.storage.Set(api.KeyAccessToken, f.backend.IssueToken(f.backend.User.ID, time.Hour))
	f.close()

	f.store.Bootstrap(context.Background())

	if f.store.IsAuthenticated() || f.storage.Len() != 0 {
		t.Errorf("network failure should reset the session, state=%+v keys=%d", f.store.State(), f.storage.Len())
	}
}

func TestBootstrapSetsLoadingWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.storage.Set(api.KeyAccessToken, f.backend.IssueToken(f.backend.User.ID, time.Hour))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.backend.Hook = func(c *gin.Context) {
		if c.Request.URL.Path == "/users/current-user" {
			close(entered)
			<-release
		}
	}

	done := make(chan struct{})
	go func() {
		f.store.Bootstrap(context.Background())
		close(done)
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("bootstrap never reached the backend")
	}
	if !f.store.Loading() {
		t.Error("Loading should be true while bootstrap waits on the backend")
	}
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bootstrap did not finish")
	}
	if f.store.Loading() || !f.store.IsAuthenticated() {
		t.Errorf("unexpected final state: %+v", f.store.State())
	}
}

func TestTokenExpiry(t *testing.T) {
	f := newFixture(t)
	token := f.backend.IssueToken("u", time.Hour)
	exp, ok := TokenExpiry(token)
	if !ok || time.Until(exp) < 59*time.Minute {
		t.Errorf("TokenExpiry = %v, %v", exp, ok)
	}
	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Error("opaque tokens have no readable expiry")
	}
	if tokenExpired("not-a-jwt", time.Now()) {
		t.Error("opaque tokens must be left to the backend")
	}
}

// unreadableStorage fails every read, like a corrupted database
type unreadableStorage struct {
	*MemoryStorage
}

func (unreadableStorage) Get(string) (string, error) {
	return "", errors.New("disk I/O error")
}

func TestBootstrapUnreadableStorageClearsTokens(t *testing.T) {
	f := newFixture(t)
	storage := unreadableStorage{NewMemoryStorage()}
	storage.Set(api.KeyAccessToken, "stale")
	storage.Set(api.KeyRefreshToken, "stale")
	storage.Set(api.KeyUserEmail, "someone@example.com")
	store := NewStore(f.store.auth, f.store.profile, storage, f.store.log)
	store.SetUser(&model.AuthUser{ID: "u1"})

	store.Bootstrap(context.Background())

	if store.IsAuthenticated() || store.Loading() {
		t.Errorf("unexpected state: %+v", store.State())
	}
	if n := storage.Len(); n != 0 {
		t.Errorf("%d persisted keys left behind", n)
	}
	if len(f.backend.Requests()) != 0 {
		t.Error("nothing should reach the backend")
	}
}
