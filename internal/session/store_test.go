package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/logging"
	"github.com/dori/taskboard/internal/testutil/fakeapi"
	"github.com/gin-gonic/gin"
)

type fixture struct {
	backend *fakeapi.Backend
	storage *MemoryStorage
	store   *Store
	close   func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, srv := fakeapi.Start(t)
	storage := NewMemoryStorage()

	client, err := api.New(api.Options{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Tokens:  storage,
		Log:     logging.Discard(),
	})
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}

	return &fixture{
		backend: backend,
		storage: storage,
		store:   NewStore(client.Auth(), client.Users(), storage, logging.Discard()),
		close:   srv.Close,
	}
}

func (f *fixture) requestsTo(path string) int {
	n := 0
	for _, r := range f.backend.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func TestLoginWithValidCredentials(t *testing.T) {
	f := newFixture(t)

	if ok := f.store.Login(context.Background(), fakeapi.AdminEmail, fakeapi.Password); !ok {
		t.Fatalf("Login failed: %q", f.store.Error())
	}
	if !f.store.IsAuthenticated() {
		t.Fatal("expected an authenticated session")
	}

	st := f.store.State()
	if st.User.Email != fakeapi.AdminEmail || !st.User.IsAdmin || st.User.ID != f.backend.Admin.ID {
		t.Errorf("unexpected user: %+v", st.User)
	}
	if st.Loading || st.Error != "" {
		t.Errorf("unexpected state after login: %+v", st)
	}

	for _, key := range api.AllKeys {
		if v, _ := f.storage.Get(key); v == "" {
			t.Errorf("%s was not persisted", key)
		}
	}
	if email, _ := f.storage.Get(api.KeyUserEmail); email != fakeapi.AdminEmail {
		t.Errorf("user_email = %q", email)
	}
}

func TestLoginWithInvalidCredentials(t *testing.T) {
	f := newFixture(t)

	if f.store.Login(context.Background(), fakeapi.UserEmail, "nope") {
		t.Fatal("Login succeeded with a wrong password")
	}
	if f.store.IsAuthenticated() {
		t.Error("session should stay unauthenticated")
	}
	if f.store.Error() == "" {
		t.Error("expected an error message")
	}
	if f.storage.Len() != 0 {
		t.Errorf("nothing should be persisted, have %d keys", f.storage.Len())
	}
}

func TestLoginFallsBackToGenericMessage(t *testing.T) {
	f := newFixture(t)
	f.close()

	if f.store.Login(context.Background(), fakeapi.UserEmail, fakeapi.Password) {
		t.Fatal("Login succeeded without a server")
	}
	if f.store.Error() != "Login failed" {
		t.Errorf("Error = %q, want generic message", f.store.Error())
	}
}

func TestLoginClearsTokensWhenProfileFails(t *testing.T) {
	f := newFixture(t)
	f.backend.Hook = func(c *gin.Context) {
		if c.Request.URL.Path == "/users/current-user" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "profile service down"})
		}
	}

	if f.store.Login(context.Background(), fakeapi.UserEmail, fakeapi.Password) {
		t.Fatal("Login should fail when the profile cannot be loaded")
	}
	if f.store.Error() != "profile service down" {
		t.Errorf("Error = %q", f.store.Error())
	}
	if f.storage.Len() != 0 {
		t.Errorf("tokens should be cleared, have %d keys", f.storage.Len())
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	f := newFixture(t)

	// logged out, with leftovers from an older run
	f.storage.Set(api.KeyAccessToken, "stale")
	f.storage.Set(api.KeyUserEmail, "someone@example.com")
	f.store.Logout()
	if f.storage.Len() != 0 {
		t.Errorf("leftover keys after logout: %d", f.storage.Len())
	}

	if !f.store.Login(context.Background(), fakeapi.UserEmail, fakeapi.Password) {
		t.Fatalf("Login failed: %q", f.store.Error())
	}
	f.store.Logout()
	if f.store.IsAuthenticated() {
		t.Error("user still present after logout")
	}
	if f.storage.Len() != 0 {
		t.Errorf("keys left after logout: %d", f.storage.Len())
	}
	if n := f.requestsTo("/auth/logout"); n != 0 {
		t.Errorf("logout should not call the backend, saw %d requests", n)
	}
}

func TestSetUserDoesNotTouchStorage(t *testing.T) {
	f := newFixture(t)
	f.store.SetUser(nil)
	f.store.SetError("x")
	if f.storage.Len() != 0 || f.store.Error() != "x" {
		t.Fatal("SetUser/SetError changed storage")
	}
}
