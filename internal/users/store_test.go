package users

import (
	"context"
	"testing"
	"time"

	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/logging"
	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/testutil/fakeapi"
	"github.com/gin-gonic/gin"
)

type tokens map[string]string

func (t tokens) Get(key string) (string, error) { return t[key], nil }

func newStore(t *testing.T, as func(b *fakeapi.Backend) model.User) (*fakeapi.Backend, *Store) {
	t.Helper()
	backend, srv := fakeapi.Start(t)
	client, err := api.New(api.Options{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Tokens:  tokens{api.KeyAccessToken: backend.IssueToken(as(backend).ID, time.Hour)},
		Log:     logging.Discard(),
	})
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}
	return backend, NewStore(client.Users(), logging.Discard())
}

func asAdmin(b *fakeapi.Backend) model.User { return b.Admin }
func asUser(b *fakeapi.Backend) model.User  { return b.User }

func find(list []model.User, id string) (model.User, bool) {
	for _, u := range list {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

func TestFetchCurrentUser(t *testing.T) {
	backend, store := newStore(t, asAdmin)
	if store.CurrentFetched() || store.IsAdmin() {
		t.Fatal("fresh store should know nothing")
	}

	store.FetchCurrentUser(context.Background())

	cur := store.CurrentUser()
	if cur == nil || cur.ID != backend.Admin.ID {
		t.Fatalf("CurrentUser = %+v", cur)
	}
	if !store.CurrentFetched() || !store.IsAdmin() || store.Loading() {
		t.Errorf("fetched=%v admin=%v loading=%v", store.CurrentFetched(), store.IsAdmin(), store.Loading())
	}
}

func TestFetchCurrentUserFailureStillCompletes(t *testing.T) {
	backend, store := newStore(t, asUser)
	backend.Hook = func(c *gin.Context) {
		c.AbortWithStatusJSON(500, gin.H{"message": "boom"})
	}

	store.FetchCurrentUser(context.Background())

	if !store.CurrentFetched() {
		t.Error("a failed fetch should still count as completed")
	}
	if store.IsAdmin() || store.Error() != "boom" {
		t.Errorf("admin=%v error=%q", store.IsAdmin(), store.Error())
	}
}

func TestFetchAllUsersRequiresAdmin(t *testing.T) {
	_, store := newStore(t, asUser)
	store.FetchAllUsers(context.Background())
	if store.Error() != "Forbidden resource" || len(store.Users()) != 0 {
		t.Errorf("error=%q users=%d", store.Error(), len(store.Users()))
	}

	_, admin := newStore(t, asAdmin)
	admin.FetchAllUsers(context.Background())
	if len(admin.Users()) != 2 || admin.Error() != "" {
		t.Errorf("admin list = %+v (%s)", admin.Users(), admin.Error())
	}
}

func TestUpdateUserReconcilesBothCopies(t *testing.T) {
	backend, store := newStore(t, asAdmin)
	store.FetchCurrentUser(context.Background())
	store.FetchAllUsers(context.Background())

	// only the first name changes; the rest comes from the cache
	if !store.UpdateUser(context.Background(), backend.Admin.ID, model.UserUpdate{FirstName: "Grace"}) {
		t.Fatalf("UpdateUser failed: %q", store.Error())
	}

	if cur := store.CurrentUser(); cur.FirstName != "Grace" || cur.LastName != "Admin" || cur.Email != fakeapi.AdminEmail {
		t.Errorf("current user = %+v", cur)
	}
	listed, _ := find(store.Users(), backend.Admin.ID)
	if listed.FirstName != "Grace" {
		t.Errorf("list entry = %+v", listed)
	}
}

func TestUpdateOtherUserLeavesCurrent(t *testing.T) {
	backend, store := newStore(t, asAdmin)
	store.FetchCurrentUser(context.Background())
	store.FetchAllUsers(context.Background())

	if !store.UpdateUser(context.Background(), backend.User.ID, model.UserUpdate{Email: "uma@example.com"}) {
		t.Fatalf("UpdateUser failed: %q", store.Error())
	}
	listed, _ := find(store.Users(), backend.User.ID)
	if listed.Email != "uma@example.com" || listed.FirstName != "Uma" {
		t.Errorf("list entry = %+v", listed)
	}
	if store.CurrentUser().ID != backend.Admin.ID {
		t.Error("current user changed")
	}
}

func TestUpdateUnknownUserIncomplete(t *testing.T) {
	backend, store := newStore(t, asAdmin)

	if store.UpdateUser(context.Background(), "nobody", model.UserUpdate{FirstName: "X"}) {
		t.Fatal("update with missing fields should fail")
	}
	if store.Error() != ErrIncomplete {
		t.Errorf("Error = %q", store.Error())
	}
	for _, r := range backend.Requests() {
		if r.Method == "PATCH" {
			t.Error("nothing should be sent for an incomplete update")
		}
	}
}

func TestDeleteUserReconcilesBothCopies(t *testing.T) {
	backend, store := newStore(t, asAdmin)
	store.FetchCurrentUser(context.Background())
	store.FetchAllUsers(context.Background())

	if !store.DeleteUser(context.Background(), backend.User.ID) {
		t.Fatalf("DeleteUser failed: %q", store.Error())
	}
	if _, ok := find(store.Users(), backend.User.ID); ok {
		t.Error("deleted user still listed")
	}
	if backend.HasUser(backend.User.ID) {
		t.Error("delete did not reach the backend")
	}

	if !store.DeleteUser(context.Background(), backend.Admin.ID) {
		t.Fatalf("DeleteUser failed: %q", store.Error())
	}
	if store.CurrentUser() != nil || store.IsAdmin() {
		t.Error("deleting yourself should clear the current user")
	}
}

func TestDeleteMissingUser(t *testing.T) {
	_, store := newStore(t, asAdmin)
	if store.DeleteUser(context.Background(), "nobody") {
		t.Fatal("expected failure")
	}
	if store.Error() != "User not found" {
		t.Errorf("Error = %q", store.Error())
	}
}

func TestReset(t *testing.T) {
	_, store := newStore(t, asAdmin)
	store.FetchCurrentUser(context.Background())
	store.FetchAllUsers(context.Background())

	store.Reset()

	if store.CurrentUser() != nil || store.CurrentFetched() || len(store.Users()) != 0 {
		t.Error("Reset left state behind")
	}
}
