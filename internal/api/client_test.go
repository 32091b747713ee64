package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dori/taskboard/internal/logging"
	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/testutil/fakeapi"
)

// mapTokens is a TokenSource backed by a map
type mapTokens map[string]string

func (m mapTokens) Get(key string) (string, error) { return m[key], nil }

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, Timeout: 5 * time.Second, Tokens: tokens, Log: logging.Discard()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestLoginAndAuthenticatedRequests(t *testing.T) {
	backend, srv := fakeapi.Start(t)
	tokens := mapTokens{}
	c := newTestClient(t, srv.URL+"/", tokens)
	ctx := context.Background()

	pair, err := c.Auth().Login(ctx, model.Credentials{Email: fakeapi.UserEmail, Password: fakeapi.Password})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token pair: %+v", pair)
	}

	tokens[KeyAccessToken] = pair.AccessToken
	me, err := c.Users().Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if me.Email != fakeapi.UserEmail || me.IsAdmin {
		t.Errorf("unexpected profile: %+v", me)
	}

	reqs := backend.Requests()
	last := reqs[len(reqs)-1]
	if last.Authorization != "Bearer "+pair.AccessToken {
		t.Errorf("Authorization = %q", last.Authorization)
	}
	if last.RequestID == "" {
		t.Error("X-Request-ID header missing")
	}
	if !last.HasCookie {
		t.Error("session cookie from login was not sent back")
	}
	if reqs[0].Authorization != "" {
		t.Errorf("login request carried a token: %q", reqs[0].Authorization)
	}
}

func TestErrorsPassThrough(t *testing.T) {
	_, srv := fakeapi.Start(t)
	c := newTestClient(t, srv.URL, mapTokens{})
	ctx := context.Background()

	_, err := c.Auth().Login(ctx, model.Credentials{Email: fakeapi.UserEmail, Password: "wrong"})
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if got := MessageOf(err, "fallback"); got != "Invalid email or password" {
		t.Errorf("MessageOf = %q", got)
	}

	_, err = c.Tasks().List(ctx)
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("list without token: %v", err)
	}
}

func TestMessageListAndTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":["title should not be empty","status must be valid"]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, err := c.Tasks().Create(context.Background(), model.NewTask{})
	if got := MessageOf(err, ""); got != "title should not be empty; status must be valid" {
		t.Errorf("MessageOf = %q", got)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("Error() = %q", err.Error())
	}

	srv.Close()
	_, err = c.Tasks().List(context.Background())
	var apiErr *Error
	if err == nil || errors.As(err, &apiErr) {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if MessageOf(err, "fallback") != "fallback" {
		t.Error("transport errors should use the fallback message")
	}
}

func TestTaskEndpoints(t *testing.T) {
	backend, srv := fakeapi.Start(t)
	tokens := mapTokens{KeyAccessToken: backend.IssueToken(backend.Admin.ID, time.Hour)}
	c := newTestClient(t, srv.URL, tokens)
	ctx := context.Background()

	created, err := c.Tasks().Create(ctx, model.NewTask{Title: "Ship it", Status: model.StatusTodo, AssigneeID: backend.User.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.AssigneeID() != backend.User.ID || created.Creator.ID != backend.Admin.ID {
		t.Errorf("unexpected task refs: %+v", created)
	}

	moved, err := c.Tasks().UpdateStatus(ctx, created.ID, model.StatusInProgress)
	if err != nil || moved.Status != model.StatusInProgress {
		t.Fatalf("UpdateStatus = %+v, %v", moved, err)
	}

	logged, err := c.Tasks().LogTime(ctx, created.ID, 30)
	if err != nil || logged.TotalMinutes != 30 {
		t.Fatalf("LogTime = %+v, %v", logged, err)
	}

	title := "Ship it now"
	edited, err := c.Tasks().Update(ctx, created.ID, model.TaskPatch{Title: &title})
	if err != nil || edited.Title != title || edited.TotalMinutes != 30 {
		t.Fatalf("Update = %+v, %v", edited, err)
	}

	reassigned, err := c.Tasks().UpdateAssignee(ctx, created.ID, backend.Admin.ID)
	if err != nil || reassigned.AssigneeID() != backend.Admin.ID {
		t.Fatalf("UpdateAssignee = %+v, %v", reassigned, err)
	}

	desc, err := c.Tasks().SuggestDescription(ctx, "Ship it")
	if err != nil || !strings.Contains(desc, "Ship it") {
		t.Fatalf("SuggestDescription = %q, %v", desc, err)
	}

	list, err := c.Tasks().List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
}

func TestUserEndpoints(t *testing.T) {
	backend, srv := fakeapi.Start(t)
	tokens := mapTokens{KeyAccessToken: backend.IssueToken(backend.Admin.ID, time.Hour)}
	c := newTestClient(t, srv.URL, tokens)
	ctx := context.Background()

	users, err := c.Users().List(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("List = %+v, %v", users, err)
	}

	updated, err := c.Users().Update(ctx, backend.User.ID, model.UserUpdate{FirstName: "Uma", LastName: "Renamed", Email: "uma@example.com"})
	if err != nil || updated.LastName != "Renamed" {
		t.Fatalf("Update = %+v, %v", updated, err)
	}

	if err := c.Users().Delete(ctx, backend.User.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if backend.HasUser(backend.User.ID) {
		t.Error("user still exists after delete")
	}

	// Expired tokens are rejected by the backend, not by the client
	tokens[KeyAccessToken] = backend.IssueToken(backend.Admin.ID, -time.Minute)
	if _, err := c.Users().List(ctx); !IsUnauthorized(err) {
		t.Errorf("expired token: %v", err)
	}
}

func TestRequestHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := newTestClient(t, srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Tasks().List(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
