package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/testutil/fakeapi"
	"gopkg.in/yaml.v3"
)

type cli struct {
	t       *testing.T
	config  string
	backend *fakeapi.Backend
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	backend, srv := fakeapi.Start(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "taskboard.yml")
	content := fmt.Sprintf("api_url: %s\ndata_dir: %s\nlog:\n  level: debug\n", srv.URL, filepath.Join(dir, "data"))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &cli{t: t, config: path, backend: backend}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run("", args...)
	if err != nil {
		c.t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("", "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("whoami before login: %v", err)
	}

	out, err := c.run(fakeapi.Password+"\n", "login", "--email", fakeapi.AdminEmail)
	if err != nil {
		t.Fatalf("login failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Ada Admin") {
		t.Errorf("login output = %q", out)
	}

	if out := c.mustRun("whoami"); !strings.Contains(out, "(admin)") {
		t.Errorf("whoami output = %q", out)
	}

	c.mustRun("logout")
	if _, err := c.run("", "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("whoami after logout: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "login", "--email", fakeapi.UserEmail, "--password", "nope")
	if err == nil || err.Error() != "Invalid email or password" {
		t.Errorf("err = %v", err)
	}
}

func TestReadPasswordFromPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	fmt.Fprint(w, "secret123\r\n")
	w.Close()

	var prompt bytes.Buffer
	got, err := readPassword(r, &prompt)
	if err != nil {
		t.Fatal(err)
	}
	if got != "secret123" {
		t.Errorf("password = %q", got)
	}
}

func TestReadPasswordEmptyInput(t *testing.T) {
	if _, err := readPassword(strings.NewReader(""), io.Discard); err == nil {
		t.Error("expected an error on empty input")
	}
}

func TestTasksWorkflow(t *testing.T) {
	c := newCLI(t)
	c.mustRun("login", "-e", fakeapi.UserEmail, "-p", fakeapi.Password)

	c.mustRun("tasks", "add", "Write", "docs", "--status", "in-progress")
	created := c.backend.Tasks()
	if len(created) != 1 || created[0].Title != "Write docs" || created[0].Status != model.StatusInProgress {
		t.Fatalf("backend tasks = %+v", created)
	}
	id := created[0].ID

	if out := c.mustRun("tasks", "log", id, "30"); !strings.Contains(out, "total 30m") {
		t.Errorf("log output = %q", out)
	}
	c.mustRun("tasks", "log", id, "15")
	c.mustRun("tasks", "status", id, "done")

	out := c.mustRun("tasks", "list", "-o", "yaml")
	var rows []taskRow
	if err := yaml.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("list output is not yaml: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].TotalMinutes != 45 || rows[0].Status != "DONE" {
		t.Errorf("rows = %+v", rows)
	}

	if out := c.mustRun("tasks", "journal"); !strings.Contains(out, "Write docs") {
		t.Errorf("journal output = %q", out)
	}
	if out := c.mustRun("tasks", "list"); !strings.Contains(out, "100% done") {
		t.Errorf("table output = %q", out)
	}
}

func TestTasksValidation(t *testing.T) {
	c := newCLI(t)
	c.mustRun("login", "-e", fakeapi.UserEmail, "-p", fakeapi.Password)
	task := c.backend.SeedTask("seeded", model.StatusTodo, c.backend.User)

	for _, minutes := range []string{"0", "481", "abc"} {
		if _, err := c.run("", "tasks", "log", task.ID, minutes); err == nil {
			t.Errorf("minutes %s accepted", minutes)
		}
	}
	if _, err := c.run("", "tasks", "add", "  "); err == nil {
		t.Error("blank title accepted")
	}
	if _, err := c.run("", "tasks", "status", task.ID, "blocked"); err == nil {
		t.Error("unknown status accepted")
	}
	if _, err := c.run("", "tasks", "list", "-o", "xml"); err == nil {
		t.Error("unknown format accepted")
	}

	for _, r := range c.backend.Requests() {
		if r.Path == "/tasks/"+task.ID+"/time" {
			t.Error("invalid minutes reached the backend")
		}
	}
}

func TestUsersCommands(t *testing.T) {
	c := newCLI(t)
	c.mustRun("login", "-e", fakeapi.UserEmail, "-p", fakeapi.Password)
	if _, err := c.run("", "users", "list"); err == nil {
		t.Error("regular users must not list users")
	}

	c.mustRun("logout")
	c.mustRun("login", "-e", fakeapi.AdminEmail, "-p", fakeapi.Password)
	if out := c.mustRun("users", "list"); !strings.Contains(out, fakeapi.UserEmail) {
		t.Errorf("users list = %q", out)
	}
	c.mustRun("users", "delete", c.backend.User.ID)
	if c.backend.HasUser(c.backend.User.ID) {
		t.Error("user not deleted")
	}
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	if out := c.mustRun("version"); !strings.HasPrefix(out, "taskboard v") {
		t.Errorf("version output = %q", out)
	}
}
