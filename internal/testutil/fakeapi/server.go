// Package fakeapi is an in-memory implementation of the task tracker
// backend for tests.
package fakeapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dori/taskboard/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Password is the password of every seeded account
	Password = "secret123"

	AdminEmail = "admin@example.com"
	UserEmail  = "user@example.com"

	sessionCookie = "tb_session"
)

var signingKey = []byte("fakeapi-signing-key")

// Request is a recorded incoming request
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	HasCookie     bool
}

type account struct {
	user model.User
	hash []byte
}

// Backend holds the fake server's state
type Backend struct {
	mu       sync.Mutex
	accounts map[string]*account // by id
	tasks    []model.Task
	refresh  map[string]string // refresh token -> user id
	requests []Request

	// Hook runs before every handler. It may block, or abort the request
	// with c.AbortWithStatusJSON to simulate failures.
	Hook func(c *gin.Context)

	// AccessTTL is the lifetime of issued access tokens
	AccessTTL time.Duration

	Admin model.User
	User  model.User
}

// New returns a backend seeded with an admin and a regular user
func New() *Backend {
	b := &Backend{
		accounts:  make(map[string]*account),
		refresh:   make(map[string]string),
		AccessTTL: time.Hour,
	}
	b.Admin = b.AddUser("Ada", "Admin", AdminEmail, true)
	b.User = b.AddUser("Uma", "User", UserEmail, false)
	return b
}

// Start serves the backend on a local port for the duration of the test
func Start(t testing.TB) (*Backend, *httptest.Server) {
	t.Helper()
	b := New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

// AddUser creates an account with the shared test password
func (b *Backend) AddUser(first, last, email string, admin bool) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := model.User{
		ID:        uuid.New().String(),
		FirstName: first,
		LastName:  last,
		Email:     email,
		IsAdmin:   admin,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[u.ID] = &account{user: u, hash: hash}
	return u
}

// SeedTask inserts a task created by creator
func (b *Backend) SeedTask(title string, status model.Status, creator model.User) model.Task {
	now := time.Now().UTC()
	t := model.Task{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    status,
		Creator:   creator,
		CreatedAt: now,
		UpdatedAt: now,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, t)
	return t
}

// Tasks returns a copy of the server-side task list
func (b *Backend) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Task(nil), b.tasks...)
}

// HasUser reports whether an account with id still exists
func (b *Backend) HasUser(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.accounts[id]
	return ok
}

// Requests returns every request received so far
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// IssueToken signs an access token for userID that expires after ttl.
// A negative ttl yields an already expired token.
func (b *Backend) IssueToken(userID string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		ID:        uuid.New().String(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return token
}

// IssueRefreshToken registers a refresh token for userID
func (b *Backend) IssueRefreshToken(userID string) string {
	token := uuid.New().String()
	b.mu.Lock()
	b.refresh[token] = userID
	b.mu.Unlock()
	return token
}

// Handler returns the gin router serving the REST API
func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(b.record)
	r.Use(func(c *gin.Context) {
		if b.Hook != nil {
			b.Hook(c)
		}
	})

	r.POST("/auth/login", b.login)
	r.POST("/auth/refresh", b.refreshTokens)

	authed := r.Group("/", b.authenticate)
	authed.GET("/users/current-user", b.currentUser)
	authed.GET("/users", b.requireAdmin, b.listUsers)
	authed.PATCH("/users/:id", b.updateUser)
	authed.DELETE("/users/:id", b.requireAdmin, b.deleteUser)

	authed.GET("/tasks", b.listTasks)
	authed.POST("/tasks", b.createTask)
	authed.POST("/tasks/ai/suggest", b.suggest)
	authed.PUT("/tasks/:id", b.updateTask)
	authed.PATCH("/tasks/:id/status", b.updateStatus)
	authed.PATCH("/tasks/:id/assignee", b.updateAssignee)
	authed.PATCH("/tasks/:id/time", b.logTime)

	return r
}

func (b *Backend) record(c *gin.Context) {
	_, cookieErr := c.Request.Cookie(sessionCookie)
	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Authorization: c.GetHeader("Authorization"),
		RequestID:     c.GetHeader("X-Request-ID"),
		HasCookie:     cookieErr == nil,
	})
	b.mu.Unlock()
	c.Next()
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message, "statusCode": status})
}

func (b *Backend) issuePair(c *gin.Context, userID string) {
	pair := model.TokenPair{
		AccessToken:  b.IssueToken(userID, b.AccessTTL),
		RefreshToken: b.IssueRefreshToken(userID),
	}
	c.SetCookie(sessionCookie, uuid.New().String(), 3600, "/", "", false, true)
	c.JSON(http.StatusOK, pair)
}

func (b *Backend) login(c *gin.Context) {
	var creds model.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	var found *account
	for _, a := range b.accounts {
		if strings.EqualFold(a.user.Email, creds.Email) {
			found = a
			break
		}
	}
	b.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(creds.Password)) != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	b.issuePair(c, found.user.ID)
}

func (b *Backend) refreshTokens(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	userID, ok := b.refresh[body.RefreshToken]
	delete(b.refresh, body.RefreshToken)
	b.mu.Unlock()

	if !ok {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	b.issuePair(c, userID)
}

func (b *Backend) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	b.mu.Lock()
	a, ok := b.accounts[claims.Subject]
	b.mu.Unlock()
	if !ok {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.Set("user", a.user)
	c.Next()
}

func caller(c *gin.Context) model.User {
	return c.MustGet("user").(model.User)
}

func (b *Backend) requireAdmin(c *gin.Context) {
	if !caller(c).IsAdmin {
		fail(c, http.StatusForbidden, "Forbidden resource")
		return
	}
	c.Next()
}

func (b *Backend) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, caller(c))
}

func (b *Backend) listUsers(c *gin.Context) {
	b.mu.Lock()
	users := make([]model.User, 0, len(b.accounts))
	for _, a := range b.accounts {
		users = append(users, a.user)
	}
	b.mu.Unlock()
	slices.SortFunc(users, func(x, y model.User) int { return strings.Compare(x.Email, y.Email) })
	c.JSON(http.StatusOK, users)
}

func (b *Backend) updateUser(c *gin.Context) {
	id := c.Param("id")
	me := caller(c)
	if !me.IsAdmin && me.ID != id {
		fail(c, http.StatusForbidden, "Forbidden resource")
		return
	}

	var update model.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil || !update.Complete() {
		fail(c, http.StatusBadRequest, "firstName, lastName and email are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	a.user.FirstName = update.FirstName
	a.user.LastName = update.LastName
	a.user.Email = update.Email
	c.JSON(http.StatusOK, a.user)
}

func (b *Backend) deleteUser(c *gin.Context) {
	id := c.Param("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[id]; !ok {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	delete(b.accounts, id)
	c.Status(http.StatusNoContent)
}

func (b *Backend) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, b.Tasks())
}

// findTask returns the index of id; callers hold b.mu
func (b *Backend) findTask(id string) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// userRef returns a snapshot of the account; callers hold b.mu
func (b *Backend) userRef(id string) (*model.User, bool) {
	a, ok := b.accounts[id]
	if !ok {
		return nil, false
	}
	u := a.user
	return &u, true
}

func (b *Backend) createTask(c *gin.Context) {
	var req model.NewTask
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, "title should not be empty")
		return
	}
	if req.Status == "" {
		req.Status = model.StatusTodo
	}
	if !req.Status.Valid() {
		fail(c, http.StatusBadRequest, "status must be one of TODO, IN_PROGRESS, DONE")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	t := model.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Creator:     caller(c),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.AssigneeID != "" {
		ref, ok := b.userRef(req.AssigneeID)
		if !ok {
			fail(c, http.StatusBadRequest, "assignee not found")
			return
		}
		t.Assignee = ref
	}
	b.tasks = append(b.tasks, t)
	c.JSON(http.StatusCreated, t)
}

// mutateTask applies fn to the task named in the path and returns it
func (b *Backend) mutateTask(c *gin.Context, fn func(t *model.Task) (int, string)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.findTask(c.Param("id"))
	if i < 0 {
		fail(c, http.StatusNotFound, "Task not found")
		return
	}
	t := b.tasks[i]
	if status, msg := fn(&t); status != 0 {
		fail(c, status, msg)
		return
	}
	t.UpdatedAt = time.Now().UTC()
	b.tasks[i] = t
	c.JSON(http.StatusOK, t)
}

func (b *Backend) updateTask(c *gin.Context) {
	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	b.mutateTask(c, func(t *model.Task) (int, string) {
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return http.StatusBadRequest, "title should not be empty"
			}
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return http.StatusBadRequest, "invalid status"
			}
			t.Status = *patch.Status
		}
		if patch.AssigneeID != nil {
			if *patch.AssigneeID == "" {
				t.Assignee = nil
			} else {
				ref, ok := b.userRef(*patch.AssigneeID)
				if !ok {
					return http.StatusBadRequest, "assignee not found"
				}
				t.Assignee = ref
			}
		}
		if patch.TotalMinutes != nil {
			if *patch.TotalMinutes < 0 {
				return http.StatusBadRequest, "totalMinutes must not be negative"
			}
			t.TotalMinutes = *patch.TotalMinutes
		}
		return 0, ""
	})
}

func (b *Backend) updateStatus(c *gin.Context) {
	var body struct {
		Status model.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !body.Status.Valid() {
		fail(c, http.StatusBadRequest, "invalid status")
		return
	}
	b.mutateTask(c, func(t *model.Task) (int, string) {
		t.Status = body.Status
		return 0, ""
	})
}

func (b *Backend) updateAssignee(c *gin.Context) {
	var body struct {
		AssigneeID string `json:"assigneeId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	b.mutateTask(c, func(t *model.Task) (int, string) {
		ref, ok := b.userRef(body.AssigneeID)
		if !ok {
			return http.StatusBadRequest, "assignee not found"
		}
		t.Assignee = ref
		return 0, ""
	})
}

func (b *Backend) logTime(c *gin.Context) {
	var body struct {
		Minutes int `json:"minutes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Minutes < 1 || body.Minutes > 480 {
		fail(c, http.StatusBadRequest, "minutes must be between 1 and 480")
		return
	}
	b.mutateTask(c, func(t *model.Task) (int, string) {
		t.TotalMinutes += body.Minutes
		return 0, ""
	})
}

func (b *Backend) suggest(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		fail(c, http.StatusBadRequest, "title should not be empty")
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": fmt.Sprintf("Steps to complete %q: scope, implement, review.", body.Title)})
}
