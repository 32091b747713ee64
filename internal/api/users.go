package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dori/taskboard/internal/model"
)

// UsersAPI wraps the /users resource
type UsersAPI struct {
	c *Client
}

// Current returns the profile of the token's owner
func (u *UsersAPI) Current(ctx context.Context) (model.User, error) {
	var out model.User
	err := u.c.do(ctx, http.MethodGet, "/users/current-user", nil, &out)
	return out, err
}

// List returns all users. Admin only.
func (u *UsersAPI) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := u.c.do(ctx, http.MethodGet, "/users", nil, &out)
	return out, err
}

// Update edits a user; all three fields must be set
func (u *UsersAPI) Update(ctx context.Context, id string, update model.UserUpdate) (model.User, error) {
	var out model.User
	err := u.c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), update, &out)
	return out, err
}

// Delete removes a user
func (u *UsersAPI) Delete(ctx context.Context, id string) error {
	return u.c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}
