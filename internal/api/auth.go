package api

import (
	"context"
	"net/http"

	"github.com/dori/taskboard/internal/model"
)

// AuthAPI wraps the /auth resource
type AuthAPI struct {
	c *Client
}

// Login exchanges credentials for a token pair
func (a *AuthAPI) Login(ctx context.Context, creds model.Credentials) (model.TokenPair, error) {
	var out model.TokenPair
	err := a.c.do(ctx, http.MethodPost, "/auth/login", creds, &out)
	return out, err
}

// Refresh exchanges a refresh token for a new pair
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	var out model.TokenPair
	body := map[string]string{"refreshToken": refreshToken}
	err := a.c.do(ctx, http.MethodPost, "/auth/refresh", body, &out)
	return out, err
}
