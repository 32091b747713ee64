// Package api is a typed client for the task tracker REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Durable storage keys shared by the client and the session store
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserEmail    = "user_email"
)

// AllKeys lists every key the session persists
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserEmail}

// TokenSource reads persisted values, e.g. the access token
type TokenSource interface {
	Get(key string) (string, error)
}

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Log     *logrus.Entry

	// HTTPClient overrides the default client; its Jar and Timeout are kept as-is
	HTTPClient *http.Client
}

// Client performs authenticated JSON requests against the backend
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *logrus.Entry
}

// New creates a client. Cookies set by the backend are kept in an
// in-memory jar and sent back on every request.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc = &http.Client{Jar: jar, Timeout: opts.Timeout}
	}

	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		tokens:  opts.Tokens,
		log:     log.WithField("component", "api"),
	}, nil
}

// BaseURL returns the backend root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Auth returns the auth resource
func (c *Client) Auth() *AuthAPI { return &AuthAPI{c: c} }

// Tasks returns the tasks resource
func (c *Client) Tasks() *TasksAPI { return &TasksAPI{c: c} }

// Users returns the users resource
func (c *Client) Users() *UsersAPI { return &UsersAPI{c: c} }

// do sends body as JSON and decodes a 2xx response into out (if non-nil).
// Non-2xx responses become *Error; nothing else is rewritten.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(method, path, resp)
		log.WithField("message", apiErr.Message).Debug("request rejected")
		return apiErr
	}
	log.Debug("request done")

	if out == nil {
		// drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) accessToken() string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Get(KeyAccessToken)
	if err != nil {
		c.log.WithError(err).Warn("failed to read access token")
		return ""
	}
	return token
}
