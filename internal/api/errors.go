package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the backend
type Error struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// newError reads the backend's {"message": ...} body. NestJS-style
// validation errors send message as a list of strings.
func newError(method, path string, resp *http.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode, Method: method, Path: path}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return e
	}

	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil || len(body.Message) == 0 {
		return e
	}

	var single string
	if json.Unmarshal(body.Message, &single) == nil {
		e.Message = single
		return e
	}
	var list []string
	if json.Unmarshal(body.Message, &list) == nil {
		e.Message = strings.Join(list, "; ")
	}
	return e
}

// StatusCode returns the HTTP status of err, or 0 if err is not an *Error
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the backend rejected the credentials or token
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// MessageOf returns the backend's message for err, or fallback
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
