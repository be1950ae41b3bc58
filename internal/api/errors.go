// Package api is the client for the Media Center HTTP API. Every response
// is decoded into typed structs and validated before it leaves the package.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
)

var (
	// ErrMalformedResponse wraps any response that does not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidInput is returned before a request is sent.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFileAlreadyExists indicates an upload or rename collided with an existing name.
	ErrFileAlreadyExists = errors.New("file already exists")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// HTTPStatus lets the transport layer classify the error.
func (e *StatusError) HTTPStatus() int {
	return e.Status
}

func (e *StatusError) Is(target error) bool {
	return target == ErrFileAlreadyExists && e.Status == nethttp.StatusConflict
}

// maxErrorBody bounds how much of an error body is read.
const maxErrorBody = 4096

func newStatusError(resp *nethttp.Response) *StatusError {
	se := &StatusError{Status: resp.StatusCode}
	if resp.Request != nil {
		se.Method = resp.Request.Method
		se.Path = resp.Request.URL.Path
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, m := range []string{payload.Message, payload.Error, payload.Detail} {
			if m != "" {
				se.Message = m
				return se
			}
		}
	}
	se.Message = strings.TrimSpace(string(body))
	return se
}

func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsNotFound reports a 404.
func IsNotFound(err error) bool {
	return statusOf(err) == nethttp.StatusNotFound
}

// IsUnauthorized reports a 401, usually a bad or expired token.
func IsUnauthorized(err error) bool {
	return statusOf(err) == nethttp.StatusUnauthorized
}

// IsForbidden reports a 403. For password-protected folders and shares
// this means the password is missing or wrong.
func IsForbidden(err error) bool {
	return statusOf(err) == nethttp.StatusForbidden
}

// IsFileExistsError reports a name collision, either a 409 or a 400 whose
// message says so.
func IsFileExistsError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrFileAlreadyExists) {
		return true
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Status != nethttp.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(se.Message)
	for _, indicator := range []string{"already exists", "duplicate", "name already in use"} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, what, err)
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
