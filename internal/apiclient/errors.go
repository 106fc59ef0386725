package apiclient

import (
	"errors"
	"fmt"
)

// Error is returned for every failed request. Message carries the short,
// user-facing wording the dashboard shows (for example "Request failed with
// status code 500", "timeout of 10000ms exceeded", "Network Error").
type Error struct {
	Method     string
	Path       string
	StatusCode int    // 0 when no response was received
	Message    string // user-facing text
	Detail     string // server-provided error text, if any
	Timeout    bool
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("apiclient: %s %s: %s", e.Method, e.Path, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the user-facing text of err: the Message of an *Error, or
// err.Error() for anything else. It returns "" for a nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
