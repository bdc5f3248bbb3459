package errors

import (
	"fmt"
	"net/http"
)

// OAuth2Error is the standardized OAuth 2.0 error body the authorization
// server returns on a 400 response (RFC 6749, section 5.2).
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Message returns the human-readable message for the outcome contract:
// error_description when the server supplied one, the error code otherwise.
func (e *OAuth2Error) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// RemoteError classifies a failed call to the authorization server. A 400
// status means the server itself rejected the request and Message carries
// its own wording; every other status (and any transport failure, where
// StatusCode is 0) is the generic "server unreachable/unexpected" case.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth server: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("oauth server: %s", e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// BadRequest reports whether the authorization server rejected the request
// itself, as opposed to being unreachable or misbehaving.
func (e *RemoteError) BadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}
