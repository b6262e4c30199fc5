package errors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// common errors
	ErrUserIDNotSet = errors.New("userId not set on context")

	// auth errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrAccountNotFound = errors.New("account not found")
	ErrMissingTokens   = errors.New("account is missing usable tokens")
	ErrTokenExpired    = errors.New("access token expired")

	// provider errors
	ErrProviderNotSupported = errors.New("provider not supported")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidMessageID     = errors.New("invalid message id")
	ErrInvalidDraft         = errors.New("draft cannot be rendered")

	// storage errors
	ErrObjectNotFound = errors.New("object not found")
)

// AuthenticationError means the caller has to sign in again, or reconnect the
// mailbox account when Reconnect is set. It is never retried.
type AuthenticationError struct {
	Reason    string
	Reconnect bool
	Err       error
}

func NewAuthenticationError(reason string, reconnect bool, err error) *AuthenticationError {
	return &AuthenticationError{Reason: reason, Reconnect: reconnect, Err: err}
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// UpstreamError carries the remote API's status and message unchanged.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func NewUpstreamError(provider string, status int, message string, err error) *UpstreamError {
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &UpstreamError{Provider: provider, Status: status, Message: message, Err: err}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error %d: %s", e.Provider, e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
