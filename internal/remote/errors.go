package remote

import (
	"errors"
	"fmt"
)

// NetworkError indicates the request never produced a response: no
// transport, DNS failure, timeout. Network errors are absorbed into the
// mutation queue and never surfaced to the UI.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("remote: network unavailable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the remote system.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %s", e.Status)
}

// IsNetwork reports whether err is a transport-level failure (no response).
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRejected reports whether err is a client-class rejection (4xx). Rejected
// mutations are dropped without retry.
func IsRejected(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode >= 400 && ae.StatusCode < 500
	}
	return false
}

// IsTransient reports whether err is a server-class failure (5xx) worth
// retrying.
func IsTransient(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode >= 500
	}
	return false
}

// IsRetryable reports whether the mutation queue should keep the item for
// another drain: transient server failures and network failures both qualify.
func IsRetryable(err error) bool {
	return IsNetwork(err) || IsTransient(err)
}
