// Package rpc implements the named-procedure call boundary to the hosted
// backend. Every business operation is a POST of named parameters to
// <base>/rpc/<procedure>; the response is either a success payload or a
// structured error body. This file defines the error taxonomy callers branch
// on: transient transport failures are retried (queued), deterministic
// business rejections are not.
package rpc

import (
	"errors"
	"fmt"
)

// ErrDuplicateSuppressed reports that the backend recognized the client
// transaction id as already processed. The work was done; callers treat this
// as success.
var ErrDuplicateSuppressed = errors.New("transaction already processed")

// BusinessError is a deterministic backend rejection (insufficient stock,
// unknown shop id). Retrying it yields the identical failure, so it must
// never be queued for replay.
type BusinessError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *BusinessError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend rejected request (%s): %s", e.Code, e.Message)
	}
	return "backend rejected request: " + e.Message
}

// NetworkError is a transient delivery failure: connection refused, timeout,
// or a backend 5xx. The submission is safe to queue and replay.
type NetworkError struct {
	Procedure string
	Err       error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Procedure, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *NetworkError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be handled by queueing and retrying.
func IsTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsBusiness reports whether err is a deterministic backend rejection.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}
