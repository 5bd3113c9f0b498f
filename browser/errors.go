package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates a timeout while loading or querying a page.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrStatus is an HTTP error status without a more specific type.
type ErrStatus struct {
	Code int
	Err  error
}

func (e ErrStatus) Error() string {
	return fmt.Errorf("status %d: %w", e.Code, e.Err).Error()
}

func (e ErrStatus) Unwrap() error {
	return e.Err
}

// Classify wraps err in the matching taxonomy type. statusCode is the HTTP
// status when one is known, otherwise zero. A nil err with a success status
// stays nil.
func Classify(err error, statusCode int) error {
	switch {
	case isTimeout(err):
		return ErrTimeout{Err: err}
	case isConnection(err):
		return ErrConnection{Err: err}
	case statusCode >= http.StatusBadRequest:
		return classifyStatus(err, statusCode)
	}
	return err
}

// StatusError reports a failed document response, or nil for statuses
// below 400.
func StatusError(statusCode int) error {
	if statusCode < http.StatusBadRequest {
		return nil
	}
	return classifyStatus(nil, statusCode)
}

func classifyStatus(err error, statusCode int) error {
	if err == nil {
		err = fmt.Errorf("http status %d", statusCode)
	}
	switch statusCode {
	case http.StatusForbidden:
		return ErrForbidden{Err: err}
	case http.StatusNotFound:
		return ErrNotFound{Err: err}
	case http.StatusTooManyRequests:
		return ErrRateLimited{Err: err}
	}
	return ErrStatus{Code: statusCode, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnection(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// ErrorLabel maps an error to a short category used in logs and metrics.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var status ErrStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	if errors.Is(err, ErrElementNotFound) {
		return "element_missing"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "other"
}
