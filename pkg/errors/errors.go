package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed bridge error with HTTP awareness for the admin API.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the sync failure taxonomy. Source and snapshot errors
// are fatal to a cycle but never to the process.
var (
	ErrSourceUnavailable = New("SOURCE_UNAVAILABLE", http.StatusServiceUnavailable, "source database not reachable")
	ErrSnapshotFailed    = New("SNAPSHOT_FAILED", http.StatusServiceUnavailable, "source snapshot copy failed")
	ErrTableRead         = New("TABLE_READ_FAILED", http.StatusInternalServerError, "source table read failed")
	ErrRemoteWrite       = New("REMOTE_WRITE_FAILED", http.StatusBadGateway, "document store write failed")
	ErrUploadFailed      = New("UPLOAD_FAILED", http.StatusBadGateway, "object storage upload failed")
	ErrCycleRunning      = New("CYCLE_RUNNING", http.StatusConflict, "sync cycle already in progress")
	ErrUnauthorized      = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrNotFound          = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation        = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal          = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}
