package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

// AppError is the error contract between services and handlers.
type AppError struct {
	Code    Code
	Op      string // e.g. "AssignmentService.Claim"
	Message string // safe to show to clients
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == code
}

func HTTPStatus(err error) int {
	var ae *AppError
	if !errors.As(err, &ae) {
		if errors.Is(err, ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Store-level sentinels. Services translate them into AppError codes.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate")
	ErrAlreadyAssigned = errors.New("conversation already assigned")
	ErrNotAssignee     = errors.New("expert is not assigned to conversation")

	// ErrExpertNotFound still matches ErrNotFound for callers that do not care which row is missing.
	ErrExpertNotFound = fmt.Errorf("expert %w", ErrNotFound)
)
