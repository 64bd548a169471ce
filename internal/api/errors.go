package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// Sentinel errors shared by repositories and services.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Error is an HTTP-facing failure. Operational errors are expected outcomes
// (bad input, wrong password); anything else is a bug or an outage.
type Error struct {
	StatusCode    int
	Message       string
	IsOperational bool
	Err           error
	stack         []byte
}

// NewError returns an operational error with the given status.
func NewError(status int, message string) *Error {
	return &Error{
		StatusCode:    status,
		Message:       message,
		IsOperational: true,
		stack:         debug.Stack(),
	}
}

// WrapError returns an operational error keeping err as its cause.
func WrapError(status int, message string, err error) *Error {
	e := NewError(status, message)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Stack is the goroutine stack captured when the error was created.
func (e *Error) Stack() string {
	return string(e.stack)
}

func BadRequest(message string) *Error {
	return NewError(http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return NewError(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return NewError(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return NewError(http.StatusNotFound, message)
}

func Gone(message string) *Error {
	return NewError(http.StatusGone, message)
}

// ConvertError normalises any error into an *Error. Typed errors pass
// through; missing rows become 404, validation failures 400 and everything
// else a non-operational 500.
func ConvertError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, ErrNotFound):
		return WrapError(http.StatusNotFound, "Not found", err)
	case errors.As(err, &validationErrs):
		return WrapError(http.StatusBadRequest, validationMessage(validationErrs), err)
	case errors.Is(err, ErrAlreadyExists), mongo.IsDuplicateKeyError(err):
		return WrapError(http.StatusBadRequest, "Already exists", err)
	}

	return &Error{
		StatusCode:    http.StatusInternalServerError,
		Message:       http.StatusText(http.StatusInternalServerError),
		IsOperational: false,
		Err:           err,
		stack:         debug.Stack(),
	}
}
