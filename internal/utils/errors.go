package utils

import (
	"errors"
	"net/http"

	"github.com/climajusto/iacolhe/internal/models"
)

// AppError is an error that carries the HTTP status and the message shown to the caller.
type AppError struct {
	StatusCode int
	Message    string
	Err        error
	// Notification, when set, is what the web client should show the user.
	Notification *models.Notification
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(status int, message string) *AppError {
	return &AppError{StatusCode: status, Message: message}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message)
}

func NewPaymentRequiredError(message string) *AppError {
	return NewAppError(http.StatusPaymentRequired, message)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message)
}

func NewConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, message)
}

func NewTooManyRequestsError(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, message)
}

func NewInternalError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, message)
}

// WithCause attaches the underlying error for logging; the message stays caller-facing.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func (e *AppError) WithNotification(n models.Notification) *AppError {
	e.Notification = &n
	return e
}

// AsAppError unwraps err into an *AppError when it carries one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
