package app_error

import (
	"encoding/json"
	"errors"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func (e AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(e)
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Field:   field,
	}
}

var (
	// ErrNotConfigured is the configuration error raised when no broker connection exists.
	ErrNotConfigured   = errors.New("queue: broker connection is not configured")
	ErrDuplicate       = errors.New("duplicate key")
	ErrNotFound        = errors.New("record not found")
	ErrUnknownCategory = errors.New("unknown job category")
	ErrArchiveDisabled = errors.New("dead letter archive is not configured")
	ErrInvalidPayload  = errors.New("invalid job payload")
)

// FromError maps domain errors to an HTTP facing AppError.
func FromError(err error, field string) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrArchiveDisabled):
		return NewAppError(http.StatusServiceUnavailable, err.Error(), field)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, err.Error(), field)
	case errors.Is(err, ErrUnknownCategory), errors.Is(err, ErrInvalidPayload):
		return NewAppError(http.StatusBadRequest, err.Error(), field)
	default:
		return NewAppError(http.StatusInternalServerError, err.Error(), field)
	}
}
