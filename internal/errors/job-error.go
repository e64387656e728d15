package app_error

import (
	"errors"
	"fmt"
)

// JobError is a handler failure carrying its own retry hint.
type JobError struct {
	Code        string
	Message     string
	Recoverable bool
	Err         error
}

func (e *JobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *JobError) Unwrap() error {
	return e.Err
}

func Recoverable(code, msg string, err error) *JobError {
	return &JobError{Code: code, Message: msg, Recoverable: true, Err: err}
}

func NonRecoverable(code, msg string, err error) *JobError {
	return &JobError{Code: code, Message: msg, Recoverable: false, Err: err}
}

// InfraError marks a failure that must escape the execution wrapper so the
// broker applies its attempt counter and backoff.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("infrastructure failure during %s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InfraError{Op: op, Err: err}
}

func IsInfra(err error) bool {
	var infra *InfraError
	return errors.As(err, &infra)
}
