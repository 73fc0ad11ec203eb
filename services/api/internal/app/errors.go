package app

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUploadFailed = errors.New("upload failed")
	ErrPersistence  = errors.New("persistence error")
)

// Error is a typed failure with a client-facing message.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func validation(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func unauthorized(msg string, err error) error {
	return &Error{Kind: ErrUnauthorized, Message: msg, Err: err}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func uploadFailed(err error) error {
	msg := "Error while uploading file."
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Kind: ErrUploadFailed, Message: msg, Err: err}
}

func persistence(msg string, err error) error {
	return &Error{Kind: ErrPersistence, Message: msg, Err: err}
}
