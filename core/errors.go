package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tags the domain errors the HTTP layer knows how to map.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidationFailed
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidationFailed:
		return "ValidationFailed"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	default:
		return "Internal"
	}
}

// FieldError is used to indicate an error with a specific payload field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return fmt.Sprintf("validation failed: %s: %s", err.Fields[0].Field, err.Fields[0].Error)
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// FieldMessages groups the field errors by field, keeping their order.
func (err ValidationError) FieldMessages() map[string][]string {
	msgs := make(map[string][]string, len(err.Fields))
	for _, fe := range err.Fields {
		msgs[fe.Field] = append(msgs[fe.Field], fe.Error)
	}
	return msgs
}

// NotFoundError reports a missing resource. Entity is the message label of the resource type.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (err NotFoundError) Error() string {
	if err.ID == "" {
		return err.Entity + " not found"
	}
	return fmt.Sprintf("%s %q not found", err.Entity, err.ID)
}

// ConflictError reports a write rejected because of the current state of the store.
type ConflictError struct {
	Err   error
	Field string
}

func NewConflictError(err error, field string) error {
	return &ConflictError{Err: err, Field: field}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "conflict"
	}
	return err.Err.Error()
}

// KindOf returns the kind of the root cause of err.
func KindOf(err error) ErrorKind {
	switch errors.Cause(err).(type) {
	case *ValidationError:
		return KindValidationFailed
	case *NotFoundError:
		return KindNotFound
	case *ConflictError:
		return KindConflict
	default:
		return KindInternal
	}
}
