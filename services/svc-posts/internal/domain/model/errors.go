package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFilterKind         = errors.New("operator not supported for field type")
	ErrMalformedFilter           = errors.New("malformed filter")
	ErrInvalidSort               = errors.New("invalid sort")
	ErrIdentityConflict          = errors.New("a new post cannot already have an id")
	ErrPostNotFound              = errors.New("post not found")
	ErrCategoryNotFound          = errors.New("category not found")
	ErrDuplicatePost             = errors.New("post already exists")
	ErrInvalidPost               = errors.New("invalid post")
	ErrSecondaryIndexWriteFailed = errors.New("search index write failed")
	ErrSearchQuery               = errors.New("search query error")
	ErrResultWindowTooLarge      = errors.New("result window too large")
	ErrDatabaseConnection        = errors.New("database connection error")
	ErrDatabaseQuery             = errors.New("database query error")
)

// FilterError pins a filter rejection to the offending parameter.
type FilterError struct {
	Field    string
	Operator string
	Value    string
	Err      error
}

func (e *FilterError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Field)
	}

	return fmt.Sprintf("%s: %s.%s=%q", e.Err, e.Field, e.Operator, e.Value)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Field   string
	Message string
	Code    string
}

type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ErrInvalidPost.Error()
	}

	return fmt.Sprintf("%s: %s", ErrInvalidPost, v.Errors[0].Message)
}

func (v *ValidationErrors) Unwrap() error {
	return ErrInvalidPost
}

func (v *ValidationErrors) Add(field, message, code string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
	})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]ValidationError, 0),
	}
}
