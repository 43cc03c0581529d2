package student

import (
	"context"
	"errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
)

var (
	// errors
	ErrNotFound            = errors.New("student not found")
	ErrDuplicateEmail      = errors.New("a student with this email already exists")
	ErrMatriculeTaken      = errors.New("matricule already taken")
	ErrGenerationExhausted = errors.New("could not generate a unique matricule")
	ErrStaleVersion        = errors.New("student was modified since it was read")
	ErrAlreadyEnrolled     = errors.New("student is already enrolled in this class")
	ErrNotEligible         = errors.New("student is not eligible for enrollment")
)

type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindDuplicateEmail      ErrorKind = "duplicate_email"
	KindClassUnavailable    ErrorKind = "class_unavailable"
	KindCapacityExceeded    ErrorKind = "capacity_exceeded"
	KindGenerationExhausted ErrorKind = "generation_exhausted"
	KindStorage             ErrorKind = "storage"

	KindNotFound        ErrorKind = "not_found"
	KindStaleVersion    ErrorKind = "stale_version"
	KindAlreadyEnrolled ErrorKind = "already_enrolled"
)

// EnrollError is the single structured failure returned by the Service.
// Whatever the kind, nothing the call wrote is left in storage.
type EnrollError struct {
	Kind   ErrorKind
	Detail string
	Fields []core.FieldError
	Err    error
}

func (e *EnrollError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *EnrollError) Unwrap() error { return e.Err }

// Retryable reports whether calling again with the same input may succeed.
func (e *EnrollError) Retryable() bool {
	return e.Kind == KindStorage || e.Kind == KindGenerationExhausted
}

// KindOf returns the kind of an error returned by the Service, "" for nil.
// Foreign errors are storage errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ee *EnrollError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindStorage
}

// classify wraps `err` into an EnrollError.
func classify(err error) *EnrollError {
	var ee *EnrollError
	if errors.As(err, &ee) {
		return ee
	}

	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return &EnrollError{Kind: KindValidation, Detail: vErr.Error(), Fields: vErr.Fields, Err: err}
	}

	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return &EnrollError{
			Kind:   KindDuplicateEmail,
			Detail: ErrDuplicateEmail.Error(),
			Fields: []core.FieldError{{Field: "email", Error: ErrDuplicateEmail.Error()}},
			Err:    err,
		}
	case errors.Is(err, classroom.ErrNotFound), errors.Is(err, classroom.ErrUnavailable):
		return &EnrollError{Kind: KindClassUnavailable, Detail: classroom.ErrUnavailable.Error(), Err: err}
	case errors.Is(err, classroom.ErrCapacityExceeded):
		return &EnrollError{Kind: KindCapacityExceeded, Detail: classroom.ErrCapacityExceeded.Error(), Err: err}
	case errors.Is(err, ErrGenerationExhausted):
		return &EnrollError{Kind: KindGenerationExhausted, Detail: ErrGenerationExhausted.Error(), Err: err}
	case errors.Is(err, ErrNotFound):
		return &EnrollError{Kind: KindNotFound, Detail: ErrNotFound.Error(), Err: err}
	case errors.Is(err, ErrStaleVersion):
		return &EnrollError{Kind: KindStaleVersion, Detail: ErrStaleVersion.Error(), Err: err}
	case errors.Is(err, ErrAlreadyEnrolled):
		return &EnrollError{Kind: KindAlreadyEnrolled, Detail: ErrAlreadyEnrolled.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &EnrollError{Kind: KindStorage, Detail: "the operation timed out", Err: err}
	}
	return &EnrollError{Kind: KindStorage, Detail: "storage failure", Err: err}
}
