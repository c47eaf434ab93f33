package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Kind classifies the business errors the HTTP layer knows how to map.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindConflict
)

// KindError is a business error with a caller visible message.
type KindError struct {
	Kind Kind
	Msg  string
}

func (err *KindError) Error() string { return err.Msg }

func NewNotFoundError(msg string) error  { return &KindError{Kind: KindNotFound, Msg: msg} }
func NewForbiddenError(msg string) error { return &KindError{Kind: KindForbidden, Msg: msg} }
func NewConflictError(msg string) error  { return &KindError{Kind: KindConflict, Msg: msg} }

func isKind(err error, kind Kind) bool {
	kErr, ok := errors.Cause(err).(*KindError)
	return ok && kErr.Kind == kind
}

func IsNotFound(err error) bool  { return isKind(err, KindNotFound) }
func IsForbidden(err error) bool { return isKind(err, KindForbidden) }
func IsConflict(err error) bool  { return isKind(err, KindConflict) }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
