package core

import "github.com/pkg/errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrLocked is returned when a job is already running somewhere else.
	ErrLocked = errors.New("resource is locked")
)

// FieldError is used to indicate an error with a specific struct field.
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
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// StorageError wraps any failure coming from the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err unless it is nil or already a "not found".
func NewStorageError(op string, err error) error {
	if err == nil || err == ErrNotFound {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (err *StorageError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err *StorageError) Cause() error { return err.Err }

func (err *StorageError) Unwrap() error { return err.Err }

func IsStorageError(err error) bool {
	var sErr *StorageError
	return errors.As(err, &sErr)
}

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
