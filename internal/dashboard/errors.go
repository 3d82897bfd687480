package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is returned before any work when no identity is present.
var ErrUnauthenticated = errors.New("not authenticated")

// ValidationError names every required field that was empty after trimming.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return "invalid input"
	case 1:
		return e.Fields[0] + " is required"
	default:
		last := len(e.Fields) - 1
		return strings.Join(e.Fields[:last], ", ") + " and " + e.Fields[last] + " are required"
	}
}

// StorageError wraps a failure of the underlying store. The operation that
// returned it wrote nothing.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
