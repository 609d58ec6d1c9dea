package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned by sources that have no record of the
	// requested event or session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnsupportedKind is returned by sources that only serve some kinds.
	ErrUnsupportedKind = errors.New("session kind not supported by source")
)

// DataUnavailableError reports that a source could not supply a session.
type DataUnavailableError struct {
	Key Key
	Err error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("session %s unavailable: %v", e.Key, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err for key unless it already is a DataUnavailableError.
func Unavailable(key Key, err error) error {
	var dataErr *DataUnavailableError
	if errors.As(err, &dataErr) {
		return err
	}
	return &DataUnavailableError{Key: key, Err: err}
}
