package capture

import (
	"errors"
	"fmt"
)

// ErrNoActiveDocument is returned when the host has no open document. It is
// not retryable: the user has to open an image first.
var ErrNoActiveDocument = errors.New("no active document found, please open an image")

// Error wraps any host or storage failure that aborted a capture.
type Error struct {
	Op  string // step that failed: size, resize, create-temp, export, read
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
