package artifact

import "fmt"

var (
	// ErrNotFound is returned when an artifact does not exist (never created
	// or already deleted) in the underlying store.
	ErrNotFound = fmt.Errorf("artifact not found")
)
