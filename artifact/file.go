package artifact

import (
	"context"
	"io"
)

// File is a handle to a temporary artifact created by a store. Hosts export
// into it through Writer; the capture service reads it back through the store.
type File interface {
	// Name is the artifact name the file was created with.
	Name() string
	// Writer truncates the artifact and returns a writer for its new content.
	Writer() (io.WriteCloser, error)
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
