package capture

import (
	"context"

	"github.com/hupe1980/critique/artifact"
)

// Host is the editing application the capture service talks to.
type Host interface {
	// ActiveDocument returns the document currently being edited. Hosts report
	// "nothing open" either with a nil document or with ErrNoActiveDocument.
	ActiveDocument(ctx context.Context) (Document, error)
	// ExecuteAsModal runs fn in an exclusive editing scope that serializes
	// with other edits to the same document. It is not reentrant.
	ExecuteAsModal(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Document is a host document handle.
type Document interface {
	Name() string
	// Size returns the pixel dimensions.
	Size(ctx context.Context) (width, height int, err error)
	// Duplicate creates an independent copy; the original is never mutated.
	Duplicate(ctx context.Context, name string) (Document, error)
	Resize(ctx context.Context, width, height int) error
	// ExportJPEG writes the document into dst. quality uses the host's 0..12 scale.
	ExportJPEG(ctx context.Context, dst artifact.File, quality int) error
	CloseWithoutSaving(ctx context.Context) error
}

// TempStorage creates, reads and deletes the transient export artifact.
type TempStorage interface {
	// CreateTempFile creates the artifact, overwriting any artifact of the same name.
	CreateTempFile(ctx context.Context, name string) (artifact.File, error)
	ReadBytes(ctx context.Context, f artifact.File) ([]byte, error)
	Delete(ctx context.Context, f artifact.File) error
}
