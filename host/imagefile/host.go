package imagefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/critique/capture"
	"github.com/hupe1980/critique/logging"
)

// Options configure a Host.
type Options struct {
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Host is a capture.Host with a single active document.
type Host struct {
	opts Options

	modal sync.Mutex

	mu     sync.RWMutex
	active *Document
}

var _ capture.Host = (*Host)(nil)

// NewHost creates a host without an active document.
func NewHost(optFns ...func(o *Options)) *Host {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Host{opts: opts}
}

// Open decodes the image at path and makes it the active document.
func (h *Host) Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	doc, err := Decode(filepath.Base(path), f)
	if err != nil {
		return nil, err
	}

	h.SetActive(doc)
	h.opts.Logger.Debug("Document opened", "document", doc.Name(), "format", doc.Format())
	return doc, nil
}

// SetActive replaces the active document. The previous one is left open.
func (h *Host) SetActive(doc *Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = doc
}

// CloseActive closes the active document, if any.
func (h *Host) CloseActive(ctx context.Context) error {
	h.mu.Lock()
	doc := h.active
	h.active = nil
	h.mu.Unlock()

	if doc == nil {
		return nil
	}
	return doc.CloseWithoutSaving(ctx)
}

// ActiveDocument implements capture.Host.
func (h *Host) ActiveDocument(ctx context.Context) (capture.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.active == nil || h.active.Closed() {
		return nil, capture.ErrNoActiveDocument
	}
	return h.active, nil
}

// ExecuteAsModal implements capture.Host. Modal scopes never overlap.
func (h *Host) ExecuteAsModal(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	h.modal.Lock()
	defer h.modal.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	h.opts.Logger.Debug("Modal scope entered", "command", name)
	return fn(ctx)
}
