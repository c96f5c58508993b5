package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/critique/artifact"
	"github.com/hupe1980/critique/capture"
)

// FakeHost is a scripted capture.Host. A nil Doc means no open document.
type FakeHost struct {
	Doc       *FakeDocument
	ActiveErr error
	Rec       *Recorder

	mu sync.Mutex
}

// NewFakeHost returns a host whose active document is doc (may be nil).
func NewFakeHost(doc *FakeDocument, rec *Recorder) *FakeHost {
	return &FakeHost{Doc: doc, Rec: rec}
}

// ActiveDocument implements capture.Host.
func (h *FakeHost) ActiveDocument(context.Context) (capture.Document, error) {
	h.Rec.Record("active")
	if h.ActiveErr != nil {
		return nil, h.ActiveErr
	}
	if h.Doc == nil {
		return nil, nil
	}
	return h.Doc, nil
}

// ExecuteAsModal implements capture.Host.
func (h *FakeHost) ExecuteAsModal(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Rec.Record("modal:" + name)
	return fn(ctx)
}

// FakeDocument is a scripted capture.Document.
type FakeDocument struct {
	DocName string
	Width   int
	Height  int
	// Payload is written by ExportJPEG; defaults to a JPEG SOI marker.
	Payload []byte

	DuplicateErr error
	ResizeErr    error
	ExportErr    error
	CloseErr     error

	Rec *Recorder

	mu         sync.Mutex
	duplicates []*FakeDocument
	closed     bool
}

// Name implements capture.Document.
func (d *FakeDocument) Name() string { return d.DocName }

// Size implements capture.Document.
func (d *FakeDocument) Size(context.Context) (int, int, error) {
	d.Rec.Record(d.DocName + ".size")
	return d.Width, d.Height, nil
}

// Duplicate implements capture.Document. The copy shares the recorder and
// inherits the export/resize/close failure script.
func (d *FakeDocument) Duplicate(_ context.Context, name string) (capture.Document, error) {
	d.Rec.Record(d.DocName + ".duplicate")
	if d.DuplicateErr != nil {
		return nil, d.DuplicateErr
	}
	dup := &FakeDocument{
		DocName:   name,
		Width:     d.Width,
		Height:    d.Height,
		Payload:   d.Payload,
		ResizeErr: d.ResizeErr,
		ExportErr: d.ExportErr,
		CloseErr:  d.CloseErr,
		Rec:       d.Rec,
	}
	d.mu.Lock()
	d.duplicates = append(d.duplicates, dup)
	d.mu.Unlock()
	return dup, nil
}

// Resize implements capture.Document.
func (d *FakeDocument) Resize(_ context.Context, width, height int) error {
	d.Rec.Record(fmt.Sprintf("%s.resize(%d,%d)", d.DocName, width, height))
	if d.ResizeErr != nil {
		return d.ResizeErr
	}
	d.Width, d.Height = width, height
	return nil
}

// ExportJPEG implements capture.Document.
func (d *FakeDocument) ExportJPEG(_ context.Context, dst artifact.File, quality int) error {
	d.Rec.Record(fmt.Sprintf("%s.export(q=%d)", d.DocName, quality))
	if d.ExportErr != nil {
		return d.ExportErr
	}
	w, err := dst.Writer()
	if err != nil {
		return err
	}
	payload := d.Payload
	if payload == nil {
		payload = []byte{0xff, 0xd8, 0xff, 0xd9}
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// CloseWithoutSaving implements capture.Document.
func (d *FakeDocument) CloseWithoutSaving(context.Context) error {
	d.Rec.Record(d.DocName + ".close")
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.CloseErr
}

// Duplicates returns the copies created so far.
func (d *FakeDocument) Duplicates() []*FakeDocument {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeDocument(nil), d.duplicates...)
}

// Closed reports whether CloseWithoutSaving was called.
func (d *FakeDocument) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// FakeStorage records calls around an artifact.InMemoryStore and can inject failures.
type FakeStorage struct {
	*artifact.InMemoryStore
	Rec *Recorder

	CreateErr error
	ReadErr   error
	DeleteErr error
}

// NewFakeStorage returns a recording in-memory storage.
func NewFakeStorage(rec *Recorder) *FakeStorage {
	return &FakeStorage{InMemoryStore: artifact.NewInMemoryStore(), Rec: rec}
}

// CreateTempFile implements capture.TempStorage.
func (s *FakeStorage) CreateTempFile(ctx context.Context, name string) (artifact.File, error) {
	s.Rec.Record("storage.create")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	return s.InMemoryStore.CreateTempFile(ctx, name)
}

// ReadBytes implements capture.TempStorage.
func (s *FakeStorage) ReadBytes(ctx context.Context, f artifact.File) ([]byte, error) {
	s.Rec.Record("storage.read")
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.InMemoryStore.ReadBytes(ctx, f)
}

// Delete implements capture.TempStorage. An injected DeleteErr is returned
// after the artifact has been removed.
func (s *FakeStorage) Delete(ctx context.Context, f artifact.File) error {
	s.Rec.Record("storage.delete")
	if err := s.InMemoryStore.Delete(ctx, f); err != nil {
		return err
	}
	return s.DeleteErr
}

// DocumentBuilder helps construct fake documents with fluent chaining.
// Example:
//
//	doc := NewDocumentBuilder("photo").Size(4000, 3000).FailDuplicate(err).Build(rec)
type DocumentBuilder struct {
	doc FakeDocument
}

// NewDocumentBuilder starts a 1000x1000 document named name.
func NewDocumentBuilder(name string) *DocumentBuilder {
	return &DocumentBuilder{doc: FakeDocument{DocName: name, Width: 1000, Height: 1000}}
}

// Size sets the pixel dimensions (chainable).
func (b *DocumentBuilder) Size(width, height int) *DocumentBuilder {
	b.doc.Width, b.doc.Height = width, height
	return b
}

// Payload sets the bytes written on export (chainable).
func (b *DocumentBuilder) Payload(p []byte) *DocumentBuilder {
	b.doc.Payload = p
	return b
}

// FailDuplicate makes Duplicate fail (chainable).
func (b *DocumentBuilder) FailDuplicate(err error) *DocumentBuilder {
	b.doc.DuplicateErr = err
	return b
}

// FailResize makes Resize fail (chainable).
func (b *DocumentBuilder) FailResize(err error) *DocumentBuilder {
	b.doc.ResizeErr = err
	return b
}

// FailExport makes ExportJPEG fail (chainable).
func (b *DocumentBuilder) FailExport(err error) *DocumentBuilder {
	b.doc.ExportErr = err
	return b
}

// FailClose makes CloseWithoutSaving fail (chainable).
func (b *DocumentBuilder) FailClose(err error) *DocumentBuilder {
	b.doc.CloseErr = err
	return b
}

// Build returns the document bound to rec.
func (b *DocumentBuilder) Build(rec *Recorder) *FakeDocument {
	d := &FakeDocument{
		DocName:      b.doc.DocName,
		Width:        b.doc.Width,
		Height:       b.doc.Height,
		Payload:      b.doc.Payload,
		DuplicateErr: b.doc.DuplicateErr,
		ResizeErr:    b.doc.ResizeErr,
		ExportErr:    b.doc.ExportErr,
		CloseErr:     b.doc.CloseErr,
		Rec:          rec,
	}
	return d
}
