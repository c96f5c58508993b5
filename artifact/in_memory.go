package artifact

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/mattetti/filebuffer"
)

// InMemoryStore is an in‑process temporary store useful for tests and hosts
// that export without touching the file system. Each artifact is backed by a
// filebuffer.Buffer guarded by the store mutex. Data is copied on read to
// avoid accidental external mutation of internal buffers.
//
// Creating a file with an existing name overwrites it.
type InMemoryStore struct {
	mu    sync.RWMutex
	files map[string]*filebuffer.Buffer
}

// NewInMemoryStore returns an empty in‑memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{files: make(map[string]*filebuffer.Buffer)}
}

// CreateTempFile creates (or overwrites) an empty artifact with the given name.
func (s *InMemoryStore) CreateTempFile(ctx context.Context, name string) (File, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = filebuffer.New([]byte{})
	return &memFile{name: name, store: s}, nil
}

// ReadBytes returns a copy of the artifact content or ErrNotFound.
func (s *InMemoryStore) ReadBytes(ctx context.Context, f File) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.files[f.Name()]
	if !ok {
		return nil, ErrNotFound
	}
	data := buf.Buff.Bytes()
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(ctx context.Context, f File) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.Name()]; !ok {
		return ErrNotFound
	}
	delete(s.files, f.Name())
	return nil
}

// List returns the names of live artifacts in sorted order. A capture that
// finished (successfully or not) leaves nothing behind.
func (s *InMemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type memFile struct {
	name  string
	store *InMemoryStore
}

func (f *memFile) Name() string { return f.name }

func (f *memFile) Writer() (io.WriteCloser, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	buf, ok := f.store.files[f.name]
	if !ok {
		return nil, ErrNotFound
	}
	buf.Buff.Reset()
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &memWriter{file: f}, nil
}

type memWriter struct {
	file *memFile
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.file.store.mu.Lock()
	defer w.file.store.mu.Unlock()
	buf, ok := w.file.store.files[w.file.name]
	if !ok {
		return 0, ErrNotFound
	}
	return buf.Write(p)
}

func (w *memWriter) Close() error { return nil }
