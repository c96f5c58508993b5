package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// TempDirStore keeps artifacts as real files below a private temporary
// directory. The directory is created lazily on first use; RemoveAll deletes
// it together with anything a crashed capture left behind.
type TempDirStore struct {
	parent string

	once sync.Once
	root string
	err  error
}

// NewTempDirStore creates a store rooted below parent. An empty parent means
// the operating system temp directory.
func NewTempDirStore(parent string) *TempDirStore {
	return &TempDirStore{parent: parent}
}

// Root returns the store directory, creating it if necessary.
func (s *TempDirStore) Root() (string, error) {
	s.once.Do(func() {
		s.root, s.err = os.MkdirTemp(s.parent, "critique-")
	})
	return s.root, s.err
}

// CreateTempFile creates (or truncates) the file name inside the store root.
// Directory components in name are ignored.
func (s *TempDirStore) CreateTempFile(ctx context.Context, name string) (File, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	root, err := s.Root()
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(root, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &DiskFile{name: name, path: path}, nil
}

// ReadBytes reads the whole artifact.
func (s *TempDirStore) ReadBytes(ctx context.Context, f File) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	df, err := s.diskFile(f)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(df.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Delete removes the artifact; ErrNotFound if it is already gone.
func (s *TempDirStore) Delete(ctx context.Context, f File) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	df, err := s.diskFile(f)
	if err != nil {
		return err
	}
	err = os.Remove(df.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// RemoveAll deletes the store directory.
func (s *TempDirStore) RemoveAll() error {
	if s.root == "" {
		return nil
	}
	return os.RemoveAll(s.root)
}

func (s *TempDirStore) diskFile(f File) (*DiskFile, error) {
	df, ok := f.(*DiskFile)
	if !ok {
		return nil, fmt.Errorf("artifact %q was not created by a temp dir store", f.Name())
	}
	return df, nil
}

// DiskFile is a File living on the local file system.
type DiskFile struct {
	name string
	path string
}

// Name implements File.
func (f *DiskFile) Name() string { return f.name }

// Path returns the absolute location of the artifact.
func (f *DiskFile) Path() string { return f.path }

// Writer implements File; it truncates the file.
func (f *DiskFile) Writer() (io.WriteCloser, error) {
	return os.Create(f.path)
}
