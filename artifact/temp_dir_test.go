package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempDirStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewTempDirStore(t.TempDir())
	t.Cleanup(func() { _ = s.RemoveAll() })

	f, err := s.CreateTempFile(ctx, "scan.jpg")
	require.NoError(t, err)
	df, ok := f.(*DiskFile)
	require.True(t, ok)

	root, err := s.Root()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "scan.jpg"), df.Path())

	write(t, f, "jpeg bytes")
	out, err := s.ReadBytes(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(out))

	require.NoError(t, s.Delete(ctx, f))
	_, err = os.Stat(df.Path())
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, s.Delete(ctx, f), ErrNotFound)
	_, err = s.ReadBytes(ctx, f)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTempDirStore_IgnoresDirectoryComponents(t *testing.T) {
	ctx := context.Background()
	s := NewTempDirStore(t.TempDir())

	f, err := s.CreateTempFile(ctx, "../../escape.jpg")
	require.NoError(t, err)
	root, err := s.Root()
	require.NoError(t, err)
	assert.Equal(t, root, filepath.Dir(f.(*DiskFile).Path()))
}

func TestTempDirStore_RejectsForeignFiles(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryStore()
	f, err := mem.CreateTempFile(ctx, "scan.jpg")
	require.NoError(t, err)

	_, err = NewTempDirStore(t.TempDir()).ReadBytes(ctx, f)
	assert.Error(t, err)
}
