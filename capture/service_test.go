package capture_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/critique/artifact"
	"github.com/hupe1980/critique/capture"
	"github.com/hupe1980/critique/datauri"
	"github.com/hupe1980/critique/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var (
	_ capture.TempStorage = (*artifact.InMemoryStore)(nil)
	_ capture.TempStorage = (*artifact.TempDirStore)(nil)
	_ capture.Host        = (*testutil.FakeHost)(nil)
	_ capture.Document    = (*testutil.FakeDocument)(nil)
)

type fixture struct {
	rec     *testutil.Recorder
	doc     *testutil.FakeDocument
	host    *testutil.FakeHost
	storage *testutil.FakeStorage
	svc     *capture.Service
}

func newFixture(b *testutil.DocumentBuilder) *fixture {
	rec := &testutil.Recorder{}
	var doc *testutil.FakeDocument
	if b != nil {
		doc = b.Build(rec)
	}
	host := testutil.NewFakeHost(doc, rec)
	storage := testutil.NewFakeStorage(rec)
	return &fixture{
		rec:     rec,
		doc:     doc,
		host:    host,
		storage: storage,
		svc:     capture.New(host, storage),
	}
}

func TestCapture_SmallDocumentIsNotResized(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(1000, 1000))

	uri, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))
	assert.Equal(t, 0, f.rec.Count("photo.duplicate"))
	assert.Empty(t, f.doc.Duplicates())
	assert.Equal(t, []string{
		"modal:" + capture.CommandName,
		"active",
		"photo.size",
		"storage.create",
		"photo.export(q=8)",
		"storage.read",
		"storage.delete",
	}, f.rec.Calls())
	assert.Empty(t, f.storage.List())
}

func TestCapture_LargeDocumentIsResizedOnDuplicate(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(4000, 3000))

	_, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"modal:" + capture.CommandName,
		"active",
		"photo.size",
		"photo.duplicate",
		capture.DuplicateName + ".resize(3000,2250)",
		"storage.create",
		capture.DuplicateName + ".export(q=8)",
		"storage.read",
		"storage.delete",
		capture.DuplicateName + ".close",
	}, f.rec.Calls())

	dups := f.doc.Duplicates()
	require.Len(t, dups, 1)
	assert.True(t, dups[0].Closed())
	assert.False(t, f.doc.Closed())
	assert.Equal(t, 4000, f.doc.Width, "original must not be mutated")
}

func TestCapture_PortraitLongEdge(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("tall").Size(1001, 6001))
	f.svc = capture.New(f.host, f.storage, func(o *capture.Options) { o.MaxLongEdge = 2000 })

	_, err := f.svc.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.rec.Count(capture.DuplicateName+".resize(334,2000)"))
}

func TestCapture_ExactlyAtBoundIsNotResized(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(3000, 10))

	_, err := f.svc.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.rec.Count("photo.duplicate"))
}

func TestCapture_NoActiveDocument(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.Capture(context.Background())
	require.ErrorIs(t, err, capture.ErrNoActiveDocument)
	assert.Equal(t, 0, f.rec.Count("storage.create"))
	assert.Equal(t, []string{"modal:" + capture.CommandName, "active"}, f.rec.Calls())
}

func TestCapture_HostReportsNoActiveDocument(t *testing.T) {
	f := newFixture(nil)
	f.host.ActiveErr = capture.ErrNoActiveDocument

	_, err := f.svc.Capture(context.Background())
	require.ErrorIs(t, err, capture.ErrNoActiveDocument)
	var ce *capture.Error
	assert.False(t, errors.As(err, &ce))
}

func TestCapture_DuplicateFailureFallsBackToOriginal(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(4000, 3000).FailDuplicate(errors.New("no memory")))

	uri, err := f.svc.Capture(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, uri)

	assert.Equal(t, 0, f.rec.Count(capture.DuplicateName+".resize(3000,2250)"))
	assert.Equal(t, 1, f.rec.Count("photo.export(q=8)"))
	assert.Equal(t, 0, f.rec.Count("photo.close"), "original must never be closed")
	assert.Equal(t, 1, f.rec.Count("storage.delete"))
}

func TestCapture_ExportFailureCleansUp(t *testing.T) {
	boom := errors.New("disk full")
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(4000, 3000).FailExport(boom))

	_, err := f.svc.Capture(context.Background())
	require.ErrorIs(t, err, boom)

	var ce *capture.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "export", ce.Op)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, 1, f.rec.Count("storage.delete"))
	assert.Equal(t, 1, f.rec.Count(capture.DuplicateName+".close"))
	assert.Equal(t, 0, f.rec.Count("storage.read"))
	assert.Empty(t, f.storage.List())
}

func TestCapture_ResizeFailureClosesDuplicate(t *testing.T) {
	boom := errors.New("resample failed")
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(5000, 5000).FailResize(boom))

	_, err := f.svc.Capture(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.rec.Count(capture.DuplicateName+".close"))
	assert.Equal(t, 0, f.rec.Count("storage.create"))
}

func TestCapture_ReadFailureDeletesArtifact(t *testing.T) {
	boom := errors.New("io error")
	f := newFixture(testutil.NewDocumentBuilder("photo"))
	f.storage.ReadErr = boom

	_, err := f.svc.Capture(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.rec.Count("storage.delete"))
	assert.Empty(t, f.storage.List())
}

func TestCapture_CreateTempFailure(t *testing.T) {
	boom := errors.New("read-only fs")
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(4000, 3000))
	f.storage.CreateErr = boom

	_, err := f.svc.Capture(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.rec.Count("storage.delete"))
	assert.Equal(t, 1, f.rec.Count(capture.DuplicateName+".close"))
}

func TestCapture_CleanupFailuresDoNotMaskResult(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(4000, 3000).
		Payload([]byte("jpeg")).
		FailClose(errors.New("close failed")))
	f.storage.DeleteErr = errors.New("delete failed")

	uri, err := f.svc.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, datauri.Format(datauri.MIMEJPEG, []byte("jpeg")), uri)
}

func TestCapture_CleanupFailureDoesNotMaskError(t *testing.T) {
	boom := errors.New("export failed")
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(4000, 3000).
		FailExport(boom).
		FailClose(errors.New("close failed")))
	f.storage.DeleteErr = errors.New("delete failed")

	_, err := f.svc.Capture(context.Background())
	require.ErrorIs(t, err, boom)
	assert.NotContains(t, err.Error(), "close failed")
	assert.NotContains(t, err.Error(), "delete failed")
}

func TestCapture_ResultDecodesToExportedBytes(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0x00, 0x01, 0x02, 0xff, 0xd9}
	f := newFixture(testutil.NewDocumentBuilder("photo").Payload(payload))

	uri, err := f.svc.Capture(context.Background())
	require.NoError(t, err)

	mime, data, err := datauri.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, datauri.MIMEJPEG, mime)
	raw, err := datauri.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, payload, raw)
}

func TestCapture_DeleteCalledOncePerCapture(t *testing.T) {
	for _, size := range [][2]int{{800, 600}, {6000, 4000}} {
		f := newFixture(testutil.NewDocumentBuilder("photo").Size(size[0], size[1]))
		for i := 0; i < 3; i++ {
			_, err := f.svc.Capture(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, 3, f.rec.Count("storage.delete"), "size %v", size)
	}
}

func TestCapture_CancelledContext(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("photo").Size(4000, 3000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Capture(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.rec.Count(capture.DuplicateName+".close"))
	assert.Empty(t, f.storage.List())
}

func TestNew_InvalidOptionsFallBack(t *testing.T) {
	f := newFixture(testutil.NewDocumentBuilder("photo"))
	svc := capture.New(f.host, f.storage, func(o *capture.Options) {
		o.MaxLongEdge = -1
		o.Quality = 99
	})
	assert.Equal(t, capture.DefaultMaxLongEdge, svc.MaxLongEdge())

	_, err := svc.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.rec.Count("photo.export(q=8)"))
}

func TestScaleToFit(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{4000, 3000, 3000, 3000, 2250},
		{3000, 4000, 3000, 2250, 3000},
		{6000, 1, 3000, 3000, 1},
		{3001, 3001, 3000, 3000, 3000},
		{4500, 3001, 3000, 3000, 2001},
	}
	for _, tt := range tests {
		w, h := capture.ScaleToFit(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}
