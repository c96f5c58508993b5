package imagefile

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"sync"

	// Registered decoders.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/hupe1980/critique/artifact"
	"github.com/hupe1980/critique/capture"
)

// ErrClosed is returned by operations on a closed document.
var ErrClosed = errors.New("document is closed")

// maxHostQuality is the top of the 0..12 export quality scale.
const maxHostQuality = 12

// Document is an in-memory raster implementing capture.Document.
type Document struct {
	name   string
	format string

	mu     sync.RWMutex
	img    image.Image
	closed bool
}

var _ capture.Document = (*Document)(nil)

// NewDocument wraps img.
func NewDocument(name string, img image.Image) *Document {
	return &Document{name: name, img: img}
}

// Decode reads an image in any registered format.
func Decode(name string, r io.Reader) (*Document, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &Document{name: name, format: format, img: img}, nil
}

// Name implements capture.Document.
func (d *Document) Name() string { return d.name }

// Format is the decoded source format ("" for documents built in memory).
func (d *Document) Format() string { return d.format }

// Image returns the current raster.
func (d *Document) Image() (image.Image, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	return d.img, nil
}

// Size implements capture.Document.
func (d *Document) Size(ctx context.Context) (int, int, error) {
	img, err := d.current(ctx)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// Duplicate implements capture.Document with a deep pixel copy.
func (d *Document) Duplicate(ctx context.Context, name string) (capture.Document, error) {
	img, err := d.current(ctx)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Document{name: name, format: d.format, img: dst}, nil
}

// Resize implements capture.Document.
func (d *Document) Resize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), d.img, d.img.Bounds(), draw.Src, nil)
	d.img = dst
	return nil
}

// ExportJPEG implements capture.Document. quality is on the 0..12 host scale.
func (d *Document) ExportJPEG(ctx context.Context, dst artifact.File, quality int) (err error) {
	img, err := d.current(ctx)
	if err != nil {
		return err
	}

	w, err := dst.Writer()
	if err != nil {
		return fmt.Errorf("open %s: %w", dst.Name(), err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst.Name(), cerr)
		}
	}()

	if err := jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: JPEGQuality(quality)}); err != nil {
		return fmt.Errorf("encode %s: %w", dst.Name(), err)
	}
	return nil
}

// CloseWithoutSaving implements capture.Document. Closing twice is a no-op.
func (d *Document) CloseWithoutSaving(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.img = nil
	return nil
}

// Closed reports whether the document was closed.
func (d *Document) Closed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

func (d *Document) current(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Image()
}

// JPEGQuality maps the 0..12 host scale onto JPEG 1..100.
func JPEGQuality(q int) int {
	q = min(max(q, 0), maxHostQuality)
	return max(1, int(math.Round(float64(q)*100/maxHostQuality)))
}

// flatten composites img over white so transparent areas do not turn black.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
