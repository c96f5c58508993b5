package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/critique/datauri"
	"github.com/hupe1980/critique/logging"
)

const (
	// DefaultMaxLongEdge bounds the long edge of a capture in pixels.
	DefaultMaxLongEdge = 3000
	// DefaultQuality is the export quality on the host 0..12 scale.
	DefaultQuality = 8
	// MaxQuality is the upper end of the host quality scale.
	MaxQuality = 12

	// DuplicateName names the transient resize copy.
	DuplicateName = "critique_temp_resize"
	// TempFileName names the transient export artifact.
	TempFileName = "critique_temp_scan.jpg"
	// CommandName labels the modal scope in the host.
	CommandName = "Scanning image for critique"
)

// captureLogger is implemented by loggers with a dedicated capture record
// (logging.CritiqueLogger).
type captureLogger interface {
	LogCapture(document string, width, height int, resized bool, size int, dur time.Duration, err error)
}

// Options configure a Service.
type Options struct {
	// MaxLongEdge is the largest allowed width or height. Larger documents are
	// exported from a resized duplicate.
	MaxLongEdge int
	// Quality is the JPEG export quality (host 0..12 scale).
	Quality int
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Service captures the active document of a Host.
type Service struct {
	host    Host
	storage TempStorage
	opts    Options
}

// New creates a capture service. Invalid option values fall back to defaults.
func New(host Host, storage TempStorage, optFns ...func(o *Options)) *Service {
	opts := Options{
		MaxLongEdge: DefaultMaxLongEdge,
		Quality:     DefaultQuality,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxLongEdge <= 0 {
		opts.MaxLongEdge = DefaultMaxLongEdge
	}
	if opts.Quality < 0 || opts.Quality > MaxQuality {
		opts.Quality = DefaultQuality
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Service{host: host, storage: storage, opts: opts}
}

// MaxLongEdge returns the configured bound.
func (s *Service) MaxLongEdge() int { return s.opts.MaxLongEdge }

// Capture snapshots the active document and returns it as a
// data:image/jpeg;base64 URI. It fails with ErrNoActiveDocument when nothing
// is open and with *Error for any other failure.
func (s *Service) Capture(ctx context.Context) (string, error) {
	var uri string
	err := s.host.ExecuteAsModal(ctx, CommandName, func(ctx context.Context) error {
		var err error
		uri, err = s.capture(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	return uri, nil
}

func (s *Service) capture(ctx context.Context) (uri string, err error) {
	start := time.Now()
	log := s.opts.Logger

	doc, err := s.host.ActiveDocument(ctx)
	if errors.Is(err, ErrNoActiveDocument) || (err == nil && doc == nil) {
		return "", ErrNoActiveDocument
	}
	if err != nil {
		return "", wrap("resolve document", err)
	}

	width, height, err := doc.Size(ctx)
	if err != nil {
		return "", wrap("size", err)
	}
	log.Debug("Original image size", "document", doc.Name(), "width", width, "height", height)

	target := doc
	resized := false
	var size int
	defer func() {
		if l, ok := log.(captureLogger); ok {
			l.LogCapture(doc.Name(), width, height, resized, size, time.Since(start), err)
			return
		}
		if err != nil {
			log.Error("Image capture failed", "document", doc.Name(), "error", err)
		}
	}()

	if longEdge := max(width, height); longEdge > s.opts.MaxLongEdge {
		dup, dupErr := doc.Duplicate(ctx, DuplicateName)
		if dupErr != nil {
			// Degraded mode: export the original unresized.
			log.Warn("Duplicate failed, exporting original document", "document", doc.Name(), "error", dupErr)
		} else {
			target = dup
			defer func() {
				if cerr := dup.CloseWithoutSaving(context.WithoutCancel(ctx)); cerr != nil {
					log.Warn("Closing temporary document failed", "document", dup.Name(), "error", cerr)
				}
			}()

			newWidth, newHeight := ScaleToFit(width, height, s.opts.MaxLongEdge)
			log.Debug("Resizing duplicate", "from_long_edge", longEdge, "width", newWidth, "height", newHeight)
			if err := dup.Resize(ctx, newWidth, newHeight); err != nil {
				return "", wrap("resize", err)
			}
			resized = true
		}
	}

	if err := ctx.Err(); err != nil {
		return "", wrap("export", err)
	}

	tmp, err := s.storage.CreateTempFile(ctx, TempFileName)
	if err != nil {
		return "", wrap("create temp file", err)
	}
	defer func() {
		if derr := s.storage.Delete(context.WithoutCancel(ctx), tmp); derr != nil {
			log.Warn("Deleting temporary artifact failed", "artifact", tmp.Name(), "error", derr)
		}
	}()

	if err := target.ExportJPEG(ctx, tmp, s.opts.Quality); err != nil {
		return "", wrap("export", err)
	}

	data, err := s.storage.ReadBytes(ctx, tmp)
	if err != nil {
		return "", wrap("read", err)
	}
	size = len(data)

	return datauri.Format(datauri.MIMEJPEG, data), nil
}

// ScaleToFit returns the dimensions of a width x height image scaled so that
// its long edge equals maxLongEdge, rounding half away from zero. Neither
// dimension drops below one pixel.
func ScaleToFit(width, height, maxLongEdge int) (int, int) {
	longEdge := max(width, height)
	if longEdge <= 0 || maxLongEdge <= 0 {
		return width, height
	}
	ratio := float64(maxLongEdge) / float64(longEdge)
	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))
	return max(w, 1), max(h, 1)
}

// String implements fmt.Stringer for diagnostics.
func (s *Service) String() string {
	return fmt.Sprintf("capture.Service(max_long_edge=%d, quality=%d)", s.opts.MaxLongEdge, s.opts.Quality)
}
