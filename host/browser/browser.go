// Package browser implements capture.Host for web image editors running in
// Chrome. The active document is a PNG snapshot of the first page (or of the
// element matched by a CSS selector, e.g. an editor canvas), decoded into an
// imagefile.Document so it can be resized and exported like a file.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hupe1980/critique/capture"
	"github.com/hupe1980/critique/host/imagefile"
	"github.com/hupe1980/critique/logging"
)

// Options configure a Host.
type Options struct {
	// ControlURL connects to a running Chrome (ws://...). Empty launches one.
	ControlURL string
	// Bin is the Chrome binary used when launching. Empty lets rod pick.
	Bin      string
	Headless bool
	// URL is opened on Start when set.
	URL string
	// Selector limits the snapshot to one element.
	Selector string
	// FullPage captures beyond the viewport.
	FullPage bool
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Host snapshots a browser page.
type Host struct {
	opts Options

	modal sync.Mutex

	mu      sync.RWMutex
	browser *rod.Browser
	page    *rod.Page
}

var _ capture.Host = (*Host)(nil)

// New creates an unconnected host.
func New(optFns ...func(o *Options)) *Host {
	opts := Options{Headless: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Host{opts: opts}
}

// Start connects to (or launches) Chrome and opens Options.URL if set.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser != nil {
		return nil
	}

	controlURL := h.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(h.opts.Headless)
		if h.opts.Bin != "" {
			l = l.Bin(h.opts.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	if h.opts.URL != "" {
		page, err := browser.Page(proto.TargetCreateTarget{URL: h.opts.URL})
		if err != nil {
			_ = browser.Close()
			return fmt.Errorf("open %s: %w", h.opts.URL, err)
		}
		if err := page.WaitLoad(); err != nil {
			_ = browser.Close()
			return fmt.Errorf("load %s: %w", h.opts.URL, err)
		}
		h.page = page
	}

	h.browser = browser
	h.opts.Logger.Info("Browser connected", "control_url", controlURL)
	return nil
}

// Close disconnects from the browser.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser == nil {
		return nil
	}
	err := h.browser.Close()
	h.browser = nil
	h.page = nil
	return err
}

// ActiveDocument implements capture.Host by taking a fresh snapshot.
func (h *Host) ActiveDocument(ctx context.Context) (capture.Document, error) {
	page, err := h.activePage()
	if err != nil {
		return nil, err
	}
	page = page.Context(ctx)

	name := "page"
	if info, err := page.Info(); err == nil && info.Title != "" {
		name = info.Title
	}

	var data []byte
	if h.opts.Selector != "" {
		el, err := page.Element(h.opts.Selector)
		if err != nil {
			return nil, fmt.Errorf("find %q: %w", h.opts.Selector, err)
		}
		data, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		if err != nil {
			return nil, fmt.Errorf("snapshot %q: %w", h.opts.Selector, err)
		}
	} else {
		data, err = page.Screenshot(h.opts.FullPage, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot page: %w", err)
		}
	}

	h.opts.Logger.Debug("Page snapshot taken", "document", name, "bytes", len(data))

	doc, err := decodeSnapshot(name, data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ExecuteAsModal implements capture.Host. Modal scopes never overlap.
func (h *Host) ExecuteAsModal(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	h.modal.Lock()
	defer h.modal.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (h *Host) activePage() (*rod.Page, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.browser == nil {
		return nil, capture.ErrNoActiveDocument
	}
	if h.page != nil {
		return h.page, nil
	}

	pages, err := h.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, capture.ErrNoActiveDocument
	}
	return pages.First(), nil
}

func decodeSnapshot(name string, data []byte) (*imagefile.Document, error) {
	if len(data) == 0 {
		return nil, errors.New("empty snapshot")
	}
	return imagefile.Decode(name, bytes.NewReader(data))
}
