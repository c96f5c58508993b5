package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"strings"

	"github.com/hupe1980/critique"
	"github.com/hupe1980/critique/artifact"
	"github.com/hupe1980/critique/capture"
	"github.com/hupe1980/critique/config"
	"github.com/hupe1980/critique/host/browser"
	"github.com/hupe1980/critique/host/imagefile"
	"github.com/hupe1980/critique/internal/providers"
	"github.com/hupe1980/critique/logging"
)

// commonFlags are shared by scan, chat and mcp.
type commonFlags struct {
	configPath      string
	model           string
	browserURL      string
	browserControl  string
	browserSelector string
	logLevel        string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default: user config dir)")
	fs.StringVar(&c.model, "model", "", "model override, e.g. gemini-2.0-flash, gpt-4o, mock-model")
	fs.StringVar(&c.browserURL, "browser-url", "", "snapshot this URL in Chrome instead of an image file")
	fs.StringVar(&c.browserControl, "browser-control", "", "connect to a running Chrome (ws:// debugger URL)")
	fs.StringVar(&c.browserSelector, "browser-selector", "", "CSS selector of the element to snapshot")
	fs.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
}

func (c *commonFlags) useBrowser() bool {
	return c.browserURL != "" || c.browserControl != ""
}

// app bundles everything a command needs.
type app struct {
	settings config.Settings
	logger   *logging.CritiqueLogger
	capturer *capture.Service
	critic   *critique.Critic
	cleanup  func()
}

func loadSettings(path string) (config.Settings, string, error) {
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Settings{}, "", err
		}
		path = p
	}
	s, err := config.Load(path)
	if err != nil {
		return s, path, err
	}
	s.ApplyEnv(nil)
	return s, path, nil
}

func newApp(ctx context.Context, fs *flag.FlagSet, flags *commonFlags, logOut io.Writer) (*app, error) {
	settings, _, err := loadSettings(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.model != "" {
		settings.Model = flags.model
	}
	if flags.logLevel != "" {
		settings.Log.Level = flags.logLevel
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(settings.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: settings.Log.Format,
		Output: logOut,
	})

	m, err := providers.New(settings)
	if err != nil {
		return nil, err
	}

	var (
		host    capture.Host
		closers []func()
	)
	switch {
	case flags.useBrowser():
		bh := browser.New(func(o *browser.Options) {
			o.ControlURL = flags.browserControl
			o.URL = flags.browserURL
			o.Selector = flags.browserSelector
			o.Logger = logger.WithComponent("browser")
		})
		if err := bh.Start(ctx); err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = bh.Close() })
		host = bh
	default:
		if fs.NArg() != 1 {
			return nil, errors.New("expected exactly one image path")
		}
		ih := imagefile.NewHost(func(o *imagefile.Options) {
			o.Logger = logger.WithComponent("imagefile")
		})
		if _, err := ih.Open(fs.Arg(0)); err != nil {
			return nil, err
		}
		host = ih
	}

	storage := artifact.NewTempDirStore(settings.Capture.TempDir)
	closers = append(closers, func() { _ = storage.RemoveAll() })

	capturer := capture.New(host, storage, func(o *capture.Options) {
		o.MaxLongEdge = settings.Capture.MaxLongEdge
		o.Quality = settings.Capture.Quality
		o.Logger = logger.WithComponent("capture")
	})

	critic := critique.New(capturer, m, func(o *critique.Options) {
		o.Logger = logger.WithComponent("critic")
		o.Instruction = settings.Instruction
		o.MaxTurns = settings.MaxTurns
		if strings.TrimSpace(settings.Prompt) != "" {
			o.Prompt = settings.Prompt
		}
	})

	return &app{
		settings: settings,
		logger:   logger,
		capturer: capturer,
		critic:   critic,
		cleanup: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
