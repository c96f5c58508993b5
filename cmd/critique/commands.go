package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/critique/config"
	"github.com/hupe1980/critique/internal/mcpserver"
	"github.com/hupe1980/critique/internal/panel"
	"github.com/hupe1980/critique/markdown"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runScan(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	prompt := fs.String("prompt", "", "what the critique should focus on")
	format := fs.String("format", "terminal", "output format: terminal, markdown or html")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall timeout")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: critique scan [options] <image>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	a, err := newApp(ctx, fs, &flags, stderr)
	if err != nil {
		return err
	}
	defer a.cleanup()

	reply, err := a.critic.Scan(ctx, *prompt)
	if err != nil {
		return err
	}

	out, err := renderReply(reply.Display, *format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}

func renderReply(text, format string) (string, error) {
	switch strings.ToLower(format) {
	case "markdown", "md", "text":
		return text, nil
	case "html":
		return markdown.ToHTML(text)
	case "terminal", "":
		return markdown.ToTerminal(text, 100, "")
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func runChat(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: critique chat [options] <image>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	// The panel owns the terminal; logs would corrupt it.
	a, err := newApp(ctx, fs, &flags, io.Discard)
	if err != nil {
		return err
	}
	defer a.cleanup()

	return panel.Run(a.critic, func(o *panel.Options) {
		o.Prompt = a.settings.Prompt
	})
}

func runMCP(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: critique mcp [options] <image>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	// stdout carries the protocol; logs go to stderr.
	a, err := newApp(ctx, fs, &flags, stderr)
	if err != nil {
		return err
	}
	defer a.cleanup()

	srv := mcpserver.NewServer(a.capturer, a.critic, func(o *mcpserver.Options) {
		o.Logger = a.logger.WithComponent("mcp")
	})
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: user config dir)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: critique config [options] set-key <key> | set-model <model> | show")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Edits work on the file alone so environment overrides are never persisted.
	s, err := config.Load(path)
	if err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing config action")
	}

	switch rest[0] {
	case "set-key":
		if len(rest) != 2 || strings.TrimSpace(rest[1]) == "" {
			return errors.New("usage: critique config set-key <key>")
		}
		s.APIKey = strings.TrimSpace(rest[1])
	case "set-model":
		if len(rest) != 2 || strings.TrimSpace(rest[1]) == "" {
			return errors.New("usage: critique config set-model <model>")
		}
		s.Model = strings.TrimSpace(rest[1])
	case "show":
		s.ApplyEnv(nil)
		fmt.Fprintf(stdout, "config:    %s\n", path)
		fmt.Fprintf(stdout, "provider:  %s\n", s.ResolvedProvider())
		fmt.Fprintf(stdout, "model:     %s\n", s.Model)
		fmt.Fprintf(stdout, "api_key:   %s\n", s.MaskedAPIKey())
		fmt.Fprintf(stdout, "long_edge: %d\n", s.Capture.MaxLongEdge)
		fmt.Fprintf(stdout, "quality:   %d\n", s.Capture.Quality)
		if err := s.Validate(); err != nil {
			fmt.Fprintf(stdout, "status:    %v\n", err)
		} else {
			fmt.Fprintln(stdout, "status:    ok")
		}
		return nil
	default:
		return fmt.Errorf("unknown config action %q", rest[0])
	}

	if err := s.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Settings saved to %s\n", path)
	return nil
}
