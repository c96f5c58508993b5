// Package logging provides a minimal logging interface and adapters for critique.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the capture service, providers and the critique façade use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - CritiqueLogger with component / conversation context and capture helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	svc := capture.New(host, store, func(o *capture.Options) { o.Logger = logger })
package logging
