package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Destinations for results and diagnostics
	Out    io.Writer
	ErrOut io.Writer

	// Structured logger, built by ConfigureLogging
	Logger *slog.Logger

	// Progress reporting
	ProgressCallback func(update ProgressUpdate)
}

// NewContext creates a new application context
func NewContext() *Context {
	return &Context{
		Context:      context.Background(),
		OutputFormat: "table",
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// ConfigureLogging builds the logger from the verbosity flags: debug with
// Verbose, warnings only with Quiet, info otherwise. Records go to ErrOut.
func (c *Context) ConfigureLogging() {
	level := slog.LevelInfo
	switch {
	case c.Quiet:
		level = slog.LevelWarn
	case c.Verbose:
		level = slog.LevelDebug
	}
	c.Logger = slog.New(slog.NewTextHandler(c.ErrOut, &slog.HandlerOptions{Level: level}))
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(ProgressUpdate)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(update ProgressUpdate) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(update)
	}
}

// Printf writes a human-readable line to Out unless quiet
func (c *Context) Printf(format string, args ...any) {
	if !c.Quiet {
		fmt.Fprintf(c.Out, format, args...)
	}
}

// Log outputs a debug record
func (c *Context) Log(message string, args ...any) {
	c.Logger.Debug(message, args...)
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet {
		fmt.Fprintln(c.ErrOut, "Error:", message)
	}
}
