package protocol

import (
	"io"
	"log/slog"
)

// Config holds the framer configuration.
type Config struct {
	// Logger receives a debug record per command (optional)
	Logger *slog.Logger
}

func defaultConfig() Config {
	return Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring the Framer.
type Option func(*Config)

// WithLogger sets the logger used for per-command debug records.
//
// Example:
//
//	f := protocol.NewFramer(port, protocol.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
