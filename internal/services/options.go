package services

import (
	"io"
	"log/slog"
)

// DefaultProgressInterval is the number of sectors between progress updates.
const DefaultProgressInterval = 10

// Config holds the sector service configuration.
type Config struct {
	// ProgressCallback is called during bulk operations (optional)
	ProgressCallback ProgressCallback

	// Logger is used for operation logging (optional)
	Logger *slog.Logger

	// ProgressInterval is the number of sectors between progress updates.
	// Zero reports completion only.
	ProgressInterval uint64

	// WatchdogInterval is the number of sectors between watchdog kicks.
	// Zero disables kicking.
	WatchdogInterval uint64
}

func defaultConfig() Config {
	return Config{
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		ProgressInterval: DefaultProgressInterval,
	}
}

// Option is a functional option for configuring the sector services.
type Option func(*Config)

// WithProgressCallback sets a callback to track bulk transfer progress.
//
// Example:
//
//	svc := services.NewSectorIOService(dev,
//	    services.WithProgressCallback(func(p services.Progress) {
//	        fmt.Printf("%.1f%%\n", p.Percentage())
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithProgressInterval sets the number of sectors between progress updates.
func WithProgressInterval(sectors uint64) Option {
	return func(c *Config) {
		c.ProgressInterval = sectors
	}
}

// WithWatchdogInterval kicks the device watchdog every n sectors during bulk
// transfers. Zero disables it.
func WithWatchdogInterval(sectors uint64) Option {
	return func(c *Config) {
		c.WatchdogInterval = sectors
	}
}
