package device

import (
	"fmt"
	"io"
	"log/slog"
)

// OpenTransport opens the byte channel selected by cfg.Transport.
func OpenTransport(cfg *Config, logger *slog.Logger) (io.ReadWriteCloser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch cfg.Transport {
	case TransportSerial:
		logger.Debug("opening serial transport", "port", cfg.Port, "timeout", cfg.ReadTimeout)
		port, err := OpenSerial(cfg.Port, cfg.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return port, nil
	case TransportTCP:
		logger.Debug("opening tcp transport", "address", cfg.Address, "timeout", cfg.ReadTimeout)
		conn, err := DialTCP(cfg.Address, cfg.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case TransportEmulator:
		logger.Debug("opening emulator transport", "dir", cfg.EmulatorDir)
		emu, err := OpenEmulatorDir(cfg.EmulatorDir, WithEmulatorLogger(logger))
		if err != nil {
			return nil, err
		}
		return emu, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
