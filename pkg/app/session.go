package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/deploymenttheory/go-emmc/internal/device"
	"github.com/deploymenttheory/go-emmc/internal/interfaces"
	"github.com/deploymenttheory/go-emmc/internal/protocol"
	"github.com/deploymenttheory/go-emmc/internal/services"
	"github.com/deploymenttheory/go-emmc/internal/types"
)

// Session owns the device channel for one invocation. It is not safe for
// concurrent use: the protocol allows a single command in flight.
type Session struct {
	transport io.ReadWriteCloser
	framer    *protocol.Framer
	config    *device.Config
	ctx       *Context
}

// OpenSession opens the configured transport.
func OpenSession(ctx *Context, cfg *device.Config) (*Session, error) {
	rw, err := device.OpenTransport(cfg, ctx.Logger)
	if err != nil {
		return nil, NewError(ErrCodeDeviceAccess, "failed to open device", err)
	}
	return NewSession(ctx, rw, cfg), nil
}

// NewSession wraps an already open channel.
func NewSession(ctx *Context, rw io.ReadWriteCloser, cfg *device.Config) *Session {
	return &Session{
		transport: rw,
		framer:    protocol.NewFramer(rw, protocol.WithLogger(ctx.Logger)),
		config:    cfg,
		ctx:       ctx,
	}
}

// Device returns the sector-level view of the device.
func (s *Session) Device() interfaces.SectorDevice {
	return s.framer
}

// Config returns the device configuration of the session.
func (s *Session) Config() *device.Config {
	return s.config
}

// ExtCsd reads and decodes EXT_CSD from the device. Every call is a fresh
// read.
func (s *Session) ExtCsd() (*services.ExtCsdSnapshot, error) {
	snap, err := services.NewExtCsdService(s.framer, services.WithLogger(s.ctx.Logger)).Read()
	if err != nil {
		return nil, Wrap("failed to read EXT_CSD", err)
	}
	return snap, nil
}

// RefreshExtCsd reads EXT_CSD and, when the configured dump path is set,
// saves the raw register there. Region-addressed commands call it before
// touching the device.
func (s *Session) RefreshExtCsd() (*types.ExtCsdInfo, error) {
	snap, err := s.ExtCsd()
	if err != nil {
		return nil, err
	}
	if path := s.config.ExtCsdDumpPath; path != "" {
		if err := os.WriteFile(path, snap.Raw, 0o644); err != nil {
			return nil, NewError(ErrCodeFileAccess, fmt.Sprintf("failed to save EXT_CSD to %s", path), err)
		}
		s.ctx.Log("saved EXT_CSD", "path", path)
	}
	return snap.Info, nil
}

// ServiceOptions builds the sector service options from the session
// configuration and the context's progress callback.
func (s *Session) ServiceOptions() []services.Option {
	opts := []services.Option{
		services.WithLogger(s.ctx.Logger),
		services.WithProgressInterval(s.config.ProgressInterval),
		services.WithWatchdogInterval(s.config.WatchdogInterval),
	}
	if s.ctx.ProgressCallback != nil {
		opts = append(opts, services.WithProgressCallback(func(p services.Progress) {
			s.ctx.Progress(ProgressUpdateFrom(p))
		}))
	}
	return opts
}

// Close closes the transport. In verbose mode an emulated device reports
// its command and image statistics first.
func (s *Session) Close() error {
	if emu, ok := s.transport.(*device.Emulator); ok && s.ctx.Verbose {
		emu.PrintStats(s.ctx.ErrOut)
	}
	return s.transport.Close()
}

// ProgressUpdateFrom converts a sector service progress report.
func ProgressUpdateFrom(p services.Progress) ProgressUpdate {
	return ProgressUpdate{
		Message:     fmt.Sprintf("%s %s", p.Target, p.Phase),
		Target:      p.Target,
		Phase:       string(p.Phase),
		Completed:   int64(p.Done),
		Total:       int64(p.Total),
		StartedAt:   time.Now().Add(-p.Elapsed),
		ElapsedTime: p.Elapsed,
	}
}
