package cmd

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-emmc/internal/device"
	"github.com/deploymenttheory/go-emmc/internal/services"
	"github.com/deploymenttheory/go-emmc/pkg/app"
	"github.com/deploymenttheory/go-emmc/pkg/app/progress"
	"github.com/deploymenttheory/go-emmc/pkg/app/transfer"
)

// newTUI starts the full-screen progress display.
var newTUI = progress.NewTUI

// configFlags maps configuration keys to the persistent flags overriding them.
var configFlags = map[string]string{
	"transport":         "transport",
	"port":              "port",
	"address":           "address",
	"emulator_dir":      "emulator-dir",
	"read_timeout":      "timeout",
	"ext_csd_dump":      "ext-csd-dump",
	"progress_interval": "progress-interval",
	"watchdog_interval": "watchdog-interval",
}

// newAppContext builds the application context from the global flags.
func newAppContext(cmd *cobra.Command, opts *rootOptions) *app.Context {
	ctx := app.NewContext()
	if c := cmd.Context(); c != nil {
		ctx.Context = c
	}
	ctx.OutputFormat = opts.outputFormat
	ctx.Verbose = opts.verbose
	ctx.Quiet = opts.quiet
	ctx.Out = cmd.OutOrStdout()
	ctx.ErrOut = cmd.ErrOrStderr()
	ctx.ConfigureLogging()
	return ctx
}

// loadDeviceConfig resolves the device configuration: flags, then EMMC_*
// environment variables, then the config file, then defaults.
func loadDeviceConfig(cmd *cobra.Command, opts *rootOptions) (*device.Config, error) {
	v := viper.New()
	for key, flag := range configFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	cfg, err := device.LoadConfig(v, opts.configFile)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "invalid configuration", err)
	}
	return cfg, nil
}

// withSession opens the device, attaches a progress sink and runs fn. phases
// label the TUI; nil means the command reports no progress.
func withSession(cmd *cobra.Command, opts *rootOptions, phases []string, fn func(ctx *app.Context, sess *app.Session) error) error {
	ctx := newAppContext(cmd, opts)

	cfg, err := loadDeviceConfig(cmd, opts)
	if err != nil {
		return err
	}

	ctx, cancel := ctx.WithCancel()
	defer cancel()

	release := func() {}
	if phases != nil {
		if release, err = attachProgress(ctx, opts, cmd.CommandPath(), phases, cancel); err != nil {
			return err
		}
	}

	sess, err := app.OpenSession(ctx, cfg)
	if err != nil {
		release()
		return err
	}
	// The display goes first so session statistics land on a normal terminal.
	defer func() {
		release()
		sess.Close()
	}()

	ctx.Log("session opened", "transport", cfg.Transport)
	return fn(ctx, sess)
}

// attachProgress picks the progress sink: none when quiet, the TUI with
// --tui, log records with --verbose, a console line otherwise. The returned
// func releases the sink.
//
// While the TUI owns the terminal, log records are dropped and command
// output is held back until it is released.
func attachProgress(ctx *app.Context, opts *rootOptions, title string, phases []string, cancel func()) (func(), error) {
	switch {
	case opts.quiet:
		return func() {}, nil
	case opts.tui:
		tui, err := newTUI(title)
		if err != nil {
			return nil, app.NewError(app.ErrCodeInvalidInput, "failed to start terminal UI", err)
		}
		tui.SetPhases(phases)
		tui.LayoutAndDraw()
		progress.Attach(ctx, tui)
		go func() {
			select {
			case <-tui.Stopped():
				cancel()
			case <-ctx.Done():
			}
		}()

		out, errOut := ctx.Out, ctx.ErrOut
		var held, heldErr bytes.Buffer
		ctx.Out, ctx.ErrOut = &held, &heldErr
		ctx.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		opts.screen = tui

		return func() {
			opts.screen = nil
			tui.Close()
			ctx.Out, ctx.ErrOut = out, errOut
			held.WriteTo(out)
			heldErr.WriteTo(errOut)
		}, nil
	case opts.verbose:
		progress.Attach(ctx, progress.NewLog(ctx.Logger))
		return func() {}, nil
	default:
		progress.Attach(ctx, progress.NewConsole(ctx.ErrOut))
		return func() {}, nil
	}
}

// confirmOnTerminal wraps a prompt so that an active TUI hands the terminal
// back while the operator answers.
func confirmOnTerminal(opts *rootOptions, prompt transfer.ConfirmFunc) transfer.ConfirmFunc {
	return func(plan *services.PartitionWritePlan) (bool, error) {
		if tui := opts.screen; tui != nil {
			if err := tui.Suspend(); err != nil {
				return false, err
			}
			defer tui.Resume()
		}
		return prompt(plan)
	}
}
