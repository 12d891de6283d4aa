package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-emmc/pkg/app/progress"
)

// rootOptions holds the global output flags.
type rootOptions struct {
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string
	tui          bool

	// screen is the running TUI, if any
	screen *progress.TUI
}

// NewRootCommand builds the go-emmc command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "go-emmc",
		Short: "Sector-level eMMC access for bootloader-mode devices",
		Long: `go-emmc reads and writes the raw sectors of an eMMC device whose stage2
bootloader exposes sector commands over USB.

The device is addressed as three regions (boot0, boot1, userdata) sized from
EXT_CSD; partitions inside userdata are found through the GPT.

Commands:
  dump-extcsd      Read and decode the EXT_CSD register
  read-gpt         Read and decode the GPT on userdata
  read-partition   Read a GPT partition to a file
  write-partition  Write a file to a GPT partition
  read             Read a sector range of a region
  write            Write a file to a region
  roundtrip-test   Destructive write/read/verify/restore test
  kick-watchdog    Reset the bootloader watchdog
  config           Show the effective configuration`,
		Version:       "0.1.0-dev",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.outputFormat {
			case "table", "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unsupported output format: %s", opts.outputFormat)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress output except errors")
	flags.StringVarP(&opts.outputFormat, "format", "f", "table", "output format (table, json, yaml)")
	flags.StringVar(&opts.configFile, "config", "", "config file (default: emmc-config.yaml in ., ./config, $HOME/.emmc, /etc/emmc)")
	flags.BoolVar(&opts.tui, "tui", false, "show a full-screen progress display")

	// Device flags, bound to configuration keys in loadDeviceConfig
	flags.String("transport", "serial", "device transport (serial, tcp, emulator)")
	flags.String("port", "/dev/ttyACM0", "serial port of the bootloader")
	flags.String("address", "127.0.0.1:7342", "host:port of a USB proxy (tcp transport)")
	flags.String("emulator-dir", "", "directory with boot0.img, boot1.img and userdata.img (emulator transport)")
	flags.Duration("timeout", 5*time.Second, "device read timeout")
	flags.String("ext-csd-dump", "ext_csd.bin", "where region commands save EXT_CSD (empty to skip)")
	flags.Uint64("progress-interval", 10, "sectors between progress updates")
	flags.Uint64("watchdog-interval", 0, "sectors between watchdog resets (0 disables)")

	root.AddCommand(
		newDumpExtCsdCmd(opts),
		newReadGPTCmd(opts),
		newReadPartitionCmd(opts),
		newWritePartitionCmd(opts),
		newReadCmd(opts),
		newWriteCmd(opts),
		newRoundTripCmd(opts),
		newKickWatchdogCmd(opts),
		newConfigCmd(opts),
	)

	return root
}

// Execute runs the command line. Interrupts cancel the running operation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
