package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-emmc/internal/services"
	"github.com/deploymenttheory/go-emmc/internal/types"
	"github.com/deploymenttheory/go-emmc/pkg/app"
	"github.com/deploymenttheory/go-emmc/pkg/app/transfer"
)

var regionHelp = "region (" + strings.Join(types.RegionNames(), ", ") + ")"

func newReadCmd(opts *rootOptions) *cobra.Command {
	req := &transfer.ReadRequest{}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a sector range of a region to a file",
		Long: `Read sectors from boot0, boot1 or userdata. A length of 0 reads to the end
of the region. EXT_CSD is read first to size the region.

Examples:
  go-emmc read --region boot0 --start 0 --length 1024 --output boot0.bin
  go-emmc read --region userdata --start 0 --length 0 --output userdata.img`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, []string{"Read"}, func(ctx *app.Context, sess *app.Session) error {
				resp, err := transfer.HandleRead(ctx, sess, req)
				if err != nil {
					return err
				}
				return transfer.FormatRange(ctx.Out, resp, ctx.OutputFormat)
			})
		},
	}

	cmd.Flags().StringVar(&req.Region, "region", "", regionHelp)
	cmd.Flags().Uint64Var(&req.Start, "start", 0, "first sector")
	cmd.Flags().Uint64Var(&req.Count, "length", 0, "number of sectors (0 reads to the end)")
	cmd.Flags().StringVar(&req.OutPath, "output", "", "output file")
	cmd.MarkFlagRequired("region")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newWriteCmd(opts *rootOptions) *cobra.Command {
	req := &transfer.WriteRequest{}

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a file to a region",
		Long: `Write a file to boot0, boot1 or userdata starting at a sector. The last
sector is zero padded.

Example:
  go-emmc write --region boot0 --start 0 --input boot0.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, []string{"Write"}, func(ctx *app.Context, sess *app.Session) error {
				resp, err := transfer.HandleWrite(ctx, sess, req)
				if err != nil {
					return err
				}
				return transfer.FormatRange(ctx.Out, resp, ctx.OutputFormat)
			})
		},
	}

	cmd.Flags().StringVar(&req.Region, "region", "", regionHelp)
	cmd.Flags().Uint64Var(&req.Start, "start", 0, "first sector")
	cmd.Flags().StringVar(&req.InPath, "input", "", "input file")
	cmd.MarkFlagRequired("region")
	cmd.MarkFlagRequired("input")
	return cmd
}

func newReadPartitionCmd(opts *rootOptions) *cobra.Command {
	req := &transfer.ReadPartitionRequest{}

	cmd := &cobra.Command{
		Use:   "read-partition",
		Short: "Read a GPT partition to a file",
		Long: `Find a partition by label (case-insensitive) and read all of it.

Example:
  go-emmc read-partition --label boot_a --output boot_a.img`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, []string{"Read"}, func(ctx *app.Context, sess *app.Session) error {
				resp, err := transfer.HandleReadPartition(ctx, sess, req)
				if err != nil {
					return err
				}
				return transfer.FormatRange(ctx.Out, resp, ctx.OutputFormat)
			})
		},
	}

	cmd.Flags().StringVar(&req.Label, "label", "", "partition label")
	cmd.Flags().StringVar(&req.OutPath, "output", "", "output file")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newWritePartitionCmd(opts *rootOptions) *cobra.Command {
	req := &transfer.WritePartitionRequest{}

	cmd := &cobra.Command{
		Use:   "write-partition",
		Short: "Write a file to a GPT partition",
		Long: `Find a partition by label and write a file over it. A file larger than the
partition is rejected. A smaller file leaves the end of the partition as it
is and asks for confirmation unless --yes is given.

Example:
  go-emmc write-partition --label boot_a --input boot_a.img`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Confirm = confirmOnTerminal(opts, promptShortWrite(cmd.InOrStdin(), cmd.ErrOrStderr()))
			return withSession(cmd, opts, []string{"Write"}, func(ctx *app.Context, sess *app.Session) error {
				resp, err := transfer.HandleWritePartition(ctx, sess, req)
				if err != nil {
					return err
				}
				return transfer.FormatRange(ctx.Out, resp, ctx.OutputFormat)
			})
		},
	}

	cmd.Flags().StringVar(&req.Label, "label", "", "partition label")
	cmd.Flags().StringVar(&req.InPath, "input", "", "input file")
	cmd.Flags().BoolVarP(&req.AssumeYes, "yes", "y", false, "write a short file without asking")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("input")
	return cmd
}

// promptShortWrite asks on out and reads the answer from in. Only "y" or
// "yes" proceeds.
func promptShortWrite(in io.Reader, out io.Writer) transfer.ConfirmFunc {
	return func(plan *services.PartitionWritePlan) (bool, error) {
		fmt.Fprintln(out, "Warning: File is smaller than partition")
		fmt.Fprintf(out, "  File size: %d sectors (%d bytes)\n", plan.InputSectors, plan.InputBytes)
		fmt.Fprintf(out, "  Partition size: %d sectors (%d bytes)\n", plan.Extent.Capacity, plan.Extent.Capacity*types.SectorSize)
		fmt.Fprintf(out, "  %d sectors will remain unchanged at the end\n", plan.UntouchedSectors())
		fmt.Fprint(out, "Continue with write? [y/N]: ")

		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			fmt.Fprintln(out, "Write cancelled")
			return false, nil
		}
	}
}

func newRoundTripCmd(opts *rootOptions) *cobra.Command {
	req := &transfer.RoundTripRequest{}

	cmd := &cobra.Command{
		Use:   "roundtrip-test",
		Short: "Destructive write/read/verify test with restore",
		Long: `Snapshot a sector range, stamp it with a test pattern, read it back and
compare, then restore the snapshot. By default the last 100 sectors of boot1
are tested.

A write failure while stamping or restoring aborts at once and can leave the
range stamped. Interrupts are honoured only while snapshotting.

Examples:
  go-emmc roundtrip-test
  go-emmc roundtrip-test --region userdata --start 4096 --count 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.StartSet = cmd.Flags().Changed("start")
			phases := []string{"Snapshot", "Stamp", "Verify", "Restore"}
			return withSession(cmd, opts, phases, func(ctx *app.Context, sess *app.Session) error {
				resp, err := transfer.HandleRoundTrip(ctx, sess, req)
				if err != nil {
					return err
				}
				if err := transfer.FormatRoundTrip(ctx.Out, resp, ctx.OutputFormat); err != nil {
					return err
				}
				if !resp.RoundTripResult.Passed() {
					return app.NewError(app.ErrCodeVerifyFailed,
						fmt.Sprintf("round-trip verification failed: %d sector(s) mismatched", len(resp.Mismatches)), nil)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Region, "region", transfer.DefaultRoundTripRegion, regionHelp)
	cmd.Flags().Uint64Var(&req.Start, "start", 0, "first sector (default: the last --count sectors of the region)")
	cmd.Flags().Uint64Var(&req.Count, "count", transfer.DefaultRoundTripCount, "number of sectors")
	return cmd
}
