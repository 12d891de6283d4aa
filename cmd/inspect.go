package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-emmc/pkg/app"
	"github.com/deploymenttheory/go-emmc/pkg/app/inspect"
)

func newDumpExtCsdCmd(opts *rootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "dump-extcsd",
		Short: "Read and decode the EXT_CSD register",
		Long: `Read the 512-byte EXT_CSD register, save it and show the region sizes it
describes.

Examples:
  go-emmc dump-extcsd
  go-emmc dump-extcsd --output backup/ext_csd.bin -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, nil, func(ctx *app.Context, sess *app.Session) error {
				resp, err := inspect.HandleExtCsd(ctx, sess, &inspect.ExtCsdRequest{OutPath: outPath})
				if err != nil {
					return err
				}
				return inspect.FormatExtCsd(ctx.Out, resp, ctx.OutputFormat)
			})
		},
	}

	cmd.Flags().StringVar(&outPath, "output", "ext_csd.bin", "file to save the raw register to (empty to skip)")
	return cmd
}

func newReadGPTCmd(opts *rootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "read-gpt",
		Short: "Read and decode the GPT on the userdata region",
		Long: `Read the protective MBR, the primary GPT header and the partition entry
array from userdata and list the partitions.

Examples:
  go-emmc read-gpt
  go-emmc read-gpt --output gpt.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, nil, func(ctx *app.Context, sess *app.Session) error {
				resp, err := inspect.HandleGPT(ctx, sess, &inspect.GPTRequest{OutPath: outPath})
				if err != nil {
					return err
				}
				return inspect.FormatGPT(ctx.Out, resp, ctx.OutputFormat)
			})
		},
	}

	cmd.Flags().StringVar(&outPath, "output", "", "file to save the raw MBR, header and entry sectors to")
	return cmd
}
