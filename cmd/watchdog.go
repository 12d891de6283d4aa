package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-emmc/pkg/app"
)

func newKickWatchdogCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kick-watchdog",
		Short: "Reset the bootloader watchdog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, nil, func(ctx *app.Context, sess *app.Session) error {
				if err := sess.Device().KickWatchdog(); err != nil {
					return app.Wrap("failed to reset watchdog", err)
				}
				ctx.Printf("Watchdog reset sent\n")
				return nil
			})
		},
	}
}
