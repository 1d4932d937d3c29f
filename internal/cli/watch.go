package cli

import (
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/events"
)

func newWatchCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow log entries, notifications and process status",
		Long: `Follow the daemon's event stream until interrupted.

Events are log, notification and status; --events limits which are printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := output(cmd)
			return client.Stream(ctx, "/api/v1/events", func(name string, data []byte) error {
				if name != events.EventConnected && len(only) > 0 && !slices.Contains(only, name) {
					return nil
				}
				return out.PrintEvent(name, data)
			})
		},
	}

	cmd.Flags().StringSliceVar(&only, "events", nil, "Event names to print (log, notification, status)")

	return cmd
}
